package changeset

import "go.wsforge.dev/core/internal/git"

// Identifier is a key a commit can be looked up by in a [Map]. The
// concrete types are [ChangeID], [CommitData], and [ChangesetID].
type Identifier interface {
	identifier()
}

// ChangeID is a stable identifier embedded verbatim in a commit
// message trailer across rewrites. It is the strongest identifier: two
// commits sharing one are almost certainly the same logical change.
type ChangeID string

func (ChangeID) identifier() {}

// CommitData identifies a commit by its author identity and message.
// Weaker than [ChangeID]: a rebase that changes nothing else still
// preserves it, but an amend does not.
type CommitData struct {
	AuthorIdentity string
	Message        string
}

func (CommitData) identifier() {}

// ChangesetID identifies a commit by the content of the changes it
// introduces, per [Compute]. Weakest identifier: any commit
// introducing the identical diff matches, regardless of authorship.
type ChangesetID ID

func (ChangesetID) identifier() {}

// entry is a single slot in the similarity map: either holding the OID
// it was inserted with, or marked evicted by a colliding insertion.
type entry struct {
	oid     git.Hash
	evicted bool
}

// Map is a cross-stack similarity lookup: it associates commits with
// every identifier they are known under, so that a commit on one stack
// can be matched against a commit on another even after a rebase or
// rewrite changes some of its identifiers.
//
// A given identifier value may only ever refer to one commit: a second
// insertion under the same identifier is treated as an ambiguous match
// and evicts the entry, except that an existing ChangesetID entry is
// never evicted by a weaker identifier (ChangeID or CommitData).
type Map struct {
	changeIDs    map[ChangeID]*entry
	commitDatas  map[CommitData]*entry
	changesetIDs map[ChangesetID]*entry
}

// NewMap returns an empty similarity map.
func NewMap() *Map {
	return &Map{
		changeIDs:    make(map[ChangeID]*entry),
		commitDatas:  make(map[CommitData]*entry),
		changesetIDs: make(map[ChangesetID]*entry),
	}
}

// Candidate is a commit to insert into a [Map], along with every
// identifier it is known under. Any of the three fields may be zero to
// indicate that identifier is not available for this commit.
type Candidate struct {
	OID         git.Hash
	ChangeID    ChangeID     // empty if absent
	CommitData  *CommitData  // nil if absent
	ChangesetID *ChangesetID // nil if absent (e.g. empty change-set)
}

// Insert adds c to the map under every identifier it carries.
//
// ChangesetID lives in its own map, distinct from ChangeID and
// CommitData, so an entry inserted there can only ever be evicted by
// another ChangesetID collision: it is never evicted by a weaker
// identifier.
func (m *Map) Insert(c Candidate) {
	if c.ChangeID != "" {
		insert(m.changeIDs, c.ChangeID, c.OID)
	}
	if c.CommitData != nil {
		insert(m.commitDatas, *c.CommitData, c.OID)
	}
	if c.ChangesetID != nil {
		insert(m.changesetIDs, *c.ChangesetID, c.OID)
	}
}

// insert records oid under key, evicting any existing entry that
// collides with it (a second commit claiming the same identifier is
// an ambiguous match).
func insert[K comparable](m map[K]*entry, key K, oid git.Hash) {
	if existing, ok := m[key]; ok {
		existing.evicted = true
		return
	}
	m[key] = &entry{oid: oid}
}

// Lookup finds the commit matching any of the given identifiers, in
// order of preference: ChangeID, then CommitData, then ChangesetID. It
// returns false if none match, or if the only match was evicted by an
// ambiguous collision.
func Lookup(m *Map, changeID ChangeID, data *CommitData, changesetID *ChangesetID) (git.Hash, bool) {
	if changeID != "" {
		if oid, ok := lookup(m.changeIDs, changeID); ok {
			return oid, true
		}
	}
	if data != nil {
		if oid, ok := lookup(m.commitDatas, *data); ok {
			return oid, true
		}
	}
	if changesetID != nil {
		if oid, ok := lookup(m.changesetIDs, *changesetID); ok {
			return oid, true
		}
	}
	return "", false
}

func lookup[K comparable](m map[K]*entry, key K) (git.Hash, bool) {
	e, ok := m[key]
	if !ok || e.evicted {
		return "", false
	}
	return e.oid, true
}
