package wsproject

import (
	"context"
	"fmt"

	"go.wsforge.dev/core/internal/changeset"
	"go.wsforge.dev/core/internal/git"
)

// ChangesetClassifier is a [RelationClassifier] backed by §4.8's
// similarity map: a commit matches a remote or integrated counterpart
// if they share a change id, author+message, or changeset identity,
// not merely an identical OID.
type ChangesetClassifier struct {
	repo        *git.Repository
	upstreamMap *changeset.Map
	remoteMaps  map[string]*changeset.Map // ref name -> map of that ref's remote-tracking commits
}

// NewChangesetClassifier builds a classifier from the first-parent
// ancestry of targetRef (for [Integrated] matches) and, for each named
// ref, the first-parent ancestry of its remote-tracking ref (for
// [LocalAndRemote] matches).
func NewChangesetClassifier(
	ctx context.Context,
	repo *git.Repository,
	targetRef string,
	remoteRefs map[string]string, // ref name -> remote-tracking ref
) (*ChangesetClassifier, error) {
	c := &ChangesetClassifier{
		repo:       repo,
		remoteMaps: make(map[string]*changeset.Map, len(remoteRefs)),
	}

	upstream, err := buildSimilarityMap(ctx, repo, targetRef)
	if err != nil {
		return nil, fmt.Errorf("build upstream similarity map: %w", err)
	}
	c.upstreamMap = upstream

	for refName, remoteRef := range remoteRefs {
		if remoteRef == "" {
			continue
		}
		m, err := buildSimilarityMap(ctx, repo, remoteRef)
		if err != nil {
			return nil, fmt.Errorf("build remote similarity map for %s: %w", refName, err)
		}
		c.remoteMaps[refName] = m
	}

	return c, nil
}

// Resolve implements [RelationClassifier].
func (c *ChangesetClassifier) Resolve(ctx context.Context, refName string, commit git.Hash) (CommitRelation, error) {
	cand, err := commitCandidate(ctx, c.repo, commit)
	if err != nil {
		return CommitRelation{}, err
	}

	if m, ok := c.remoteMaps[refName]; ok {
		if oid, ok := changeset.Lookup(m, cand.ChangeID, cand.CommitData, cand.ChangesetID); ok {
			return CommitRelation{Kind: LocalAndRemote, Matched: oid}, nil
		}
	}

	if oid, ok := changeset.Lookup(c.upstreamMap, cand.ChangeID, cand.CommitData, cand.ChangesetID); ok {
		return CommitRelation{Kind: Integrated, Matched: oid}, nil
	}

	return CommitRelation{Kind: LocalOnly}, nil
}

// buildSimilarityMap walks the first-parent ancestry of tip, inserting
// every commit it passes through into a fresh [changeset.Map].
func buildSimilarityMap(ctx context.Context, repo *git.Repository, tip string) (*changeset.Map, error) {
	m := changeset.NewMap()
	if tip == "" {
		return m, nil
	}

	hash, err := repo.PeelToCommit(ctx, tip)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", tip, err)
	}

	seen := make(map[git.Hash]bool)
	for hash != "" && !seen[hash] {
		seen[hash] = true

		cand, err := commitCandidate(ctx, repo, hash)
		if err != nil {
			return nil, err
		}
		m.Insert(cand)

		ci, err := repo.ReadCommit(ctx, hash.String())
		if err != nil {
			return nil, fmt.Errorf("read %v: %w", hash, err)
		}
		if len(ci.Parents) == 0 {
			break
		}
		hash = ci.Parents[0]
	}
	return m, nil
}

// commitCandidate builds the full set of identifiers a commit is
// known under: its change-id trailer, its author+message, and the
// changeset identity of the diff it introduces against its first
// parent.
func commitCandidate(ctx context.Context, repo *git.Repository, hash git.Hash) (changeset.Candidate, error) {
	ci, err := repo.ReadCommit(ctx, hash.String())
	if err != nil {
		return changeset.Candidate{}, fmt.Errorf("read %v: %w", hash, err)
	}

	data := changeset.CommitData{
		AuthorIdentity: ci.Author.Name + " <" + ci.Author.Email + ">",
		Message:        ci.Message.String(),
	}

	cand := changeset.Candidate{
		OID:        hash,
		ChangeID:   changeset.ChangeID(ci.ChangeID),
		CommitData: &data,
	}

	if len(ci.Parents) > 0 {
		id, err := changeset.Compute(ctx, repo, ci.Parents[0].String(), hash.String())
		if err != nil {
			return changeset.Candidate{}, fmt.Errorf("compute changeset id for %v: %w", hash, err)
		}
		if id != nil {
			csid := changeset.ChangesetID(*id)
			cand.ChangesetID = &csid
		}
	}

	return cand, nil
}
