// Package changeset computes stable identifiers for the set of
// changes between two trees, and uses those identifiers to recognize
// when two commits (possibly on different branches, possibly rewritten)
// carry the same logical change.
package changeset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"go.wsforge.dev/core/internal/git"
)

// version is fed into the identifier hash ahead of everything else,
// so that a future change to the hashing algorithm can't collide with
// identifiers computed under this one.
const version byte = 0x01

// ID is a fixed-width identifier for the set of changes between two
// trees. Equal tree-pairs always hash to a bit-equal ID under a given
// version.
type ID [sha256.Size]byte

// String returns the hex encoding of id.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// EntryKind is the kind of a tree entry referenced by a [ChangeState].
type EntryKind string

// Kinds of tree entries the engine distinguishes.
const (
	KindTree           EntryKind = "tree"
	KindBlob           EntryKind = "blob"
	KindBlobExecutable EntryKind = "blob-executable"
	KindSymlink        EntryKind = "symlink"
	KindSubmodule      EntryKind = "submodule"
)

// kindOf classifies a raw Git mode/type pair into an EntryKind.
func kindOf(mode git.Mode) EntryKind {
	switch mode {
	case git.DirMode:
		return KindTree
	case 0o120000:
		return KindSymlink
	case 0o160000:
		return KindSubmodule
	case 0o100755:
		return KindBlobExecutable
	default:
		return KindBlob
	}
}

// ChangeState pairs an object id with the kind of object it refers to.
// Every tree entry the engine compares carries this pair.
type ChangeState struct {
	OID  git.Hash
	Kind EntryKind
}

func stateOf(hash git.Hash, mode git.Mode) ChangeState {
	return ChangeState{OID: hash, Kind: kindOf(mode)}
}

// Compute produces the identifier for the change-set between two
// trees, per the algorithm below. It returns a nil ID and a nil error
// if the two resolved trees are identical (no changes).
//
//  1. Resolve each tree-ish to a tree (commits are peeled to their
//     tree; conflicted/ambiguous refs use git's own canonical
//     resolution).
//  2. If both trees are equal, return no identifier.
//  3. Diff the two trees with rewrites disabled and rename detection
//     off, to keep entry ordering stable.
//  4. Feed a hash initialised with a one-byte version tag. For each
//     non-tree entry in diff order, feed the path, then one of
//     'A'|'D'|'M', then the relevant ChangeState(s).
//  5. Finalise and return the hash.
func Compute(ctx context.Context, repo *git.Repository, previousTreeish, currentTreeish string) (*ID, error) {
	previousTree, err := repo.PeelToTree(ctx, previousTreeish)
	if err != nil {
		return nil, fmt.Errorf("resolve previous tree: %w", err)
	}
	currentTree, err := repo.PeelToTree(ctx, currentTreeish)
	if err != nil {
		return nil, fmt.Errorf("resolve current tree: %w", err)
	}

	if previousTree == currentTree {
		return nil, nil
	}

	h := sha256.New()
	h.Write([]byte{version})

	for ent, err := range repo.DiffTreeRaw(ctx, previousTree.String(), currentTree.String()) {
		if err != nil {
			return nil, fmt.Errorf("diff trees: %w", err)
		}
		if ent.OldMode == git.DirMode || ent.NewMode == git.DirMode {
			// Tree entries never appear directly in a recursive
			// diff-tree listing; skip defensively.
			continue
		}

		writeString(h, ent.Path)
		switch ent.Status {
		case git.FileAdded:
			h.Write([]byte{'A'})
			writeState(h, stateOf(ent.NewHash, ent.NewMode))
		case git.FileDeleted:
			h.Write([]byte{'D'})
			writeState(h, stateOf(ent.OldHash, ent.OldMode))
		default: // Modified or type-changed.
			h.Write([]byte{'M'})
			writeState(h, stateOf(ent.OldHash, ent.OldMode))
			writeState(h, stateOf(ent.NewHash, ent.NewMode))
		}
	}

	var id ID
	copy(id[:], h.Sum(nil))
	return &id, nil
}

func writeString(w io.Writer, s string) {
	io.WriteString(w, s)
	w.Write([]byte{0})
}

func writeState(w io.Writer, s ChangeState) {
	io.WriteString(w, string(s.OID))
	w.Write([]byte{0})
	io.WriteString(w, string(s.Kind))
	w.Write([]byte{0})
}
