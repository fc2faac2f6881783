// Package commitengine builds new tree and commit objects from a
// worktree's pending changes, selected whole-file or hunk-by-hunk,
// reconciling them against a destination commit that may have
// diverged from the state the changes were computed against.
package commitengine

import "go.wsforge.dev/core/internal/git"

// emptyTreeHash is the well-known hash of the empty Git tree object.
// It stands in for a commit-less destination when building a root
// commit.
const emptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Destination identifies what [CreateTree] builds a tree for: either
// a new commit stacked on an existing parent, or an amendment of an
// existing commit's own tree.
type Destination struct {
	// ParentID is the parent of a new commit. Leave both it and Amend
	// unset to build a root commit.
	ParentID git.Hash

	// Amend is the commit whose tree is being replaced, if any. When
	// set, ParentID is ignored: the commit's own current tree is used
	// as the base instead of a parent's.
	Amend git.Hash
}

// treeish returns the tree-ish expression identifying the
// destination's own, unmodified tree.
func (d Destination) treeish() string {
	switch {
	case d.Amend != "":
		return d.Amend.String()
	case d.ParentID != "":
		return d.ParentID.String()
	default:
		return emptyTreeHash
	}
}

// RejectReason names why a requested change could not be folded into
// the tree. These strings are stable and safe to match on.
type RejectReason string

// Rejection reasons, per the commit engine's contract.
const (
	// NoEffectiveChanges means a DiffSpec selected no hunks that
	// actually differ from the base content.
	NoEffectiveChanges RejectReason = "NoEffectiveChanges"

	// WorktreeFileMissingForObjectConversion means a whole-file
	// change needed to read the working copy's content (to hash it as
	// a blob, or to source added lines for a hunk change) but the
	// path could not be read.
	WorktreeFileMissingForObjectConversion RejectReason = "WorktreeFileMissingForObjectConversion"

	// FileTooLargeOrBinary means the path's content isn't a plausible
	// candidate for object conversion or line-level patching.
	FileTooLargeOrBinary RejectReason = "FileTooLargeOrBinary"

	// UnsupportedDirectoryEntry means writing this path would require
	// treating an existing blob entry as a directory.
	UnsupportedDirectoryEntry RejectReason = "UnsupportedDirectoryEntry"

	// UnsupportedTreeEntry means the existing entry at this path is a
	// tree (submodule or subdirectory), which hunk-level changes
	// cannot target.
	UnsupportedTreeEntry RejectReason = "UnsupportedTreeEntry"

	// MissingDiffSpecAssociation means one or more selected hunks
	// could not be matched against the worktree's current diff; the
	// selection is stale.
	MissingDiffSpecAssociation RejectReason = "MissingDiffSpecAssociation"

	// CherryPickMergeConflict means the change applied cleanly on its
	// own, but conflicted with the destination's actual base tree
	// during reconciliation.
	CherryPickMergeConflict RejectReason = "CherryPickMergeConflict"
)

// Reject records one change that could not be folded into the tree.
type Reject struct {
	Path   string
	Reason RejectReason
	Detail string
}

// CreateTreeResult is the outcome of [CreateTree].
type CreateTreeResult struct {
	// Tree is the resulting tree hash, reflecting whatever changes
	// applied cleanly even when Rejects is non-empty.
	Tree git.Hash

	// Rejects lists every change that could not be applied, in no
	// particular order across retries.
	Rejects []Reject

	// PreCherryPickTree is the tree produced before reconciling
	// against the destination's actual base, when that reconciliation
	// ran. It is empty when no reconciliation was needed.
	PreCherryPickTree git.Hash
}

// CreateCommitResult is the outcome of [CreateCommit].
type CreateCommitResult struct {
	Commit            git.Hash
	Rejects           []Reject
	PreCherryPickTree git.Hash
}
