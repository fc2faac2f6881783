// Package rebase replays a linear (or octopus-preserving) sequence of
// existing commits onto a new base, without touching any branch ref or
// the working tree.
package rebase

import "go.wsforge.dev/core/internal/git"

// Step is one instruction in a rebase step list.
type Step interface {
	isStep()
}

// Pick cherry-picks an existing commit onto the current cursor. If
// NewMessage is empty, the original commit's message is kept.
type Pick struct {
	CommitID   git.Hash
	NewMessage string
}

func (Pick) isStep() {}

// SquashIntoPreceding cherry-picks CommitID, then folds the result
// into the immediately preceding commit by adopting that commit's
// parents.
type SquashIntoPreceding struct {
	CommitID   git.Hash
	NewMessage string
}

func (SquashIntoPreceding) isStep() {}

// Reference records that Name should point at the cursor as of this
// step, without advancing it.
type Reference struct {
	Name string
}

func (Reference) isStep() {}

// commitRef reports the commit a Pick or SquashIntoPreceding step
// operates on, or "" for a Reference step.
func commitRef(s Step) git.Hash {
	switch s := s.(type) {
	case Pick:
		return s.CommitID
	case SquashIntoPreceding:
		return s.CommitID
	default:
		return ""
	}
}

// ReferenceSpec is one named reference produced by a rebase, in the
// order its Reference step appeared.
type ReferenceSpec struct {
	Name             string
	CommitID         git.Hash
	PreviousCommitID git.Hash
}

// CommitMapping records that Old was rewritten to New while Base was
// in effect, in step order.
type CommitMapping struct {
	Base git.Hash
	Old  git.Hash
	New  git.Hash
}

// Output is the result of a successful [Execute].
type Output struct {
	// TopCommit is the most recently produced commit.
	TopCommit git.Hash

	// References are in the order their Reference steps appeared.
	References []ReferenceSpec

	// CommitMapping lets callers remap commit references that aren't
	// covered by an explicit Reference step.
	CommitMapping []CommitMapping
}

// Request parameterises a rebase.
type Request struct {
	// Base is the commit every other commit is placed on top of. The
	// zero value means the first Pick produces a root commit.
	Base git.Hash

	// BaseSubstitute identifies, for a picked merge commit, which of
	// its original parents Base stands in for. Needed to find the
	// parent to replace with the cursor when Base has no relation to
	// the original graph (because it is itself a freshly rebased
	// commit).
	BaseSubstitute git.Hash

	Steps []Step

	// RebaseNoops, when false, reuses the original commit unchanged
	// for a Pick with no NewMessage whose first parent is already the
	// cursor; that commit becomes the new cursor. Trees are not
	// compared: a Pick whose resulting tree equals the cursor's tree
	// still produces a new commit.
	RebaseNoops bool

	// Committer stamps every rewritten commit. Author identity and
	// timestamp are always carried over from the original commit.
	Committer *git.Signature
}
