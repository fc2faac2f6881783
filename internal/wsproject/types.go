// Package wsproject derives the user-visible workspace model — stacks,
// segments, and per-commit push status — from a [wsgraph.Graph] and
// the ref-metadata recorded for a worktree.
package wsproject

import "go.wsforge.dev/core/internal/git"

// Relation classifies a commit's position relative to its remote
// counterpart and the integration target.
type Relation int

const (
	// LocalOnly is the default: the commit exists only locally.
	LocalOnly Relation = iota

	// LocalAndRemote means the commit's change matches a commit
	// already present on the segment's remote-tracking ref.
	LocalAndRemote

	// Integrated means the commit's change matches one already
	// reachable from the integration target.
	Integrated
)

func (r Relation) String() string {
	switch r {
	case LocalAndRemote:
		return "LocalAndRemote"
	case Integrated:
		return "Integrated"
	default:
		return "LocalOnly"
	}
}

// CommitRelation is a commit's classification plus the OID it matched,
// if any.
type CommitRelation struct {
	Kind    Relation
	Matched git.Hash // zero value for LocalOnly
}

// Commit is one commit as seen by a projected segment.
type Commit struct {
	Hash     git.Hash
	Relation CommitRelation
}

// PushStatus is the result of §4.4's push-status derivation.
type PushStatus int

const (
	CompletelyUnpushed PushStatus = iota
	PushIntegrated
	UnpushedCommitsRequiringForce
	UnpushedCommits
	NothingToPush
)

func (p PushStatus) String() string {
	switch p {
	case CompletelyUnpushed:
		return "CompletelyUnpushed"
	case PushIntegrated:
		return "Integrated"
	case UnpushedCommitsRequiringForce:
		return "UnpushedCommitsRequiringForce"
	case UnpushedCommits:
		return "UnpushedCommits"
	case NothingToPush:
		return "NothingToPush"
	default:
		return "Unknown"
	}
}

// Segment is one ref's range of commits within a stack. Segments in a
// stack may share a base segment.
type Segment struct {
	RefName           string
	RemoteTrackingRef string // empty if the segment has none

	// Commits are reachable from the segment's tip, not from the
	// next-lower segment nor the integration base. Tip-first order.
	Commits []Commit

	// CommitsOnRemote are OIDs present on RemoteTrackingRef that
	// don't correspond to any entry in Commits.
	CommitsOnRemote []git.Hash

	Base       git.Hash
	PushStatus PushStatus

	Metadata SegmentMetadata
}

// SegmentMetadata is the subset of ref-metadata carried through to a
// projected segment for display purposes.
type SegmentMetadata struct {
	Description string
	StackID     string
}

// Stack is an ordered sequence of segments, oldest base last, newest
// tip first.
type Stack struct {
	ID       string
	Segments []Segment
}

// Tip returns the OID of the stack's topmost commit, or the zero hash
// if the stack has no commits at all.
func (s Stack) Tip() git.Hash {
	for _, seg := range s.Segments {
		if len(seg.Commits) > 0 {
			return seg.Commits[0].Hash
		}
	}
	return git.ZeroHash
}

// Workspace is the full projected, user-visible model.
type Workspace struct {
	WorkspaceRef string
	Stacks       []Stack
	TargetRef    string

	IsManagedRef    bool
	IsManagedCommit bool

	// IsEntrypoint marks the stack (identified by EntrypointStack)
	// containing the segment the caller entered the workspace from.
	IsEntrypoint     bool
	EntrypointStack  string
	EntrypointSegRef string
}
