package commitengine

import (
	"context"
	"fmt"
	"slices"

	"go.wsforge.dev/core/internal/cmputil"
	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/rebase"
)

// StackCommits is one stack's linear commit chain, tip-first, down to
// (but not including) its base. [MoveChangesBetweenCommits] and its
// siblings use it to know which commits must be rebuilt above a
// commit they rewrite.
type StackCommits struct {
	Commits []git.Hash
}

// index returns the position of commit within s.Commits, or -1.
func (s StackCommits) index(commit git.Hash) int {
	return slices.Index(s.Commits, commit)
}

// above returns the commits stacked on top of commit (exclusive),
// tip-first.
func (s StackCommits) above(commit git.Hash) ([]git.Hash, error) {
	i := s.index(commit)
	if i < 0 {
		return nil, fmt.Errorf("commit %s not found in stack", commit)
	}
	return s.Commits[:i], nil
}

// ReplacedCommit is one entry in a move/split/uncommit result: an
// old commit ID and the new one it was rewritten to.
type ReplacedCommit struct {
	Old git.Hash
	New git.Hash
}

// MoveChangesResult is the outcome of [MoveChangesBetweenCommits] and
// [RemoveChangesFromCommitInStack].
type MoveChangesResult struct {
	ReplacedCommits []ReplacedCommit
}

// MoveChangesOptions configures [MoveChangesBetweenCommits].
type MoveChangesOptions struct {
	// SourceStack is the linear commit chain containing SourceCommit.
	SourceStack StackCommits

	// SourceCommit is the commit the listed Paths are extracted from.
	SourceCommit git.Hash

	// DestinationStack is the linear commit chain containing
	// DestinationCommit. Leave both it and DestinationCommit unset to
	// only remove the changes from the source, per
	// [RemoveChangesFromCommitInStack].
	DestinationStack StackCommits

	// DestinationCommit is the commit Paths are folded into. Zero
	// means remove-only.
	DestinationCommit git.Hash

	// Paths names the files whose content moves, at whole-file
	// granularity: hunk-level selection is resolved by the caller via
	// [CreateTree] against the worktree before reaching this
	// function, which only ever transplants already-resolved file
	// content between two historical trees.
	Paths []string

	Committer *git.Signature
}

// MoveChangesBetweenCommits implements §4.6.4's
// `move_changes_between_commits`: it extracts Paths from SourceCommit
// into a rewritten source commit, rebuilds SourceStack above it, then
// (unless DestinationCommit is unset) folds Paths into a rewritten
// DestinationCommit and rebuilds DestinationStack above that.
func MoveChangesBetweenCommits(ctx context.Context, repo *git.Repository, opts MoveChangesOptions) (*MoveChangesResult, error) {
	if len(opts.Paths) == 0 {
		return nil, fmt.Errorf("no paths given")
	}

	srcInfo, err := repo.ReadCommit(ctx, opts.SourceCommit.String())
	if err != nil {
		return nil, fmt.Errorf("read source commit: %w", err)
	}

	srcParentTree, err := parentTree(ctx, repo, srcInfo)
	if err != nil {
		return nil, fmt.Errorf("resolve source parent tree: %w", err)
	}

	reducedTree, err := treeReplacingPaths(ctx, repo, srcInfo.Tree, srcParentTree, opts.Paths)
	if err != nil {
		return nil, fmt.Errorf("remove paths from source tree: %w", err)
	}

	var result MoveChangesResult

	newSrcCommit := srcInfo.Hash
	if reducedTree != srcInfo.Tree {
		newSrcCommit, err = repo.CommitTree(ctx, git.CommitTreeRequest{
			Tree:      reducedTree,
			Message:   srcInfo.Message.String(),
			Parents:   srcInfo.Parents,
			Author:    &srcInfo.Author,
			Committer: opts.Committer,
		})
		if err != nil {
			return nil, fmt.Errorf("commit reduced source tree: %w", err)
		}
	}

	srcRebuild, err := rebuildAbove(ctx, repo, opts.SourceStack, opts.SourceCommit, newSrcCommit, opts.Committer)
	if err != nil {
		return nil, fmt.Errorf("rebuild source stack: %w", err)
	}
	result.ReplacedCommits = append(result.ReplacedCommits, srcRebuild...)

	if cmputil.Zero(opts.DestinationCommit) {
		return &result, nil
	}

	dstInfo, err := repo.ReadCommit(ctx, opts.DestinationCommit.String())
	if err != nil {
		return nil, fmt.Errorf("read destination commit: %w", err)
	}

	augmentedTree, err := treeReplacingPaths(ctx, repo, dstInfo.Tree, srcInfo.Tree, opts.Paths)
	if err != nil {
		return nil, fmt.Errorf("fold paths into destination tree: %w", err)
	}

	newDstCommit := opts.DestinationCommit
	if augmentedTree != dstInfo.Tree {
		newDstCommit, err = repo.CommitTree(ctx, git.CommitTreeRequest{
			Tree:      augmentedTree,
			Message:   dstInfo.Message.String(),
			Parents:   dstInfo.Parents,
			Author:    &dstInfo.Author,
			Committer: opts.Committer,
		})
		if err != nil {
			return nil, fmt.Errorf("commit augmented destination tree: %w", err)
		}
	}

	dstRebuild, err := rebuildAbove(ctx, repo, opts.DestinationStack, opts.DestinationCommit, newDstCommit, opts.Committer)
	if err != nil {
		return nil, fmt.Errorf("rebuild destination stack: %w", err)
	}
	result.ReplacedCommits = append(result.ReplacedCommits, dstRebuild...)

	return &result, nil
}

// RemoveChangesFromCommitInStack implements §4.6.4's
// `remove_changes_from_commit_in_stack`: the same operation as
// [MoveChangesBetweenCommits] with the destination side skipped.
func RemoveChangesFromCommitInStack(ctx context.Context, repo *git.Repository, stack StackCommits, commit git.Hash, paths []string, committer *git.Signature) (*MoveChangesResult, error) {
	return MoveChangesBetweenCommits(ctx, repo, MoveChangesOptions{
		SourceStack:  stack,
		SourceCommit: commit,
		Paths:        paths,
		Committer:    committer,
	})
}

// Uncommit folds commit's own changes back out of the stack entirely
// (as opposed to [DiscardWorktreeChanges], which reverts worktree
// state without touching any commit): commit is replaced by its own
// parent, unchanged, and every commit above it is rebuilt onto that
// parent, so the changes commit introduced drop out of the stack.
func Uncommit(ctx context.Context, repo *git.Repository, stack StackCommits, commit git.Hash, committer *git.Signature) (*MoveChangesResult, error) {
	info, err := repo.ReadCommit(ctx, commit.String())
	if err != nil {
		return nil, fmt.Errorf("read commit: %w", err)
	}
	if len(info.Parents) > 1 {
		return nil, fmt.Errorf("uncommit: %s is a merge commit", commit)
	}

	var parent git.Hash
	if len(info.Parents) == 1 {
		parent = info.Parents[0]
	}

	rebuild, err := rebuildAbove(ctx, repo, stack, commit, parent, committer)
	if err != nil {
		return nil, fmt.Errorf("rebuild stack above uncommitted commit: %w", err)
	}

	return &MoveChangesResult{ReplacedCommits: rebuild}, nil
}

// parentTree resolves the tree of a commit's first parent, or the
// empty tree for a root commit.
func parentTree(ctx context.Context, repo *git.Repository, info *git.CommitInfo) (git.Hash, error) {
	if len(info.Parents) == 0 {
		return emptyTreeHash, nil
	}
	parent, err := repo.ReadCommit(ctx, info.Parents[0].String())
	if err != nil {
		return "", err
	}
	return parent.Tree, nil
}

// treeReplacingPaths returns a tree equal to base except that each
// path is overwritten with source's version of that path, or removed
// if source doesn't have it either.
func treeReplacingPaths(ctx context.Context, repo *git.Repository, base, source git.Hash, paths []string) (git.Hash, error) {
	var writes []git.BlobInfo
	var deletes []string

	for _, path := range paths {
		ent, ok, err := repo.EntryAt(ctx, source, path)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}
		if !ok {
			deletes = append(deletes, path)
			continue
		}
		writes = append(writes, git.BlobInfo{Mode: ent.Mode, Hash: ent.Hash, Path: path})
	}

	return repo.UpdateTree(ctx, git.UpdateTreeRequest{
		Tree:    base,
		Writes:  slices.Values(writes),
		Deletes: slices.Values(deletes),
	})
}

// rebuildAbove rebuilds every commit stacked above original (which
// has already been rewritten to rewritten) via the rebase engine,
// returning the old->new mapping for original plus every commit above
// it, tip-last (oldest-first), matching [rebase.Output.CommitMapping]'s
// step-order convention.
func rebuildAbove(ctx context.Context, repo *git.Repository, stack StackCommits, original, rewritten git.Hash, committer *git.Signature) ([]ReplacedCommit, error) {
	above, err := stack.above(original)
	if err != nil {
		return nil, err
	}

	mapping := []ReplacedCommit{{Old: original, New: rewritten}}
	if len(above) == 0 {
		return mapping, nil
	}

	steps := make([]rebase.Step, len(above))
	for i, h := range above {
		// above is tip-first; steps must run oldest-first.
		steps[len(above)-1-i] = rebase.Pick{CommitID: h}
	}

	out, err := rebase.Execute(ctx, repo, rebase.Request{
		Base:           rewritten,
		BaseSubstitute: original,
		Steps:          steps,
		RebaseNoops:    true,
		Committer:      committer,
	})
	if err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	}

	for _, m := range out.CommitMapping {
		mapping = append(mapping, ReplacedCommit{Old: m.Old, New: m.New})
	}
	return mapping, nil
}
