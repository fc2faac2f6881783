package commitengine

import (
	"context"
	"fmt"

	"go.wsforge.dev/core/internal/git"
)

// SplitBranchOptions configures [SplitBranch].
type SplitBranchOptions struct {
	// Commits is one segment's commits, tip-first, down to (but not
	// including) its base.
	Commits []git.Hash

	// BelongsToNewSegment classifies one commit as belonging to the
	// new, lower (base-adjacent) segment the split carves out, versus
	// staying in the original segment nearer the tip. Callers
	// typically implement this against a path or hunk predicate over
	// each commit's own diff.
	BelongsToNewSegment func(ctx context.Context, commit git.Hash) (bool, error)
}

// SplitBranchResult is the outcome of [SplitBranch]: no commit is
// rewritten, since a split only needs a new ref placed partway up an
// already-linear chain.
type SplitBranchResult struct {
	// NewSegmentTip is the topmost commit of the newly carved-out,
	// base-adjacent segment. Callers create a ref pointing here.
	NewSegmentTip git.Hash

	// NewSegmentCommits are the commits that move to the new segment,
	// tip-first.
	NewSegmentCommits []git.Hash

	// RemainingCommits are the commits that stay in the original
	// segment, tip-first.
	RemainingCommits []git.Hash
}

// SplitBranch implements §4.6.4's `split_branch`: it partitions a
// segment's commits into two contiguous runs — an upper run that
// keeps the original ref, and a lower, base-adjacent run that gets a
// new ref — at the point where BelongsToNewSegment stops matching
// when scanning from the base upward.
func SplitBranch(ctx context.Context, opts SplitBranchOptions) (*SplitBranchResult, error) {
	n := len(opts.Commits)
	if n == 0 {
		return nil, fmt.Errorf("split: segment has no commits")
	}

	splitAt := n
	for i := n - 1; i >= 0; i-- {
		belongs, err := opts.BelongsToNewSegment(ctx, opts.Commits[i])
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", opts.Commits[i], err)
		}
		if !belongs {
			break
		}
		splitAt = i
	}
	if splitAt == n {
		return nil, fmt.Errorf("split: no commits at the base of the segment matched the predicate")
	}
	if splitAt == 0 {
		return nil, fmt.Errorf("split: every commit matched the predicate, leaving nothing for the original segment")
	}

	result := &SplitBranchResult{
		NewSegmentTip:     opts.Commits[splitAt],
		NewSegmentCommits: append([]git.Hash(nil), opts.Commits[splitAt:]...),
		RemainingCommits:  append([]git.Hash(nil), opts.Commits[:splitAt]...),
	}
	return result, nil
}
