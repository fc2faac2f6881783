// Package wsgraph builds a bounded, flag-annotated graph of commits
// reachable from a workspace's starting refs.
package wsgraph

import (
	"cmp"
	"context"
	"fmt"

	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/silog"
)

// Node is a single commit as seen by the walk: its parents, its
// committer time, and the flags accumulated across every path the
// walk reached it by.
type Node struct {
	Hash          git.Hash
	Parents       []git.Hash
	CommitterTime int64
	Flags         Flags
}

// Segment is a contiguous run of commits collected along one path of
// the walk, tip commit first. Segments in the graph may share a base:
// ParentAbove names the segment this one branches from, and
// AttachedAt names the exact commit in that segment the branch starts
// at. A root segment (one of the traversal's starting points) has
// ParentAbove -1.
type Segment struct {
	Commits     []git.Hash
	ParentAbove int
	AttachedAt  git.Hash
}

// Graph is the output of [Build]: every commit visited, annotated with
// flags, grouped into segments.
type Graph struct {
	Nodes    map[git.Hash]*Node
	Segments []*Segment
}

// Options configures [Build].
type Options struct {
	// Limit bounds how many commits are visited past each starting
	// ref, once any goals for that branch of the walk have been
	// observed. Zero means unbounded.
	Limit int

	// IntegrationTarget is the tip whose first-parent ancestry is
	// marked [FlagIntegrated]. Empty skips integration tracking.
	IntegrationTarget git.Hash

	// ExtraTargets are additional starting points merged into the
	// same graph alongside the primary starting ref; both contribute
	// [FlagInWorkspace].
	ExtraTargets []git.Hash

	// Goals are OIDs to watch for. Observing one marks its segment's
	// branch of the walk as goal-reached, after which the normal
	// commit-count Limit applies from that point on. Goals beyond
	// what a 32-bit flag word can track (alongside the fixed flags)
	// are logged and dropped.
	Goals []git.Hash

	// Log receives diagnostics, such as dropped excess goals.
	Log *silog.Logger
}

// Build walks the ancestry of startingRef (and any ExtraTargets),
// producing a bounded graph of segments with per-commit flags.
//
// The walk never fails on well-formed input. A missing commit object
// is reported as an [ObjectMissingError]; under a Limit, the returned
// graph may be partial, but it is always internally consistent:
// commits already assigned to a segment are never reassigned, and
// every visited commit appears in exactly one segment.
func Build(ctx context.Context, repo *git.Repository, startingRef string, opts Options) (*Graph, error) {
	log := cmp.Or(opts.Log, silog.Nop())
	goals := allocateGoals(log, opts.Goals)

	var allGoalBits Flags
	for _, gb := range goals {
		allGoalBits |= gb.flag
	}

	cache := make(map[git.Hash]*git.CommitInfo)
	read := func(hash git.Hash) (*git.CommitInfo, error) {
		if ci, ok := cache[hash]; ok {
			return ci, nil
		}
		ci, err := repo.ReadCommit(ctx, hash.String())
		if err != nil {
			return nil, &ObjectMissingError{Hash: hash, Err: err}
		}
		cache[hash] = ci
		return ci, nil
	}

	integrated, err := firstParentSet(ctx, repo, read, opts.IntegrationTarget)
	if err != nil {
		return nil, err
	}

	g := &Graph{Nodes: make(map[git.Hash]*Node)}
	pq := newWalkQueue()

	startHash, err := repo.PeelToCommit(ctx, startingRef)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", startingRef, err)
	}

	roots := append([]git.Hash{startHash}, opts.ExtraTargets...)
	for _, root := range roots {
		ci, err := read(root)
		if err != nil {
			return nil, err
		}
		segIdx := len(g.Segments)
		g.Segments = append(g.Segments, &Segment{ParentAbove: -1})
		pq.enqueue(&queueItem{
			hash:         root,
			info:         ci,
			flags:        FlagInWorkspace,
			instr:        collectCommit,
			segment:      segIdx,
			remaining:    opts.Limit,
			pendingGoals: allGoalBits,
			depth:        0,
		})
	}

	for pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := pq.dequeue()

		if node, ok := g.Nodes[item.hash]; ok {
			// Already assigned to a segment: never reassigned, but
			// flags still propagate along this path.
			node.Flags |= item.flags
			continue
		}

		flags := item.flags
		if integrated[item.hash] {
			flags |= FlagIntegrated
		}
		for _, gb := range goals {
			if gb.hash == item.hash {
				flags |= gb.flag
			}
		}

		node := &Node{
			Hash:          item.hash,
			Parents:       item.info.Parents,
			CommitterTime: item.info.Committer.Time.Unix(),
			Flags:         flags,
		}
		g.Nodes[item.hash] = node

		segment := item.segment
		switch item.instr {
		case collectCommit:
			seg := g.Segments[segment]
			seg.Commits = append(seg.Commits, item.hash)
		case connectNewSegment:
			seg := &Segment{ParentAbove: item.segment, AttachedAt: item.hash}
			seg.Commits = append(seg.Commits, item.hash)
			g.Segments = append(g.Segments, seg)
			segment = len(g.Segments) - 1
		}

		pendingGoals := item.pendingGoals &^ flags
		goalsReached := pendingGoals == 0
		if goalsReached && opts.Limit > 0 && item.remaining <= 0 {
			// Bounded traversal stops here; the graph built so far
			// remains consistent, just partial.
			continue
		}

		if len(node.Parents) == 0 {
			continue
		}

		nextRemaining := item.remaining
		if goalsReached && opts.Limit > 0 {
			nextRemaining--
		}

		perParentBudget := nextRemaining
		if len(node.Parents) > 1 && goalsReached && opts.Limit > 0 {
			perParentBudget = max(1, nextRemaining/len(node.Parents))
		}

		for i, parent := range node.Parents {
			if _, ok := g.Nodes[parent]; ok {
				// Known settled already: just a flag-propagation
				// visit, no need to read it again.
				pq.enqueue(&queueItem{hash: parent, flags: flags, depth: item.depth + 1})
				continue
			}

			ci, err := read(parent)
			if err != nil {
				return nil, err
			}

			instr := collectCommit
			if i > 0 {
				instr = connectNewSegment
			}

			pq.enqueue(&queueItem{
				hash:         parent,
				info:         ci,
				flags:        flags,
				instr:        instr,
				segment:      segment,
				remaining:    perParentBudget,
				pendingGoals: pendingGoals,
				depth:        item.depth + 1,
			})
		}
	}

	return g, nil
}

// firstParentSet walks the first-parent ancestry of target, returning
// the set of commits it passes through. An empty target yields an
// empty, non-nil set and skips the walk entirely.
func firstParentSet(
	ctx context.Context,
	repo *git.Repository,
	read func(git.Hash) (*git.CommitInfo, error),
	target git.Hash,
) (map[git.Hash]bool, error) {
	set := make(map[git.Hash]bool)
	if target == "" {
		return set, nil
	}

	hash, err := repo.PeelToCommit(ctx, target.String())
	if err != nil {
		return nil, fmt.Errorf("resolve integration target %s: %w", target, err)
	}

	for hash != "" && !set[hash] {
		set[hash] = true
		ci, err := read(hash)
		if err != nil {
			return nil, err
		}
		if len(ci.Parents) == 0 {
			break
		}
		hash = ci.Parents[0]
	}
	return set, nil
}
