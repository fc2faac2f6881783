package wsgraph

import (
	"container/heap"

	"go.wsforge.dev/core/internal/git"
)

// instruction tells the builder what to do with a commit the first
// time it is visited.
type instruction int

const (
	// collectCommit appends the commit to an existing segment.
	collectCommit instruction = iota

	// connectNewSegment starts a new segment attached at the commit
	// that produced this queue item.
	connectNewSegment
)

// queueItem is one pending visit: a commit, the flags it should carry
// if this is the path that first settles it, what to do with it, and
// the budget left for this branch of the walk.
type queueItem struct {
	hash  git.Hash
	info  *git.CommitInfo // nil if hash is already known to be settled
	flags Flags
	instr instruction

	// segment is the segment to collect into (collectCommit) or the
	// segment this one branches from (connectNewSegment).
	segment int

	remaining    int  // commit-count budget left, meaningful only once pendingGoals == 0
	pendingGoals Flags

	// depth approximates a commit-graph generation number by distance
	// from the traversal's starting refs: it increases moving away
	// from the tips, so a plain ascending sort visits younger commits
	// first without needing to read git's generation-number data.
	depth int
}

func (q *queueItem) committerTime() int64 {
	if q.info == nil {
		return 0
	}
	return q.info.Committer.Time.Unix()
}

// priorityQueue orders items by (depth, committer time) so that, per
// depth level, younger commits are visited before older ones.
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	a, b := pq[i], pq[j]
	if a.depth != b.depth {
		return a.depth < b.depth
	}
	return a.committerTime() > b.committerTime()
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(*queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

func newWalkQueue() *priorityQueue {
	pq := &priorityQueue{}
	heap.Init(pq)
	return pq
}

func (pq *priorityQueue) enqueue(item *queueItem) {
	heap.Push(pq, item)
}

func (pq *priorityQueue) dequeue() *queueItem {
	return heap.Pop(pq).(*queueItem)
}
