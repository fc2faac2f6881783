package changeset

import (
	"context"
	"fmt"

	"go.wsforge.dev/core/internal/git"
)

// IntegratedSegment identifies a segment whose changes were found
// already present upstream, presumably squash-merged.
type IntegratedSegment struct {
	// Index is the position of the segment in the stack, from the
	// tip (0) down to the base.
	Index int

	// Upstream is the commit the segment's changes were matched
	// against in the upstream lookup map.
	Upstream git.Hash
}

// SegmentTree describes one segment of a stack for the purposes of
// integration detection: its tip's tree, ordered from the stack's tip
// (index 0) down to its base.
type SegmentTree struct {
	Tip git.Hash
}

// DetectIntegrated scans a stack's segments top-down, from the tip,
// looking for the first one whose changes (relative to stackBase) are
// already present upstream. It computes the ChangesetID of
// (stackBase, segment tip) for each segment in turn; the first hit
// against upstream marks that segment, and every segment below it
// (closer to the base), as integrated.
//
// This is an expensive pass: it walks the stack from the tip and stops
// at the first match, so callers that only need to know whether the
// *whole* stack integrated should call it lazily.
func DetectIntegrated(ctx context.Context, repo *git.Repository, stackBase git.Hash, segments []SegmentTree, upstream *Map) ([]IntegratedSegment, error) {
	for i, seg := range segments {
		id, err := Compute(ctx, repo, stackBase.String(), seg.Tip.String())
		if err != nil {
			return nil, fmt.Errorf("compute change-set for segment %d: %w", i, err)
		}
		if id == nil {
			continue
		}

		csid := ChangesetID(*id)
		oid, ok := Lookup(upstream, "", nil, &csid)
		if !ok {
			continue
		}

		results := make([]IntegratedSegment, 0, len(segments)-i)
		for j := i; j < len(segments); j++ {
			results = append(results, IntegratedSegment{Index: j, Upstream: oid})
		}
		return results, nil
	}

	return nil, nil
}
