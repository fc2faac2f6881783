// Package hunk models unified-diff hunk headers and the selection
// algorithms used to turn a user's partial-hunk picks into hunks that
// can be applied verbatim to a tree.
package hunk

import "fmt"

// Range is a 1-based, half-open line range: [Start, Start+Lines).
//
// A Lines of zero denotes an insertion point rather than a span of
// existing lines; Start still identifies where that point falls.
type Range struct {
	Start int
	Lines int
}

// End returns the line immediately after the range.
func (r Range) End() int {
	return r.Start + r.Lines
}

// Intersects reports whether r and o overlap.
//
// A zero-length range (an insertion point) intersects another range
// if its Start falls within, or at the boundary of, that range.
func (r Range) Intersects(o Range) bool {
	if r.Lines == 0 || o.Lines == 0 {
		return r.Start >= o.Start && r.Start <= o.End() ||
			o.Start >= r.Start && o.Start <= r.End()
	}
	return r.Start < o.End() && o.Start < r.End()
}

// Contains reports whether r fully covers o.
func (r Range) Contains(o Range) bool {
	return r.Start <= o.Start && o.End() <= r.End()
}

// Header is a single unified-diff hunk header:
//
//	@@ -old_start,old_lines +new_start,new_lines @@
//
// Line numbers are 1-based. A real hunk never has both OldLines and
// NewLines zero. OldLines == 0 denotes a pure addition (the hunk only
// selects new-side lines); NewLines == 0 denotes a pure deletion.
type Header struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// OldRange returns the range this header covers on the old side.
func (h Header) OldRange() Range {
	return Range{Start: h.OldStart, Lines: h.OldLines}
}

// NewRange returns the range this header covers on the new side.
func (h Header) NewRange() Range {
	return Range{Start: h.NewStart, Lines: h.NewLines}
}

// Addition reports whether the header is a pure addition selection.
func (h Header) Addition() bool {
	return h.OldLines == 0
}

// Deletion reports whether the header is a pure deletion selection.
func (h Header) Deletion() bool {
	return h.NewLines == 0
}

// Intersects reports whether h and o overlap on the relevant side: the
// old side if either header is a deletion-only selection, the new side
// if either is addition-only, and both sides otherwise.
func (h Header) Intersects(o Header) bool {
	if h.Deletion() || o.Deletion() {
		return h.OldRange().Intersects(o.OldRange())
	}
	if h.Addition() || o.Addition() {
		return h.NewRange().Intersects(o.NewRange())
	}
	return h.OldRange().Intersects(o.OldRange()) || h.NewRange().Intersects(o.NewRange())
}

// Contains reports whether h fully covers the relevant side of o,
// using the same side-selection rule as Intersects.
func (h Header) Contains(o Header) bool {
	if o.Deletion() {
		return h.OldRange().Contains(o.OldRange())
	}
	if o.Addition() {
		return h.NewRange().Contains(o.NewRange())
	}
	return h.OldRange().Contains(o.OldRange()) && h.NewRange().Contains(o.NewRange())
}

// Equal reports whether h and o describe the same header.
func (h Header) Equal(o Header) bool {
	return h == o
}

func (h Header) String() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}
