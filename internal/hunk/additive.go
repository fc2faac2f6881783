package hunk

import "slices"

// AdditiveResult is the outcome of computing additive hunks from a
// user selection.
type AdditiveResult struct {
	// Accepted holds the additive hunks, in the same order as the
	// selected hunks they were derived from.
	Accepted []Header

	// Rejected holds selected hunks that could not be matched against
	// either reference hunk set.
	Rejected []Header
}

// Additive computes the additive hunks used to drive patch
// application from a user's selection.
//
// worktreeHunks is the hunk set computed from the worktree at the
// configured context; worktreeHunksNoContext is the same diff
// computed with zero lines of context. Both must cover the same
// underlying change.
func Additive(selected, worktreeHunks, worktreeHunksNoContext []Header) AdditiveResult {
	sorted := slices.Clone(selected)
	slices.SortFunc(sorted, func(a, b Header) int {
		return a.OldStart - b.OldStart
	})

	var result AdditiveResult
	oldCur, newCur := 1, 1
	var lastDeletionMatch, lastAdditionMatch *Header

	for _, s := range sorted {
		switch {
		case s.Deletion():
			w := findContaining(worktreeHunksNoContext, s.OldRange(), func(h Header) Range { return h.OldRange() })
			if w == nil {
				result.Rejected = append(result.Rejected, s)
				continue
			}

			result.Accepted = append(result.Accepted, Header{
				OldStart: s.OldStart,
				OldLines: s.OldLines,
				NewStart: newCur,
				NewLines: 0,
			})
			oldCur = s.OldRange().End()
			if lastDeletionMatch == nil || *lastDeletionMatch != *w {
				newCur = w.NewStart
			}
			lastDeletionMatch = w

		case s.Addition():
			w := findContaining(worktreeHunksNoContext, s.NewRange(), func(h Header) Range { return h.NewRange() })
			if w == nil {
				result.Rejected = append(result.Rejected, s)
				continue
			}

			result.Accepted = append(result.Accepted, Header{
				OldStart: oldCur,
				OldLines: 0,
				NewStart: s.NewStart,
				NewLines: s.NewLines,
			})
			newCur = s.NewRange().End()
			if lastAdditionMatch == nil || *lastAdditionMatch != *w {
				oldCur = w.OldStart
			}
			lastAdditionMatch = w

		default:
			if containsExact(worktreeHunks, s) {
				result.Accepted = append(result.Accepted, s)
				oldCur = s.OldRange().End()
				newCur = s.NewRange().End()
			} else {
				result.Rejected = append(result.Rejected, s)
			}
		}
	}

	return result
}

func findContaining(hunks []Header, r Range, side func(Header) Range) *Header {
	for i, h := range hunks {
		if side(h).Contains(r) {
			return &hunks[i]
		}
	}
	return nil
}

func containsExact(hunks []Header, s Header) bool {
	for _, h := range hunks {
		if h.Equal(s) {
			return true
		}
	}
	return false
}
