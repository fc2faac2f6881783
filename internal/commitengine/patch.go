package commitengine

import (
	"fmt"
	"slices"

	"go.wsforge.dev/core/internal/hunk"
)

// splitLines splits content into lines, each retaining its trailing
// newline (the last line omits one if content doesn't end in "\n").
// Joining the result reproduces content exactly.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}

	var lines []string
	start := 0
	for i, b := range content {
		if b == '\n' {
			lines = append(lines, string(content[start:i+1]))
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, string(content[start:]))
	}
	return lines
}

// applyAdditiveHunks reconstructs a file's content by applying a set
// of additive hunks (as produced by [hunk.Additive]) to base, using
// worktree as the source of any added lines.
//
// Hunk old-side coordinates index into base; new-side coordinates
// index into worktree. This mirrors how [hunk.Additive] computes its
// accepted hunks: old-side spans mark what to drop from base, new-side
// spans mark what to copy from worktree in its place.
func applyAdditiveHunks(base, worktree []string, accepted []hunk.Header) ([]byte, error) {
	sorted := slices.Clone(accepted)
	slices.SortFunc(sorted, func(a, b hunk.Header) int {
		return a.OldStart - b.OldStart
	})

	var out []byte
	oldPos := 1 // next unconsumed 1-based line in base
	for _, h := range sorted {
		if h.OldStart < oldPos {
			return nil, fmt.Errorf("overlapping hunks at base line %d", h.OldStart)
		}

		for ; oldPos < h.OldStart; oldPos++ {
			if oldPos-1 >= len(base) {
				return nil, fmt.Errorf("hunk references base line %d, but base only has %d lines", oldPos, len(base))
			}
			out = append(out, base[oldPos-1]...)
		}

		oldPos += h.OldLines

		for i := range h.NewLines {
			idx := h.NewStart - 1 + i
			if idx < 0 || idx >= len(worktree) {
				return nil, fmt.Errorf("hunk references worktree line %d, but worktree only has %d lines", idx+1, len(worktree))
			}
			out = append(out, worktree[idx]...)
		}
	}

	for ; oldPos-1 < len(base); oldPos++ {
		out = append(out, base[oldPos-1]...)
	}

	return out, nil
}

// headersForPath extracts the hunk headers parsed for a single file
// out of a multi-file unified diff.
func headersForPath(files []hunk.FileHunks, path string) []hunk.Header {
	for _, f := range files {
		if f.Path == path {
			return f.Headers
		}
	}
	return nil
}
