package hunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.wsforge.dev/core/internal/hunk"
)

func TestRange_Intersects(t *testing.T) {
	tests := []struct {
		name string
		a, b hunk.Range
		want bool
	}{
		{"overlap", hunk.Range{Start: 1, Lines: 5}, hunk.Range{Start: 3, Lines: 5}, true},
		{"disjoint", hunk.Range{Start: 1, Lines: 2}, hunk.Range{Start: 10, Lines: 2}, false},
		{"adjacent no overlap", hunk.Range{Start: 1, Lines: 2}, hunk.Range{Start: 3, Lines: 2}, false},
		{"zero length inside", hunk.Range{Start: 5, Lines: 0}, hunk.Range{Start: 1, Lines: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(tt.a))
		})
	}
}

func TestRange_Contains(t *testing.T) {
	outer := hunk.Range{Start: 1, Lines: 10}
	assert.True(t, outer.Contains(hunk.Range{Start: 2, Lines: 3}))
	assert.True(t, outer.Contains(outer))
	assert.False(t, outer.Contains(hunk.Range{Start: 8, Lines: 5}))
}

func TestHeader_AdditionDeletion(t *testing.T) {
	add := hunk.Header{OldStart: 5, OldLines: 0, NewStart: 5, NewLines: 3}
	assert.True(t, add.Addition())
	assert.False(t, add.Deletion())

	del := hunk.Header{OldStart: 5, OldLines: 3, NewStart: 5, NewLines: 0}
	assert.True(t, del.Deletion())
	assert.False(t, del.Addition())

	both := hunk.Header{OldStart: 5, OldLines: 2, NewStart: 5, NewLines: 2}
	assert.False(t, both.Addition())
	assert.False(t, both.Deletion())
}

func TestHeader_Contains(t *testing.T) {
	w := hunk.Header{OldStart: 1, OldLines: 10, NewStart: 1, NewLines: 12}

	del := hunk.Header{OldStart: 3, OldLines: 2, NewStart: 3, NewLines: 0}
	assert.True(t, w.Contains(del))

	add := hunk.Header{OldStart: 3, OldLines: 0, NewStart: 3, NewLines: 2}
	assert.True(t, w.Contains(add))

	outside := hunk.Header{OldStart: 20, OldLines: 2, NewStart: 20, NewLines: 0}
	assert.False(t, w.Contains(outside))
}
