package hunk

// DiffSpec identifies a set of changes to a single file.
//
// An empty HunkHeaders means "the whole file", as currently present in
// the worktree, or absent if the file no longer exists there.
type DiffSpec struct {
	// PreviousPath is the path the file was renamed from, or empty if
	// the file was not renamed.
	PreviousPath string

	// Path is the file's current path.
	Path string

	// HunkHeaders selects specific hunks within the file. Empty means
	// the whole file.
	HunkHeaders []Header
}

// WholeFile reports whether spec selects an entire file rather than
// specific hunks.
func (s DiffSpec) WholeFile() bool {
	return len(s.HunkHeaders) == 0
}

type diffSpecKey struct {
	previousPath string
	path         string
}

func keyOf(s DiffSpec) diffSpecKey {
	return diffSpecKey{previousPath: s.PreviousPath, path: s.Path}
}

// Flatten merges DiffSpecs that share the same (Path, PreviousPath)
// pair, concatenating their hunk headers in encounter order. Specs
// with distinct keys are preserved, in first-seen order.
//
// Flatten does not deduplicate hunk headers: two equal headers
// contributed by different input specs under the same key both appear
// in the merged result. Flatten is therefore idempotent — flattening
// an already-flat list returns it unchanged.
func Flatten(specs []DiffSpec) []DiffSpec {
	order := make([]diffSpecKey, 0, len(specs))
	byKey := make(map[diffSpecKey]*DiffSpec, len(specs))

	for _, s := range specs {
		k := keyOf(s)
		if existing, ok := byKey[k]; ok {
			existing.HunkHeaders = append(existing.HunkHeaders, s.HunkHeaders...)
			continue
		}

		cp := s
		cp.HunkHeaders = append([]Header(nil), s.HunkHeaders...)
		byKey[k] = &cp
		order = append(order, k)
	}

	out := make([]DiffSpec, len(order))
	for i, k := range order {
		out[i] = *byKey[k]
	}
	return out
}
