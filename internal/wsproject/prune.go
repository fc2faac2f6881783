package wsproject

// PrunedToEntrypoint returns a copy of ws retaining only the stack
// that contains the current entrypoint segment, dropping all others.
//
// It is idempotent, and safe to call when no entrypoint is marked: in
// that case ws is returned unchanged (a copy, not the original value).
func PrunedToEntrypoint(ws Workspace) Workspace {
	if ws.EntrypointStack == "" {
		return ws
	}

	pruned := ws
	pruned.Stacks = nil
	for _, stack := range ws.Stacks {
		if stack.ID == ws.EntrypointStack {
			pruned.Stacks = append(pruned.Stacks, stack)
			break
		}
	}
	return pruned
}
