package commitengine

import (
	"bytes"
	"context"
	"fmt"

	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/hunk"
)

// DiscardWorktreeChanges reverts the selected changes in the working
// copy, relative to treeish, without creating a commit. Whole-file
// discards restore the path exactly as it exists at treeish (or
// remove it, if it doesn't exist there); hunk-level discards apply
// §4.5's additive-hunk computation in reverse.
func DiscardWorktreeChanges(ctx context.Context, repo *git.Repository, treeish string, changes []hunk.DiffSpec, contextLines int) ([]Reject, error) {
	changes = hunk.Flatten(changes)

	tree, err := repo.PeelToTree(ctx, treeish)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", treeish, err)
	}
	entries, err := treeEntryMap(ctx, repo, tree)
	if err != nil {
		return nil, err
	}

	var rejects []Reject
	for _, spec := range changes {
		reject, err := discardChange(ctx, repo, treeish, spec, entries, contextLines)
		if err != nil {
			return nil, err
		}
		if reject != nil {
			rejects = append(rejects, *reject)
		}
	}
	return rejects, nil
}

func discardChange(
	ctx context.Context,
	repo *git.Repository,
	treeish string,
	spec hunk.DiffSpec,
	entries map[string]git.TreeEntry,
	contextLines int,
) (*Reject, error) {
	if spec.WholeFile() {
		return discardWholeFile(ctx, repo, spec, entries)
	}
	return discardHunks(ctx, repo, treeish, spec, entries, contextLines)
}

func discardWholeFile(ctx context.Context, repo *git.Repository, spec hunk.DiffSpec, entries map[string]git.TreeEntry) (*Reject, error) {
	entry, existed := entries[spec.Path]
	if !existed {
		if err := repo.RemoveWorktreeFile(spec.Path); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if entry.Type == git.TreeType {
		return &Reject{Path: spec.Path, Reason: UnsupportedTreeEntry}, nil
	}

	var buf bytes.Buffer
	if err := repo.ReadObject(ctx, git.BlobType, entry.Hash, &buf); err != nil {
		return nil, fmt.Errorf("read %s: %w", spec.Path, err)
	}

	if err := repo.WriteWorktreeEntry(spec.Path, git.WorktreeEntry{Content: buf.Bytes(), Mode: entry.Mode}); err != nil {
		return nil, fmt.Errorf("restore %s: %w", spec.Path, err)
	}
	return nil, nil
}

func discardHunks(
	ctx context.Context,
	repo *git.Repository,
	treeish string,
	spec hunk.DiffSpec,
	entries map[string]git.TreeEntry,
	contextLines int,
) (*Reject, error) {
	baseEntry, hadBase := entries[spec.Path]
	if hadBase && baseEntry.Type == git.TreeType {
		return &Reject{Path: spec.Path, Reason: UnsupportedTreeEntry}, nil
	}

	worktreeExists, err := repo.WorktreeFileExists(spec.Path)
	if err != nil {
		return nil, err
	}
	if !hadBase || !worktreeExists {
		return &Reject{Path: spec.Path, Reason: MissingDiffSpecAssociation, Detail: "file creation or removal must use whole-file selection"}, nil
	}

	worktreeHunks, err := diffHeadersForPath(ctx, repo, treeish, spec.Path, contextLines)
	if err != nil {
		return nil, err
	}
	noContextHunks, err := diffHeadersForPath(ctx, repo, treeish, spec.Path, 0)
	if err != nil {
		return nil, err
	}

	additive := hunk.Additive(spec.HunkHeaders, worktreeHunks, noContextHunks)
	if len(additive.Rejected) > 0 {
		return &Reject{Path: spec.Path, Reason: MissingDiffSpecAssociation}, nil
	}
	if len(additive.Accepted) == 0 {
		return &Reject{Path: spec.Path, Reason: NoEffectiveChanges}, nil
	}

	var buf bytes.Buffer
	if err := repo.ReadObject(ctx, git.BlobType, baseEntry.Hash, &buf); err != nil {
		return nil, fmt.Errorf("read base content for %s: %w", spec.Path, err)
	}
	baseContent := buf.Bytes()

	worktreeEntry, err := repo.ReadWorktreeEntry(spec.Path)
	if err != nil {
		return &Reject{Path: spec.Path, Reason: WorktreeFileMissingForObjectConversion, Detail: err.Error()}, nil
	}

	// Reverting a hunk means restoring the committed content over
	// that span: apply the same additive hunks with old/new swapped,
	// using the worktree's current content as the base and the
	// committed content as the source of replacement lines.
	swapped := make([]hunk.Header, len(additive.Accepted))
	for i, h := range additive.Accepted {
		swapped[i] = hunk.Header{
			OldStart: h.NewStart, OldLines: h.NewLines,
			NewStart: h.OldStart, NewLines: h.OldLines,
		}
	}

	reverted, err := applyAdditiveHunks(splitLines(worktreeEntry.Content), splitLines(baseContent), swapped)
	if err != nil {
		return &Reject{Path: spec.Path, Reason: MissingDiffSpecAssociation, Detail: err.Error()}, nil
	}

	if err := repo.WriteWorktreeEntry(spec.Path, git.WorktreeEntry{Content: reverted, Mode: worktreeEntry.Mode}); err != nil {
		return nil, fmt.Errorf("write %s: %w", spec.Path, err)
	}
	return nil, nil
}
