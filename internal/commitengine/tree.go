package commitengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/hunk"
)

// CreateTree builds a new tree from destination's own tree, with
// changes applied on top. If moveSource is non-empty, each change's
// base content is read from moveSource's tree instead of
// destination's, and the result is reconciled against destination via
// a three-way merge (§4.6.1): when a path's change conflicts with
// what's actually on destination, it is rejected with
// [CherryPickMergeConflict] and the remaining changes are retried.
//
// contextLines controls how much context is used to compute the
// worktree diff that hunk-level changes are matched against; it has
// no effect on whole-file changes.
func CreateTree(ctx context.Context, repo *git.Repository, dest Destination, moveSource string, changes []hunk.DiffSpec, contextLines int) (*CreateTreeResult, error) {
	changes = hunk.Flatten(changes)

	targetTreeish := dest.treeish()
	baseTreeish := moveSource
	if baseTreeish == "" {
		baseTreeish = targetTreeish
	}

	var carried []Reject
	pending := changes
	for {
		tree, rejects, err := createTreeOnce(ctx, repo, baseTreeish, pending, contextLines)
		if err != nil {
			return nil, err
		}
		carried = append(carried, rejects...)

		if baseTreeish == targetTreeish {
			return &CreateTreeResult{Tree: tree, Rejects: carried}, nil
		}

		merged, conflicts, err := reconcileAgainstDestination(ctx, repo, baseTreeish, targetTreeish, tree)
		if err != nil {
			return nil, err
		}
		if len(conflicts) == 0 {
			return &CreateTreeResult{Tree: merged, Rejects: carried, PreCherryPickTree: tree}, nil
		}

		var shrunk []hunk.DiffSpec
		for _, c := range pending {
			if conflicts[c.Path] || (c.PreviousPath != "" && conflicts[c.PreviousPath]) {
				carried = append(carried, Reject{Path: c.Path, Reason: CherryPickMergeConflict})
				continue
			}
			shrunk = append(shrunk, c)
		}
		if len(shrunk) == len(pending) {
			// A path conflicted that no pending change actually
			// touches; retrying would not make progress.
			return nil, fmt.Errorf("reconcile tree: unresolvable conflict in paths not covered by any requested change")
		}
		pending = shrunk
	}
}

// createTreeOnce applies changes against baseTreeish's tree in
// isolation, without reconciling against any other tree.
func createTreeOnce(ctx context.Context, repo *git.Repository, baseTreeish string, changes []hunk.DiffSpec, contextLines int) (git.Hash, []Reject, error) {
	baseTree, err := repo.PeelToTree(ctx, baseTreeish)
	if err != nil {
		return git.ZeroHash, nil, fmt.Errorf("resolve %s: %w", baseTreeish, err)
	}

	entries, err := treeEntryMap(ctx, repo, baseTree)
	if err != nil {
		return git.ZeroHash, nil, err
	}

	var (
		writes  []git.BlobInfo
		deletes []string
		rejects []Reject
	)
	for _, spec := range changes {
		ws, ds, reject, err := resolveChange(ctx, repo, baseTreeish, spec, entries, contextLines)
		if err != nil {
			return git.ZeroHash, nil, err
		}
		if reject != nil {
			rejects = append(rejects, *reject)
			continue
		}
		writes = append(writes, ws...)
		deletes = append(deletes, ds...)
	}

	if len(writes) == 0 && len(deletes) == 0 {
		return baseTree, rejects, nil
	}

	tree, err := repo.UpdateTree(ctx, git.UpdateTreeRequest{
		Tree:    baseTree,
		Writes:  slicesSeq(writes),
		Deletes: stringsSeq(deletes),
	})
	if err != nil {
		return git.ZeroHash, nil, fmt.Errorf("update tree: %w", err)
	}
	return tree, rejects, nil
}

// reconcileAgainstDestination three-way merges newTree against
// destination's own tree, using base as the common ancestor. It
// returns the set of conflicting paths rather than an error when the
// merge is unclean, so the caller can shrink and retry.
func reconcileAgainstDestination(ctx context.Context, repo *git.Repository, base, destination string, newTree git.Hash) (git.Hash, map[string]bool, error) {
	merged, err := repo.MergeTree(ctx, git.MergeTreeRequest{
		Branch1:   destination,
		Branch2:   newTree.String(),
		MergeBase: base,
	})
	var conflictErr *git.MergeTreeConflictError
	switch {
	case err == nil:
		return merged, nil, nil
	case errors.As(err, &conflictErr):
		conflicts := make(map[string]bool)
		for path := range conflictErr.Filenames() {
			conflicts[path] = true
		}
		return git.ZeroHash, conflicts, nil
	default:
		return git.ZeroHash, nil, fmt.Errorf("reconcile tree: %w", err)
	}
}

// resolveChange applies a single DiffSpec against baseTreeish's tree,
// returning the tree writes and deletes it implies.
func resolveChange(
	ctx context.Context,
	repo *git.Repository,
	baseTreeish string,
	spec hunk.DiffSpec,
	entries map[string]git.TreeEntry,
	contextLines int,
) (writes []git.BlobInfo, deletes []string, reject *Reject, err error) {
	if spec.WholeFile() {
		return resolveWholeFileChange(ctx, repo, spec, entries)
	}
	return resolveHunkChange(ctx, repo, baseTreeish, spec, entries, contextLines)
}

func resolveWholeFileChange(ctx context.Context, repo *git.Repository, spec hunk.DiffSpec, entries map[string]git.TreeEntry) ([]git.BlobInfo, []string, *Reject, error) {
	exists, err := repo.WorktreeFileExists(spec.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	if !exists {
		deletes := []string{spec.Path}
		if spec.PreviousPath != "" {
			deletes = append(deletes, spec.PreviousPath)
		}
		return nil, deletes, nil, nil
	}

	entry, err := repo.ReadWorktreeEntry(spec.Path)
	if err != nil {
		return nil, nil, &Reject{Path: spec.Path, Reason: WorktreeFileMissingForObjectConversion, Detail: err.Error()}, nil
	}

	hashOpts := git.WriteObjectOptions{}
	if entry.Mode != git.SymlinkMode {
		hashOpts.Path = spec.Path // filter parity only applies to regular content
	}
	hash, err := repo.WriteObject(ctx, git.BlobType, bytes.NewReader(entry.Content), hashOpts)
	if err != nil {
		return nil, nil, nil, err
	}

	if baseEntry, existed := entries[spec.Path]; existed && spec.PreviousPath == "" &&
		baseEntry.Hash == hash && baseEntry.Mode == entry.Mode {
		return nil, nil, &Reject{Path: spec.Path, Reason: NoEffectiveChanges}, nil
	}

	writes := []git.BlobInfo{{Mode: entry.Mode, Hash: hash, Path: spec.Path}}
	var deletes []string
	if spec.PreviousPath != "" && spec.PreviousPath != spec.Path {
		deletes = append(deletes, spec.PreviousPath)
	}
	return writes, deletes, nil, nil
}

func resolveHunkChange(
	ctx context.Context,
	repo *git.Repository,
	baseTreeish string,
	spec hunk.DiffSpec,
	entries map[string]git.TreeEntry,
	contextLines int,
) ([]git.BlobInfo, []string, *Reject, error) {
	baseEntry, hadBase := entries[spec.Path]
	if hadBase && baseEntry.Type == git.TreeType {
		return nil, nil, &Reject{Path: spec.Path, Reason: UnsupportedTreeEntry}, nil
	}
	if hadBase && baseEntry.Mode == git.SymlinkMode {
		return nil, nil, &Reject{Path: spec.Path, Reason: FileTooLargeOrBinary, Detail: "symlink is not hunk-diffable"}, nil
	}

	worktreeExists, err := repo.WorktreeFileExists(spec.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	if !hadBase || !worktreeExists {
		// A whole file appearing or disappearing isn't expressible as
		// hunks: it must go through the whole-file selection instead.
		return nil, nil, &Reject{Path: spec.Path, Reason: MissingDiffSpecAssociation, Detail: "file creation or removal must use whole-file selection"}, nil
	}

	worktreeHunks, err := diffHeadersForPath(ctx, repo, baseTreeish, spec.Path, contextLines)
	if err != nil {
		return nil, nil, nil, err
	}
	noContextHunks, err := diffHeadersForPath(ctx, repo, baseTreeish, spec.Path, 0)
	if err != nil {
		return nil, nil, nil, err
	}

	additive := hunk.Additive(spec.HunkHeaders, worktreeHunks, noContextHunks)
	if len(additive.Rejected) > 0 {
		return nil, nil, &Reject{Path: spec.Path, Reason: MissingDiffSpecAssociation}, nil
	}
	if len(additive.Accepted) == 0 {
		return nil, nil, &Reject{Path: spec.Path, Reason: NoEffectiveChanges}, nil
	}

	var baseContent []byte
	if hadBase {
		var buf bytes.Buffer
		if err := repo.ReadObject(ctx, git.BlobType, baseEntry.Hash, &buf); err != nil {
			return nil, nil, nil, fmt.Errorf("read base content for %s: %w", spec.Path, err)
		}
		baseContent = buf.Bytes()
	}

	worktreeEntry, err := repo.ReadWorktreeEntry(spec.Path)
	if err != nil {
		return nil, nil, &Reject{Path: spec.Path, Reason: WorktreeFileMissingForObjectConversion, Detail: err.Error()}, nil
	}

	newContent, err := applyAdditiveHunks(splitLines(baseContent), splitLines(worktreeEntry.Content), additive.Accepted)
	if err != nil {
		return nil, nil, &Reject{Path: spec.Path, Reason: MissingDiffSpecAssociation, Detail: err.Error()}, nil
	}

	mode := worktreeEntry.Mode
	if hadBase {
		mode = baseEntry.Mode
	}

	hash, err := repo.WriteObject(ctx, git.BlobType, bytes.NewReader(newContent))
	if err != nil {
		return nil, nil, nil, err
	}

	return []git.BlobInfo{{Mode: mode, Hash: hash, Path: spec.Path}}, nil, nil, nil
}

func diffHeadersForPath(ctx context.Context, repo *git.Repository, treeish, path string, contextLines int) ([]hunk.Header, error) {
	text, err := repo.DiffWorktree(ctx, treeish, path, contextLines)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", path, err)
	}
	if text == "" {
		return nil, nil
	}
	files, err := hunk.ParseUnifiedDiff(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse diff for %s: %w", path, err)
	}
	return headersForPath(files, path), nil
}

// treeEntryMap recursively lists tree's entries into a path-keyed map.
func treeEntryMap(ctx context.Context, repo *git.Repository, tree git.Hash) (map[string]git.TreeEntry, error) {
	entries, err := repo.ListTree(ctx, tree, git.ListTreeOptions{Recurse: true})
	if err != nil {
		return nil, fmt.Errorf("list tree %v: %w", tree, err)
	}

	m := make(map[string]git.TreeEntry)
	for ent, err := range entries {
		if err != nil {
			return nil, fmt.Errorf("list tree %v: %w", tree, err)
		}
		m[ent.Name] = ent
	}
	return m, nil
}

func slicesSeq(blobs []git.BlobInfo) iter.Seq[git.BlobInfo] {
	return func(yield func(git.BlobInfo) bool) {
		for _, b := range blobs {
			if !yield(b) {
				return
			}
		}
	}
}

func stringsSeq(paths []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, p := range paths {
			if !yield(p) {
				return
			}
		}
	}
}
