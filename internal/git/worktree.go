package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WorktreeEntry is the content and Git tree mode of a path as it
// currently exists in the working copy, independent of the index.
type WorktreeEntry struct {
	Content []byte
	Mode    Mode
}

// ReadWorktreeEntry reads the content and file mode of a
// worktree-relative path from disk, distinguishing regular,
// executable, and symlink entries the way Git itself would when
// staging the path.
//
// The returned error satisfies [os.IsNotExist] if path does not exist
// in the working copy.
func (r *Repository) ReadWorktreeEntry(path string) (WorktreeEntry, error) {
	full := filepath.Join(r.root, path)

	fi, err := os.Lstat(full)
	if err != nil {
		return WorktreeEntry{}, err
	}

	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(full)
		if err != nil {
			return WorktreeEntry{}, err
		}
		return WorktreeEntry{Content: []byte(target), Mode: SymlinkMode}, nil

	case fi.Mode().IsRegular():
		content, err := os.ReadFile(full)
		if err != nil {
			return WorktreeEntry{}, err
		}
		mode := RegularMode
		if fi.Mode()&0o111 != 0 {
			mode = ExecutableMode
		}
		return WorktreeEntry{Content: content, Mode: mode}, nil

	default:
		return WorktreeEntry{}, fmt.Errorf("%s: unsupported working copy entry %v", path, fi.Mode())
	}
}

// WorktreeFileExists reports whether path exists in the working copy
// on disk, following the same rules as [Repository.ReadWorktreeEntry].
func (r *Repository) WorktreeFileExists(path string) (bool, error) {
	_, err := os.Lstat(filepath.Join(r.root, path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// WriteWorktreeEntry writes entry's content to a worktree-relative
// path on disk, creating parent directories as needed and applying
// the file mode entry.Mode implies (regular, executable, or symlink).
func (r *Repository) WriteWorktreeEntry(path string, entry WorktreeEntry) error {
	full := filepath.Join(r.root, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o777); err != nil {
		return err
	}

	if entry.Mode == SymlinkMode {
		_ = os.Remove(full)
		return os.Symlink(string(entry.Content), full)
	}

	perm := os.FileMode(0o644)
	if entry.Mode == ExecutableMode {
		perm = 0o755
	}
	return os.WriteFile(full, entry.Content, perm)
}

// RemoveWorktreeFile removes a worktree-relative path from disk. It
// is a no-op if the path does not exist.
func (r *Repository) RemoveWorktreeFile(path string) error {
	err := os.Remove(filepath.Join(r.root, path))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DiffWorktree computes the unified diff between treeish and the live
// working copy for a single path, using contextLines lines of
// context. It diffs against the working tree directly, regardless of
// what (if anything) is staged for path.
//
// The returned text is empty if path is unchanged between treeish and
// the working copy.
func (r *Repository) DiffWorktree(ctx context.Context, treeish, path string, contextLines int) (string, error) {
	out, err := r.gitCmd(ctx,
		"diff",
		"--no-color",
		"--no-ext-diff",
		"--unified="+strconv.Itoa(contextLines),
		treeish, "--", path,
	).OutputString(r.exec)
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	return out, nil
}
