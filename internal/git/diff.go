package git

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
)

// FileStatusCode specifies the status of a file in a diff.
type FileStatusCode string

// List of file status codes from
// https://git-scm.com/docs/git-diff-index#Documentation/git-diff-index.txt---diff-filterACDMRTUXB82308203.
const (
	FileUnchanged   FileStatusCode = ""
	FileAdded       FileStatusCode = "A"
	FileCopied      FileStatusCode = "C"
	FileDeleted     FileStatusCode = "D"
	FileModified    FileStatusCode = "M"
	FileRenamed     FileStatusCode = "R"
	FileTypeChanged FileStatusCode = "T"
	FileUnmerged    FileStatusCode = "U"
)

// FileStatus is a single file in a diff.
type FileStatus struct {
	// Status of the file.
	Status string

	// Path to the file relative to the tree root.
	Path string
}

// DiffTree compares two trees and returns an iterator over files that are different.
// The treeish1 and treeish2 arguments can be any valid tree-ish references.
func (r *Repository) DiffTree(ctx context.Context, treeish1, treeish2 string) iter.Seq2[FileStatus, error] {
	return func(yield func(FileStatus, error) bool) {
		cmd := r.gitCmd(ctx, "diff-tree", "-r", "--name-status", "-z", treeish1, treeish2)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(FileStatus{}, fmt.Errorf("pipe: %w", err))
			return
		}

		if err := cmd.Start(r.exec); err != nil {
			yield(FileStatus{}, fmt.Errorf("start git diff-tree: %w", err))
			return
		}

		var finished bool
		defer func() {
			if finished {
				return
			}
			_ = cmd.Kill(r.exec)
			_, _ = io.Copy(io.Discard, stdout)
		}()

		scan := bufio.NewScanner(stdout)
		scan.Split(scanNullDelimited)

		var status string
		var expectingPath bool
		for scan.Scan() {
			line := scan.Bytes()
			if len(line) == 0 {
				continue
			}

			if !expectingPath {
				status = string(line)
				expectingPath = true
				continue
			}

			if !yield(FileStatus{Status: status, Path: string(line)}, nil) {
				return
			}
			expectingPath = false
		}

		if err := scan.Err(); err != nil {
			if !yield(FileStatus{}, fmt.Errorf("scan: %w", err)) {
				return
			}
		}

		if err := cmd.Wait(r.exec); err != nil {
			if !yield(FileStatus{}, fmt.Errorf("diff-tree: %w", err)) {
				return
			}
		}

		finished = true
	}
}
