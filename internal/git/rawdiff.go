package git

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
)

// RawDiffEntry is a single changed tree entry reported by
// [Repository.DiffTreeRaw].
type RawDiffEntry struct {
	OldMode Mode
	NewMode Mode
	OldHash Hash
	NewHash Hash
	Status  FileStatusCode
	Path    string
}

// DiffTreeRaw compares two trees and returns an iterator over the raw
// per-entry changes between them: the old and new mode and hash of
// each changed entry, alongside its status.
//
// Rename and copy detection are always disabled, so statuses are
// always one of [FileAdded], [FileDeleted], [FileModified], or
// [FileTypeChanged]; [Status] never reports [FileRenamed] or
// [FileCopied].
func (r *Repository) DiffTreeRaw(ctx context.Context, treeish1, treeish2 string) iter.Seq2[RawDiffEntry, error] {
	return func(yield func(RawDiffEntry, error) bool) {
		cmd := r.gitCmd(ctx,
			"diff-tree", "-r", "--raw", "-z",
			"--no-renames", // rename detection off: preserves diff-order stability
			treeish1, treeish2,
		)
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield(RawDiffEntry{}, fmt.Errorf("pipe: %w", err))
			return
		}
		if err := cmd.Start(r.exec); err != nil {
			yield(RawDiffEntry{}, fmt.Errorf("start git diff-tree: %w", err))
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
		var pending *RawDiffEntry
		for scan.Scan() {
			tok := scan.Bytes()
			if len(tok) == 0 {
				continue
			}
			if pending == nil {
				ent, err := parseRawDiffLine(tok)
				if err != nil {
					if !yield(RawDiffEntry{}, err) {
						return
					}
					continue
				}
				pending = &ent
				continue
			}

			pending.Path = string(tok)
			if !yield(*pending, nil) {
				return
			}
			pending = nil
		}

		if err := scan.Err(); err != nil {
			if !yield(RawDiffEntry{}, fmt.Errorf("scan: %w", err)) {
				return
			}
		}

		if err := cmd.Wait(r.exec); err != nil {
			if !yield(RawDiffEntry{}, fmt.Errorf("diff-tree: %w", err)) {
				return
			}
		}

		finished = true
	}
}

// parseRawDiffLine parses a line of the form
//
//	:100644 100644 <oldhash> <newhash> M
//
// (the leading colon and trailing status letter, without the
// trailing NUL-delimited path, which is read separately).
func parseRawDiffLine(line []byte) (RawDiffEntry, error) {
	s := strings.TrimPrefix(string(line), ":")
	fields := strings.Fields(s)
	if len(fields) != 5 {
		return RawDiffEntry{}, fmt.Errorf("malformed diff-tree raw line: %q", line)
	}

	oldMode, err := ParseMode(fields[0])
	if err != nil {
		return RawDiffEntry{}, fmt.Errorf("parse old mode: %w", err)
	}
	newMode, err := ParseMode(fields[1])
	if err != nil {
		return RawDiffEntry{}, fmt.Errorf("parse new mode: %w", err)
	}

	return RawDiffEntry{
		OldMode: oldMode,
		NewMode: newMode,
		OldHash: Hash(fields[2]),
		NewHash: Hash(fields[3]),
		Status:  FileStatusCode(fields[4]),
	}, nil
}
