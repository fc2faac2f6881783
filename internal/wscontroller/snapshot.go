package wscontroller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/refstore"
)

// Snapshot is a content-addressed record of a worktree's workspace
// commit plus every ref-metadata record, taken before and after a
// mutating operation (§4.9 steps 3 and 6). Diffing two snapshots'
// IDs is how a caller notices a mutation actually changed anything;
// keeping the "before" one around is what makes an undo possible.
type Snapshot struct {
	TakenAt         time.Time
	WorkspaceRef    string
	WorkspaceCommit git.Hash // zero if the workspace ref doesn't exist yet

	id   string
	size int
}

// ID is the snapshot's content hash: two snapshots of the same
// workspace commit and the same ref-metadata entries hash equal,
// regardless of when they were taken.
func (s *Snapshot) ID() string { return s.id }

// Size is the approximate serialized size of the snapshot's
// ref-metadata entries, for logging (via humanize.Bytes).
func (s *Snapshot) Size() int { return s.size }

// takeSnapshot captures the current state of workspaceRef and every
// record in store.
func takeSnapshot(ctx context.Context, repo *git.Repository, store *refstore.Store, workspaceRef string) (*Snapshot, error) {
	commit, err := repo.ResolveRef(ctx, workspaceRef)
	if err != nil {
		if !errors.Is(err, git.ErrNotExist) {
			return nil, fmt.Errorf("resolve %s: %w", workspaceRef, err)
		}
		commit = git.ZeroHash
	}

	entries := store.Iter()
	data, err := yaml.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal ref metadata for snapshot: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(commit))
	h.Write([]byte{0})
	h.Write(data)

	return &Snapshot{
		TakenAt:         time.Now(),
		WorkspaceRef:    workspaceRef,
		WorkspaceCommit: commit,
		id:              hex.EncodeToString(h.Sum(nil)),
		size:            len(data),
	}, nil
}
