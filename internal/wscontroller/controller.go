// Package wscontroller wraps every mutating workspace operation with
// the lifecycle §4.9 requires: exclusive write-token acquisition, an
// undo snapshot, dispatch to the commit/rebase engines, a workspace-
// commit refresh, and a completion snapshot — with the lock released
// on every exit path, including failure.
package wscontroller

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/refstore"
	"go.wsforge.dev/core/internal/silog"
	"go.wsforge.dev/core/internal/wtlock"
)

// Controller is the entry point every mutating public operation goes
// through. It owns no state of its own beyond its collaborators: the
// write token it acquires per [Do] call is scoped to that call.
type Controller struct {
	Repo  *git.Repository
	Store *refstore.Store
	Log   *silog.Logger

	// Committer stamps the workspace commit. Per §4.7's
	// CommitterUpdateAuthorKeep policy applied to the workspace
	// commit itself (it has no "author" to keep; it is wholly
	// synthetic), this is the only identity the workspace commit
	// carries.
	Committer *git.Signature
}

// Mutate is the operation body [Do] runs while holding the write
// token. It performs whatever commitengine/rebase calls the caller
// needs, then reports the resulting tip of every stack that should
// remain applied to the workspace, keyed by stack id. A nil map means
// "no change to which stacks are applied or their tips" — skip the
// workspace-commit refresh entirely (e.g. a read-modify that only
// touches ref-metadata descriptions).
type Mutate func(ctx context.Context) (tips map[string]git.Hash, err error)

// Result is returned by a successful [Do].
type Result struct {
	// Before is the undo snapshot taken before Mutate ran.
	Before *Snapshot

	// After is the completion snapshot taken once the workspace
	// commit and ref-metadata store reflect the mutation.
	After *Snapshot

	// WorkspaceCommit is the (possibly unchanged) workspace commit
	// after the operation. Zero if the workspace has no applied
	// stacks.
	WorkspaceCommit git.Hash
}

// Do implements §4.9 steps 2-7: acquire the write token, snapshot,
// dispatch to mutate, refresh the managed workspace commit, flush
// metadata, snapshot again, release the token. The token is released
// on every return path via defer, matching the spec's "release is
// guaranteed on all exit paths" invariant.
//
// If mutate fails, the before-snapshot remains the recovery point and
// mutate's error is returned unwrapped (per §7's "failures after a
// mutation has begun must ... surface the original error unwrapped").
func (c *Controller) Do(ctx context.Context, workspaceRef string, mutate Mutate) (*Result, error) {
	tok, err := wtlock.Acquire(c.Repo.GitDir())
	if err != nil {
		return nil, err
	}
	stopSignalGuard := tok.ReleaseOnSignal()
	defer func() {
		stopSignalGuard()
		if relErr := tok.Release(); relErr != nil {
			c.Log.Warn("release write token", "error", relErr)
		}
	}()

	if err := c.checkManaged(ctx, workspaceRef); err != nil {
		return nil, err
	}

	before, err := takeSnapshot(ctx, c.Repo, c.Store, workspaceRef)
	if err != nil {
		return nil, fmt.Errorf("undo snapshot: %w", err)
	}
	c.Log.Debug("undo snapshot recorded",
		"ref", silog.MaybeQuote(workspaceRef),
		"snapshot", before.ID(),
		silog.NonZero("workspace", before.WorkspaceCommit),
		"size", humanize.Bytes(uint64(before.Size())),
	)

	tips, err := mutate(ctx)
	if err != nil {
		c.Log.Error("mutation failed, undo snapshot preserved",
			"ref", silog.MaybeQuote(workspaceRef),
			"snapshot", before.ID(),
			"age", humanize.RelTime(before.TakenAt, time.Now(), "ago", "from now"),
			"error", err,
		)
		return nil, err
	}

	result := &Result{Before: before, WorkspaceCommit: before.WorkspaceCommit}

	if tips != nil {
		commit, err := c.refreshWorkspaceCommit(ctx, workspaceRef, tips)
		if err != nil {
			return nil, fmt.Errorf("refresh workspace commit: %w", err)
		}
		result.WorkspaceCommit = commit
	}

	if err := c.Store.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush ref metadata: %w", err)
	}

	after, err := takeSnapshot(ctx, c.Repo, c.Store, workspaceRef)
	if err != nil {
		return nil, fmt.Errorf("completion snapshot: %w", err)
	}
	result.After = after

	c.Log.Info("workspace mutation complete",
		"ref", silog.MaybeQuote(workspaceRef),
		"before", before.ID(),
		"after", after.ID(),
		silog.NonZero("workspace", after.WorkspaceCommit),
		"size", humanize.Bytes(uint64(after.Size())),
	)

	return result, nil
}
