package wscontroller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.wsforge.dev/core/internal/git"
)

// WorkspaceCommitMarker is the fixed string every managed workspace
// commit's message begins with (§6). A workspace-ref commit lacking
// this marker is non-managed and observed read-only.
const WorkspaceCommitMarker = "GitButler Workspace Commit"

// legacyWorkspaceRef is still recognised as an alias for a managed
// workspace ref, per §6.
const legacyWorkspaceRef = "refs/heads/gitbutler/integration"

// ResolveWorkspaceRef picks the ref a worktree's workspace commit
// actually lives at: preferred if it exists, else the legacy alias
// (refs/heads/gitbutler/integration) if that one exists instead, else
// preferred itself (so callers creating a workspace for the first
// time always land on the current name).
func ResolveWorkspaceRef(ctx context.Context, repo *git.Repository, preferred string) string {
	if _, err := repo.ResolveRef(ctx, preferred); err == nil {
		return preferred
	}
	if _, err := repo.ResolveRef(ctx, legacyWorkspaceRef); err == nil {
		return legacyWorkspaceRef
	}
	return preferred
}

// IsManagedCommit reports whether a commit's message carries the
// managed-workspace-commit marker on its first line.
func IsManagedCommit(message string) bool {
	first, _, _ := strings.Cut(message, "\n")
	return strings.HasPrefix(first, WorkspaceCommitMarker)
}

// checkManaged resolves workspaceRef and rejects the mutation with
// [ErrNonManagedHead] if it exists and its commit isn't managed. A
// ref that doesn't exist yet is not an error: the first applied stack
// is what creates it.
func (c *Controller) checkManaged(ctx context.Context, workspaceRef string) error {
	hash, err := c.Repo.ResolveRef(ctx, workspaceRef)
	if err != nil {
		if errors.Is(err, git.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("resolve %s: %w", workspaceRef, err)
	}

	ci, err := c.Repo.ReadCommit(ctx, hash.String())
	if err != nil {
		return fmt.Errorf("read %s: %w", workspaceRef, err)
	}
	if !IsManagedCommit(ci.Message.String()) {
		return &ErrNonManagedHead{Ref: workspaceRef}
	}
	return nil
}

// refreshWorkspaceCommit rewrites workspaceRef so that its commit is a
// merge of exactly the given stack tips, in canonical (stack id)
// order, per §9's "workspace tip commit's parent set equals the tip
// OIDs of applied stacks, in canonical stack-id order" invariant. An
// empty tips map destroys the workspace commit: there is nothing left
// to merge.
func (c *Controller) refreshWorkspaceCommit(ctx context.Context, workspaceRef string, tips map[string]git.Hash) (git.Hash, error) {
	if len(tips) == 0 {
		short := strings.TrimPrefix(workspaceRef, "refs/heads/")
		if c.Repo.BranchExists(ctx, short) {
			if err := c.Repo.DeleteBranch(ctx, short, git.BranchDeleteOptions{Force: true}); err != nil {
				return "", fmt.Errorf("delete empty workspace ref %s: %w", workspaceRef, err)
			}
		}
		return git.ZeroHash, nil
	}

	ids := make([]string, 0, len(tips))
	for id := range tips {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parents := make([]git.Hash, len(ids))
	for i, id := range ids {
		parents[i] = tips[id]
	}

	tree, err := octopusTree(ctx, c.Repo, parents)
	if err != nil {
		return "", fmt.Errorf("merge stack tips into workspace tree: %w", err)
	}

	message := fmt.Sprintf("%s\n\nThis commit is managed by wsforge and its content is\nderived from the stacks applied in this workspace.\n", WorkspaceCommitMarker)

	commit, err := c.Repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      tree,
		Message:   message,
		Parents:   parents,
		Author:    c.Committer,
		Committer: c.Committer,
	})
	if err != nil {
		return "", fmt.Errorf("commit workspace merge: %w", err)
	}

	old, err := c.Repo.ResolveRef(ctx, workspaceRef)
	if err != nil {
		old = git.ZeroHash
	}
	if err := c.Repo.SetRef(ctx, git.SetRefRequest{Ref: workspaceRef, Hash: commit, OldHash: old}); err != nil {
		return "", fmt.Errorf("update %s: %w", workspaceRef, err)
	}

	return commit, nil
}

// octopusTree merges every tip in parents into a single tree, folding
// them in left to right: the running tree starts as parents[0]'s own
// tree, then each subsequent tip is merged in against the merge-base
// it shares with parents[0]. This mirrors internal/rebase's own
// octopus-merge approach (pickMerge) rather than introducing a second
// merge strategy for the same primitive.
func octopusTree(ctx context.Context, repo *git.Repository, parents []git.Hash) (git.Hash, error) {
	running, err := repo.PeelToTree(ctx, parents[0].String())
	if err != nil {
		return "", fmt.Errorf("resolve tree of %v: %w", parents[0], err)
	}

	for i := 1; i < len(parents); i++ {
		base, err := repo.MergeBase(ctx, parents[0].String(), parents[i].String())
		if err != nil {
			return "", fmt.Errorf("merge-base of %v and %v: %w", parents[0], parents[i], err)
		}

		baseTree, err := repo.PeelToTree(ctx, base.String())
		if err != nil {
			return "", fmt.Errorf("resolve merge-base tree: %w", err)
		}

		theirsTree, err := repo.PeelToTree(ctx, parents[i].String())
		if err != nil {
			return "", fmt.Errorf("resolve tree of %v: %w", parents[i], err)
		}

		running, err = repo.MergeTree(ctx, git.MergeTreeRequest{
			Branch1:   running.String(),
			Branch2:   theirsTree.String(),
			MergeBase: baseTree.String(),
		})
		if err != nil {
			return "", fmt.Errorf("merge stack tip %v into workspace tree: %w", parents[i], err)
		}
	}

	return running, nil
}
