package commitengine

import (
	"context"
	"fmt"

	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/hunk"
)

// CreateCommitOptions configures [CreateCommit].
type CreateCommitOptions struct {
	Destination  Destination
	MoveSource   string
	Changes      []hunk.DiffSpec
	ContextLines int

	// Message is the new commit's message. If empty and Destination
	// is an amend, the amended commit's own message is reused.
	Message string

	Author, Committer *git.Signature

	// Parents overrides the new commit's parent list. If nil, parents
	// are derived from Destination: the amended commit's own parents,
	// or a single ParentID, or none for a root commit.
	Parents []git.Hash
}

// CreateCommit builds a tree via [CreateTree] and synthesises a
// commit object from it.
func CreateCommit(ctx context.Context, repo *git.Repository, opts CreateCommitOptions) (*CreateCommitResult, error) {
	treeResult, err := CreateTree(ctx, repo, opts.Destination, opts.MoveSource, opts.Changes, opts.ContextLines)
	if err != nil {
		return nil, err
	}

	parents := opts.Parents
	message := opts.Message
	if parents == nil || message == "" {
		derivedParents, derivedMessage, err := destinationDefaults(ctx, repo, opts.Destination)
		if err != nil {
			return nil, err
		}
		if parents == nil {
			parents = derivedParents
		}
		if message == "" {
			message = derivedMessage
		}
	}

	commit, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      treeResult.Tree,
		Message:   message,
		Parents:   parents,
		Author:    opts.Author,
		Committer: opts.Committer,
	})
	if err != nil {
		return nil, fmt.Errorf("commit-tree: %w", err)
	}

	return &CreateCommitResult{
		Commit:            commit,
		Rejects:           treeResult.Rejects,
		PreCherryPickTree: treeResult.PreCherryPickTree,
	}, nil
}

// destinationDefaults derives the parent list and message a
// destination implies when the caller doesn't override them.
func destinationDefaults(ctx context.Context, repo *git.Repository, dest Destination) ([]git.Hash, string, error) {
	if dest.Amend != "" {
		ci, err := repo.ReadCommit(ctx, dest.Amend.String())
		if err != nil {
			return nil, "", fmt.Errorf("read %v: %w", dest.Amend, err)
		}
		return ci.Parents, ci.Message.String(), nil
	}
	if dest.ParentID != "" {
		return []git.Hash{dest.ParentID}, "", nil
	}
	return nil, "", nil
}
