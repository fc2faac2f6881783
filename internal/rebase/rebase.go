package rebase

import (
	"context"
	"fmt"

	"go.wsforge.dev/core/internal/git"
)

// emptyTreeHash is the well-known hash of the empty Git tree object,
// used as the merge base when cherry-picking a root commit.
const emptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Execute validates req and replays its steps, producing a new chain
// of commits. It never creates or moves a branch ref; callers are
// responsible for pointing refs at Output.TopCommit and the entries
// in Output.References.
func Execute(ctx context.Context, repo *git.Repository, req Request) (*Output, error) {
	if err := validate(ctx, repo, req); err != nil {
		return nil, err
	}

	cursor := req.Base
	lastSeen := req.Base

	var references []ReferenceSpec
	var mapping []CommitMapping

	for _, step := range req.Steps {
		switch s := step.(type) {
		case Pick:
			lastSeen = s.CommitID

			ci, err := repo.ReadCommit(ctx, s.CommitID.String())
			if err != nil {
				return nil, fmt.Errorf("read %v: %w", s.CommitID, err)
			}

			switch {
			case len(ci.Parents) > 1:
				newCursor, err := pickMerge(ctx, repo, req, mapping, cursor, ci, s.NewMessage)
				if err != nil {
					return nil, err
				}
				cursor = newCursor

			case cursor != "":
				newCursor, _, err := cherryPickOne(ctx, repo, cursor, ci, !req.RebaseNoops, req.Committer, s.NewMessage)
				if err != nil {
					return nil, err
				}
				cursor = newCursor

			case len(ci.Parents) == 0:
				message := s.NewMessage
				if message == "" {
					message = ci.Message.String()
				}
				newCursor, err := repo.CommitTree(ctx, git.CommitTreeRequest{
					Tree:      ci.Tree,
					Message:   message,
					Author:    &ci.Author,
					Committer: req.Committer,
				})
				if err != nil {
					return nil, fmt.Errorf("commit-tree: %w", err)
				}
				cursor = newCursor

			default:
				return nil, &ValidationError{Reason: "first commit of an existing history cannot become rootless"}
			}

		case SquashIntoPreceding:
			if cursor == "" {
				return nil, &ValidationError{Reason: "cannot squash: no preceding commit"}
			}
			lastSeen = s.CommitID

			precedingCI, err := repo.ReadCommit(ctx, cursor.String())
			if err != nil {
				return nil, fmt.Errorf("read %v: %w", cursor, err)
			}

			pickedCI, err := repo.ReadCommit(ctx, s.CommitID.String())
			if err != nil {
				return nil, fmt.Errorf("read %v: %w", s.CommitID, err)
			}

			mergedTree, err := cherryPickTree(ctx, repo, cursor, pickedCI)
			if err != nil {
				return nil, err
			}

			message := s.NewMessage
			if message == "" {
				message = pickedCI.Message.String()
			}

			newCursor, err := repo.CommitTree(ctx, git.CommitTreeRequest{
				Tree:      mergedTree,
				Message:   message,
				Parents:   precedingCI.Parents,
				Author:    &pickedCI.Author,
				Committer: req.Committer,
			})
			if err != nil {
				return nil, fmt.Errorf("commit-tree: %w", err)
			}
			cursor = newCursor

		case Reference:
			if cursor == "" {
				return nil, &ValidationError{Reason: "reference step has no commit to point at"}
			}
			references = append(references, ReferenceSpec{
				Name:             s.Name,
				CommitID:         cursor,
				PreviousCommitID: lastSeen,
			})
		}

		if lastSeen != "" && cursor != "" {
			mapping = append(mapping, CommitMapping{Base: req.Base, Old: lastSeen, New: cursor})
		}
	}

	if cursor == "" {
		return nil, &ValidationError{Reason: "rebase produced no commits"}
	}

	return &Output{
		TopCommit:     cursor,
		References:    references,
		CommitMapping: mapping,
	}, nil
}

// cherryPickTree computes the tree that results from applying ci's
// own changes on top of cursor, via a three-way merge against ci's
// first parent (or the empty tree, if ci is a root commit).
func cherryPickTree(ctx context.Context, repo *git.Repository, cursor git.Hash, ci *git.CommitInfo) (git.Hash, error) {
	baseTreeish := emptyTreeHash
	if len(ci.Parents) > 0 {
		tree, err := repo.PeelToTree(ctx, ci.Parents[0].String())
		if err != nil {
			return "", fmt.Errorf("resolve parent tree of %v: %w", ci.Hash, err)
		}
		baseTreeish = tree.String()
	}

	cursorTree, err := repo.PeelToTree(ctx, cursor.String())
	if err != nil {
		return "", fmt.Errorf("resolve tree of %v: %w", cursor, err)
	}

	merged, err := repo.MergeTree(ctx, git.MergeTreeRequest{
		Branch1:   cursorTree.String(),
		Branch2:   ci.Tree.String(),
		MergeBase: baseTreeish,
	})
	if err != nil {
		return "", fmt.Errorf("cherry-pick %v onto %v: %w", ci.Hash, cursor, err)
	}

	return merged, nil
}

// cherryPickOne cherry-picks ci onto cursor, creating a new commit.
// If skipIfNoop is set, newMessage is empty, and cursor is already ci's
// own parent (nothing about ci's place in history has changed), the
// original commit is
// reused unchanged instead of being re-stamped with a new committer
// time, and noop is reported true.
func cherryPickOne(ctx context.Context, repo *git.Repository, cursor git.Hash, ci *git.CommitInfo, skipIfNoop bool, committer *git.Signature, newMessage string) (git.Hash, bool, error) {
	if skipIfNoop && newMessage == "" && len(ci.Parents) > 0 && ci.Parents[0] == cursor {
		return ci.Hash, true, nil
	}

	mergedTree, err := cherryPickTree(ctx, repo, cursor, ci)
	if err != nil {
		return "", false, err
	}

	message := newMessage
	if message == "" {
		message = ci.Message.String()
	}

	newCommit, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      mergedTree,
		Message:   message,
		Parents:   []git.Hash{cursor},
		Author:    &ci.Author,
		Committer: committer,
	})
	if err != nil {
		return "", false, fmt.Errorf("commit-tree: %w", err)
	}
	return newCommit, false, nil
}

// pickMerge preserves ci as a merge commit, replacing whichever parent
// corresponds to the current lineage with cursor and re-merging the
// other original parents via octopus merge against the new base.
func pickMerge(ctx context.Context, repo *git.Repository, req Request, mapping []CommitMapping, cursor git.Hash, ci *git.CommitInfo, newMessage string) (git.Hash, error) {
	if cursor == "" {
		return "", &ValidationError{Reason: fmt.Sprintf("picking merge commit %v requires a base", ci.Hash)}
	}

	replaceIdx := 0
	found := false
	for i, parent := range ci.Parents {
		if req.BaseSubstitute != "" && parent == req.BaseSubstitute {
			replaceIdx, found = i, true
			break
		}
		for _, m := range mapping {
			if m.Base == req.Base && m.Old == parent {
				replaceIdx, found = i, true
				break
			}
		}
		if found {
			break
		}
	}

	newParents := make([]git.Hash, len(ci.Parents))
	copy(newParents, ci.Parents)
	newParents[replaceIdx] = cursor

	runningTree, err := repo.PeelToTree(ctx, newParents[0].String())
	if err != nil {
		return "", fmt.Errorf("resolve tree of %v: %w", newParents[0], err)
	}

	for i := 1; i < len(newParents); i++ {
		origBase, err := repo.MergeBase(ctx, ci.Parents[0].String(), ci.Parents[i].String())
		if err != nil {
			return "", fmt.Errorf("merge-base of %v and %v: %w", ci.Parents[0], ci.Parents[i], err)
		}
		baseTree, err := repo.PeelToTree(ctx, origBase.String())
		if err != nil {
			return "", fmt.Errorf("resolve merge-base tree: %w", err)
		}

		theirsTree, err := repo.PeelToTree(ctx, newParents[i].String())
		if err != nil {
			return "", fmt.Errorf("resolve tree of %v: %w", newParents[i], err)
		}

		runningTree, err = repo.MergeTree(ctx, git.MergeTreeRequest{
			Branch1:   runningTree.String(),
			Branch2:   theirsTree.String(),
			MergeBase: baseTree.String(),
		})
		if err != nil {
			return "", fmt.Errorf("octopus merge while picking %v: %w", ci.Hash, err)
		}
	}

	message := newMessage
	if message == "" {
		message = ci.Message.String()
	}

	return repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      runningTree,
		Message:   message,
		Parents:   newParents,
		Author:    &ci.Author,
		Committer: req.Committer,
	})
}
