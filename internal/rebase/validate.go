package rebase

import (
	"context"
	"fmt"

	"go.wsforge.dev/core/internal/git"
)

// ValidationError explains why a rebase Request was rejected before
// any commit was touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "rebase validation: " + e.Reason
}

// validate checks req against the rules that must hold before any
// step executes: referenced commits exist, no commit is picked twice,
// squash placement is unambiguous, and reference names are non-empty.
func validate(ctx context.Context, repo *git.Repository, req Request) error {
	if len(req.Steps) == 0 {
		return &ValidationError{Reason: "no rebase steps provided"}
	}

	if req.Base != "" {
		if _, err := repo.PeelToCommit(ctx, req.Base.String()); err != nil {
			return &ValidationError{Reason: fmt.Sprintf("base commit %s does not exist", req.Base)}
		}
	}

	seen := make(map[git.Hash]bool)
	for i, step := range req.Steps {
		if id := commitRef(step); id != "" {
			kind := "pick"
			if _, ok := step.(SquashIntoPreceding); ok {
				kind = "squash"
			}
			if err := validateCommitRef(ctx, repo, req.Base, seen, id, kind); err != nil {
				return err
			}
		}

		switch s := step.(type) {
		case SquashIntoPreceding:
			if i == 0 {
				return &ValidationError{Reason: "squash cannot be the first step"}
			}
			if _, ok := req.Steps[i-1].(Reference); ok {
				return &ValidationError{Reason: "squash must not immediately follow a reference step"}
			}
		case Reference:
			if s.Name == "" {
				return &ValidationError{Reason: "reference step must have a non-empty name"}
			}
		}
	}

	return nil
}

func validateCommitRef(ctx context.Context, repo *git.Repository, base git.Hash, seen map[git.Hash]bool, id git.Hash, kind string) error {
	if _, err := repo.PeelToCommit(ctx, id.String()); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("%s commit %s does not exist", kind, id)}
	}
	if id == base {
		return &ValidationError{Reason: fmt.Sprintf("%s commit %s cannot be the base commit", kind, id)}
	}
	if seen[id] {
		return &ValidationError{Reason: fmt.Sprintf("commit %s is referenced by more than one pick or squash step", id)}
	}
	seen[id] = true
	return nil
}
