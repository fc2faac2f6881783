package wsgraph

import (
	"fmt"

	"go.wsforge.dev/core/internal/git"
)

// ObjectMissingError wraps a failure to read a commit object
// encountered mid-walk. It is the only error the builder produces for
// otherwise well-formed input.
type ObjectMissingError struct {
	Hash git.Hash
	Err  error
}

func (e *ObjectMissingError) Error() string {
	return fmt.Sprintf("wsgraph: object %v missing: %v", e.Hash, e.Err)
}

func (e *ObjectMissingError) Unwrap() error {
	return e.Err
}
