package git

import (
	"context"
	"fmt"
	"io"

	"go.wsforge.dev/core/internal/must"
)

// Type specifies the type of a Git object.
type Type string

// Supported object types.
const (
	BlobType   Type = "blob"
	CommitType Type = "commit"
	TreeType   Type = "tree"
)

func (t Type) String() string {
	return string(t)
}

// ReadObject reads the object with the given hash from the repository
// into the given writer.
//
// This is not useful for tree objects. Use ListTree instead.
func (r *Repository) ReadObject(ctx context.Context, typ Type, hash Hash, dst io.Writer) error {
	must.NotBeBlankf(string(typ), "object type must not be blank")
	must.NotBeBlankf(string(hash), "object hash must not be blank")

	cmd := r.gitCmd(ctx, "cat-file", string(typ), hash.String()).Stdout(dst)
	if err := cmd.Run(r.exec); err != nil {
		return fmt.Errorf("cat-file: %w", err)
	}
	return nil
}

// WriteObjectOptions controls how WriteObject stores a blob.
type WriteObjectOptions struct {
	// Path is the worktree-relative path the content came from.
	//
	// When set, Git's clean filter pipeline (gitattributes filters,
	// text normalization) is applied to the content before it is
	// stored, exactly as it would be for a file staged from the
	// worktree at that path. Leave empty to store the content
	// byte-for-byte (it is already in its normalised, in-store form).
	Path string
}

// WriteObject writes an object of the given type to the repository,
// and returns the hash of the written object.
//
// For BlobType objects, WriteObjectOptions.Path can be set to run the
// content through Git's clean-filter pipeline before storing it,
// matching the normalisation a `git add` of that path would apply.
func (r *Repository) WriteObject(ctx context.Context, typ Type, src io.Reader, opts ...WriteObjectOptions) (Hash, error) {
	must.NotBeBlankf(string(typ), "object type must not be blank")

	args := []string{"hash-object", "-w", "--stdin", "-t", string(typ)}
	if len(opts) > 0 && opts[0].Path != "" {
		args = append(args, "--path", opts[0].Path)
	} else {
		// No path means no attribute lookup is possible;
		// be explicit that no filters should run.
		args = append(args, "--no-filters")
	}

	cmd := r.gitCmd(ctx, args...).Stdin(src)
	out, err := cmd.OutputString(r.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("hash-object: %w", err)
	}
	return Hash(out), nil
}
