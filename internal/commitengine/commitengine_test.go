package commitengine_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.wsforge.dev/core/internal/commitengine"
	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/git/gittest"
	"go.wsforge.dev/core/internal/hunk"
	"go.wsforge.dev/core/internal/silog/silogtest"
	"go.wsforge.dev/core/internal/text"
)

func openBaseFixture(t *testing.T) (*git.Repository, string, git.Hash) {
	t.Helper()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'base'

		-- a.txt --
		one
		two
		three
	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	head, err := repo.PeelToCommit(t.Context(), "main")
	require.NoError(t, err)

	return repo, fixture.Dir(), head
}

func writeWorktreeFile(t *testing.T, repo *git.Repository, path, content string) {
	t.Helper()
	err := repo.WriteWorktreeEntry(path, git.WorktreeEntry{Content: []byte(content), Mode: git.RegularMode})
	require.NoError(t, err)
}

func readBlob(t *testing.T, repo *git.Repository, hash git.Hash) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, repo.ReadObject(t.Context(), git.BlobType, hash, &buf))
	return buf.String()
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}

func TestCreateTree_wholeFileModify(t *testing.T) {
	t.Parallel()

	repo, _, head := openBaseFixture(t)
	writeWorktreeFile(t, repo, "a.txt", "one\ntwo\nthree\nfour\n")

	result, err := commitengine.CreateTree(t.Context(), repo, commitengine.Destination{ParentID: head}, "",
		[]hunk.DiffSpec{{Path: "a.txt"}}, 3)
	require.NoError(t, err)
	require.Empty(t, result.Rejects)

	hash, err := repo.HashAt(t.Context(), result.Tree.String(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\nfour\n", readBlob(t, repo, hash))
}

func TestCreateTree_wholeFileNewFile(t *testing.T) {
	t.Parallel()

	repo, _, head := openBaseFixture(t)
	writeWorktreeFile(t, repo, "b.txt", "new file\n")

	result, err := commitengine.CreateTree(t.Context(), repo, commitengine.Destination{ParentID: head}, "",
		[]hunk.DiffSpec{{Path: "b.txt"}}, 3)
	require.NoError(t, err)
	require.Empty(t, result.Rejects)

	hash, err := repo.HashAt(t.Context(), result.Tree.String(), "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "new file\n", readBlob(t, repo, hash))

	// a.txt is untouched.
	aHash, err := repo.HashAt(t.Context(), result.Tree.String(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", readBlob(t, repo, aHash))
}

func TestCreateTree_wholeFileDelete(t *testing.T) {
	t.Parallel()

	repo, dir, head := openBaseFixture(t)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.txt")))

	result, err := commitengine.CreateTree(t.Context(), repo, commitengine.Destination{ParentID: head}, "",
		[]hunk.DiffSpec{{Path: "a.txt"}}, 3)
	require.NoError(t, err)
	require.Empty(t, result.Rejects)

	_, err = repo.HashAt(t.Context(), result.Tree.String(), "a.txt")
	assert.ErrorIs(t, err, git.ErrNotExist)
}

func TestCreateTree_noEffectiveChanges(t *testing.T) {
	t.Parallel()

	repo, _, head := openBaseFixture(t)
	// No edit made to a.txt: the worktree still matches HEAD exactly.

	result, err := commitengine.CreateTree(t.Context(), repo, commitengine.Destination{ParentID: head}, "",
		[]hunk.DiffSpec{{Path: "a.txt"}}, 3)
	require.NoError(t, err)
	require.Len(t, result.Rejects, 1)
	assert.Equal(t, commitengine.NoEffectiveChanges, result.Rejects[0].Reason)
}

func TestCreateTree_hunkLevelPartialSelection(t *testing.T) {
	t.Parallel()

	repo, _, head := openBaseFixture(t)
	writeWorktreeFile(t, repo, "a.txt", "ONE\ntwo\nTHREE\n")

	// Discover the real hunk headers git reports at zero context (with
	// three lines of context both changes of this three-line file fall
	// into a single hunk), then select only the first one (the
	// "one" -> "ONE" change).
	diffText, err := repo.DiffWorktree(t.Context(), "main", "a.txt", 0)
	require.NoError(t, err)
	files, err := hunk.ParseUnifiedDiff(stringsReader(diffText))
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NotEmpty(t, files[0].Headers)

	selected := files[0].Headers[:1]

	result, err := commitengine.CreateTree(t.Context(), repo, commitengine.Destination{ParentID: head}, "",
		[]hunk.DiffSpec{{Path: "a.txt", HunkHeaders: selected}}, 0)
	require.NoError(t, err)
	require.Empty(t, result.Rejects)

	hash, err := repo.HashAt(t.Context(), result.Tree.String(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "ONE\ntwo\nthree\n", readBlob(t, repo, hash))
}

func TestCreateCommit_basic(t *testing.T) {
	t.Parallel()

	repo, _, head := openBaseFixture(t)
	writeWorktreeFile(t, repo, "a.txt", "one\ntwo\nthree\nfour\n")

	result, err := commitengine.CreateCommit(t.Context(), repo, commitengine.CreateCommitOptions{
		Destination:  commitengine.Destination{ParentID: head},
		Changes:      []hunk.DiffSpec{{Path: "a.txt"}},
		ContextLines: 3,
		Message:      "add a fourth line",
		Author:       &git.Signature{Name: "Test", Email: "test@example.com"},
	})
	require.NoError(t, err)
	require.Empty(t, result.Rejects)

	ci, err := repo.ReadCommit(t.Context(), result.Commit.String())
	require.NoError(t, err)
	assert.Equal(t, []git.Hash{head}, ci.Parents)
	assert.Equal(t, "add a fourth line", ci.Message.Subject)
}

func TestCreateCommit_amendReusesMessageAndParents(t *testing.T) {
	t.Parallel()

	repo, _, head := openBaseFixture(t)
	writeWorktreeFile(t, repo, "a.txt", "one\ntwo\nthree\nfour\n")

	result, err := commitengine.CreateCommit(t.Context(), repo, commitengine.CreateCommitOptions{
		Destination:  commitengine.Destination{Amend: head},
		Changes:      []hunk.DiffSpec{{Path: "a.txt"}},
		ContextLines: 3,
		Author:       &git.Signature{Name: "Test", Email: "test@example.com"},
	})
	require.NoError(t, err)
	require.Empty(t, result.Rejects)

	ci, err := repo.ReadCommit(t.Context(), result.Commit.String())
	require.NoError(t, err)
	assert.Equal(t, "base", ci.Message.Subject)
	assert.Empty(t, ci.Parents) // base commit was a root commit
}

func TestDiscardWorktreeChanges_wholeFile(t *testing.T) {
	t.Parallel()

	repo, _, _ := openBaseFixture(t)
	writeWorktreeFile(t, repo, "a.txt", "edited\n")

	rejects, err := commitengine.DiscardWorktreeChanges(t.Context(), repo, "main",
		[]hunk.DiffSpec{{Path: "a.txt"}}, 3)
	require.NoError(t, err)
	require.Empty(t, rejects)

	content, err := repo.ReadWorktreeEntry("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", string(content.Content))
}

func TestDiscardWorktreeChanges_hunkLevel(t *testing.T) {
	t.Parallel()

	repo, _, _ := openBaseFixture(t)
	writeWorktreeFile(t, repo, "a.txt", "ONE\ntwo\nTHREE\n")

	// Zero context keeps the two changes in separate hunks.
	diffText, err := repo.DiffWorktree(t.Context(), "main", "a.txt", 0)
	require.NoError(t, err)
	files, err := hunk.ParseUnifiedDiff(stringsReader(diffText))
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Len(t, files[0].Headers, 2)

	// Discard only the first hunk ("one" -> "ONE"); the second
	// ("three" -> "THREE") should remain in the worktree.
	rejects, err := commitengine.DiscardWorktreeChanges(t.Context(), repo, "main",
		[]hunk.DiffSpec{{Path: "a.txt", HunkHeaders: files[0].Headers[:1]}}, 0)
	require.NoError(t, err)
	require.Empty(t, rejects)

	content, err := repo.ReadWorktreeEntry("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nTHREE\n", string(content.Content))
}
