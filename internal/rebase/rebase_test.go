package rebase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/git/gittest"
	"go.wsforge.dev/core/internal/rebase"
	"go.wsforge.dev/core/internal/silog/silogtest"
	"go.wsforge.dev/core/internal/text"
)

func committer() *git.Signature {
	return &git.Signature{Name: "Rebaser", Email: "rebaser@example.com"}
}

func TestExecute_linearPick(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'base'
		git add b.txt
		git commit -m 'b'
		git add c.txt
		git commit -m 'c'
		git branch base-tip HEAD~2
		git branch b-commit HEAD~1
		git branch c-commit HEAD

		-- a.txt --
		a
		-- b.txt --
		b
		-- c.txt --
		c
	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	base, err := repo.PeelToCommit(t.Context(), "base-tip")
	require.NoError(t, err)
	bCommit, err := repo.PeelToCommit(t.Context(), "b-commit")
	require.NoError(t, err)
	cCommit, err := repo.PeelToCommit(t.Context(), "c-commit")
	require.NoError(t, err)

	out, err := rebase.Execute(t.Context(), repo, rebase.Request{
		Base: base,
		Steps: []rebase.Step{
			rebase.Pick{CommitID: cCommit},
			rebase.Pick{CommitID: bCommit},
		},
		RebaseNoops: true,
		Committer:   committer(),
	})
	require.NoError(t, err)
	require.Len(t, out.CommitMapping, 2)
	assert.Equal(t, cCommit, out.CommitMapping[0].Old)
	assert.Equal(t, bCommit, out.CommitMapping[1].Old)

	top, err := repo.ReadCommit(t.Context(), out.TopCommit.String())
	require.NoError(t, err)
	assert.Equal(t, "b", top.Message.Subject)

	parentCI, err := repo.ReadCommit(t.Context(), top.Parents[0].String())
	require.NoError(t, err)
	assert.Equal(t, "c", parentCI.Message.Subject)
	assert.Equal(t, base, parentCI.Parents[0])
}

func TestExecute_reference(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'base'
		git add b.txt
		git commit -m 'b'
		git branch base-tip HEAD~1
		git branch b-commit HEAD

		-- a.txt --
		a
		-- b.txt --
		b
	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	base, err := repo.PeelToCommit(t.Context(), "base-tip")
	require.NoError(t, err)
	bCommit, err := repo.PeelToCommit(t.Context(), "b-commit")
	require.NoError(t, err)

	out, err := rebase.Execute(t.Context(), repo, rebase.Request{
		Base: base,
		Steps: []rebase.Step{
			rebase.Pick{CommitID: bCommit},
			rebase.Reference{Name: "feature"},
		},
		RebaseNoops: true,
		Committer:   committer(),
	})
	require.NoError(t, err)
	require.Len(t, out.References, 1)
	assert.Equal(t, "feature", out.References[0].Name)
	assert.Equal(t, out.TopCommit, out.References[0].CommitID)
}

func TestExecute_squashIntoPreceding(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'base'
		git add b.txt
		git commit -m 'b'
		git add c.txt
		git commit -m 'c'
		git branch base-tip HEAD~2
		git branch b-commit HEAD~1
		git branch c-commit HEAD

		-- a.txt --
		a
		-- b.txt --
		b
		-- c.txt --
		c
	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	base, err := repo.PeelToCommit(t.Context(), "base-tip")
	require.NoError(t, err)
	bCommit, err := repo.PeelToCommit(t.Context(), "b-commit")
	require.NoError(t, err)
	cCommit, err := repo.PeelToCommit(t.Context(), "c-commit")
	require.NoError(t, err)

	out, err := rebase.Execute(t.Context(), repo, rebase.Request{
		Base: base,
		Steps: []rebase.Step{
			rebase.Pick{CommitID: bCommit},
			rebase.SquashIntoPreceding{CommitID: cCommit},
		},
		RebaseNoops: true,
		Committer:   committer(),
	})
	require.NoError(t, err)
	require.Len(t, out.CommitMapping, 2)

	top, err := repo.ReadCommit(t.Context(), out.TopCommit.String())
	require.NoError(t, err)
	assert.Equal(t, "c", top.Message.Subject)
	assert.Equal(t, []git.Hash{base}, top.Parents)

	hash, err := repo.HashAt(t.Context(), top.Tree.String(), "b.txt")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestExecute_validatesDuplicatePick(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'base'
		git add b.txt
		git commit -m 'b'
		git branch base-tip HEAD~1
		git branch b-commit HEAD

		-- a.txt --
		a
		-- b.txt --
		b
	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	base, err := repo.PeelToCommit(t.Context(), "base-tip")
	require.NoError(t, err)
	bCommit, err := repo.PeelToCommit(t.Context(), "b-commit")
	require.NoError(t, err)

	_, err = rebase.Execute(t.Context(), repo, rebase.Request{
		Base: base,
		Steps: []rebase.Step{
			rebase.Pick{CommitID: bCommit},
			rebase.Pick{CommitID: bCommit},
		},
		Committer: committer(),
	})
	var verr *rebase.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestExecute_validatesSquashFirst(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'base'
		git add b.txt
		git commit -m 'b'
		git branch base-tip HEAD~1
		git branch b-commit HEAD

		-- a.txt --
		a
		-- b.txt --
		b
	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	base, err := repo.PeelToCommit(t.Context(), "base-tip")
	require.NoError(t, err)
	bCommit, err := repo.PeelToCommit(t.Context(), "b-commit")
	require.NoError(t, err)

	_, err = rebase.Execute(t.Context(), repo, rebase.Request{
		Base: base,
		Steps: []rebase.Step{
			rebase.SquashIntoPreceding{CommitID: bCommit},
		},
		Committer: committer(),
	})
	var verr *rebase.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestExecute_noopSkipped(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'base'
		git add b.txt
		git commit -m 'b'
		git branch base-tip HEAD~1
		git branch b-commit HEAD

		-- a.txt --
		a
		-- b.txt --
		b
	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	base, err := repo.PeelToCommit(t.Context(), "base-tip")
	require.NoError(t, err)
	bCommit, err := repo.PeelToCommit(t.Context(), "b-commit")
	require.NoError(t, err)

	// Picking b-commit right onto its own original parent (base) with
	// rebase_noops=false changes nothing about its place in history,
	// so the original commit is reused rather than re-stamped: old ==
	// new in the mapping.
	out, err := rebase.Execute(t.Context(), repo, rebase.Request{
		Base: base,
		Steps: []rebase.Step{
			rebase.Pick{CommitID: bCommit},
		},
		RebaseNoops: false,
		Committer:   committer(),
	})
	require.NoError(t, err)
	assert.Equal(t, bCommit, out.TopCommit)
	require.Len(t, out.CommitMapping, 1)
	assert.Equal(t, bCommit, out.CommitMapping[0].Old)
	assert.Equal(t, bCommit, out.CommitMapping[0].New)
}
