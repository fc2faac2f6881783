package changeset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.wsforge.dev/core/internal/changeset"
	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/git/gittest"
	"go.wsforge.dev/core/internal/silog/silogtest"
	"go.wsforge.dev/core/internal/text"
)

func TestIntegrationDetectIntegrated(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'Initial commit'

		git checkout -b feature
		git add b.txt
		git commit -m 'Add b'

		git checkout -b feature-top
		git add c.txt
		git commit -m 'Add c'

		git checkout main
		git add b.txt
		git commit -m 'Squash-merge of Add b'

		-- a.txt --
		hello
		-- b.txt --
		world
		-- c.txt --
		unrelated

	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{
		Log: silogtest.New(t),
	})
	require.NoError(t, err)

	stackBase, err := repo.PeelToCommit(t.Context(), "main~1")
	require.NoError(t, err)

	featureTip, err := repo.PeelToCommit(t.Context(), "feature")
	require.NoError(t, err)
	topTip, err := repo.PeelToCommit(t.Context(), "feature-top")
	require.NoError(t, err)

	mainTip, err := repo.PeelToCommit(t.Context(), "main")
	require.NoError(t, err)

	id, err := changeset.Compute(t.Context(), repo, stackBase.String(), mainTip.String())
	require.NoError(t, err)
	require.NotNil(t, id)
	csid := changeset.ChangesetID(*id)

	upstream := changeset.NewMap()
	upstream.Insert(changeset.Candidate{OID: mainTip, ChangesetID: &csid})

	segments := []changeset.SegmentTree{
		{Tip: topTip},     // index 0: stack tip, includes b and c
		{Tip: featureTip}, // index 1: base segment, just b
	}

	got, err := changeset.DetectIntegrated(t.Context(), repo, stackBase, segments, upstream)
	require.NoError(t, err)

	// The tip segment's change-set (b+c) doesn't match upstream (just
	// b); only the base segment does, so only it (and everything
	// below it, i.e. nothing here) is marked integrated.
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, mainTip, got[0].Upstream)
}

func TestDetectIntegrated_noMatch(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'Initial commit'

		git checkout -b feature
		git add b.txt
		git commit -m 'Add b'

		-- a.txt --
		hello
		-- b.txt --
		world

	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{
		Log: silogtest.New(t),
	})
	require.NoError(t, err)

	stackBase, err := repo.PeelToCommit(t.Context(), "main")
	require.NoError(t, err)
	featureTip, err := repo.PeelToCommit(t.Context(), "feature")
	require.NoError(t, err)

	got, err := changeset.DetectIntegrated(t.Context(), repo, stackBase,
		[]changeset.SegmentTree{{Tip: featureTip}}, changeset.NewMap())
	require.NoError(t, err)
	assert.Empty(t, got)
}
