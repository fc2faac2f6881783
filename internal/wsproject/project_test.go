package wsproject_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/git/gittest"
	"go.wsforge.dev/core/internal/silog/silogtest"
	"go.wsforge.dev/core/internal/text"
	"go.wsforge.dev/core/internal/wsgraph"
	"go.wsforge.dev/core/internal/wsproject"
)

// stubClassifier marks everything LocalOnly; used where the test only
// cares about segment/commit bookkeeping, not relation derivation.
type stubClassifier struct{}

func (stubClassifier) Resolve(context.Context, string, git.Hash) (wsproject.CommitRelation, error) {
	return wsproject.CommitRelation{Kind: wsproject.LocalOnly}, nil
}

func TestProjectStack_singleSegment(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'base'

		git checkout -b feature
		git add b.txt
		git commit -m 'one'
		git add c.txt
		git commit -m 'two'

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

	graph, err := wsgraph.Build(t.Context(), repo, "feature", wsgraph.Options{})
	require.NoError(t, err)

	tip, err := repo.PeelToCommit(t.Context(), "feature")
	require.NoError(t, err)

	stack, err := wsproject.ProjectStack(t.Context(), graph, wsproject.StackOptions{
		ID: "stack-1",
		Segments: map[git.Hash]wsproject.SegmentInfo{
			tip: {RefName: "refs/heads/feature"},
		},
		Classify: stubClassifier{},
	})
	require.NoError(t, err)

	require.Len(t, stack.Segments, 1)
	seg := stack.Segments[0]
	assert.Equal(t, "refs/heads/feature", seg.RefName)
	assert.Len(t, seg.Commits, 2)
	assert.Equal(t, wsproject.CompletelyUnpushed, seg.PushStatus)
}

func TestProjectWorkspace_knownAndSynthesisedStacks(t *testing.T) {
	t.Parallel()

	known := &wsproject.Stack{ID: "known"}
	synth2 := &wsproject.Stack{ID: "zzz-unknown"}
	synth1 := &wsproject.Stack{ID: "aaa-unknown"}

	ws := wsproject.ProjectWorkspace(map[string]*wsproject.Stack{
		"known":       known,
		"zzz-unknown": synth2,
		"aaa-unknown": synth1,
	}, wsproject.WorkspaceOptions{
		KnownStackIDs: []string{"known"},
	})

	require.Len(t, ws.Stacks, 3)
	assert.Equal(t, "known", ws.Stacks[0].ID)
	// Unknown stacks are appended in stable (sorted) id order.
	assert.Equal(t, "aaa-unknown", ws.Stacks[1].ID)
	assert.Equal(t, "zzz-unknown", ws.Stacks[2].ID)
}

func TestPrunedToEntrypoint(t *testing.T) {
	t.Parallel()

	ws := wsproject.Workspace{
		Stacks: []wsproject.Stack{
			{ID: "a"},
			{ID: "b"},
		},
		EntrypointStack: "b",
	}

	pruned := wsproject.PrunedToEntrypoint(ws)
	require.Len(t, pruned.Stacks, 1)
	assert.Equal(t, "b", pruned.Stacks[0].ID)

	// Idempotent.
	prunedAgain := wsproject.PrunedToEntrypoint(pruned)
	assert.Equal(t, pruned, prunedAgain)
}

func TestPrunedToEntrypoint_noEntrypoint(t *testing.T) {
	t.Parallel()

	ws := wsproject.Workspace{
		Stacks: []wsproject.Stack{{ID: "a"}, {ID: "b"}},
	}
	pruned := wsproject.PrunedToEntrypoint(ws)
	assert.Equal(t, ws, pruned)
}

func TestChangesetClassifier_localAndRemote(t *testing.T) {
	t.Parallel()

	fixture, err := gittest.LoadFixtureScript([]byte(text.Dedent(`
		at '2024-08-27T21:48:32Z'
		git init
		git add a.txt
		git commit -m 'base'

		git checkout -b feature
		git add b.txt
		git commit -m 'local change'
		git branch feature-remote

		-- a.txt --
		a
		-- b.txt --
		b
	`)))
	require.NoError(t, err)

	repo, err := git.Open(t.Context(), fixture.Dir(), git.OpenOptions{Log: silogtest.New(t)})
	require.NoError(t, err)

	localTip, err := repo.PeelToCommit(t.Context(), "feature")
	require.NoError(t, err)

	classifier, err := wsproject.NewChangesetClassifier(t.Context(), repo, "main", map[string]string{
		"refs/heads/feature": "feature-remote",
	})
	require.NoError(t, err)

	rel, err := classifier.Resolve(t.Context(), "refs/heads/feature", localTip)
	require.NoError(t, err)
	assert.Equal(t, wsproject.LocalAndRemote, rel.Kind)
	assert.Equal(t, localTip, rel.Matched)
}
