package wsproject

import (
	"context"
	"sort"

	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/wsgraph"
)

// RelationClassifier decides how a commit on a given ref relates to
// the segment's remote-tracking ref and the workspace's integration
// target. Implementations typically delegate to the changeset
// package's similarity map.
type RelationClassifier interface {
	Resolve(ctx context.Context, refName string, commit git.Hash) (CommitRelation, error)
}

// SegmentInfo supplies everything about one ref that the graph itself
// doesn't carry: its name, its tracked remote, and the OIDs already
// present on that remote.
type SegmentInfo struct {
	RefName           string
	RemoteTrackingRef string
	RemoteCommits     []git.Hash // tip-first; empty if RemoteTrackingRef is empty
	Metadata          SegmentMetadata
}

// StackOptions configures [ProjectStack].
type StackOptions struct {
	ID string

	// Segments maps a wsgraph segment's tip commit to the ref
	// information for it. A segment whose tip has no entry is
	// skipped: it is not (yet) associated with a tracked ref.
	Segments map[git.Hash]SegmentInfo

	Classify RelationClassifier
}

// ProjectStack derives a [Stack] from one stack's graph, per §4.3
// steps 2-4: partition each segment's commits, classify their
// relation, and derive push status.
func ProjectStack(ctx context.Context, graph *wsgraph.Graph, opts StackOptions) (*Stack, error) {
	stack := &Stack{ID: opts.ID}

	for _, gseg := range graph.Segments {
		if len(gseg.Commits) == 0 {
			continue
		}

		info, ok := opts.Segments[gseg.Commits[0]]
		if !ok {
			continue
		}

		commits := make([]Commit, len(gseg.Commits))
		matched := make(map[git.Hash]bool, len(gseg.Commits))
		for i, hash := range gseg.Commits {
			rel := CommitRelation{Kind: LocalOnly}
			if opts.Classify != nil {
				r, err := opts.Classify.Resolve(ctx, info.RefName, hash)
				if err != nil {
					return nil, err
				}
				rel = r
			}
			commits[i] = Commit{Hash: hash, Relation: rel}
			if rel.Kind == LocalAndRemote {
				matched[rel.Matched] = true
			}
		}

		var onRemote []git.Hash
		for _, oid := range info.RemoteCommits {
			if !matched[oid] {
				onRemote = append(onRemote, oid)
			}
		}

		seg := Segment{
			RefName:           info.RefName,
			RemoteTrackingRef: info.RemoteTrackingRef,
			Commits:           commits,
			CommitsOnRemote:   onRemote,
			Base:              gseg.AttachedAt,
			Metadata:          info.Metadata,
		}
		seg.PushStatus = DerivePushStatus(info.RemoteTrackingRef != "", seg.Commits, len(onRemote) > 0)

		stack.Segments = append(stack.Segments, seg)
	}

	return stack, nil
}

// WorkspaceOptions configures [ProjectWorkspace].
type WorkspaceOptions struct {
	WorkspaceRef string
	TargetRef    string

	IsManagedRef    bool
	IsManagedCommit bool

	EntrypointStack  string
	EntrypointSegRef string

	// KnownStackIDs lists stack ids already recorded in ref metadata,
	// in the order they should appear. Any stack present in Stacks
	// but absent here is an unknown stack reachable from HEAD; it is
	// appended afterward, sorted by id, so synthesis is stable.
	KnownStackIDs []string
}

// ProjectWorkspace assembles the full [Workspace] from its
// already-projected stacks, per §4.3 step 1 and step 5.
func ProjectWorkspace(stacks map[string]*Stack, opts WorkspaceOptions) *Workspace {
	known := make(map[string]bool, len(opts.KnownStackIDs))
	ordered := make([]string, 0, len(stacks))

	for _, id := range opts.KnownStackIDs {
		if _, ok := stacks[id]; ok {
			known[id] = true
			ordered = append(ordered, id)
		}
	}

	var unknown []string
	for id := range stacks {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	ordered = append(ordered, unknown...)

	ws := &Workspace{
		WorkspaceRef:     opts.WorkspaceRef,
		TargetRef:        opts.TargetRef,
		IsManagedRef:     opts.IsManagedRef,
		IsManagedCommit:  opts.IsManagedCommit,
		EntrypointStack:  opts.EntrypointStack,
		EntrypointSegRef: opts.EntrypointSegRef,
	}
	ws.IsEntrypoint = opts.EntrypointStack != ""

	for _, id := range ordered {
		ws.Stacks = append(ws.Stacks, *stacks[id])
	}

	return ws
}
