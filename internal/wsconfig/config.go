// Package wsconfig reads the one slice of durable, per-repo
// configuration this engine needs directly (not through a CLI flag
// resolver, which spec.md's Non-goals place out of scope): a per-branch
// default integration target, and a repo-wide default traversal limit
// for [wsgraph.Build].
package wsconfig

import (
	"context"
	"fmt"
	"strconv"

	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/syncx"
	"go.wsforge.dev/core/internal/wsgraph"
)

const (
	_branchSection    = "branch"
	_targetName       = "spice-target"
	_repoSection      = "wsforge"
	_targetLimitName  = "target-limit"
	_defaultTargetKey = "default-target"
)

// GitConfigLister is the slice of [git.Config] this package needs; it
// exists so tests can fake git-config output without shelling out.
type GitConfigLister interface {
	ListRegexp(ctx context.Context, pattern string) (func(yield func(git.ConfigEntry, error) bool), error)
}

var _ GitConfigLister = (*git.Config)(nil)

// targetResolver peels a configured default-target name to a commit
// hash, or reports no default at all.
type targetResolver func(ctx context.Context, repo *git.Repository) (git.Hash, error)

// TargetConfig is the parsed form of the `branch.<name>.spice-target`
// and `wsforge.*` keys read out of git-config. The zero value (via
// [Load] on a repo with no such keys set) reports no override for any
// branch and a zero Limit (unbounded).
type TargetConfig struct {
	targets map[string]string // branch name -> target branch name
	def     string            // wsforge.default-target
	limit   int               // wsforge.target-limit

	// resolveDefault picks, once, how the repo's default target (if
	// any) gets resolved to a hash: every branch in a stack that
	// lacks its own spice-target override shares this one strategy,
	// the same way Shell.commander in the teacher's git package
	// settles on one exec.CommandContext-shaped func the first time
	// it's needed and reuses it after.
	resolveDefault syncx.SetOnce[targetResolver]
}

// Load reads every `branch.*.spice-target` override and the
// `wsforge.default-target`/`wsforge.target-limit` keys from cfg.
func Load(ctx context.Context, cfg GitConfigLister) (*TargetConfig, error) {
	entries, err := cfg.ListRegexp(ctx, `^(branch\.|wsforge\.)`)
	if err != nil {
		return nil, fmt.Errorf("list git-config: %w", err)
	}

	tc := &TargetConfig{targets: make(map[string]string)}
	for entry, err := range entries {
		if err != nil {
			return nil, fmt.Errorf("read git-config: %w", err)
		}

		key := entry.Key.Canonical()
		section, subsection, name := key.Split()
		switch {
		case section == _branchSection && subsection != "" && name == _targetName:
			tc.targets[subsection] = entry.Value
		case section == _repoSection && name == _defaultTargetKey:
			tc.def = entry.Value
		case section == _repoSection && name == _targetLimitName:
			limit, err := strconv.Atoi(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid integer %q: %w", key, entry.Value, err)
			}
			tc.limit = limit
		}
	}

	return tc, nil
}

// Target returns the configured integration target for branch, and
// whether one was set. An unset branch falls back to the repo's
// default target, if any, which [ResolveOptions] applies automatically.
func (tc *TargetConfig) Target(branch string) (string, bool) {
	if tc == nil {
		return "", false
	}
	target, ok := tc.targets[branch]
	return target, ok
}

// Limit returns the configured default traversal limit, or zero
// (unbounded) if none was set.
func (tc *TargetConfig) Limit() int {
	if tc == nil {
		return 0
	}
	return tc.limit
}

// ResolveOptions builds [wsgraph.Options] for walking branch's stack:
// IntegrationTarget is branch's configured spice-target override if
// one exists, else the repo's default target; Limit is the configured
// default. Either field may be overridden by the caller after this
// returns.
func (tc *TargetConfig) ResolveOptions(ctx context.Context, repo *git.Repository, branch string) (wsgraph.Options, error) {
	opts := wsgraph.Options{Limit: tc.Limit()}

	target, ok := tc.Target(branch)
	if !ok {
		resolve := tc.resolveDefault.Get(defaultResolver(tc.def))
		hash, err := resolve(ctx, repo)
		if err != nil {
			return wsgraph.Options{}, fmt.Errorf("resolve default target %q: %w", tc.def, err)
		}
		opts.IntegrationTarget = hash
		return opts, nil
	}

	hash, err := repo.PeelToCommit(ctx, target)
	if err != nil {
		return wsgraph.Options{}, fmt.Errorf("resolve target %q for %s: %w", target, branch, err)
	}
	opts.IntegrationTarget = hash
	return opts, nil
}

// defaultResolver builds the func that resolves the repo-wide default
// target. A repo with no wsforge.default-target configured resolves
// to [git.ZeroHash] without a git invocation at all.
func defaultResolver(target string) targetResolver {
	if target == "" {
		return func(context.Context, *git.Repository) (git.Hash, error) {
			return git.ZeroHash, nil
		}
	}
	return func(ctx context.Context, repo *git.Repository) (git.Hash, error) {
		return repo.PeelToCommit(ctx, target)
	}
}
