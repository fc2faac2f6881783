// Package refstore provides a file-backed store mapping fully
// qualified ref names to typed metadata records: tracked branches and
// managed workspaces.
package refstore

import "time"

// RefInfo carries bookkeeping timestamps common to every record kind.
type RefInfo struct {
	CreatedAt *time.Time `yaml:"created_at,omitempty"`
	UpdatedAt *time.Time `yaml:"updated_at,omitempty"`
}

// Review holds the forge-specific identifiers for a branch's published
// change, if any.
type Review struct {
	PullRequest *string `yaml:"pull_request,omitempty"`
	ReviewID    *string `yaml:"review_id,omitempty"`
}

// Branch is the metadata record for one tracked branch.
type Branch struct {
	RefInfo     RefInfo `yaml:"ref_info,omitempty"`
	Description *string `yaml:"description,omitempty"`
	Review      Review  `yaml:"review,omitempty"`

	// StackID identifies the stack this branch belongs to. It is
	// synthesised the first time a branch is recorded and preserved
	// across updates.
	StackID string `yaml:"stack_id,omitempty"`
}

// IsZero reports whether b is the default (unset) branch record.
func (b Branch) IsZero() bool {
	return b == Branch{}
}

// WorkspaceBranch is one entry in a workspace's stack listing.
type WorkspaceBranch struct {
	RefName  string `yaml:"ref_name"`
	Archived bool   `yaml:"archived,omitempty"`
}

// WorkspaceStack is one applied stack within a workspace.
type WorkspaceStack struct {
	Branches []WorkspaceBranch `yaml:"branches,omitempty"`
}

// Workspace is the metadata record for a managed workspace ref.
type Workspace struct {
	RefInfo   RefInfo          `yaml:"ref_info,omitempty"`
	Stacks    []WorkspaceStack `yaml:"stacks,omitempty"`
	TargetRef *string          `yaml:"target_ref,omitempty"`
}

// IsZero reports whether w is the default (unset) workspace record.
func (w Workspace) IsZero() bool {
	return len(w.Stacks) == 0 && w.TargetRef == nil &&
		w.RefInfo.CreatedAt == nil && w.RefInfo.UpdatedAt == nil
}
