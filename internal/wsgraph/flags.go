package wsgraph

import (
	"go.wsforge.dev/core/internal/git"
	"go.wsforge.dev/core/internal/silog"
)

// Flags is a bitmask of properties propagated onto a commit as the
// graph is walked.
type Flags uint32

const (
	// FlagIntegrated marks a commit reachable from the integration
	// target along first-parent edges.
	FlagIntegrated Flags = 1 << iota

	// FlagInWorkspace marks a commit reachable from one of the
	// traversal's starting refs.
	FlagInWorkspace

	numFixedFlags = iota
)

// maxGoals is how many goal OIDs can be tracked at once: one bit each,
// in a 32-bit word, after the fixed flags above.
const maxGoals = 32 - numFixedFlags

type goalBit struct {
	hash git.Hash
	flag Flags
}

// allocateGoals assigns one bit per goal OID. Goals beyond what the
// bitflag word can hold are logged and dropped rather than rejected.
func allocateGoals(log *silog.Logger, goals []git.Hash) []goalBit {
	if len(goals) > maxGoals {
		log.Warnf("wsgraph: %d goals requested but only %d can be tracked simultaneously; dropping the rest", len(goals), maxGoals)
		goals = goals[:maxGoals]
	}

	bits := make([]goalBit, len(goals))
	for i, h := range goals {
		bits[i] = goalBit{hash: h, flag: Flags(1) << uint(numFixedFlags+i)}
	}
	return bits
}
