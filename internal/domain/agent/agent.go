// Package agent defines agent types and the naming convention used to
// infer a caller's type from its agent ID.
package agent

import "strings"

// Type classifies an agent for assignment affinity. A task's agentTypeHint
// names one of these; an empty hint means the task is generic.
type Type string

const (
	TypeUnknown  Type = ""
	TypePM       Type = "pm"
	TypeBackend  Type = "backend"
	TypeFrontend Type = "frontend"
	TypeDesigner Type = "designer"
)

// known maps ID prefixes to agent types.
var known = map[string]Type{
	"pm":       TypePM,
	"backend":  TypeBackend,
	"frontend": TypeFrontend,
	"designer": TypeDesigner,
}

// InferType derives an agent's type from the naming convention
// "<type>-<instance>", e.g. "backend-7f2a" or "pm-main". IDs that do not
// follow the convention yield TypeUnknown.
func InferType(agentID string) Type {
	prefix, _, ok := strings.Cut(agentID, "-")
	if !ok {
		return TypeUnknown
	}
	return known[strings.ToLower(prefix)]
}
