package rbac

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the store holds no row for the user.
	ErrNotFound = errors.New("rbac: not found")
	// ErrUnknownRole indicates a role name outside the closed role set.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrUnknownPermission indicates a permission outside the catalogue.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
	// ErrMalformedRow indicates the store returned data that cannot be resolved.
	ErrMalformedRow = errors.New("rbac: malformed permission row")
)

// MatchMode selects how several required permissions combine.
type MatchMode int

const (
	// MatchAny passes when at least one permission is granted.
	MatchAny MatchMode = iota
	// MatchAll passes when every permission is granted.
	MatchAll
)

// String implements fmt.Stringer.
func (m MatchMode) String() string {
	if m == MatchAll {
		return "all"
	}
	return "any"
}

// ParseMatchMode accepts "any", "all" or an empty string (any).
func ParseMatchMode(raw string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "any":
		return MatchAny, nil
	case "all":
		return MatchAll, nil
	default:
		return MatchAny, fmt.Errorf("rbac: unknown match mode %q", raw)
	}
}

// Requirement describes what a guarded handler needs.
type Requirement struct {
	Permissions []Permission
	Mode        MatchMode
}

// Decision is the outcome of a single access check.
type Decision struct {
	UserID    string
	Mode      MatchMode
	Requested []Permission
	Matched   []Permission
	Allowed   bool
}

// Evaluate applies requested against granted. It never modifies granted.
func Evaluate(granted []Permission, mode MatchMode, requested []Permission) Decision {
	set := make(map[Permission]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	decision := Decision{Mode: mode, Requested: append([]Permission(nil), requested...)}
	for _, p := range requested {
		if _, ok := set[p]; ok {
			decision.Matched = append(decision.Matched, p)
		}
	}
	switch mode {
	case MatchAll:
		decision.Allowed = len(decision.Matched) == len(requested)
	default:
		decision.Allowed = len(decision.Matched) > 0
	}
	return decision
}
