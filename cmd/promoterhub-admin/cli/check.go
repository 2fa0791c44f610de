package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/promoterhub/promoterhub/internal/rbac"
)

// CheckSummary is the JSON printed by the check command.
type CheckSummary struct {
	UserID    string   `json:"user_id"`
	Mode      string   `json:"mode"`
	Requested []string `json:"requested"`
	Matched   []string `json:"matched"`
	Allowed   bool     `json:"allowed"`
}

func (c *AdminCLI) check(ctx context.Context, args []string) int {
	fs := c.flagSet("check")
	userID := fs.String("user-id", "", "profile id to evaluate")
	rawPerms := fs.StringArray("perm", nil, "permission to require (repeatable)")
	rawMode := fs.String("mode", "any", "combine permissions with any or all")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	id := strings.TrimSpace(*userID)
	if id == "" || len(*rawPerms) == 0 {
		_, _ = fmt.Fprintln(c.stderr, "check: --user-id and at least one --perm are required")
		return ExitUsage
	}
	mode, err := rbac.ParseMatchMode(*rawMode)
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "check: %v\n", err)
		return ExitUsage
	}
	perms, err := rbac.ParsePermissions(*rawPerms)
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "check: %v\n", err)
		return ExitUsage
	}

	decision := c.perms.Check(ctx, id, mode, perms)
	summary := CheckSummary{
		UserID:    id,
		Mode:      decision.Mode.String(),
		Requested: toStrings(decision.Requested),
		Matched:   toStrings(decision.Matched),
		Allowed:   decision.Allowed,
	}
	if err := json.NewEncoder(c.stdout).Encode(summary); err != nil {
		_, _ = fmt.Fprintf(c.stderr, "check: encode json: %v\n", err)
		return ExitError
	}
	if !decision.Allowed {
		return ExitDenied
	}
	return ExitOK
}

func toStrings(perms []rbac.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
