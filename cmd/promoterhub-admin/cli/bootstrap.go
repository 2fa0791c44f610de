package cli

import (
	"context"
	"fmt"
	"strings"
)

func (c *AdminCLI) bootstrap(ctx context.Context, args []string) int {
	fs := c.flagSet("bootstrap-admin")
	userID := fs.String("user-id", "", "profile id to promote to admin")
	actor := fs.String("actor", "", "operator name recorded in the audit log")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if strings.TrimSpace(*userID) == "" || strings.TrimSpace(*actor) == "" {
		_, _ = fmt.Fprintln(c.stderr, "bootstrap-admin: --user-id and --actor are required")
		return ExitUsage
	}
	if err := c.users.BootstrapAdmin(ctx, *actor, *userID); err != nil {
		_, _ = fmt.Fprintf(c.stderr, "bootstrap-admin: %v\n", err)
		return ExitError
	}
	_, _ = fmt.Fprintf(c.stdout, "user %s is now admin\n", strings.TrimSpace(*userID))
	return ExitOK
}
