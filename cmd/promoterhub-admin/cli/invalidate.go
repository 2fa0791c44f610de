package cli

import (
	"context"
	"fmt"
	"strings"
)

func (c *AdminCLI) invalidate(ctx context.Context, args []string) int {
	fs := c.flagSet("invalidate")
	userID := fs.String("user-id", "", "profile id whose cached permissions are dropped")
	all := fs.Bool("all", false, "drop every cached permission set")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	id := strings.TrimSpace(*userID)
	if (id == "") == !*all {
		_, _ = fmt.Fprintln(c.stderr, "invalidate: pass exactly one of --user-id or --all")
		return ExitUsage
	}
	if *all {
		if err := c.perms.Purge(ctx); err != nil {
			_, _ = fmt.Fprintf(c.stderr, "invalidate: %v\n", err)
			return ExitError
		}
		_, _ = fmt.Fprintln(c.stdout, "permission cache purged")
		return ExitOK
	}
	if err := c.perms.Invalidate(ctx, id); err != nil {
		_, _ = fmt.Fprintf(c.stderr, "invalidate: %v\n", err)
		return ExitError
	}
	_, _ = fmt.Fprintf(c.stdout, "permission cache invalidated for %s\n", id)
	return ExitOK
}
