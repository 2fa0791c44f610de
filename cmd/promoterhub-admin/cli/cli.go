package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/promoterhub/promoterhub/internal/rbac"
)

// Exit codes returned by Run.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitUsage  = 2
	ExitDenied = 10
)

// Bootstrapper grants the admin role without an authenticated admin.
type Bootstrapper interface {
	BootstrapAdmin(ctx context.Context, operator, userID string) error
}

// PermissionAdmin is the resolver surface used by the CLI.
type PermissionAdmin interface {
	Check(ctx context.Context, userID string, mode rbac.MatchMode, permissions []rbac.Permission) rbac.Decision
	Invalidate(ctx context.Context, userID string) error
	Purge(ctx context.Context) error
}

// AdminCLI implements the promoterhub-admin subcommands.
type AdminCLI struct {
	users  Bootstrapper
	perms  PermissionAdmin
	stdout io.Writer
	stderr io.Writer
}

// NewAdminCLI constructs the CLI. Nil writers default to the process streams.
func NewAdminCLI(users Bootstrapper, perms PermissionAdmin, stdout, stderr io.Writer) *AdminCLI {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &AdminCLI{users: users, perms: perms, stdout: stdout, stderr: stderr}
}

// Usage prints the command summary.
func (c *AdminCLI) Usage() {
	_, _ = fmt.Fprintln(c.stderr, `usage: promoterhub-admin <command> [flags]

commands:
  bootstrap-admin --user-id ID --actor NAME
  invalidate      --user-id ID | --all
  check           --user-id ID --perm P [--perm P ...] [--mode any|all]`)
}

// Run dispatches args[0] to its subcommand and returns the process exit code.
func (c *AdminCLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		c.Usage()
		return ExitUsage
	}
	switch args[0] {
	case "bootstrap-admin":
		return c.bootstrap(ctx, args[1:])
	case "invalidate":
		return c.invalidate(ctx, args[1:])
	case "check":
		return c.check(ctx, args[1:])
	case "help", "-h", "--help":
		c.Usage()
		return ExitOK
	default:
		_, _ = fmt.Fprintf(c.stderr, "unknown command %q\n", args[0])
		c.Usage()
		return ExitUsage
	}
}

func (c *AdminCLI) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK, false
		}
		return ExitUsage, false
	}
	return ExitOK, true
}
