package rbac

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/promoterhub/promoterhub/internal/platform/httpx"
	"github.com/promoterhub/promoterhub/internal/shared"
)

// IdentityFunc extracts the caller's user id from a request.
type IdentityFunc func(r *http.Request) (string, bool)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
	// Identity defaults to SessionIdentity.
	Identity IdentityFunc
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	req := Requirement{Permissions: perms, Mode: MatchAny}
	return func(next http.Handler) http.Handler {
		return m.Guard(req, next)
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	req := Requirement{Permissions: perms, Mode: MatchAll}
	return func(next http.Handler) http.Handler {
		return m.Guard(req, next)
	}
}

// WithPermission guards a single handler func with one permission.
func (m Middleware) WithPermission(perm Permission, next http.HandlerFunc) http.HandlerFunc {
	return m.Guard(Requirement{Permissions: []Permission{perm}}, next).ServeHTTP
}

// Guard invokes next only when req passes for the caller. Denials carry no
// detail about which permission was missing. It panics when req names a
// blank or uncatalogued permission.
func (m Middleware) Guard(req Requirement, next http.Handler) http.Handler {
	required := normalizePermissions(req.Permissions)
	mode := req.Mode
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.identity(r)
		if !ok {
			m.debug("rbac identity unresolved", slog.String("path", r.URL.Path))
			httpx.Problem(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), "")
			return
		}
		if m.Resolver == nil {
			if m.Logger != nil {
				m.Logger.Error("rbac resolver not configured")
			}
			httpx.Problem(w, http.StatusForbidden, http.StatusText(http.StatusForbidden), "")
			return
		}
		decision := m.Resolver.Check(r.Context(), userID, mode, required)
		if !decision.Allowed {
			m.debug("rbac denied", slog.String("user_id", userID), slog.String("path", r.URL.Path), slog.String("mode", mode.String()))
			httpx.Problem(w, http.StatusForbidden, http.StatusText(http.StatusForbidden), "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) identity(r *http.Request) (string, bool) {
	if m.Identity != nil {
		return m.Identity(r)
	}
	return SessionIdentity(r)
}

func (m Middleware) debug(msg string, attrs ...any) {
	if m.Logger != nil {
		m.Logger.Debug(msg, attrs...)
	}
}

// SessionIdentity reads the user id stored in the request session.
func SessionIdentity(r *http.Request) (string, bool) {
	return shared.SessionUserID(r.Context())
}

func normalizePermissions(perms []Permission) []Permission {
	out := make([]Permission, 0, len(perms))
	seen := make(map[Permission]struct{}, len(perms))
	for _, raw := range perms {
		p, err := ParsePermission(string(raw))
		if err != nil {
			panic(fmt.Sprintf("rbac: guard requirement: %v", err))
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
