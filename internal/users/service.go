package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/promoterhub/promoterhub/internal/platform/httpx"
	"github.com/promoterhub/promoterhub/internal/rbac"
	"github.com/promoterhub/promoterhub/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdateRole(ctx context.Context, change RoleChange) error
	ReplacePermissions(ctx context.Context, override PermissionOverride) error
	ClearPermissions(ctx context.Context, actorID, userID string) error
	BootstrapAdmin(ctx context.Context, operator, userID string) error
}

// Authorizer answers permission checks for the acting user.
type Authorizer interface {
	HasPermission(ctx context.Context, userID string, permission rbac.Permission) bool
	Invalidate(ctx context.Context, userID string) error
}

// InvalidationQueue schedules a retried cache invalidation.
type InvalidationQueue interface {
	EnqueueInvalidate(ctx context.Context, userID string) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	authz  Authorizer
	queue  InvalidationQueue
	logger *slog.Logger
}

// NewService builds Service instance. queue may be nil.
func NewService(repo RepositoryPort, authz Authorizer, queue InvalidationQueue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, authz: authz, queue: queue, logger: logger}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	users, total, err := s.repo.ListUsers(ctx, p.PerPage, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if users == nil {
		users = []User{}
	}
	return users, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// ChangeRole assigns a new primary role and clears every extra role, so the
// user ends up holding exactly one role. Granting admin, or taking it away
// through any of the user's roles, requires an actor holding admin:all.
func (s *Service) ChangeRole(ctx context.Context, actorID, userID, roleName string) (User, error) {
	role, err := rbac.ParseRole(roleName)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if role == rbac.RoleAdmin && !s.authz.HasPermission(ctx, actorID, rbac.PermAdminAll) {
		return User{}, httpx.ErrForbidden
	}
	current, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapNotFound(err)
	}
	if current.HasRole(rbac.RoleAdmin) && role != rbac.RoleAdmin && !s.authz.HasPermission(ctx, actorID, rbac.PermAdminAll) {
		return User{}, httpx.ErrForbidden
	}
	change := RoleChange{ActorID: actorID, UserID: userID, Previous: current.Role, Role: role}
	if err := s.repo.UpdateRole(ctx, change); err != nil {
		return User{}, mapNotFound(err)
	}
	s.logger.Info("user role changed",
		slog.String("actor_id", actorID),
		slog.String("user_id", userID),
		slog.String("from", string(current.Role)),
		slog.String("to", string(role)),
		slog.Int("extra_roles_cleared", len(current.ExtraRoles)),
	)
	s.invalidate(ctx, userID)
	current.Role = role
	current.ExtraRoles = nil
	return current, nil
}

// BootstrapAdmin grants admin without an authenticated admin actor. Only the
// admin CLI calls it.
func (s *Service) BootstrapAdmin(ctx context.Context, operator, userID string) error {
	operator = strings.TrimSpace(operator)
	userID = strings.TrimSpace(userID)
	if operator == "" || userID == "" {
		return fmt.Errorf("%w: operator and user id are required", httpx.ErrValidation)
	}
	if err := s.repo.BootstrapAdmin(ctx, operator, userID); err != nil {
		return mapNotFound(err)
	}
	s.logger.Warn("admin bootstrapped", slog.String("operator", operator), slog.String("user_id", userID))
	s.invalidate(ctx, userID)
	return nil
}

// SetPermissions replaces the precomputed permission row. A nil list removes
// the row so resolution falls back to the user's roles.
func (s *Service) SetPermissions(ctx context.Context, actorID, userID string, raw []string) ([]rbac.Permission, error) {
	if raw == nil {
		if err := s.repo.ClearPermissions(ctx, actorID, userID); err != nil {
			return nil, mapNotFound(err)
		}
		s.invalidate(ctx, userID)
		return []rbac.Permission{}, nil
	}
	perms, err := rbac.ParsePermissions(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	perms = uniquePermissions(perms)
	if err := s.repo.ReplacePermissions(ctx, PermissionOverride{ActorID: actorID, UserID: userID, Permissions: perms}); err != nil {
		return nil, mapNotFound(err)
	}
	s.logger.Info("user permissions replaced", slog.String("actor_id", actorID), slog.String("user_id", userID), slog.Int("count", len(perms)))
	s.invalidate(ctx, userID)
	return perms, nil
}

// invalidate drops the cached set, falling back to the job queue on failure.
func (s *Service) invalidate(ctx context.Context, userID string) {
	err := s.authz.Invalidate(ctx, userID)
	if err == nil {
		return
	}
	s.logger.Warn("rbac invalidate failed", slog.String("user_id", userID), slog.Any("error", err))
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueInvalidate(ctx, userID); err != nil {
		s.logger.Error("enqueue rbac invalidate", slog.String("user_id", userID), slog.Any("error", err))
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return httpx.ErrNotFound
	}
	return err
}

func uniquePermissions(perms []rbac.Permission) []rbac.Permission {
	seen := make(map[rbac.Permission]struct{}, len(perms))
	out := make([]rbac.Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
