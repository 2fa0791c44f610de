package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Recorder receives resolver telemetry. A nil Recorder is allowed.
type Recorder interface {
	ObserveCacheLookup(hit bool)
	ObserveResolveFailure()
	ObserveDecision(allowed bool)
}

// ResolverOptions bundles dependencies for NewResolver.
type ResolverOptions struct {
	Store   Store
	Cache   Cache
	Logger  *slog.Logger
	Metrics Recorder
}

// Resolver answers whether a user holds a permission. Resolution failures
// always produce an empty set so every check downstream denies.
type Resolver struct {
	store   Store
	cache   Cache
	logger  *slog.Logger
	metrics Recorder
	loads   singleflight.Group
}

// NewResolver constructs a Resolver. Cache and Metrics are optional.
func NewResolver(opts ResolverOptions) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		store:   opts.Store,
		cache:   opts.Cache,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// UserPermissions returns the resolved permission set for userID. It never
// fails: missing data and lookup errors both yield an empty list.
func (r *Resolver) UserPermissions(ctx context.Context, userID string) []Permission {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []Permission{}
	}

	if r.cache != nil {
		perms, ok, err := r.cache.Get(ctx, userID)
		switch {
		case err != nil:
			r.logger.Warn("rbac cache get", slog.String("user_id", userID), slog.Any("error", err))
		case ok:
			r.observeCache(true)
			return append([]Permission{}, perms...)
		default:
			r.observeCache(false)
		}
	}

	// The load runs detached from the caller so one cancelled request does
	// not fail every request collapsed onto the same key.
	ch := r.loads.DoChan(userID, func() (interface{}, error) {
		return r.load(context.WithoutCancel(ctx), userID)
	})
	select {
	case <-ctx.Done():
		return []Permission{}
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn("rbac resolve permissions", slog.String("user_id", userID), slog.Any("error", res.Err))
			if r.metrics != nil {
				r.metrics.ObserveResolveFailure()
			}
			return []Permission{}
		}
		perms, _ := res.Val.([]Permission)
		return append([]Permission{}, perms...)
	}
}

// HasPermission reports whether permission is in the user's resolved set.
func (r *Resolver) HasPermission(ctx context.Context, userID string, permission Permission) bool {
	return r.Check(ctx, userID, MatchAny, []Permission{permission}).Allowed
}

// HasAnyPermission reports whether at least one of permissions is granted. Empty input is false.
func (r *Resolver) HasAnyPermission(ctx context.Context, userID string, permissions []Permission) bool {
	return r.Check(ctx, userID, MatchAny, permissions).Allowed
}

// HasAllPermissions reports whether every permission is granted. Empty input is true.
func (r *Resolver) HasAllPermissions(ctx context.Context, userID string, permissions []Permission) bool {
	return r.Check(ctx, userID, MatchAll, permissions).Allowed
}

// Check evaluates permissions against the user's resolved set.
func (r *Resolver) Check(ctx context.Context, userID string, mode MatchMode, permissions []Permission) Decision {
	var granted []Permission
	if len(permissions) > 0 {
		granted = r.UserPermissions(ctx, userID)
	}
	decision := Evaluate(granted, mode, permissions)
	decision.UserID = userID
	if r.metrics != nil {
		r.metrics.ObserveDecision(decision.Allowed)
	}
	return decision
}

// Invalidate drops the cached set for userID. Callers that change roles or
// grants must call it; nothing pushes invalidations automatically.
func (r *Resolver) Invalidate(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("rbac: user id required")
	}
	r.loads.Forget(userID)
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Invalidate(ctx, userID); err != nil {
		return fmt.Errorf("rbac: invalidate %s: %w", userID, err)
	}
	return nil
}

// Purge drops every cached set.
func (r *Resolver) Purge(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Purge(ctx); err != nil {
		return fmt.Errorf("rbac: purge: %w", err)
	}
	return nil
}

func (r *Resolver) load(ctx context.Context, userID string) (perms []Permission, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			perms, err = nil, fmt.Errorf("rbac: store panic: %v", rec)
		}
	}()
	perms, err = r.resolveFromStore(ctx, userID)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, userID, perms); err != nil {
			r.logger.Warn("rbac cache set", slog.String("user_id", userID), slog.Any("error", err))
		}
	}
	return perms, nil
}

func (r *Resolver) resolveFromStore(ctx context.Context, userID string) ([]Permission, error) {
	if r.store == nil {
		return nil, errors.New("rbac: store not configured")
	}

	raw, err := r.store.LookupPermissionsForUser(ctx, userID)
	if err == nil {
		perms, err := ParsePermissions(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		return dedupe(perms), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	roles, err := r.store.LookupRolesForUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return []Permission{}, nil
	}
	if err != nil {
		return nil, err
	}
	var perms []Permission
	for _, role := range roles {
		granted := DefaultPermissionsForRole(role)
		if len(granted) == 0 {
			r.logger.Debug("rbac unknown role", slog.String("user_id", userID), slog.String("role", role))
			continue
		}
		perms = append(perms, granted...)
	}
	return dedupe(perms), nil
}

func (r *Resolver) observeCache(hit bool) {
	if r.metrics != nil {
		r.metrics.ObserveCacheLookup(hit)
	}
}

func dedupe(perms []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
