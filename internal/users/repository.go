package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promoterhub/promoterhub/internal/platform/db"
	"github.com/promoterhub/promoterhub/internal/rbac"
	"github.com/promoterhub/promoterhub/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns one page of profiles and the total count.
func (r *Repository) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, email, full_name, COALESCE(role, ''), is_active, created_at, updated_at FROM profiles ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.FullName, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetUser fetches a single profile.
func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `SELECT id, email, full_name, COALESCE(role, ''), is_active, created_at, updated_at FROM profiles WHERE id = $1`, id).
		Scan(&user.ID, &user.Email, &user.FullName, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, fmt.Errorf("users: get: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, id)
	if err != nil {
		return User{}, fmt.Errorf("users: get roles: %w", err)
	}
	extra, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return User{}, fmt.Errorf("users: scan roles: %w", err)
	}
	for _, role := range extra {
		user.ExtraRoles = append(user.ExtraRoles, rbac.Role(role))
	}
	return user, nil
}

// UpdateRole sets the primary role, drops the extra user_roles grants and the
// stale precomputed permission row, and writes the audit entry in one
// transaction.
func (r *Repository) UpdateRole(ctx context.Context, change RoleChange) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1`, change.UserID, string(change.Role))
		if err != nil {
			return fmt.Errorf("users: update role: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		rows, err := tx.Query(ctx, `DELETE FROM user_roles WHERE user_id = $1 RETURNING role`, change.UserID)
		if err != nil {
			return fmt.Errorf("users: clear extra roles: %w", err)
		}
		removed, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("users: clear extra roles: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, change.UserID); err != nil {
			return fmt.Errorf("users: clear permissions: %w", err)
		}
		meta := map[string]any{"from": string(change.Previous), "to": string(change.Role)}
		if len(removed) > 0 {
			meta["removed_roles"] = removed
		}
		return shared.RecordAuditTx(ctx, tx, shared.AuditLog{
			ActorID:  change.ActorID,
			Action:   shared.AuditRoleChanged,
			Entity:   "profiles",
			EntityID: change.UserID,
			Meta:     meta,
		})
	})
}

// ReplacePermissions upserts the precomputed permission row.
func (r *Repository) ReplacePermissions(ctx context.Context, override PermissionOverride) error {
	perms := make([]string, len(override.Permissions))
	for i, p := range override.Permissions {
		perms[i] = string(p)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, override.UserID).Scan(&exists); err != nil {
			return fmt.Errorf("users: check profile: %w", err)
		}
		if !exists {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO user_permissions (user_id, permissions, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = NOW()`, override.UserID, perms); err != nil {
			return fmt.Errorf("users: replace permissions: %w", err)
		}
		return shared.RecordAuditTx(ctx, tx, shared.AuditLog{
			ActorID:  override.ActorID,
			Action:   shared.AuditPermissionsChanged,
			Entity:   "user_permissions",
			EntityID: override.UserID,
			Meta:     map[string]any{"permissions": perms},
		})
	})
}

// ClearPermissions removes the precomputed row so resolution falls back to roles.
func (r *Repository) ClearPermissions(ctx context.Context, actorID, userID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("users: clear permissions: %w", err)
		}
		return shared.RecordAuditTx(ctx, tx, shared.AuditLog{
			ActorID:  actorID,
			Action:   shared.AuditPermissionsChanged,
			Entity:   "user_permissions",
			EntityID: userID,
			Meta:     map[string]any{"permissions": nil},
		})
	})
}

// BootstrapAdmin assigns the admin role outside the authenticated API. The
// audit row names the operator given on the command line.
func (r *Repository) BootstrapAdmin(ctx context.Context, operator, userID string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var previous string
		err := tx.QueryRow(ctx, `SELECT COALESCE(role, '') FROM profiles WHERE id = $1 FOR UPDATE`, userID).Scan(&previous)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("users: lock profile: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE profiles SET role = 'admin', is_active = TRUE, updated_at = NOW() WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("users: bootstrap admin: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("users: clear permissions: %w", err)
		}
		return shared.RecordAuditTx(ctx, tx, shared.AuditLog{
			ActorID:  operator,
			Action:   shared.AuditAdminBootstrapped,
			Entity:   "profiles",
			EntityID: userID,
			Meta:     map[string]any{"from": previous, "to": "admin", "via": "cli"},
		})
	})
}

var _ RepositoryPort = (*Repository)(nil)

