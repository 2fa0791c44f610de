package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the read side of the user/role/permission tables.
type Store interface {
	// LookupPermissionsForUser returns the precomputed permission row, or ErrNotFound.
	LookupPermissionsForUser(ctx context.Context, userID string) ([]string, error)
	// LookupRolesForUser returns every role assigned to the user, or ErrNotFound.
	LookupRolesForUser(ctx context.Context, userID string) ([]string, error)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL backed Store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const lookupPermissionsSQL = `SELECT permissions FROM user_permissions WHERE user_id = $1`

// LookupPermissionsForUser reads the precomputed override row.
func (s *PGStore) LookupPermissionsForUser(ctx context.Context, userID string) ([]string, error) {
	var perms []string
	if err := s.pool.QueryRow(ctx, lookupPermissionsSQL, userID).Scan(&perms); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rbac: lookup permissions: %w", err)
	}
	if perms == nil {
		return nil, ErrMalformedRow
	}
	return perms, nil
}

const lookupRolesSQL = `
SELECT role FROM profiles WHERE id = $1 AND role IS NOT NULL AND is_active
UNION
SELECT ur.role FROM user_roles ur JOIN profiles p ON p.id = ur.user_id WHERE ur.user_id = $1 AND p.is_active`

// LookupRolesForUser reads the primary profile role plus additional assignments.
func (s *PGStore) LookupRolesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, lookupRolesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("rbac: lookup roles: %w", err)
	}
	roles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("rbac: scan roles: %w", err)
	}
	if len(roles) == 0 {
		return nil, ErrNotFound
	}
	return roles, nil
}

var _ Store = (*PGStore)(nil)
