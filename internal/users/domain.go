package users

import (
	"time"

	"github.com/promoterhub/promoterhub/internal/rbac"
)

// User represents a profile for management. ExtraRoles lists additional
// user_roles grants and is filled only by GetUser.
type User struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FullName   string      `json:"full_name"`
	Role       rbac.Role   `json:"role,omitempty"`
	ExtraRoles []rbac.Role `json:"extra_roles,omitempty"`
	IsActive   bool        `json:"is_active"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// HasRole reports whether role is the primary role or one of the extra roles.
func (u User) HasRole(role rbac.Role) bool {
	if u.Role == role {
		return true
	}
	for _, r := range u.ExtraRoles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleChange records a primary role update.
type RoleChange struct {
	ActorID  string
	UserID   string
	Previous rbac.Role
	Role     rbac.Role
}

// PermissionOverride replaces the precomputed permission row for a user.
type PermissionOverride struct {
	ActorID     string
	UserID      string
	Permissions []rbac.Permission
}
