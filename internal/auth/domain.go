package auth

import "time"

// User is a profile row as seen by login. Role is the primary profile role
// and may be empty; effective permissions come from the rbac resolver.
type User struct {
	ID           string
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
