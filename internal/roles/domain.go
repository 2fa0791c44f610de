package roles

import "github.com/promoterhub/promoterhub/internal/rbac"

// Summary describes a role and its default grants.
type Summary struct {
	Name        rbac.Role         `json:"name"`
	Label       string            `json:"label"`
	Permissions []rbac.Permission `json:"permissions"`
}

// CategorySummary groups a role's permissions by category.
type CategorySummary struct {
	Category    string            `json:"category"`
	Label       string            `json:"label"`
	Permissions []rbac.Permission `json:"permissions"`
}
