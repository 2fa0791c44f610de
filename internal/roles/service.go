package roles

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/promoterhub/promoterhub/internal/platform/httpx"
	"github.com/promoterhub/promoterhub/internal/rbac"
)

var categoryOrder = []string{"contracts", "promoters", "hr", "workflow", "users", "reports", "admin"}

// acronyms keeps labels that title casing would mangle.
var acronyms = map[string]string{"hr": "HR"}

// Service exposes the static role table with display labels.
type Service struct {
	labels map[string]string
}

// NewService builds Service instance.
func NewService(tag language.Tag) *Service {
	caser := cases.Title(tag)
	labels := make(map[string]string)
	for _, role := range rbac.Roles() {
		labels[role.String()] = caser.String(role.String())
	}
	for _, category := range categoryOrder {
		if label, ok := acronyms[category]; ok {
			labels[category] = label
			continue
		}
		labels[category] = caser.String(category)
	}
	return &Service{labels: labels}
}

// ListRoles returns every role in declaration order.
func (s *Service) ListRoles() []Summary {
	roles := rbac.Roles()
	out := make([]Summary, 0, len(roles))
	for _, role := range roles {
		out = append(out, s.summary(role))
	}
	return out
}

// GetRole returns one role, or httpx.ErrNotFound for names outside the catalog.
func (s *Service) GetRole(name string) (Summary, error) {
	role, err := rbac.ParseRole(name)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: role %q", httpx.ErrNotFound, name)
	}
	return s.summary(role), nil
}

// Categories groups a role's default grants by permission category.
func (s *Service) Categories(role rbac.Role) []CategorySummary {
	grouped := make(map[string][]rbac.Permission)
	for _, p := range rbac.DefaultPermissionsForRole(role.String()) {
		grouped[p.Category()] = append(grouped[p.Category()], p)
	}
	out := make([]CategorySummary, 0, len(grouped))
	for _, category := range categoryOrder {
		perms, ok := grouped[category]
		if !ok {
			continue
		}
		sortPermissions(perms)
		out = append(out, CategorySummary{Category: category, Label: s.labels[category], Permissions: perms})
	}
	return out
}

func (s *Service) summary(role rbac.Role) Summary {
	perms := rbac.DefaultPermissionsForRole(role.String())
	sortPermissions(perms)
	return Summary{Name: role, Label: s.labels[role.String()], Permissions: perms}
}

func sortPermissions(perms []rbac.Permission) {
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
}
