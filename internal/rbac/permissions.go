package rbac

import (
	"fmt"
	"strings"
)

// Permission is an atomic capability in resource:action[:scope] form.
type Permission string

// String implements fmt.Stringer.
func (p Permission) String() string { return string(p) }

// Contract permissions.
const (
	PermContractReadOwn   Permission = "contract:read:own"
	PermContractReadAll   Permission = "contract:read:all"
	PermContractCreateOwn Permission = "contract:create:own"
	PermContractUpdateOwn Permission = "contract:update:own"

	PermContractsRead    Permission = "contracts:read"
	PermContractsCreate  Permission = "contracts:create"
	PermContractsUpdate  Permission = "contracts:update"
	PermContractsDelete  Permission = "contracts:delete"
	PermContractsApprove Permission = "contracts:approve"
	PermContractsExport  Permission = "contracts:export"
)

// Promoter permissions.
const (
	PermPromoterRead      Permission = "promoter:read"
	PermPromoterReadOwn   Permission = "promoter:read:own"
	PermPromoterUpdateOwn Permission = "promoter:update:own"
	PermPromoterCreate    Permission = "promoter:create"
	PermPromoterUpdate    Permission = "promoter:update"
	PermPromoterDelete    Permission = "promoter:delete"
	PermPromoterAssign    Permission = "promoter:assign"
)

// HR permissions.
const (
	PermHRRead            Permission = "hr:read"
	PermHRManage          Permission = "hr:manage"
	PermAttendanceReadOwn Permission = "attendance:read:own"
	PermAttendanceManage  Permission = "attendance:manage"
	PermLeaveRequestOwn   Permission = "leave:request:own"
	PermLeaveApprove      Permission = "leave:approve"
)

// Workflow permissions.
const (
	PermWorkflowRead       Permission = "workflow:read"
	PermWorkflowTransition Permission = "workflow:transition"
)

// User administration permissions.
const (
	PermUsersRead   Permission = "users:read"
	PermUsersCreate Permission = "users:create"
	PermUsersUpdate Permission = "users:update"
	PermUsersDelete Permission = "users:delete"
	PermRolesRead   Permission = "roles:read"
)

// Reporting permissions.
const (
	PermReportsRead   Permission = "reports:read"
	PermReportsExport Permission = "reports:export"
)

// Platform administration permissions.
const (
	PermAdminAll       Permission = "admin:all"
	PermSystemSettings Permission = "system:settings"
	PermAuditRead      Permission = "audit:read"
)

// ContractScopes lists all contract permissions.
func ContractScopes() []Permission {
	return []Permission{
		PermContractReadOwn,
		PermContractReadAll,
		PermContractCreateOwn,
		PermContractUpdateOwn,
		PermContractsRead,
		PermContractsCreate,
		PermContractsUpdate,
		PermContractsDelete,
		PermContractsApprove,
		PermContractsExport,
	}
}

// PromoterScopes lists all promoter permissions.
func PromoterScopes() []Permission {
	return []Permission{
		PermPromoterRead,
		PermPromoterReadOwn,
		PermPromoterUpdateOwn,
		PermPromoterCreate,
		PermPromoterUpdate,
		PermPromoterDelete,
		PermPromoterAssign,
	}
}

// HRScopes lists all HR permissions.
func HRScopes() []Permission {
	return []Permission{
		PermHRRead,
		PermHRManage,
		PermAttendanceReadOwn,
		PermAttendanceManage,
		PermLeaveRequestOwn,
		PermLeaveApprove,
	}
}

// WorkflowScopes lists all workflow permissions.
func WorkflowScopes() []Permission {
	return []Permission{PermWorkflowRead, PermWorkflowTransition}
}

// CoreScopes lists user and role administration permissions.
func CoreScopes() []Permission {
	return []Permission{
		PermUsersRead,
		PermUsersCreate,
		PermUsersUpdate,
		PermUsersDelete,
		PermRolesRead,
	}
}

// ReportScopes lists all reporting permissions.
func ReportScopes() []Permission {
	return []Permission{PermReportsRead, PermReportsExport}
}

// AdminScopes lists platform administration permissions.
func AdminScopes() []Permission {
	return []Permission{PermAdminAll, PermSystemSettings, PermAuditRead}
}

// AllPermissions returns every catalogued permission grouped by category.
func AllPermissions() []Permission {
	groups := [][]Permission{
		ContractScopes(),
		PromoterScopes(),
		HRScopes(),
		WorkflowScopes(),
		CoreScopes(),
		ReportScopes(),
		AdminScopes(),
	}
	var all []Permission
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

var catalog = func() map[Permission]struct{} {
	all := AllPermissions()
	set := make(map[Permission]struct{}, len(all))
	for _, p := range all {
		set[p] = struct{}{}
	}
	return set
}()

// Known reports whether p is part of the catalogue.
func Known(p Permission) bool {
	_, ok := catalog[p]
	return ok
}

// ParsePermission normalises raw and returns it when it names a catalogued permission.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return "", fmt.Errorf("%w: empty permission", ErrUnknownPermission)
	}
	if !Known(p) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, raw)
	}
	return p, nil
}

// ParsePermissions parses every entry in raw, failing on the first unknown value.
func ParsePermissions(raw []string) ([]Permission, error) {
	out := make([]Permission, 0, len(raw))
	for _, r := range raw {
		p, err := ParsePermission(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Resource returns the resource segment, e.g. "contract" for "contract:read:own".
func (p Permission) Resource() string {
	resource, _, _ := strings.Cut(string(p), ":")
	return resource
}

// Category groups permissions for display: contracts, promoters, hr, workflow, users, reports or admin.
func (p Permission) Category() string {
	switch p.Resource() {
	case "contract", "contracts":
		return "contracts"
	case "promoter":
		return "promoters"
	case "hr", "attendance", "leave":
		return "hr"
	case "workflow":
		return "workflow"
	case "users", "roles":
		return "users"
	case "reports":
		return "reports"
	default:
		return "admin"
	}
}
