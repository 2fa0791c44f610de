package rbac

import (
	"fmt"
	"strings"
)

// Role is the primary authorization role stored on a profile.
type Role string

// Roles known to the platform. The set is closed; see ParseRole.
const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleUser     Role = "user"
	RolePromoter Role = "promoter"
)

// Roles returns every role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleUser, RolePromoter}
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// ParseRole normalises raw into a Role. Unknown names are rejected.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleTable[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

var roleTable = map[Role][]Permission{
	RoleAdmin: AllPermissions(),
	RoleManager: {
		PermPromoterRead,
		PermPromoterCreate,
		PermPromoterUpdate,
		PermPromoterAssign,
		PermContractsRead,
		PermContractsCreate,
		PermContractsUpdate,
		PermContractsApprove,
		PermContractsExport,
		PermContractReadAll,
		PermHRRead,
		PermAttendanceManage,
		PermLeaveApprove,
		PermWorkflowRead,
		PermWorkflowTransition,
		PermUsersRead,
		PermRolesRead,
		PermReportsRead,
		PermReportsExport,
	},
	RoleUser: {
		PermContractReadOwn,
		PermContractCreateOwn,
		PermContractUpdateOwn,
		PermPromoterRead,
		PermWorkflowRead,
		PermAttendanceReadOwn,
		PermLeaveRequestOwn,
		PermReportsRead,
	},
	RolePromoter: {
		PermPromoterReadOwn,
		PermPromoterUpdateOwn,
		PermContractReadOwn,
		PermAttendanceReadOwn,
		PermLeaveRequestOwn,
	},
}

func init() {
	if err := validateRoleTable(roleTable); err != nil {
		panic(err)
	}
}

// validateRoleTable requires an entry for every role and only catalogued permissions.
func validateRoleTable(table map[Role][]Permission) error {
	for _, role := range Roles() {
		if _, ok := table[role]; !ok {
			return fmt.Errorf("rbac: role %q missing from permission table", role)
		}
	}
	if len(table) != len(Roles()) {
		return fmt.Errorf("rbac: permission table has %d roles, expected %d", len(table), len(Roles()))
	}
	for role, perms := range table {
		for _, p := range perms {
			if !Known(p) {
				return fmt.Errorf("rbac: role %q grants uncatalogued permission %q", role, p)
			}
		}
	}
	return nil
}

// DefaultPermissionsForRole returns a copy of the static permission list for role.
// Unrecognised role names yield an empty list.
func DefaultPermissionsForRole(role string) []Permission {
	perms, ok := roleTable[Role(strings.ToLower(strings.TrimSpace(role)))]
	if !ok {
		return []Permission{}
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
