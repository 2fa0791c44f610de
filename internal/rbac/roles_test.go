package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPermissionsForUnknownRoleIsEmpty(t *testing.T) {
	perms := DefaultPermissionsForRole("unknown-role-xyz")
	require.NotNil(t, perms)
	assert.Empty(t, perms)
	assert.Empty(t, DefaultPermissionsForRole(""))
}

func TestDefaultPermissionsForAdminCoversCatalogue(t *testing.T) {
	perms := DefaultPermissionsForRole("admin")
	require.NotEmpty(t, perms)
	assert.Contains(t, perms, PermAdminAll)
	assert.Contains(t, perms, PermUsersDelete)
	assert.ElementsMatch(t, AllPermissions(), perms)
}

func TestDefaultPermissionsForManager(t *testing.T) {
	perms := DefaultPermissionsForRole(" Manager ")
	assert.Contains(t, perms, PermPromoterRead)
	assert.Contains(t, perms, PermContractsCreate)
	assert.NotContains(t, perms, PermUsersDelete)
	assert.NotContains(t, perms, PermAdminAll)
}

func TestDefaultPermissionsReturnsCopy(t *testing.T) {
	perms := DefaultPermissionsForRole("promoter")
	require.NotEmpty(t, perms)
	perms[0] = PermAdminAll

	again := DefaultPermissionsForRole("promoter")
	assert.NotContains(t, again, PermAdminAll)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("  PROMOTER")
	require.NoError(t, err)
	assert.Equal(t, RolePromoter, role)

	_, err = ParseRole("superuser")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRole))
}

func TestValidateRoleTable(t *testing.T) {
	require.NoError(t, validateRoleTable(roleTable))

	missing := map[Role][]Permission{
		RoleAdmin:   AllPermissions(),
		RoleManager: nil,
		RoleUser:    nil,
	}
	assert.Error(t, validateRoleTable(missing))

	uncatalogued := map[Role][]Permission{
		RoleAdmin:    AllPermissions(),
		RoleManager:  nil,
		RoleUser:     {"payroll:run"},
		RolePromoter: nil,
	}
	assert.Error(t, validateRoleTable(uncatalogued))

	extra := map[Role][]Permission{
		RoleAdmin:    nil,
		RoleManager:  nil,
		RoleUser:     nil,
		RolePromoter: nil,
		"auditor":    nil,
	}
	assert.Error(t, validateRoleTable(extra))
}

func TestParsePermission(t *testing.T) {
	p, err := ParsePermission(" Contract:Read:Own ")
	require.NoError(t, err)
	assert.Equal(t, PermContractReadOwn, p)
	assert.Equal(t, "contract", p.Resource())
	assert.Equal(t, "contracts", p.Category())

	_, err = ParsePermission("payroll:run")
	assert.ErrorIs(t, err, ErrUnknownPermission)
	_, err = ParsePermission("   ")
	assert.ErrorIs(t, err, ErrUnknownPermission)

	_, err = ParsePermissions([]string{"users:read", "nope"})
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestPermissionCategories(t *testing.T) {
	assert.Equal(t, "promoters", PermPromoterUpdateOwn.Category())
	assert.Equal(t, "hr", PermLeaveApprove.Category())
	assert.Equal(t, "users", PermRolesRead.Category())
	assert.Equal(t, "admin", PermAdminAll.Category())
}

func TestParseMatchMode(t *testing.T) {
	mode, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchAny, mode)

	mode, err = ParseMatchMode("ALL")
	require.NoError(t, err)
	assert.Equal(t, MatchAll, mode)
	assert.Equal(t, "all", mode.String())

	_, err = ParseMatchMode("most")
	assert.Error(t, err)
}
