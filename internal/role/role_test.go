package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructureManagementIsTopLevelOnly(t *testing.T) {
	for _, r := range All() {
		perms := PermissionsFor(r)
		if r == RoleSuperAdmin || r == RoleMinister {
			assert.True(t, perms.CanManageStructure, "role %s", r)
		} else {
			assert.False(t, perms.CanManageStructure, "role %s", r)
		}
	}
}

func TestScopedRolesCarryNoGlobalAuthority(t *testing.T) {
	assert.Equal(t, ScopeGlobal, PermissionsFor(RoleSuperAdmin).OrganizationScope)

	for _, r := range []SystemRole{RoleGovernmentOfficial, RoleGuest} {
		perms := PermissionsFor(r)
		assert.Equal(t, ScopeNone, perms.OrganizationScope, "role %s", r)
		assert.False(t, perms.CanManageAppointments, "role %s", r)
		assert.False(t, perms.CanModerateChannels, "role %s", r)
	}
}

func TestUnknownRoleFallsBackToGuest(t *testing.T) {
	assert.Equal(t, PermissionsFor(RoleGuest), PermissionsFor(SystemRole("chancellor")))
	assert.False(t, Known(SystemRole("chancellor")))
	assert.True(t, Known(RoleDivisionHead))
}
