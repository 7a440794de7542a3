package role

// SystemRole is the derived authorization classification computed from a
// person's current appointment. It is never set directly by handlers.
type SystemRole string

const (
	RoleSuperAdmin              SystemRole = "super_admin"
	RoleMinister                SystemRole = "minister"
	RoleDeputyMinister          SystemRole = "deputy_minister"
	RoleCommitteeChairman       SystemRole = "committee_chairman"
	RoleDeputyCommitteeChairman SystemRole = "deputy_committee_chairman"
	RoleDepartmentDirector      SystemRole = "department_director"
	RoleDivisionHead            SystemRole = "division_head"
	RoleUnitHead                SystemRole = "unit_head"
	RoleGovernmentOfficial      SystemRole = "government_official"
	RoleGuest                   SystemRole = "guest"
)

// Permissions is the static capability set attached to a system role.
type Permissions struct {
	CanManageStructure          bool   `json:"can_manage_structure"`
	CanManageAppointments       bool   `json:"can_manage_appointments"`
	CanManageSubordinates       bool   `json:"can_manage_subordinates"`
	CanAssignTasks              bool   `json:"can_assign_tasks"`
	CanIssueDisciplinaryActions bool   `json:"can_issue_disciplinary_actions"`
	CanModerateChannels         bool   `json:"can_moderate_channels"`
	HierarchyLevel              int    `json:"hierarchy_level"`
	OrganizationScope           string `json:"organization_scope"`
}

const (
	// ScopeGlobal grants authority over the whole structure.
	ScopeGlobal = "*"
	// ScopeSubtree grants authority over the holder's unit and descendants.
	ScopeSubtree = "subtree"
	// ScopeNone grants no structural authority.
	ScopeNone = "none"
)

// permissionTable is the fixed role capability matrix. HierarchyLevel 0
// is the highest authority.
var permissionTable = map[SystemRole]Permissions{
	RoleSuperAdmin: {
		CanManageStructure:          true,
		CanManageAppointments:       true,
		CanManageSubordinates:       true,
		CanAssignTasks:              true,
		CanIssueDisciplinaryActions: true,
		CanModerateChannels:         true,
		HierarchyLevel:              0,
		OrganizationScope:           ScopeGlobal,
	},
	RoleMinister: {
		CanManageStructure:          true,
		CanManageAppointments:       true,
		CanManageSubordinates:       true,
		CanAssignTasks:              true,
		CanIssueDisciplinaryActions: true,
		CanModerateChannels:         true,
		HierarchyLevel:              1,
		OrganizationScope:           ScopeSubtree,
	},
	RoleDeputyMinister: {
		CanManageAppointments:       true,
		CanManageSubordinates:       true,
		CanAssignTasks:              true,
		CanIssueDisciplinaryActions: true,
		CanModerateChannels:         true,
		HierarchyLevel:              2,
		OrganizationScope:           ScopeSubtree,
	},
	RoleCommitteeChairman: {
		CanManageAppointments:       true,
		CanManageSubordinates:       true,
		CanAssignTasks:              true,
		CanIssueDisciplinaryActions: true,
		CanModerateChannels:         true,
		HierarchyLevel:              3,
		OrganizationScope:           ScopeSubtree,
	},
	RoleDeputyCommitteeChairman: {
		CanManageSubordinates: true,
		CanAssignTasks:        true,
		CanModerateChannels:   true,
		HierarchyLevel:        4,
		OrganizationScope:     ScopeSubtree,
	},
	RoleDepartmentDirector: {
		CanManageSubordinates:       true,
		CanAssignTasks:              true,
		CanIssueDisciplinaryActions: true,
		CanModerateChannels:         true,
		HierarchyLevel:              5,
		OrganizationScope:           ScopeSubtree,
	},
	RoleDivisionHead: {
		CanManageSubordinates: true,
		CanAssignTasks:        true,
		CanModerateChannels:   true,
		HierarchyLevel:        6,
		OrganizationScope:     ScopeSubtree,
	},
	RoleUnitHead: {
		CanManageSubordinates: true,
		CanAssignTasks:        true,
		HierarchyLevel:        7,
		OrganizationScope:     ScopeSubtree,
	},
	RoleGovernmentOfficial: {
		HierarchyLevel:    8,
		OrganizationScope: ScopeNone,
	},
	RoleGuest: {
		HierarchyLevel:    9,
		OrganizationScope: ScopeNone,
	},
}

// PermissionsFor returns the static permission set for a role. Unknown
// roles get guest permissions.
func PermissionsFor(r SystemRole) Permissions {
	if perms, ok := permissionTable[r]; ok {
		return perms
	}
	return permissionTable[RoleGuest]
}

// Known reports whether the role exists in the permission matrix.
func Known(r SystemRole) bool {
	_, ok := permissionTable[r]
	return ok
}

// All returns every role in the matrix, highest authority first.
func All() []SystemRole {
	return []SystemRole{
		RoleSuperAdmin,
		RoleMinister,
		RoleDeputyMinister,
		RoleCommitteeChairman,
		RoleDeputyCommitteeChairman,
		RoleDepartmentDirector,
		RoleDivisionHead,
		RoleUnitHead,
		RoleGovernmentOfficial,
		RoleGuest,
	}
}
