// Package roles derives a member's effective role and permission set from
// membership rows. Nothing here is cached or persisted; callers re-derive on
// every request from the rows they just loaded.
package roles

import "github.com/mmynk/kopa/internal/models"

// Role is the coarse access level of a member.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Permissions is the capability set granted by a role.
type Permissions struct {
	CanCreateGroups  bool
	CanManageMembers bool
	CanManageLedger  bool // start/complete cycles, confirm payments, record payouts
	CanViewAllGroups bool
	CanDeleteGroups  bool
	CanSendReminders bool
	CanViewAnalytics bool
}

// Resolution is the outcome of resolving a set of membership rows.
type Resolution struct {
	Role        Role
	Permissions Permissions
}

var permissionTable = map[Role]Permissions{
	RoleAdmin: {
		CanCreateGroups:  true,
		CanManageMembers: true,
		CanManageLedger:  true,
		CanViewAllGroups: false, // own groups only
		CanDeleteGroups:  true,
		CanSendReminders: true,
		CanViewAnalytics: true,
	},
	RoleMember: {
		// Anyone signed in may start a group and becomes its admin.
		CanCreateGroups: true,
	},
}

// PermissionsFor returns the static permission set of a role.
// Unknown roles get no permissions.
func PermissionsFor(role Role) Permissions {
	return permissionTable[role]
}

// Resolve returns admin if any active row has IsAdmin set, member otherwise.
func Resolve(rows []models.Member) Resolution {
	role := RoleMember
	for _, row := range rows {
		if row.Active() && row.IsAdmin {
			role = RoleAdmin
			break
		}
	}
	return Resolution{Role: role, Permissions: PermissionsFor(role)}
}

// ResolveForGroup resolves using only the rows that belong to groupID.
// Authorization decisions use this per-group scope.
func ResolveForGroup(rows []models.Member, groupID string) Resolution {
	var scoped []models.Member
	for _, row := range rows {
		if row.GroupID == groupID {
			scoped = append(scoped, row)
		}
	}
	return Resolve(scoped)
}

// IsMember reports whether rows contain an active membership of groupID.
func IsMember(rows []models.Member, groupID string) bool {
	for _, row := range rows {
		if row.GroupID == groupID && row.Active() {
			return true
		}
	}
	return false
}
