package roles

import (
	"testing"

	"github.com/mmynk/kopa/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		rows []models.Member
		want Role
	}{
		{
			name: "no memberships",
			rows: nil,
			want: RoleMember,
		},
		{
			name: "plain member",
			rows: []models.Member{{GroupID: "g1"}},
			want: RoleMember,
		},
		{
			name: "admin in one of several groups",
			rows: []models.Member{{GroupID: "g1"}, {GroupID: "g2", IsAdmin: true}},
			want: RoleAdmin,
		},
		{
			name: "removed admin row ignored",
			rows: []models.Member{{GroupID: "g1", IsAdmin: true, RemovedAt: 1700000000}},
			want: RoleMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.rows)
			if got.Role != tt.want {
				t.Errorf("Resolve() role = %s, want %s", got.Role, tt.want)
			}
			if got.Permissions != PermissionsFor(tt.want) {
				t.Errorf("Resolve() permissions = %+v, want table entry for %s", got.Permissions, tt.want)
			}
		})
	}
}

func TestResolveForGroup(t *testing.T) {
	rows := []models.Member{
		{GroupID: "g1", IsAdmin: true},
		{GroupID: "g2"},
	}

	if got := ResolveForGroup(rows, "g1"); got.Role != RoleAdmin {
		t.Errorf("g1 role = %s, want admin", got.Role)
	}
	if got := ResolveForGroup(rows, "g2"); got.Role != RoleMember {
		t.Errorf("g2 role = %s, want member", got.Role)
	}
	if got := ResolveForGroup(rows, "g2"); got.Permissions.CanManageLedger {
		t.Error("member of g2 must not manage the g2 ledger")
	}
	if Resolve(rows).Role != RoleAdmin {
		t.Error("global role should still be admin")
	}
}

func TestPermissionTable(t *testing.T) {
	admin := PermissionsFor(RoleAdmin)
	if !admin.CanManageMembers || !admin.CanManageLedger || !admin.CanDeleteGroups {
		t.Errorf("admin permissions incomplete: %+v", admin)
	}
	if admin.CanViewAllGroups {
		t.Error("admin should only see own groups")
	}

	member := PermissionsFor(RoleMember)
	if member.CanManageMembers || member.CanManageLedger || member.CanSendReminders {
		t.Errorf("member permissions too broad: %+v", member)
	}

	if PermissionsFor(Role("super_admin")) != (Permissions{}) {
		t.Error("unknown role should have no permissions")
	}
}

func TestIsMember(t *testing.T) {
	rows := []models.Member{
		{GroupID: "g1"},
		{GroupID: "g2", RemovedAt: 1},
	}
	if !IsMember(rows, "g1") {
		t.Error("expected membership of g1")
	}
	if IsMember(rows, "g2") {
		t.Error("removed row should not count")
	}
	if IsMember(rows, "g3") {
		t.Error("unexpected membership of g3")
	}
}
