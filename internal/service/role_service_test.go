package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	pb "github.com/mmynk/kopa/pkg/api"
)

func TestResolveMyRole(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()
	created := createGroup(t, srv.as(t, "ada"))
	groupID := created.Group.Id

	tests := []struct {
		name       string
		user       string
		groupID    string
		wantGlobal string
		wantGroup  string
		wantManage bool
	}{
		{"admin global", "ada", "", "admin", "", false},
		{"admin in group", "ada", groupID, "admin", "admin", true},
		{"member in group", "bola", groupID, "member", "member", false},
		{"no memberships", "zara", "", "member", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := srv.as(t, tt.user).roles.ResolveMyRole(ctx, connect.NewRequest(&pb.ResolveMyRoleRequest{GroupId: tt.groupID}))
			if err != nil {
				t.Fatalf("ResolveMyRole failed: %v", err)
			}
			if resp.Msg.Global.Role != tt.wantGlobal {
				t.Errorf("global role: expected %s, got %s", tt.wantGlobal, resp.Msg.Global.Role)
			}
			if !resp.Msg.Global.Permissions.CanCreateGroups {
				t.Error("expected everyone to be able to create groups")
			}
			if tt.wantGroup == "" {
				if resp.Msg.Group != nil {
					t.Errorf("expected no group resolution, got %+v", resp.Msg.Group)
				}
				return
			}
			if resp.Msg.Group.Role != tt.wantGroup {
				t.Errorf("group role: expected %s, got %s", tt.wantGroup, resp.Msg.Group.Role)
			}
			if resp.Msg.Group.Permissions.CanManageLedger != tt.wantManage {
				t.Errorf("CanManageLedger: expected %v", tt.wantManage)
			}
		})
	}

	_, err := srv.as(t, "zara").roles.ResolveMyRole(ctx, connect.NewRequest(&pb.ResolveMyRoleRequest{GroupId: groupID}))
	assertCode(t, err, connect.CodePermissionDenied)
}
