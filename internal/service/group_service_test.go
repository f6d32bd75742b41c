package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	pb "github.com/mmynk/kopa/pkg/api"
)

func TestCreateGroup(t *testing.T) {
	srv := setupTestServer(t)
	ada := srv.as(t, "ada")

	resp := createGroup(t, ada)

	if resp.Group == nil || resp.Group.Id == "" {
		t.Fatal("expected group with ID in response")
	}
	if resp.Group.ContributionAmount != "50000" {
		t.Errorf("contribution amount: expected '50000', got '%s'", resp.Group.ContributionAmount)
	}
	if len(resp.Members) != 3 {
		t.Fatalf("members: expected 3, got %d", len(resp.Members))
	}
	admin := resp.Members[0]
	if resp.Group.AdminId != admin.Id || !admin.IsAdmin {
		t.Errorf("expected first member to be the admin")
	}
	if admin.UserId != "ada" || admin.Email != "ada@example.com" {
		t.Errorf("expected admin linked to caller, got user %q email %q", admin.UserId, admin.Email)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	srv := setupTestServer(t)
	ada := srv.as(t, "ada")

	tests := []struct {
		name string
		req  *pb.CreateGroupRequest
	}{
		{
			name: "bad amount",
			req: &pb.CreateGroupRequest{
				Name: "G", ContributionAmount: "lots", Frequency: "weekly", StartDate: "2024-01-01",
				Admin: &pb.MemberInput{Name: "Ada", Phone: "1"},
			},
		},
		{
			name: "bad frequency",
			req: &pb.CreateGroupRequest{
				Name: "G", ContributionAmount: "100", Frequency: "daily", StartDate: "2024-01-01",
				Admin: &pb.MemberInput{Name: "Ada", Phone: "1"},
			},
		},
		{
			name: "bad date",
			req: &pb.CreateGroupRequest{
				Name: "G", ContributionAmount: "100", Frequency: "weekly", StartDate: "01/01/2024",
				Admin: &pb.MemberInput{Name: "Ada", Phone: "1"},
			},
		},
		{
			name: "missing admin",
			req: &pb.CreateGroupRequest{
				Name: "G", ContributionAmount: "100", Frequency: "weekly", StartDate: "2024-01-01",
			},
		},
		{
			name: "duplicate phone",
			req: &pb.CreateGroupRequest{
				Name: "G", ContributionAmount: "100", Frequency: "weekly", StartDate: "2024-01-01",
				Admin:   &pb.MemberInput{Name: "Ada", Phone: "1"},
				Members: []*pb.MemberInput{{Name: "Bola", Phone: "1"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ada.groups.CreateGroup(context.Background(), connect.NewRequest(tt.req))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestUnauthenticated(t *testing.T) {
	srv := setupTestServer(t)
	anon := srv.as(t, "")

	_, err := anon.groups.ListMyGroups(context.Background(), connect.NewRequest(&pb.ListMyGroupsRequest{}))
	assertCode(t, err, connect.CodeUnauthenticated)
}

func TestGetGroupRequiresMembership(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()
	created := createGroup(t, srv.as(t, "ada"))

	resp, err := srv.as(t, "bola").groups.GetGroup(ctx, connect.NewRequest(&pb.GetGroupRequest{GroupId: created.Group.Id}))
	if err != nil {
		t.Fatalf("GetGroup as member failed: %v", err)
	}
	if len(resp.Msg.Members) != 3 {
		t.Errorf("members: expected 3, got %d", len(resp.Msg.Members))
	}
	if resp.Msg.CurrentCycle != nil {
		t.Errorf("expected no cycle before the first one starts")
	}

	_, err = srv.as(t, "mallory").groups.GetGroup(ctx, connect.NewRequest(&pb.GetGroupRequest{GroupId: created.Group.Id}))
	assertCode(t, err, connect.CodePermissionDenied)
}

func TestMemberManagement(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()
	ada := srv.as(t, "ada")
	bola := srv.as(t, "bola")
	created := createGroup(t, ada)
	groupID := created.Group.Id

	// Regular members cannot manage the group.
	_, err := bola.groups.AddMember(ctx, connect.NewRequest(&pb.AddMemberRequest{
		GroupId: groupID,
		Member:  &pb.MemberInput{Name: "Dayo", Phone: "+2348000000004"},
	}))
	assertCode(t, err, connect.CodePermissionDenied)

	added, err := ada.groups.AddMember(ctx, connect.NewRequest(&pb.AddMemberRequest{
		GroupId: groupID,
		Member:  &pb.MemberInput{Name: "Dayo", Phone: "+2348000000004"},
	}))
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if added.Msg.Member.Position != 4 {
		t.Errorf("position: expected 4, got %d", added.Msg.Member.Position)
	}

	// The only admin cannot step down or leave.
	adminID := created.Members[0].Id
	_, err = ada.groups.SetAdmin(ctx, connect.NewRequest(&pb.SetAdminRequest{GroupId: groupID, MemberId: adminID, IsAdmin: false}))
	assertCode(t, err, connect.CodeFailedPrecondition)
	_, err = ada.groups.RemoveMember(ctx, connect.NewRequest(&pb.RemoveMemberRequest{GroupId: groupID, MemberId: adminID}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	// Promote Bola, who can then remove Ada.
	bolaID := created.Members[1].Id
	if _, err := ada.groups.SetAdmin(ctx, connect.NewRequest(&pb.SetAdminRequest{GroupId: groupID, MemberId: bolaID, IsAdmin: true})); err != nil {
		t.Fatalf("SetAdmin failed: %v", err)
	}
	if _, err := bola.groups.RemoveMember(ctx, connect.NewRequest(&pb.RemoveMemberRequest{GroupId: groupID, MemberId: adminID})); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}

	// Ada is no longer a member.
	_, err = ada.groups.ListMembers(ctx, connect.NewRequest(&pb.ListMembersRequest{GroupId: groupID}))
	assertCode(t, err, connect.CodePermissionDenied)

	members, err := bola.groups.ListMembers(ctx, connect.NewRequest(&pb.ListMembersRequest{GroupId: groupID}))
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	if len(members.Msg.Members) != 3 {
		t.Errorf("members: expected 3 after removal, got %d", len(members.Msg.Members))
	}
}

func TestListMyGroups(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()
	ada := srv.as(t, "ada")
	created := createGroup(t, ada)

	if _, err := ada.cycles.StartCycle(ctx, connect.NewRequest(&pb.StartCycleRequest{GroupId: created.Group.Id})); err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}

	resp, err := srv.as(t, "bola").groups.ListMyGroups(ctx, connect.NewRequest(&pb.ListMyGroupsRequest{}))
	if err != nil {
		t.Fatalf("ListMyGroups failed: %v", err)
	}
	if len(resp.Msg.Groups) != 1 {
		t.Fatalf("groups: expected 1, got %d", len(resp.Msg.Groups))
	}

	g := resp.Msg.Groups[0]
	if g.MyRole != "member" {
		t.Errorf("role: expected member, got %s", g.MyRole)
	}
	if g.MyMemberId != created.Members[1].Id {
		t.Errorf("expected Bola's member ID")
	}
	if g.MemberCount != 3 || g.CurrentRound != 1 || g.TotalRounds != 3 {
		t.Errorf("expected 3 members, round 1 of 3; got %d members, round %d of %d", g.MemberCount, g.CurrentRound, g.TotalRounds)
	}
	if g.NextPaymentDate != "2024-02-29" {
		t.Errorf("next payment: expected 2024-02-29, got %s", g.NextPaymentDate)
	}
}

func TestDeactivateGroup(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()
	ada := srv.as(t, "ada")
	created := createGroup(t, ada)

	resp, err := ada.groups.DeactivateGroup(ctx, connect.NewRequest(&pb.DeactivateGroupRequest{GroupId: created.Group.Id}))
	if err != nil {
		t.Fatalf("DeactivateGroup failed: %v", err)
	}
	if resp.Msg.Group.IsActive {
		t.Error("expected inactive group")
	}

	_, err = ada.cycles.StartCycle(ctx, connect.NewRequest(&pb.StartCycleRequest{GroupId: created.Group.Id}))
	assertCode(t, err, connect.CodeInvalidArgument)
}
