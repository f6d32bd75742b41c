package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/kopa/internal/errs"
	"github.com/mmynk/kopa/internal/middleware"
	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/registry"
	"github.com/mmynk/kopa/internal/roles"
	"github.com/mmynk/kopa/internal/rotation"
	"github.com/mmynk/kopa/internal/schedule"
	"github.com/mmynk/kopa/internal/storage"
	pb "github.com/mmynk/kopa/pkg/api"
	"github.com/mmynk/kopa/pkg/api/apiconnect"
)

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService.
type GroupService struct {
	registry *registry.Registry
	engine   *rotation.Engine
	guard    *guard
	now      func() time.Time
}

// NewGroupService creates a GroupService.
func NewGroupService(store storage.Store, reg *registry.Registry, engine *rotation.Engine) *GroupService {
	return &GroupService{
		registry: reg,
		engine:   engine,
		guard:    &guard{store: store, registry: reg},
		now:      time.Now,
	}
}

// CreateGroup opens a group with the caller as its admin.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[pb.CreateGroupRequest]) (*connect.Response[pb.CreateGroupResponse], error) {
	slog.InfoContext(ctx, "CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	_, rows, err := s.guard.memberships(ctx)
	if err != nil {
		return nil, toConnectError(ctx, "CreateGroup", err)
	}
	if !roles.Resolve(rows).Permissions.CanCreateGroups {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("not allowed to create groups"))
	}

	in, err := parseCreateGroup(req.Msg)
	if err != nil {
		return nil, toConnectError(ctx, "CreateGroup", err)
	}
	in.Admin.UserID = middleware.GetUserID(ctx)
	if in.Admin.Email == "" {
		in.Admin.Email = middleware.GetEmail(ctx)
	}

	group, members, err := s.registry.CreateGroup(ctx, in)
	if err != nil {
		return nil, toConnectError(ctx, "CreateGroup", err)
	}

	return connect.NewResponse(&pb.CreateGroupResponse{
		Group:   toGroup(group),
		Members: toMembers(members),
	}), nil
}

// GetGroup returns a group, its active members and its latest cycle.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[pb.GetGroupRequest]) (*connect.Response[pb.GetGroupResponse], error) {
	slog.InfoContext(ctx, "GetGroup request received", "group_id", req.Msg.GroupId)

	if _, err := s.guard.requireMember(ctx, req.Msg.GroupId); err != nil {
		return nil, toConnectError(ctx, "GetGroup", err)
	}

	group, err := s.registry.GetGroup(ctx, req.Msg.GroupId)
	if err != nil {
		return nil, toConnectError(ctx, "GetGroup", err)
	}
	members, err := s.registry.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(ctx, "GetGroup", err)
	}

	resp := &pb.GetGroupResponse{Group: toGroup(group), Members: toMembers(members)}
	cycle, err := s.engine.CurrentCycle(ctx, group.ID)
	switch {
	case err == nil:
		resp.CurrentCycle = toCycle(cycle)
	case errs.KindOf(err) != errs.KindNotFound:
		return nil, toConnectError(ctx, "GetGroup", err)
	}

	return connect.NewResponse(resp), nil
}

// ListMyGroups lists the caller's groups with rotation progress.
func (s *GroupService) ListMyGroups(ctx context.Context, req *connect.Request[pb.ListMyGroupsRequest]) (*connect.Response[pb.ListMyGroupsResponse], error) {
	_, rows, err := s.guard.memberships(ctx)
	if err != nil {
		return nil, toConnectError(ctx, "ListMyGroups", err)
	}
	slog.InfoContext(ctx, "ListMyGroups request received", "memberships", len(rows))

	now := s.now()
	summaries := make([]*pb.GroupSummary, 0, len(rows))
	for _, row := range rows {
		group, err := s.registry.GetGroup(ctx, row.GroupID)
		if err != nil {
			return nil, toConnectError(ctx, "ListMyGroups", err)
		}
		members, err := s.registry.ListMembers(ctx, group.ID)
		if err != nil {
			return nil, toConnectError(ctx, "ListMyGroups", err)
		}
		progress, err := s.engine.Progress(ctx, group, now)
		if err != nil {
			return nil, toConnectError(ctx, "ListMyGroups", err)
		}

		summaries = append(summaries, &pb.GroupSummary{
			Group:           toGroup(group),
			MyRole:          string(roles.ResolveForGroup(rows, group.ID).Role),
			MyMemberId:      row.ID,
			MemberCount:     int32(len(members)),
			CurrentRound:    int32(progress.CurrentRound),
			TotalRounds:     int32(progress.TotalRounds),
			NextPaymentDate: schedule.FormatDate(progress.NextPaymentDate),
		})
	}

	return connect.NewResponse(&pb.ListMyGroupsResponse{Groups: summaries}), nil
}

// ListMembers lists active members with their paid/pending/next status.
func (s *GroupService) ListMembers(ctx context.Context, req *connect.Request[pb.ListMembersRequest]) (*connect.Response[pb.ListMembersResponse], error) {
	slog.InfoContext(ctx, "ListMembers request received", "group_id", req.Msg.GroupId)

	if _, err := s.guard.requireMember(ctx, req.Msg.GroupId); err != nil {
		return nil, toConnectError(ctx, "ListMembers", err)
	}

	statuses, err := s.engine.MemberStatuses(ctx, req.Msg.GroupId)
	if err != nil {
		return nil, toConnectError(ctx, "ListMembers", err)
	}

	out := make([]*pb.MemberStatus, len(statuses))
	for i, st := range statuses {
		out[i] = toMemberStatus(st)
	}
	return connect.NewResponse(&pb.ListMembersResponse{Members: out}), nil
}

// AddMember appends a member to the group.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[pb.AddMemberRequest]) (*connect.Response[pb.AddMemberResponse], error) {
	slog.InfoContext(ctx, "AddMember request received", "group_id", req.Msg.GroupId)

	if _, err := s.guard.require(ctx, req.Msg.GroupId, "AddMember", canManageMembers); err != nil {
		return nil, toConnectError(ctx, "AddMember", err)
	}
	if req.Msg.Member == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errs.Validation("member is required"))
	}

	member, err := s.registry.AddMember(ctx, req.Msg.GroupId, fromMemberInput(req.Msg.Member))
	if err != nil {
		return nil, toConnectError(ctx, "AddMember", err)
	}
	return connect.NewResponse(&pb.AddMemberResponse{Member: toMember(member)}), nil
}

// RemoveMember soft-removes a member.
func (s *GroupService) RemoveMember(ctx context.Context, req *connect.Request[pb.RemoveMemberRequest]) (*connect.Response[pb.RemoveMemberResponse], error) {
	slog.InfoContext(ctx, "RemoveMember request received", "group_id", req.Msg.GroupId, "member_id", req.Msg.MemberId)

	if _, err := s.guard.require(ctx, req.Msg.GroupId, "RemoveMember", canManageMembers); err != nil {
		return nil, toConnectError(ctx, "RemoveMember", err)
	}

	member, err := s.registry.RemoveMember(ctx, req.Msg.GroupId, req.Msg.MemberId)
	if err != nil {
		return nil, toConnectError(ctx, "RemoveMember", err)
	}
	return connect.NewResponse(&pb.RemoveMemberResponse{Member: toMember(member)}), nil
}

// SetAdmin grants or revokes a member's admin flag.
func (s *GroupService) SetAdmin(ctx context.Context, req *connect.Request[pb.SetAdminRequest]) (*connect.Response[pb.SetAdminResponse], error) {
	slog.InfoContext(ctx, "SetAdmin request received",
		"group_id", req.Msg.GroupId,
		"member_id", req.Msg.MemberId,
		"is_admin", req.Msg.IsAdmin,
	)

	if _, err := s.guard.require(ctx, req.Msg.GroupId, "SetAdmin", canManageMembers); err != nil {
		return nil, toConnectError(ctx, "SetAdmin", err)
	}

	member, err := s.registry.SetAdmin(ctx, req.Msg.GroupId, req.Msg.MemberId, req.Msg.IsAdmin)
	if err != nil {
		return nil, toConnectError(ctx, "SetAdmin", err)
	}
	return connect.NewResponse(&pb.SetAdminResponse{Member: toMember(member)}), nil
}

// DeactivateGroup stops a group from starting new cycles.
func (s *GroupService) DeactivateGroup(ctx context.Context, req *connect.Request[pb.DeactivateGroupRequest]) (*connect.Response[pb.DeactivateGroupResponse], error) {
	slog.InfoContext(ctx, "DeactivateGroup request received", "group_id", req.Msg.GroupId)

	if _, err := s.guard.require(ctx, req.Msg.GroupId, "DeactivateGroup", canDeleteGroups); err != nil {
		return nil, toConnectError(ctx, "DeactivateGroup", err)
	}

	if err := s.registry.DeactivateGroup(ctx, req.Msg.GroupId); err != nil {
		return nil, toConnectError(ctx, "DeactivateGroup", err)
	}
	group, err := s.registry.GetGroup(ctx, req.Msg.GroupId)
	if err != nil {
		return nil, toConnectError(ctx, "DeactivateGroup", err)
	}
	return connect.NewResponse(&pb.DeactivateGroupResponse{Group: toGroup(group)}), nil
}

func parseCreateGroup(msg *pb.CreateGroupRequest) (registry.CreateGroupInput, error) {
	var in registry.CreateGroupInput

	amount, err := decimal.NewFromString(msg.ContributionAmount)
	if err != nil {
		return in, errs.Validation("invalid contribution amount %q", msg.ContributionAmount)
	}
	freq, err := models.ParseFrequency(msg.Frequency)
	if err != nil {
		return in, errs.Validation("%v", err)
	}
	start, err := schedule.ParseDate(msg.StartDate)
	if err != nil {
		return in, errs.Validation("invalid start date %q", msg.StartDate)
	}
	if msg.Admin == nil {
		return in, errs.Validation("admin member is required")
	}

	in = registry.CreateGroupInput{
		Name:               msg.Name,
		Description:        msg.Description,
		ContributionAmount: amount,
		Frequency:          freq,
		StartDate:          start,
		Admin:              fromMemberInput(msg.Admin),
	}
	for _, m := range msg.Members {
		in.Members = append(in.Members, fromMemberInput(m))
	}
	return in, nil
}
