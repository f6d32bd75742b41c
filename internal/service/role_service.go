package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/internal/registry"
	"github.com/mmynk/kopa/internal/roles"
	"github.com/mmynk/kopa/internal/storage"
	pb "github.com/mmynk/kopa/pkg/api"
	"github.com/mmynk/kopa/pkg/api/apiconnect"
)

var _ apiconnect.RoleServiceHandler = (*RoleService)(nil)

// RoleService implements the Connect RoleService.
type RoleService struct {
	guard *guard
}

// NewRoleService creates a RoleService.
func NewRoleService(store storage.Store, reg *registry.Registry) *RoleService {
	return &RoleService{guard: &guard{store: store, registry: reg}}
}

// ResolveMyRole resolves the caller's role across all memberships and,
// when a group is given, within that group.
func (s *RoleService) ResolveMyRole(ctx context.Context, req *connect.Request[pb.ResolveMyRoleRequest]) (*connect.Response[pb.ResolveMyRoleResponse], error) {
	userID, rows, err := s.guard.memberships(ctx)
	if err != nil {
		return nil, toConnectError(ctx, "ResolveMyRole", err)
	}
	slog.InfoContext(ctx, "ResolveMyRole request received", "user_id", userID, "group_id", req.Msg.GroupId)

	resp := &pb.ResolveMyRoleResponse{Global: toRoleResolution(roles.Resolve(rows))}
	if req.Msg.GroupId != "" {
		c, err := s.guard.requireMember(ctx, req.Msg.GroupId)
		if err != nil {
			return nil, toConnectError(ctx, "ResolveMyRole", err)
		}
		resp.Group = toRoleResolution(c.Resolution)
	}
	return connect.NewResponse(resp), nil
}
