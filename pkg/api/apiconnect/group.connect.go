package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/pkg/api"
)

// GroupServiceName is the fully-qualified name of the GroupService.
const GroupServiceName = "kopa.v1.GroupService"

// Procedure paths of the GroupService.
const (
	GroupServiceCreateGroupProcedure     = "/kopa.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure        = "/kopa.v1.GroupService/GetGroup"
	GroupServiceListMyGroupsProcedure    = "/kopa.v1.GroupService/ListMyGroups"
	GroupServiceListMembersProcedure     = "/kopa.v1.GroupService/ListMembers"
	GroupServiceAddMemberProcedure       = "/kopa.v1.GroupService/AddMember"
	GroupServiceRemoveMemberProcedure    = "/kopa.v1.GroupService/RemoveMember"
	GroupServiceSetAdminProcedure        = "/kopa.v1.GroupService/SetAdmin"
	GroupServiceDeactivateGroupProcedure = "/kopa.v1.GroupService/DeactivateGroup"
)

// GroupServiceClient is a client for the kopa.v1.GroupService service.
type GroupServiceClient interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	ListMyGroups(context.Context, *connect.Request[api.ListMyGroupsRequest]) (*connect.Response[api.ListMyGroupsResponse], error)
	ListMembers(context.Context, *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error)
	AddMember(context.Context, *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error)
	RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error)
	SetAdmin(context.Context, *connect.Request[api.SetAdminRequest]) (*connect.Response[api.SetAdminResponse], error)
	DeactivateGroup(context.Context, *connect.Request[api.DeactivateGroupRequest]) (*connect.Response[api.DeactivateGroupResponse], error)
}

// NewGroupServiceClient constructs a client for the kopa.v1.GroupService service.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &groupServiceClient{
		createGroup:     connect.NewClient[api.CreateGroupRequest, api.CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:        connect.NewClient[api.GetGroupRequest, api.GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listMyGroups:    connect.NewClient[api.ListMyGroupsRequest, api.ListMyGroupsResponse](httpClient, baseURL+GroupServiceListMyGroupsProcedure, opts...),
		listMembers:     connect.NewClient[api.ListMembersRequest, api.ListMembersResponse](httpClient, baseURL+GroupServiceListMembersProcedure, opts...),
		addMember:       connect.NewClient[api.AddMemberRequest, api.AddMemberResponse](httpClient, baseURL+GroupServiceAddMemberProcedure, opts...),
		removeMember:    connect.NewClient[api.RemoveMemberRequest, api.RemoveMemberResponse](httpClient, baseURL+GroupServiceRemoveMemberProcedure, opts...),
		setAdmin:        connect.NewClient[api.SetAdminRequest, api.SetAdminResponse](httpClient, baseURL+GroupServiceSetAdminProcedure, opts...),
		deactivateGroup: connect.NewClient[api.DeactivateGroupRequest, api.DeactivateGroupResponse](httpClient, baseURL+GroupServiceDeactivateGroupProcedure, opts...),
	}
}

type groupServiceClient struct {
	createGroup     *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	getGroup        *connect.Client[api.GetGroupRequest, api.GetGroupResponse]
	listMyGroups    *connect.Client[api.ListMyGroupsRequest, api.ListMyGroupsResponse]
	listMembers     *connect.Client[api.ListMembersRequest, api.ListMembersResponse]
	addMember       *connect.Client[api.AddMemberRequest, api.AddMemberResponse]
	removeMember    *connect.Client[api.RemoveMemberRequest, api.RemoveMemberResponse]
	setAdmin        *connect.Client[api.SetAdminRequest, api.SetAdminResponse]
	deactivateGroup *connect.Client[api.DeactivateGroupRequest, api.DeactivateGroupResponse]
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListMyGroups(ctx context.Context, req *connect.Request[api.ListMyGroupsRequest]) (*connect.Response[api.ListMyGroupsResponse], error) {
	return c.listMyGroups.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	return c.listMembers.CallUnary(ctx, req)
}

func (c *groupServiceClient) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *groupServiceClient) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *groupServiceClient) SetAdmin(ctx context.Context, req *connect.Request[api.SetAdminRequest]) (*connect.Response[api.SetAdminResponse], error) {
	return c.setAdmin.CallUnary(ctx, req)
}

func (c *groupServiceClient) DeactivateGroup(ctx context.Context, req *connect.Request[api.DeactivateGroupRequest]) (*connect.Response[api.DeactivateGroupResponse], error) {
	return c.deactivateGroup.CallUnary(ctx, req)
}

// GroupServiceHandler is implemented by the server side of kopa.v1.GroupService, which manages groups and their members.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	ListMyGroups(context.Context, *connect.Request[api.ListMyGroupsRequest]) (*connect.Response[api.ListMyGroupsResponse], error)
	ListMembers(context.Context, *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error)
	AddMember(context.Context, *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error)
	RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error)
	SetAdmin(context.Context, *connect.Request[api.SetAdminRequest]) (*connect.Response[api.SetAdminResponse], error)
	DeactivateGroup(context.Context, *connect.Request[api.DeactivateGroupRequest]) (*connect.Response[api.DeactivateGroupResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceListMyGroupsProcedure, connect.NewUnaryHandler(GroupServiceListMyGroupsProcedure, svc.ListMyGroups, opts...))
	mux.Handle(GroupServiceListMembersProcedure, connect.NewUnaryHandler(GroupServiceListMembersProcedure, svc.ListMembers, opts...))
	mux.Handle(GroupServiceAddMemberProcedure, connect.NewUnaryHandler(GroupServiceAddMemberProcedure, svc.AddMember, opts...))
	mux.Handle(GroupServiceRemoveMemberProcedure, connect.NewUnaryHandler(GroupServiceRemoveMemberProcedure, svc.RemoveMember, opts...))
	mux.Handle(GroupServiceSetAdminProcedure, connect.NewUnaryHandler(GroupServiceSetAdminProcedure, svc.SetAdmin, opts...))
	mux.Handle(GroupServiceDeactivateGroupProcedure, connect.NewUnaryHandler(GroupServiceDeactivateGroupProcedure, svc.DeactivateGroup, opts...))
	return "/" + GroupServiceName + "/", mux
}
