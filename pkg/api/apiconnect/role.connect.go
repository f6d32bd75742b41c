package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/pkg/api"
)

// RoleServiceName is the fully-qualified name of the RoleService.
const RoleServiceName = "kopa.v1.RoleService"

// Procedure paths of the RoleService.
const (
	RoleServiceResolveMyRoleProcedure = "/kopa.v1.RoleService/ResolveMyRole"
)

// RoleServiceClient is a client for the kopa.v1.RoleService service.
type RoleServiceClient interface {
	ResolveMyRole(context.Context, *connect.Request[api.ResolveMyRoleRequest]) (*connect.Response[api.ResolveMyRoleResponse], error)
}

// NewRoleServiceClient constructs a client for the kopa.v1.RoleService service.
func NewRoleServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) RoleServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &roleServiceClient{
		resolveMyRole: connect.NewClient[api.ResolveMyRoleRequest, api.ResolveMyRoleResponse](httpClient, baseURL+RoleServiceResolveMyRoleProcedure, opts...),
	}
}

type roleServiceClient struct {
	resolveMyRole *connect.Client[api.ResolveMyRoleRequest, api.ResolveMyRoleResponse]
}

func (c *roleServiceClient) ResolveMyRole(ctx context.Context, req *connect.Request[api.ResolveMyRoleRequest]) (*connect.Response[api.ResolveMyRoleResponse], error) {
	return c.resolveMyRole.CallUnary(ctx, req)
}

// RoleServiceHandler is implemented by the server side of kopa.v1.RoleService, which resolves the caller's role and permissions.
type RoleServiceHandler interface {
	ResolveMyRole(context.Context, *connect.Request[api.ResolveMyRoleRequest]) (*connect.Response[api.ResolveMyRoleResponse], error)
}

// NewRoleServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewRoleServiceHandler(svc RoleServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(RoleServiceResolveMyRoleProcedure, connect.NewUnaryHandler(RoleServiceResolveMyRoleProcedure, svc.ResolveMyRole, opts...))
	return "/" + RoleServiceName + "/", mux
}
