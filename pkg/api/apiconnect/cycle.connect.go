package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/pkg/api"
)

// CycleServiceName is the fully-qualified name of the CycleService.
const CycleServiceName = "kopa.v1.CycleService"

// Procedure paths of the CycleService.
const (
	CycleServiceStartCycleProcedure      = "/kopa.v1.CycleService/StartCycle"
	CycleServiceCompleteCycleProcedure   = "/kopa.v1.CycleService/CompleteCycle"
	CycleServiceGetCurrentCycleProcedure = "/kopa.v1.CycleService/GetCurrentCycle"
	CycleServiceListCyclesProcedure      = "/kopa.v1.CycleService/ListCycles"
)

// CycleServiceClient is a client for the kopa.v1.CycleService service.
type CycleServiceClient interface {
	StartCycle(context.Context, *connect.Request[api.StartCycleRequest]) (*connect.Response[api.StartCycleResponse], error)
	CompleteCycle(context.Context, *connect.Request[api.CompleteCycleRequest]) (*connect.Response[api.CompleteCycleResponse], error)
	GetCurrentCycle(context.Context, *connect.Request[api.GetCurrentCycleRequest]) (*connect.Response[api.GetCurrentCycleResponse], error)
	ListCycles(context.Context, *connect.Request[api.ListCyclesRequest]) (*connect.Response[api.ListCyclesResponse], error)
}

// NewCycleServiceClient constructs a client for the kopa.v1.CycleService service.
func NewCycleServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) CycleServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &cycleServiceClient{
		startCycle:      connect.NewClient[api.StartCycleRequest, api.StartCycleResponse](httpClient, baseURL+CycleServiceStartCycleProcedure, opts...),
		completeCycle:   connect.NewClient[api.CompleteCycleRequest, api.CompleteCycleResponse](httpClient, baseURL+CycleServiceCompleteCycleProcedure, opts...),
		getCurrentCycle: connect.NewClient[api.GetCurrentCycleRequest, api.GetCurrentCycleResponse](httpClient, baseURL+CycleServiceGetCurrentCycleProcedure, opts...),
		listCycles:      connect.NewClient[api.ListCyclesRequest, api.ListCyclesResponse](httpClient, baseURL+CycleServiceListCyclesProcedure, opts...),
	}
}

type cycleServiceClient struct {
	startCycle      *connect.Client[api.StartCycleRequest, api.StartCycleResponse]
	completeCycle   *connect.Client[api.CompleteCycleRequest, api.CompleteCycleResponse]
	getCurrentCycle *connect.Client[api.GetCurrentCycleRequest, api.GetCurrentCycleResponse]
	listCycles      *connect.Client[api.ListCyclesRequest, api.ListCyclesResponse]
}

func (c *cycleServiceClient) StartCycle(ctx context.Context, req *connect.Request[api.StartCycleRequest]) (*connect.Response[api.StartCycleResponse], error) {
	return c.startCycle.CallUnary(ctx, req)
}

func (c *cycleServiceClient) CompleteCycle(ctx context.Context, req *connect.Request[api.CompleteCycleRequest]) (*connect.Response[api.CompleteCycleResponse], error) {
	return c.completeCycle.CallUnary(ctx, req)
}

func (c *cycleServiceClient) GetCurrentCycle(ctx context.Context, req *connect.Request[api.GetCurrentCycleRequest]) (*connect.Response[api.GetCurrentCycleResponse], error) {
	return c.getCurrentCycle.CallUnary(ctx, req)
}

func (c *cycleServiceClient) ListCycles(ctx context.Context, req *connect.Request[api.ListCyclesRequest]) (*connect.Response[api.ListCyclesResponse], error) {
	return c.listCycles.CallUnary(ctx, req)
}

// CycleServiceHandler is implemented by the server side of kopa.v1.CycleService, which advances groups through payout cycles.
type CycleServiceHandler interface {
	StartCycle(context.Context, *connect.Request[api.StartCycleRequest]) (*connect.Response[api.StartCycleResponse], error)
	CompleteCycle(context.Context, *connect.Request[api.CompleteCycleRequest]) (*connect.Response[api.CompleteCycleResponse], error)
	GetCurrentCycle(context.Context, *connect.Request[api.GetCurrentCycleRequest]) (*connect.Response[api.GetCurrentCycleResponse], error)
	ListCycles(context.Context, *connect.Request[api.ListCyclesRequest]) (*connect.Response[api.ListCyclesResponse], error)
}

// NewCycleServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewCycleServiceHandler(svc CycleServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(CycleServiceStartCycleProcedure, connect.NewUnaryHandler(CycleServiceStartCycleProcedure, svc.StartCycle, opts...))
	mux.Handle(CycleServiceCompleteCycleProcedure, connect.NewUnaryHandler(CycleServiceCompleteCycleProcedure, svc.CompleteCycle, opts...))
	mux.Handle(CycleServiceGetCurrentCycleProcedure, connect.NewUnaryHandler(CycleServiceGetCurrentCycleProcedure, svc.GetCurrentCycle, opts...))
	mux.Handle(CycleServiceListCyclesProcedure, connect.NewUnaryHandler(CycleServiceListCyclesProcedure, svc.ListCycles, opts...))
	return "/" + CycleServiceName + "/", mux
}
