package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/pkg/api"
)

// LedgerServiceName is the fully-qualified name of the LedgerService.
const LedgerServiceName = "kopa.v1.LedgerService"

// Procedure paths of the LedgerService.
const (
	LedgerServiceRecordContributionProcedure = "/kopa.v1.LedgerService/RecordContribution"
	LedgerServiceMarkPaidProcedure           = "/kopa.v1.LedgerService/MarkPaid"
	LedgerServiceMarkFailedProcedure         = "/kopa.v1.LedgerService/MarkFailed"
	LedgerServiceMarkMemberPaidProcedure     = "/kopa.v1.LedgerService/MarkMemberPaid"
	LedgerServiceRecordPayoutProcedure       = "/kopa.v1.LedgerService/RecordPayout"
	LedgerServiceGetCollectionProcedure      = "/kopa.v1.LedgerService/GetCollection"
	LedgerServiceListTransactionsProcedure   = "/kopa.v1.LedgerService/ListTransactions"
)

// LedgerServiceClient is a client for the kopa.v1.LedgerService service.
type LedgerServiceClient interface {
	RecordContribution(context.Context, *connect.Request[api.RecordContributionRequest]) (*connect.Response[api.RecordContributionResponse], error)
	MarkPaid(context.Context, *connect.Request[api.MarkPaidRequest]) (*connect.Response[api.MarkPaidResponse], error)
	MarkFailed(context.Context, *connect.Request[api.MarkFailedRequest]) (*connect.Response[api.MarkFailedResponse], error)
	MarkMemberPaid(context.Context, *connect.Request[api.MarkMemberPaidRequest]) (*connect.Response[api.MarkMemberPaidResponse], error)
	RecordPayout(context.Context, *connect.Request[api.RecordPayoutRequest]) (*connect.Response[api.RecordPayoutResponse], error)
	GetCollection(context.Context, *connect.Request[api.GetCollectionRequest]) (*connect.Response[api.GetCollectionResponse], error)
	ListTransactions(context.Context, *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error)
}

// NewLedgerServiceClient constructs a client for the kopa.v1.LedgerService service.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &ledgerServiceClient{
		recordContribution: connect.NewClient[api.RecordContributionRequest, api.RecordContributionResponse](httpClient, baseURL+LedgerServiceRecordContributionProcedure, opts...),
		markPaid:           connect.NewClient[api.MarkPaidRequest, api.MarkPaidResponse](httpClient, baseURL+LedgerServiceMarkPaidProcedure, opts...),
		markFailed:         connect.NewClient[api.MarkFailedRequest, api.MarkFailedResponse](httpClient, baseURL+LedgerServiceMarkFailedProcedure, opts...),
		markMemberPaid:     connect.NewClient[api.MarkMemberPaidRequest, api.MarkMemberPaidResponse](httpClient, baseURL+LedgerServiceMarkMemberPaidProcedure, opts...),
		recordPayout:       connect.NewClient[api.RecordPayoutRequest, api.RecordPayoutResponse](httpClient, baseURL+LedgerServiceRecordPayoutProcedure, opts...),
		getCollection:      connect.NewClient[api.GetCollectionRequest, api.GetCollectionResponse](httpClient, baseURL+LedgerServiceGetCollectionProcedure, opts...),
		listTransactions:   connect.NewClient[api.ListTransactionsRequest, api.ListTransactionsResponse](httpClient, baseURL+LedgerServiceListTransactionsProcedure, opts...),
	}
}

type ledgerServiceClient struct {
	recordContribution *connect.Client[api.RecordContributionRequest, api.RecordContributionResponse]
	markPaid           *connect.Client[api.MarkPaidRequest, api.MarkPaidResponse]
	markFailed         *connect.Client[api.MarkFailedRequest, api.MarkFailedResponse]
	markMemberPaid     *connect.Client[api.MarkMemberPaidRequest, api.MarkMemberPaidResponse]
	recordPayout       *connect.Client[api.RecordPayoutRequest, api.RecordPayoutResponse]
	getCollection      *connect.Client[api.GetCollectionRequest, api.GetCollectionResponse]
	listTransactions   *connect.Client[api.ListTransactionsRequest, api.ListTransactionsResponse]
}

func (c *ledgerServiceClient) RecordContribution(ctx context.Context, req *connect.Request[api.RecordContributionRequest]) (*connect.Response[api.RecordContributionResponse], error) {
	return c.recordContribution.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) MarkPaid(ctx context.Context, req *connect.Request[api.MarkPaidRequest]) (*connect.Response[api.MarkPaidResponse], error) {
	return c.markPaid.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) MarkFailed(ctx context.Context, req *connect.Request[api.MarkFailedRequest]) (*connect.Response[api.MarkFailedResponse], error) {
	return c.markFailed.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) MarkMemberPaid(ctx context.Context, req *connect.Request[api.MarkMemberPaidRequest]) (*connect.Response[api.MarkMemberPaidResponse], error) {
	return c.markMemberPaid.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) RecordPayout(ctx context.Context, req *connect.Request[api.RecordPayoutRequest]) (*connect.Response[api.RecordPayoutResponse], error) {
	return c.recordPayout.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetCollection(ctx context.Context, req *connect.Request[api.GetCollectionRequest]) (*connect.Response[api.GetCollectionResponse], error) {
	return c.getCollection.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListTransactions(ctx context.Context, req *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error) {
	return c.listTransactions.CallUnary(ctx, req)
}

// LedgerServiceHandler is implemented by the server side of kopa.v1.LedgerService, which records contributions and payouts.
type LedgerServiceHandler interface {
	RecordContribution(context.Context, *connect.Request[api.RecordContributionRequest]) (*connect.Response[api.RecordContributionResponse], error)
	MarkPaid(context.Context, *connect.Request[api.MarkPaidRequest]) (*connect.Response[api.MarkPaidResponse], error)
	MarkFailed(context.Context, *connect.Request[api.MarkFailedRequest]) (*connect.Response[api.MarkFailedResponse], error)
	MarkMemberPaid(context.Context, *connect.Request[api.MarkMemberPaidRequest]) (*connect.Response[api.MarkMemberPaidResponse], error)
	RecordPayout(context.Context, *connect.Request[api.RecordPayoutRequest]) (*connect.Response[api.RecordPayoutResponse], error)
	GetCollection(context.Context, *connect.Request[api.GetCollectionRequest]) (*connect.Response[api.GetCollectionResponse], error)
	ListTransactions(context.Context, *connect.Request[api.ListTransactionsRequest]) (*connect.Response[api.ListTransactionsResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(LedgerServiceRecordContributionProcedure, connect.NewUnaryHandler(LedgerServiceRecordContributionProcedure, svc.RecordContribution, opts...))
	mux.Handle(LedgerServiceMarkPaidProcedure, connect.NewUnaryHandler(LedgerServiceMarkPaidProcedure, svc.MarkPaid, opts...))
	mux.Handle(LedgerServiceMarkFailedProcedure, connect.NewUnaryHandler(LedgerServiceMarkFailedProcedure, svc.MarkFailed, opts...))
	mux.Handle(LedgerServiceMarkMemberPaidProcedure, connect.NewUnaryHandler(LedgerServiceMarkMemberPaidProcedure, svc.MarkMemberPaid, opts...))
	mux.Handle(LedgerServiceRecordPayoutProcedure, connect.NewUnaryHandler(LedgerServiceRecordPayoutProcedure, svc.RecordPayout, opts...))
	mux.Handle(LedgerServiceGetCollectionProcedure, connect.NewUnaryHandler(LedgerServiceGetCollectionProcedure, svc.GetCollection, opts...))
	mux.Handle(LedgerServiceListTransactionsProcedure, connect.NewUnaryHandler(LedgerServiceListTransactionsProcedure, svc.ListTransactions, opts...))
	return "/" + LedgerServiceName + "/", mux
}
