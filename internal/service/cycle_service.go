package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/internal/ledger"
	"github.com/mmynk/kopa/internal/registry"
	"github.com/mmynk/kopa/internal/rotation"
	"github.com/mmynk/kopa/internal/storage"
	pb "github.com/mmynk/kopa/pkg/api"
	"github.com/mmynk/kopa/pkg/api/apiconnect"
)

var _ apiconnect.CycleServiceHandler = (*CycleService)(nil)

// CycleService implements the Connect CycleService.
type CycleService struct {
	engine *rotation.Engine
	ledger *ledger.Ledger
	guard  *guard
}

// NewCycleService creates a CycleService.
func NewCycleService(store storage.Store, reg *registry.Registry, engine *rotation.Engine, l *ledger.Ledger) *CycleService {
	return &CycleService{
		engine: engine,
		ledger: l,
		guard:  &guard{store: store, registry: reg},
	}
}

// StartCycle opens the group's next cycle.
func (s *CycleService) StartCycle(ctx context.Context, req *connect.Request[pb.StartCycleRequest]) (*connect.Response[pb.StartCycleResponse], error) {
	slog.InfoContext(ctx, "StartCycle request received", "group_id", req.Msg.GroupId)

	if _, err := s.guard.require(ctx, req.Msg.GroupId, "StartCycle", canManageLedger); err != nil {
		return nil, toConnectError(ctx, "StartCycle", err)
	}

	cycle, err := s.engine.StartCycle(ctx, req.Msg.GroupId)
	if err != nil {
		return nil, toConnectError(ctx, "StartCycle", err)
	}
	return connect.NewResponse(&pb.StartCycleResponse{Cycle: toCycle(cycle)}), nil
}

// CompleteCycle closes a fully collected cycle.
func (s *CycleService) CompleteCycle(ctx context.Context, req *connect.Request[pb.CompleteCycleRequest]) (*connect.Response[pb.CompleteCycleResponse], error) {
	slog.InfoContext(ctx, "CompleteCycle request received", "cycle_id", req.Msg.CycleId)

	groupID, err := s.guard.groupOfCycle(ctx, req.Msg.CycleId)
	if err != nil {
		return nil, toConnectError(ctx, "CompleteCycle", err)
	}
	if _, err := s.guard.require(ctx, groupID, "CompleteCycle", canManageLedger); err != nil {
		return nil, toConnectError(ctx, "CompleteCycle", err)
	}

	cycle, err := s.engine.CompleteCycle(ctx, req.Msg.CycleId)
	if err != nil {
		return nil, toConnectError(ctx, "CompleteCycle", err)
	}
	return connect.NewResponse(&pb.CompleteCycleResponse{Cycle: toCycle(cycle)}), nil
}

// GetCurrentCycle returns the group's latest cycle with its collection.
func (s *CycleService) GetCurrentCycle(ctx context.Context, req *connect.Request[pb.GetCurrentCycleRequest]) (*connect.Response[pb.GetCurrentCycleResponse], error) {
	slog.InfoContext(ctx, "GetCurrentCycle request received", "group_id", req.Msg.GroupId)

	if _, err := s.guard.requireMember(ctx, req.Msg.GroupId); err != nil {
		return nil, toConnectError(ctx, "GetCurrentCycle", err)
	}

	cycle, err := s.engine.CurrentCycle(ctx, req.Msg.GroupId)
	if err != nil {
		return nil, toConnectError(ctx, "GetCurrentCycle", err)
	}
	collection, err := s.ledger.Collection(ctx, cycle.ID)
	if err != nil {
		return nil, toConnectError(ctx, "GetCurrentCycle", err)
	}

	return connect.NewResponse(&pb.GetCurrentCycleResponse{
		Cycle:      toCycle(cycle),
		Collection: toCollection(collection),
	}), nil
}

// ListCycles lists every cycle of the group in order.
func (s *CycleService) ListCycles(ctx context.Context, req *connect.Request[pb.ListCyclesRequest]) (*connect.Response[pb.ListCyclesResponse], error) {
	slog.InfoContext(ctx, "ListCycles request received", "group_id", req.Msg.GroupId)

	if _, err := s.guard.requireMember(ctx, req.Msg.GroupId); err != nil {
		return nil, toConnectError(ctx, "ListCycles", err)
	}

	cycles, err := s.engine.ListCycles(ctx, req.Msg.GroupId)
	if err != nil {
		return nil, toConnectError(ctx, "ListCycles", err)
	}

	out := make([]*pb.Cycle, len(cycles))
	for i, c := range cycles {
		out[i] = toCycle(c)
	}
	return connect.NewResponse(&pb.ListCyclesResponse{Cycles: out}), nil
}
