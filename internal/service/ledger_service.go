package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/kopa/internal/errs"
	"github.com/mmynk/kopa/internal/ledger"
	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/registry"
	"github.com/mmynk/kopa/internal/storage"
	pb "github.com/mmynk/kopa/pkg/api"
	"github.com/mmynk/kopa/pkg/api/apiconnect"
)

var _ apiconnect.LedgerServiceHandler = (*LedgerService)(nil)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	ledger *ledger.Ledger
	guard  *guard
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(store storage.Store, reg *registry.Registry, l *ledger.Ledger) *LedgerService {
	return &LedgerService{
		ledger: l,
		guard:  &guard{store: store, registry: reg},
	}
}

// RecordContribution records a pending contribution. Members record their
// own; admins may record for anyone.
func (s *LedgerService) RecordContribution(ctx context.Context, req *connect.Request[pb.RecordContributionRequest]) (*connect.Response[pb.RecordContributionResponse], error) {
	slog.InfoContext(ctx, "RecordContribution request received",
		"cycle_id", req.Msg.CycleId,
		"member_id", req.Msg.MemberId,
		"amount", req.Msg.Amount,
	)

	groupID, err := s.guard.groupOfCycle(ctx, req.Msg.CycleId)
	if err != nil {
		return nil, toConnectError(ctx, "RecordContribution", err)
	}
	c, err := s.guard.requireMember(ctx, groupID)
	if err != nil {
		return nil, toConnectError(ctx, "RecordContribution", err)
	}
	if c.Member.ID != req.Msg.MemberId && !c.Resolution.Permissions.CanManageLedger {
		return nil, connect.NewError(connect.CodePermissionDenied, errors.New("members can only record their own contribution"))
	}

	amount, err := decimal.NewFromString(req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(ctx, "RecordContribution", errs.Validation("invalid amount %q", req.Msg.Amount))
	}

	txn, err := s.ledger.RecordContribution(ctx, req.Msg.CycleId, req.Msg.MemberId, amount)
	if err != nil {
		return nil, toConnectError(ctx, "RecordContribution", err)
	}
	return connect.NewResponse(&pb.RecordContributionResponse{Transaction: toTransaction(txn)}), nil
}

// MarkPaid confirms a pending transaction.
func (s *LedgerService) MarkPaid(ctx context.Context, req *connect.Request[pb.MarkPaidRequest]) (*connect.Response[pb.MarkPaidResponse], error) {
	slog.InfoContext(ctx, "MarkPaid request received", "transaction_id", req.Msg.TransactionId)

	if err := s.requireTransactionAdmin(ctx, req.Msg.TransactionId, "MarkPaid"); err != nil {
		return nil, toConnectError(ctx, "MarkPaid", err)
	}

	txn, err := s.ledger.MarkPaid(ctx, req.Msg.TransactionId)
	if err != nil {
		return nil, toConnectError(ctx, "MarkPaid", err)
	}
	return connect.NewResponse(&pb.MarkPaidResponse{Transaction: toTransaction(txn)}), nil
}

// MarkFailed rejects a pending transaction.
func (s *LedgerService) MarkFailed(ctx context.Context, req *connect.Request[pb.MarkFailedRequest]) (*connect.Response[pb.MarkFailedResponse], error) {
	slog.InfoContext(ctx, "MarkFailed request received", "transaction_id", req.Msg.TransactionId)

	if err := s.requireTransactionAdmin(ctx, req.Msg.TransactionId, "MarkFailed"); err != nil {
		return nil, toConnectError(ctx, "MarkFailed", err)
	}

	txn, err := s.ledger.MarkFailed(ctx, req.Msg.TransactionId, req.Msg.Note)
	if err != nil {
		return nil, toConnectError(ctx, "MarkFailed", err)
	}
	return connect.NewResponse(&pb.MarkFailedResponse{Transaction: toTransaction(txn)}), nil
}

// MarkMemberPaid records and confirms a member's contribution in one step.
func (s *LedgerService) MarkMemberPaid(ctx context.Context, req *connect.Request[pb.MarkMemberPaidRequest]) (*connect.Response[pb.MarkMemberPaidResponse], error) {
	slog.InfoContext(ctx, "MarkMemberPaid request received", "cycle_id", req.Msg.CycleId, "member_id", req.Msg.MemberId)

	if err := s.requireCycleAdmin(ctx, req.Msg.CycleId, "MarkMemberPaid"); err != nil {
		return nil, toConnectError(ctx, "MarkMemberPaid", err)
	}

	txn, err := s.ledger.MarkMemberPaid(ctx, req.Msg.CycleId, req.Msg.MemberId)
	if err != nil {
		return nil, toConnectError(ctx, "MarkMemberPaid", err)
	}
	return connect.NewResponse(&pb.MarkMemberPaidResponse{Transaction: toTransaction(txn)}), nil
}

// RecordPayout records the payout of a fully collected cycle.
func (s *LedgerService) RecordPayout(ctx context.Context, req *connect.Request[pb.RecordPayoutRequest]) (*connect.Response[pb.RecordPayoutResponse], error) {
	slog.InfoContext(ctx, "RecordPayout request received", "cycle_id", req.Msg.CycleId)

	if err := s.requireCycleAdmin(ctx, req.Msg.CycleId, "RecordPayout"); err != nil {
		return nil, toConnectError(ctx, "RecordPayout", err)
	}

	txn, err := s.ledger.RecordPayout(ctx, req.Msg.CycleId)
	if err != nil {
		return nil, toConnectError(ctx, "RecordPayout", err)
	}
	return connect.NewResponse(&pb.RecordPayoutResponse{Transaction: toTransaction(txn)}), nil
}

// GetCollection reports how much of a cycle has been collected.
func (s *LedgerService) GetCollection(ctx context.Context, req *connect.Request[pb.GetCollectionRequest]) (*connect.Response[pb.GetCollectionResponse], error) {
	slog.InfoContext(ctx, "GetCollection request received", "cycle_id", req.Msg.CycleId)

	groupID, err := s.guard.groupOfCycle(ctx, req.Msg.CycleId)
	if err != nil {
		return nil, toConnectError(ctx, "GetCollection", err)
	}
	if _, err := s.guard.requireMember(ctx, groupID); err != nil {
		return nil, toConnectError(ctx, "GetCollection", err)
	}

	collection, err := s.ledger.Collection(ctx, req.Msg.CycleId)
	if err != nil {
		return nil, toConnectError(ctx, "GetCollection", err)
	}
	return connect.NewResponse(&pb.GetCollectionResponse{Collection: toCollection(collection)}), nil
}

// ListTransactions returns a group's history, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, req *connect.Request[pb.ListTransactionsRequest]) (*connect.Response[pb.ListTransactionsResponse], error) {
	slog.InfoContext(ctx, "ListTransactions request received",
		"group_id", req.Msg.GroupId,
		"member_id", req.Msg.MemberId,
		"type", req.Msg.Type,
	)

	if _, err := s.guard.requireMember(ctx, req.Msg.GroupId); err != nil {
		return nil, toConnectError(ctx, "ListTransactions", err)
	}

	txnType, err := models.ParseTransactionType(req.Msg.Type)
	if err != nil {
		return nil, toConnectError(ctx, "ListTransactions", errs.Validation("%v", err))
	}

	txns, err := s.ledger.History(ctx, storage.TransactionFilter{
		GroupID:  req.Msg.GroupId,
		MemberID: req.Msg.MemberId,
		Type:     txnType,
	})
	if err != nil {
		return nil, toConnectError(ctx, "ListTransactions", err)
	}
	return connect.NewResponse(&pb.ListTransactionsResponse{Transactions: toTransactions(txns)}), nil
}

func (s *LedgerService) requireCycleAdmin(ctx context.Context, cycleID, action string) error {
	groupID, err := s.guard.groupOfCycle(ctx, cycleID)
	if err != nil {
		return err
	}
	_, err = s.guard.require(ctx, groupID, action, canManageLedger)
	return err
}

func (s *LedgerService) requireTransactionAdmin(ctx context.Context, txnID, action string) error {
	groupID, err := s.guard.groupOfTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	_, err = s.guard.require(ctx, groupID, action, canManageLedger)
	return err
}
