package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"

	pb "github.com/mmynk/kopa/pkg/api"
)

func TestFullCycle(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()
	ada := srv.as(t, "ada")
	bola := srv.as(t, "bola")
	created := createGroup(t, ada)
	groupID := created.Group.Id

	_, err := bola.cycles.StartCycle(ctx, connect.NewRequest(&pb.StartCycleRequest{GroupId: groupID}))
	assertCode(t, err, connect.CodePermissionDenied)

	started, err := ada.cycles.StartCycle(ctx, connect.NewRequest(&pb.StartCycleRequest{GroupId: groupID}))
	if err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}
	cycle := started.Msg.Cycle
	if cycle.Number != 1 || cycle.StartDate != "2024-01-31" || cycle.EndDate != "2024-02-29" {
		t.Errorf("unexpected first cycle: %+v", cycle)
	}
	if cycle.PayoutRecipientId != created.Members[0].Id {
		t.Errorf("expected the admin to be paid first")
	}

	_, err = ada.cycles.StartCycle(ctx, connect.NewRequest(&pb.StartCycleRequest{GroupId: groupID}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	// Bola records her own contribution but cannot record for Chidi.
	own, err := bola.ledger.RecordContribution(ctx, connect.NewRequest(&pb.RecordContributionRequest{
		CycleId: cycle.Id, MemberId: created.Members[1].Id, Amount: "50000",
	}))
	if err != nil {
		t.Fatalf("RecordContribution failed: %v", err)
	}
	if own.Msg.Transaction.Status != "pending" {
		t.Errorf("expected pending contribution, got %s", own.Msg.Transaction.Status)
	}
	_, err = bola.ledger.RecordContribution(ctx, connect.NewRequest(&pb.RecordContributionRequest{
		CycleId: cycle.Id, MemberId: created.Members[2].Id, Amount: "50000",
	}))
	assertCode(t, err, connect.CodePermissionDenied)

	_, err = bola.ledger.RecordContribution(ctx, connect.NewRequest(&pb.RecordContributionRequest{
		CycleId: cycle.Id, MemberId: created.Members[1].Id, Amount: "50000",
	}))
	assertCode(t, err, connect.CodeAlreadyExists)

	_, err = ada.ledger.RecordContribution(ctx, connect.NewRequest(&pb.RecordContributionRequest{
		CycleId: cycle.Id, MemberId: created.Members[2].Id, Amount: "40000",
	}))
	assertCode(t, err, connect.CodeInvalidArgument)

	// Only admins confirm payments.
	_, err = bola.ledger.MarkPaid(ctx, connect.NewRequest(&pb.MarkPaidRequest{TransactionId: own.Msg.Transaction.Id}))
	assertCode(t, err, connect.CodePermissionDenied)
	paid, err := ada.ledger.MarkPaid(ctx, connect.NewRequest(&pb.MarkPaidRequest{TransactionId: own.Msg.Transaction.Id}))
	if err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}
	if paid.Msg.Transaction.Status != "completed" || paid.Msg.Transaction.PaymentDate == "" {
		t.Errorf("expected completed transaction with payment date, got %+v", paid.Msg.Transaction)
	}

	members, err := bola.groups.ListMembers(ctx, connect.NewRequest(&pb.ListMembersRequest{GroupId: groupID}))
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	wantStatus := []string{"next", "paid", "pending"}
	for i, m := range members.Msg.Members {
		if m.Status != wantStatus[i] {
			t.Errorf("%s: expected %s, got %s", m.Member.Name, wantStatus[i], m.Status)
		}
	}

	_, err = ada.cycles.CompleteCycle(ctx, connect.NewRequest(&pb.CompleteCycleRequest{CycleId: cycle.Id}))
	assertCode(t, err, connect.CodeFailedPrecondition)
	_, err = ada.ledger.RecordPayout(ctx, connect.NewRequest(&pb.RecordPayoutRequest{CycleId: cycle.Id}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	for _, m := range []*pb.Member{created.Members[0], created.Members[2]} {
		if _, err := ada.ledger.MarkMemberPaid(ctx, connect.NewRequest(&pb.MarkMemberPaidRequest{CycleId: cycle.Id, MemberId: m.Id})); err != nil {
			t.Fatalf("MarkMemberPaid(%s) failed: %v", m.Name, err)
		}
	}

	collection, err := bola.ledger.GetCollection(ctx, connect.NewRequest(&pb.GetCollectionRequest{CycleId: cycle.Id}))
	if err != nil {
		t.Fatalf("GetCollection failed: %v", err)
	}
	if !collection.Msg.Collection.Complete || collection.Msg.Collection.Collected != "150000" {
		t.Errorf("expected complete collection of 150000, got %+v", collection.Msg.Collection)
	}

	payout, err := ada.ledger.RecordPayout(ctx, connect.NewRequest(&pb.RecordPayoutRequest{CycleId: cycle.Id}))
	if err != nil {
		t.Fatalf("RecordPayout failed: %v", err)
	}
	if payout.Msg.Transaction.Amount != "150000" || payout.Msg.Transaction.MemberId != cycle.PayoutRecipientId {
		t.Errorf("unexpected payout: %+v", payout.Msg.Transaction)
	}
	_, err = ada.ledger.RecordPayout(ctx, connect.NewRequest(&pb.RecordPayoutRequest{CycleId: cycle.Id}))
	assertCode(t, err, connect.CodeAlreadyExists)

	completed, err := ada.cycles.CompleteCycle(ctx, connect.NewRequest(&pb.CompleteCycleRequest{CycleId: cycle.Id}))
	if err != nil {
		t.Fatalf("CompleteCycle failed: %v", err)
	}
	if !completed.Msg.Cycle.IsCompleted {
		t.Error("expected completed cycle")
	}

	history, err := bola.ledger.ListTransactions(ctx, connect.NewRequest(&pb.ListTransactionsRequest{GroupId: groupID, Type: "payout"}))
	if err != nil {
		t.Fatalf("ListTransactions failed: %v", err)
	}
	if len(history.Msg.Transactions) != 1 {
		t.Errorf("payouts: expected 1, got %d", len(history.Msg.Transactions))
	}
	_, err = bola.ledger.ListTransactions(ctx, connect.NewRequest(&pb.ListTransactionsRequest{GroupId: groupID, Type: "refund"}))
	assertCode(t, err, connect.CodeInvalidArgument)

	cycles, err := bola.cycles.ListCycles(ctx, connect.NewRequest(&pb.ListCyclesRequest{GroupId: groupID}))
	if err != nil {
		t.Fatalf("ListCycles failed: %v", err)
	}
	if len(cycles.Msg.Cycles) != 1 {
		t.Errorf("cycles: expected 1, got %d", len(cycles.Msg.Cycles))
	}
}

func TestMarkFailed(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()
	ada := srv.as(t, "ada")
	created := createGroup(t, ada)

	started, err := ada.cycles.StartCycle(ctx, connect.NewRequest(&pb.StartCycleRequest{GroupId: created.Group.Id}))
	if err != nil {
		t.Fatalf("StartCycle failed: %v", err)
	}
	rec, err := ada.ledger.RecordContribution(ctx, connect.NewRequest(&pb.RecordContributionRequest{
		CycleId: started.Msg.Cycle.Id, MemberId: created.Members[2].Id, Amount: "50000",
	}))
	if err != nil {
		t.Fatalf("RecordContribution failed: %v", err)
	}

	failed, err := ada.ledger.MarkFailed(ctx, connect.NewRequest(&pb.MarkFailedRequest{
		TransactionId: rec.Msg.Transaction.Id, Note: "transfer reversed",
	}))
	if err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	if failed.Msg.Transaction.Status != "failed" || failed.Msg.Transaction.Note != "transfer reversed" {
		t.Errorf("unexpected transaction: %+v", failed.Msg.Transaction)
	}

	_, err = ada.ledger.MarkPaid(ctx, connect.NewRequest(&pb.MarkPaidRequest{TransactionId: rec.Msg.Transaction.Id}))
	assertCode(t, err, connect.CodeFailedPrecondition)

	_, err = ada.ledger.MarkPaid(ctx, connect.NewRequest(&pb.MarkPaidRequest{TransactionId: "missing"}))
	assertCode(t, err, connect.CodeNotFound)

	current, err := ada.cycles.GetCurrentCycle(ctx, connect.NewRequest(&pb.GetCurrentCycleRequest{GroupId: created.Group.Id}))
	if err != nil {
		t.Fatalf("GetCurrentCycle failed: %v", err)
	}
	if current.Msg.Collection.Collected != "0" || len(current.Msg.Collection.PendingMemberIds) != 0 {
		t.Errorf("expected failed contribution to be ignored, got %+v", current.Msg.Collection)
	}
}
