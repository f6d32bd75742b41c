// Package ledger records contributions and payouts per cycle.
//
// The ledger is append-only: a transaction is created pending and can only
// move to completed or failed. A failed transaction is never reopened; the
// member records a new one instead.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/kopa/internal/errs"
	"github.com/mmynk/kopa/internal/events"
	"github.com/mmynk/kopa/internal/lock"
	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/storage"
)

// Ledger is the contribution ledger.
type Ledger struct {
	store     storage.Store
	locks     *lock.Keyed
	publisher events.Publisher
	now       func() time.Time
}

// New creates a Ledger. locks is shared with the cycle engine: payout
// operations serialize with cycle advances of the same group.
func New(store storage.Store, locks *lock.Keyed, publisher events.Publisher) *Ledger {
	return &Ledger{store: store, locks: locks, publisher: publisher, now: time.Now}
}

// RecordContribution appends a pending contribution for member in cycle.
// Contributions of different members may be recorded concurrently; the
// at-most-one rule per (cycle, member) is enforced inside the write
// transaction and backed by a unique index.
func (l *Ledger) RecordContribution(ctx context.Context, cycleID, memberID string, amount decimal.Decimal) (*models.Transaction, error) {
	var txn *models.Transaction
	err := l.store.InTx(ctx, func(q storage.Queries) error {
		var err error
		txn, err = l.recordContribution(ctx, q, cycleID, memberID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Contribution recorded",
		"transaction_id", txn.ID,
		"cycle_id", cycleID,
		"member_id", memberID,
		"amount", txn.Amount.String(),
	)
	events.PublishAll(ctx, l.publisher, transactionEvent(events.ContributionRecorded, txn))
	return txn, nil
}

// MarkPaid moves a pending transaction to completed. Calling it on a
// completed transaction is a no-op; on a failed one it is a state conflict.
// A payout completes only once its cycle is fully collected.
func (l *Ledger) MarkPaid(ctx context.Context, txnID string) (*models.Transaction, error) {
	txn, err := l.store.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, notFound(err, "transaction", txnID)
	}
	if txn.Type == models.TransactionPayout {
		unlock := l.locks.Lock(txn.GroupID)
		defer unlock()
	}

	var changed bool
	err = l.store.InTx(ctx, func(q storage.Queries) error {
		var err error
		txn, changed, err = l.markPaid(ctx, q, txnID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		slog.InfoContext(ctx, "Transaction completed", "transaction_id", txn.ID, "type", txn.Type, "cycle_id", txn.CycleID)
		events.PublishAll(ctx, l.publisher, transactionEvent(events.TransactionCompleted, txn))
	}
	return txn, nil
}

// MarkFailed moves a pending transaction to failed with an optional note.
// Calling it on a failed transaction is a no-op; on a completed one it is a
// state conflict.
func (l *Ledger) MarkFailed(ctx context.Context, txnID, note string) (*models.Transaction, error) {
	var txn *models.Transaction
	var changed bool
	err := l.store.InTx(ctx, func(q storage.Queries) error {
		var err error
		txn, err = q.GetTransaction(ctx, txnID)
		if err != nil {
			return notFound(err, "transaction", txnID)
		}

		switch txn.Status {
		case models.StatusFailed:
			return nil
		case models.StatusCompleted:
			return errs.ErrInvalidTransition.WithDetail("transaction %s is completed", txnID)
		}

		note = strings.TrimSpace(note)
		if err := q.SettleTransaction(ctx, txnID, models.StatusFailed, nil, note); err != nil {
			return conflictAs(err, errs.ErrInvalidTransition.WithDetail("transaction %s is not pending", txnID))
		}
		txn.Status = models.StatusFailed
		txn.Note = note
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		slog.InfoContext(ctx, "Transaction failed", "transaction_id", txn.ID, "type", txn.Type, "note", txn.Note)
		events.PublishAll(ctx, l.publisher, transactionEvent(events.TransactionFailed, txn))
	}
	return txn, nil
}

// MarkMemberPaid records and completes a member's contribution in one step.
// An existing pending contribution is completed instead of creating a new
// one; an existing completed contribution is returned unchanged.
func (l *Ledger) MarkMemberPaid(ctx context.Context, cycleID, memberID string) (*models.Transaction, error) {
	var txn *models.Transaction
	var recorded, changed bool
	err := l.store.InTx(ctx, func(q storage.Queries) error {
		existing, err := activeContribution(ctx, q, cycleID, memberID)
		if err != nil {
			return err
		}

		if existing == nil {
			cycle, err := q.GetCycle(ctx, cycleID)
			if err != nil {
				return notFound(err, "cycle", cycleID)
			}
			group, err := q.GetGroup(ctx, cycle.GroupID)
			if err != nil {
				return notFound(err, "group", cycle.GroupID)
			}
			existing, err = l.recordContribution(ctx, q, cycleID, memberID, group.ContributionAmount)
			if err != nil {
				return err
			}
			recorded = true
		}

		txn, changed, err = l.markPaid(ctx, q, existing.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Member marked paid",
		"transaction_id", txn.ID,
		"cycle_id", cycleID,
		"member_id", memberID,
		"recorded", recorded,
	)
	var evs []events.Event
	if recorded {
		evs = append(evs, transactionEvent(events.ContributionRecorded, txn))
	}
	if changed {
		evs = append(evs, transactionEvent(events.TransactionCompleted, txn))
	}
	events.PublishAll(ctx, l.publisher, evs...)
	return txn, nil
}

// RecordPayout creates the pending payout of a fully collected cycle to its
// scheduled recipient, for contributor_count × contribution_amount.
func (l *Ledger) RecordPayout(ctx context.Context, cycleID string) (*models.Transaction, error) {
	cycle, err := l.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, notFound(err, "cycle", cycleID)
	}

	unlock := l.locks.Lock(cycle.GroupID)
	defer unlock()

	var txn *models.Transaction
	err = l.store.InTx(ctx, func(q storage.Queries) error {
		group, err := q.GetGroup(ctx, cycle.GroupID)
		if err != nil {
			return notFound(err, "group", cycle.GroupID)
		}
		txns, err := q.ListTransactionsByCycle(ctx, cycleID)
		if err != nil {
			return err
		}

		for _, t := range txns {
			if t.Type == models.TransactionPayout && t.Status != models.StatusFailed {
				return errs.ErrDuplicatePayout.WithDetail("transaction %s", t.ID)
			}
		}

		collection := Summarize(group, cycle, txns)
		if !collection.Complete() {
			return errs.ErrIncompleteContributions.WithDetail("collected %s of %s", collection.Collected, collection.Expected)
		}

		txn = &models.Transaction{
			GroupID:  group.ID,
			CycleID:  cycle.ID,
			MemberID: cycle.PayoutRecipientID,
			Amount:   collection.Expected,
			Type:     models.TransactionPayout,
			Status:   models.StatusPending,
		}
		if err := q.CreateTransaction(ctx, txn); err != nil {
			return conflictAs(err, errs.ErrDuplicatePayout.WithDetail("cycle %s", cycleID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Payout recorded",
		"transaction_id", txn.ID,
		"cycle_id", cycleID,
		"recipient_id", txn.MemberID,
		"amount", txn.Amount.String(),
	)
	events.PublishAll(ctx, l.publisher, transactionEvent(events.PayoutRecorded, txn))
	return txn, nil
}

// Collection reports how much of a cycle's pool has been collected.
func (l *Ledger) Collection(ctx context.Context, cycleID string) (Collection, error) {
	return CollectionFor(ctx, l.store, cycleID)
}

// CycleTransactions lists every transaction of a cycle in insertion order.
func (l *Ledger) CycleTransactions(ctx context.Context, cycleID string) ([]*models.Transaction, error) {
	if _, err := l.store.GetCycle(ctx, cycleID); err != nil {
		return nil, notFound(err, "cycle", cycleID)
	}
	return l.store.ListTransactionsByCycle(ctx, cycleID)
}

// History lists transactions newest first.
func (l *Ledger) History(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	return l.store.ListTransactions(ctx, filter)
}

// CollectionFor computes the collection of a cycle using q.
func CollectionFor(ctx context.Context, q storage.Queries, cycleID string) (Collection, error) {
	cycle, err := q.GetCycle(ctx, cycleID)
	if err != nil {
		return Collection{}, notFound(err, "cycle", cycleID)
	}
	group, err := q.GetGroup(ctx, cycle.GroupID)
	if err != nil {
		return Collection{}, notFound(err, "group", cycle.GroupID)
	}
	txns, err := q.ListTransactionsByCycle(ctx, cycleID)
	if err != nil {
		return Collection{}, err
	}
	return Summarize(group, cycle, txns), nil
}

func (l *Ledger) recordContribution(ctx context.Context, q storage.Queries, cycleID, memberID string, amount decimal.Decimal) (*models.Transaction, error) {
	cycle, err := q.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, notFound(err, "cycle", cycleID)
	}
	if cycle.IsCompleted {
		return nil, errs.ErrCycleClosed.WithDetail("cycle %d", cycle.Number)
	}

	group, err := q.GetGroup(ctx, cycle.GroupID)
	if err != nil {
		return nil, notFound(err, "group", cycle.GroupID)
	}
	if !amount.Equal(group.ContributionAmount) {
		return nil, errs.ErrAmountMismatch.WithDetail("got %s, want %s", amount, group.ContributionAmount)
	}

	if err := checkContributor(ctx, q, cycle, memberID); err != nil {
		return nil, err
	}

	existing, err := activeContribution(ctx, q, cycleID, memberID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.ErrDuplicateContribution.WithDetail("transaction %s", existing.ID)
	}

	txn := &models.Transaction{
		GroupID:  group.ID,
		CycleID:  cycle.ID,
		MemberID: memberID,
		Amount:   group.ContributionAmount,
		Type:     models.TransactionContribution,
		Status:   models.StatusPending,
	}
	if err := q.CreateTransaction(ctx, txn); err != nil {
		return nil, conflictAs(err, errs.ErrDuplicateContribution.WithDetail("member %s", memberID))
	}
	return txn, nil
}

// markPaid completes a pending transaction. changed is false for the
// idempotent completed case.
func (l *Ledger) markPaid(ctx context.Context, q storage.Queries, txnID string) (*models.Transaction, bool, error) {
	txn, err := q.GetTransaction(ctx, txnID)
	if err != nil {
		return nil, false, notFound(err, "transaction", txnID)
	}

	switch txn.Status {
	case models.StatusCompleted:
		return txn, false, nil
	case models.StatusFailed:
		return nil, false, errs.ErrInvalidTransition.WithDetail("transaction %s has failed", txnID)
	}

	if txn.Type == models.TransactionPayout {
		collection, err := CollectionFor(ctx, q, txn.CycleID)
		if err != nil {
			return nil, false, err
		}
		if !collection.Complete() {
			return nil, false, errs.ErrIncompleteContributions.WithDetail("collected %s of %s", collection.Collected, collection.Expected)
		}
	}

	paidAt := l.now().UTC()
	if err := q.SettleTransaction(ctx, txnID, models.StatusCompleted, &paidAt, txn.Note); err != nil {
		return nil, false, conflictAs(err, errs.ErrInvalidTransition.WithDetail("transaction %s is not pending", txnID))
	}
	txn.Status = models.StatusCompleted
	txn.PaymentDate = &paidAt
	return txn, true, nil
}

// checkContributor verifies that member belongs to the cycle's rotation and is still active.
func checkContributor(ctx context.Context, q storage.Queries, cycle *models.Cycle, memberID string) error {
	member, err := q.GetMember(ctx, memberID)
	if errors.Is(err, storage.ErrNotFound) {
		return errs.ErrNotContributor.WithDetail("unknown member %s", memberID)
	}
	if err != nil {
		return err
	}
	if member.GroupID != cycle.GroupID || !member.Active() {
		return errs.ErrNotContributor.WithDetail("member %s", memberID)
	}

	rotation, err := q.GetRotation(ctx, cycle.GroupID, cycle.Rotation)
	if err != nil {
		return err
	}
	for _, id := range rotation.MemberIDs {
		if id == memberID {
			return nil
		}
	}
	return errs.ErrNotContributor.WithDetail("member %s joined after rotation %d started", memberID, cycle.Rotation)
}

// activeContribution returns the member's non-failed contribution in the cycle, or nil.
func activeContribution(ctx context.Context, q storage.Queries, cycleID, memberID string) (*models.Transaction, error) {
	txns, err := q.ListTransactionsByCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	for _, t := range txns {
		if t.Type == models.TransactionContribution && t.MemberID == memberID && t.Status != models.StatusFailed {
			return t, nil
		}
	}
	return nil, nil
}

func transactionEvent(t events.Type, txn *models.Transaction) events.Event {
	e := events.New(t, txn.GroupID)
	e.CycleID = txn.CycleID
	e.MemberID = txn.MemberID
	e.TransactionID = txn.ID
	e.Amount = txn.Amount.String()
	return e
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errs.NotFound(entity, id)
	}
	return err
}

// conflictAs replaces a storage conflict with a domain error.
func conflictAs(err error, domain *errs.Error) error {
	if errors.Is(err, storage.ErrConflict) {
		return domain
	}
	return err
}
