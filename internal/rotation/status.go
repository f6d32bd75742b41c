package rotation

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/kopa/internal/errs"
	"github.com/mmynk/kopa/internal/ledger"
	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/schedule"
	"github.com/mmynk/kopa/internal/storage"
)

// MemberState is the payment state of a member in the group overview.
type MemberState string

const (
	StatePaid    MemberState = "paid"
	StatePending MemberState = "pending"

	// StateNext marks the recipient of the open cycle, or the member the
	// next cycle would pay when none is open.
	StateNext MemberState = "next"
)

// MemberStatus pairs an active member with its state.
type MemberStatus struct {
	Member *models.Member
	State  MemberState

	// Paid is true when the member has a completed contribution in the open
	// cycle, whatever State says.
	Paid bool
}

// Progress describes where a group stands in its current rotation.
type Progress struct {
	// Latest is the most recent cycle, nil before the first one starts.
	Latest *models.Cycle

	// CurrentRound counts the cycles started in the latest rotation.
	CurrentRound int

	// TotalRounds is the number of members of the latest rotation who have
	// been or still can be paid, or the number of active members before the
	// first cycle.
	TotalRounds int

	// NextPaymentDate is the end date of the open cycle, or the next due
	// date after the reference date when no cycle is open.
	NextPaymentDate time.Time
}

// Progress summarizes a group's rotation relative to ref.
func (e *Engine) Progress(ctx context.Context, group *models.Group, ref time.Time) (Progress, error) {
	var p Progress

	cycles, err := e.store.ListCycles(ctx, group.ID)
	if err != nil {
		return p, err
	}

	if len(cycles) == 0 {
		rows, err := e.store.ListMembers(ctx, group.ID)
		if err != nil {
			return p, err
		}
		for _, m := range rows {
			if m.Active() {
				p.TotalRounds++
			}
		}
	} else {
		p.Latest = cycles[len(cycles)-1]
		rot, err := e.store.GetRotation(ctx, group.ID, p.Latest.Rotation)
		if err != nil {
			return p, err
		}
		rows, err := e.store.ListMembers(ctx, group.ID)
		if err != nil {
			return p, err
		}
		active := make(map[string]bool, len(rows))
		for _, m := range rows {
			active[m.ID] = m.Active()
		}
		recipients := make(map[string]bool)
		for _, c := range cycles {
			if c.Rotation == rot.Number {
				p.CurrentRound++
				recipients[c.PayoutRecipientID] = true
			}
		}
		// Members removed before their turn are skipped and never get a round.
		for _, id := range rot.MemberIDs {
			if active[id] || recipients[id] {
				p.TotalRounds++
			}
		}
	}

	if p.Latest != nil && !p.Latest.IsCompleted {
		p.NextPaymentDate = p.Latest.EndDate
		return p, nil
	}
	p.NextPaymentDate, err = schedule.NextDueDate(group, ref)
	if err != nil {
		return p, errs.Validation("%v", err)
	}
	return p, nil
}

// MemberStatuses returns every active member of a group in join order with
// its payment state for the open cycle.
func (e *Engine) MemberStatuses(ctx context.Context, groupID string) ([]MemberStatus, error) {
	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFound(err, "group", groupID)
	}
	rows, err := e.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var next string
	var collection ledger.Collection
	latest, err := e.store.LatestCycle(ctx, groupID)
	switch {
	case err == nil && !latest.IsCompleted:
		next = latest.PayoutRecipientID
		txns, err := e.store.ListTransactionsByCycle(ctx, latest.ID)
		if err != nil {
			return nil, err
		}
		collection = ledger.Summarize(group, latest, txns)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, err
	default:
		p, err := e.planNext(ctx, e.store, group)
		if err != nil && !errors.Is(err, errs.ErrNoActiveMembers) && !errors.Is(err, errs.ErrPayoutOutstanding) {
			return nil, err
		}
		if p != nil {
			next = p.recipientID
		}
	}

	statuses := make([]MemberStatus, 0, len(rows))
	for _, m := range rows {
		if !m.Active() {
			continue
		}
		st := MemberStatus{Member: m, State: StatePending, Paid: collection.Paid(m.ID)}
		switch {
		case m.ID == next:
			st.State = StateNext
		case st.Paid:
			st.State = StatePaid
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}
