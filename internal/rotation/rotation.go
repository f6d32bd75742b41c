// Package rotation advances groups through payout cycles.
//
// A rotation freezes the payout order from the group's active members in
// join order. Each cycle pays the next member of that order who has not yet
// been a recipient in the rotation. Once everyone has and every payout of the
// rotation is completed, the next cycle opens a fresh rotation that includes
// members who joined in the meantime.
package rotation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/kopa/internal/errs"
	"github.com/mmynk/kopa/internal/events"
	"github.com/mmynk/kopa/internal/ledger"
	"github.com/mmynk/kopa/internal/lock"
	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/schedule"
	"github.com/mmynk/kopa/internal/storage"
)

// Engine is the cycle engine.
type Engine struct {
	store     storage.Store
	locks     *lock.Keyed
	publisher events.Publisher
	now       func() time.Time
}

// New creates an Engine. locks must be shared with the registry and ledger.
func New(store storage.Store, locks *lock.Keyed, publisher events.Publisher) *Engine {
	return &Engine{store: store, locks: locks, publisher: publisher, now: time.Now}
}

// plan is the outcome of choosing the next cycle without writing anything.
type plan struct {
	// rotation is the rotation the next cycle belongs to. Its ID is empty
	// when the rotation still has to be created.
	rotation *models.Rotation

	recipientID  string
	contributors int
	number       int
	start        time.Time
	end          time.Time
}

// StartCycle opens the next cycle of a group.
func (e *Engine) StartCycle(ctx context.Context, groupID string) (*models.Cycle, error) {
	unlock := e.locks.Lock(groupID)
	defer unlock()

	var cycle *models.Cycle
	err := e.store.InTx(ctx, func(q storage.Queries) error {
		group, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err, "group", groupID)
		}
		if !group.IsActive {
			return errs.ErrGroupInactive
		}

		p, err := e.planNext(ctx, q, group)
		if err != nil {
			return err
		}

		if p.rotation.ID == "" {
			p.rotation.StartedAt = e.now().Unix()
			if err := q.CreateRotation(ctx, p.rotation); err != nil {
				return sequenceErr(err, "rotation %d", p.rotation.Number)
			}
		}

		cycle = &models.Cycle{
			GroupID:           groupID,
			Rotation:          p.rotation.Number,
			Number:            p.number,
			StartDate:         p.start,
			EndDate:           p.end,
			PayoutRecipientID: p.recipientID,
			ContributorCount:  p.contributors,
			CreatedAt:         e.now().Unix(),
		}
		if err := q.CreateCycle(ctx, cycle); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return errs.ErrDuplicateRecipient.WithDetail("cycle %d, recipient %s", p.number, p.recipientID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Cycle started",
		"group_id", groupID,
		"cycle_id", cycle.ID,
		"number", cycle.Number,
		"rotation", cycle.Rotation,
		"recipient_id", cycle.PayoutRecipientID,
		"end_date", schedule.FormatDate(cycle.EndDate),
	)
	ev := events.New(events.CycleStarted, groupID)
	ev.CycleID = cycle.ID
	ev.MemberID = cycle.PayoutRecipientID
	ev.DueDate = schedule.FormatDate(cycle.EndDate)
	events.PublishAll(ctx, e.publisher, ev)
	return cycle, nil
}

// CompleteCycle closes a cycle once its pool is fully collected. Completing
// an already completed cycle returns it unchanged.
func (e *Engine) CompleteCycle(ctx context.Context, cycleID string) (*models.Cycle, error) {
	cycle, err := e.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, notFound(err, "cycle", cycleID)
	}

	unlock := e.locks.Lock(cycle.GroupID)
	defer unlock()

	var changed bool
	err = e.store.InTx(ctx, func(q storage.Queries) error {
		cycle, err = q.GetCycle(ctx, cycleID)
		if err != nil {
			return notFound(err, "cycle", cycleID)
		}
		if cycle.IsCompleted {
			return nil
		}

		collection, err := ledger.CollectionFor(ctx, q, cycleID)
		if err != nil {
			return err
		}
		if !collection.Complete() {
			return errs.ErrIncompleteContributions.WithDetail("collected %s of %s", collection.Collected, collection.Expected)
		}

		completedAt := e.now().Unix()
		if err := q.CompleteCycle(ctx, cycleID, completedAt); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return errs.ErrCycleClosed
			}
			return err
		}
		cycle.IsCompleted = true
		cycle.CompletedAt = completedAt
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		slog.InfoContext(ctx, "Cycle completed", "group_id", cycle.GroupID, "cycle_id", cycle.ID, "number", cycle.Number)
		ev := events.New(events.CycleCompleted, cycle.GroupID)
		ev.CycleID = cycle.ID
		ev.MemberID = cycle.PayoutRecipientID
		events.PublishAll(ctx, e.publisher, ev)
	}
	return cycle, nil
}

// CurrentCycle returns the most recent cycle of a group, open or not.
func (e *Engine) CurrentCycle(ctx context.Context, groupID string) (*models.Cycle, error) {
	if _, err := e.store.GetGroup(ctx, groupID); err != nil {
		return nil, notFound(err, "group", groupID)
	}
	cycle, err := e.store.LatestCycle(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errs.NotFound("cycle", "current of group "+groupID)
	}
	return cycle, err
}

// ListCycles returns every cycle of a group in number order.
func (e *Engine) ListCycles(ctx context.Context, groupID string) ([]*models.Cycle, error) {
	if _, err := e.store.GetGroup(ctx, groupID); err != nil {
		return nil, notFound(err, "group", groupID)
	}
	return e.store.ListCycles(ctx, groupID)
}

// PreviewNextRecipient returns the member StartCycle would pick right now.
func (e *Engine) PreviewNextRecipient(ctx context.Context, groupID string) (*models.Member, error) {
	group, err := e.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFound(err, "group", groupID)
	}
	p, err := e.planNext(ctx, e.store, group)
	if err != nil {
		return nil, err
	}
	return e.store.GetMember(ctx, p.recipientID)
}

// planNext picks the rotation, recipient and dates of the next cycle.
func (e *Engine) planNext(ctx context.Context, q storage.Queries, group *models.Group) (*plan, error) {
	rows, err := q.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(rows))
	var order []string
	for _, m := range rows {
		if m.Active() {
			active[m.ID] = true
			order = append(order, m.ID)
		}
	}
	if len(order) == 0 {
		return nil, errs.ErrNoActiveMembers
	}

	cycles, err := q.ListCycles(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	p := &plan{number: 1, start: schedule.Day(group.StartDate)}
	if n := len(cycles); n > 0 {
		prev := cycles[n-1]
		if !prev.IsCompleted {
			return nil, errs.ErrCycleInProgress.WithDetail("cycle %d", prev.Number)
		}
		if prev.Number != n {
			return nil, errs.ErrCycleSequence.WithDetail("group %s has %d cycles, latest is %d", group.ID, n, prev.Number)
		}
		p.number = prev.Number + 1
		p.start = prev.EndDate

		rot, err := q.GetRotation(ctx, group.ID, prev.Rotation)
		if err != nil {
			return nil, err
		}
		paid := make(map[string]bool)
		for _, c := range cycles {
			if c.Rotation == rot.Number {
				paid[c.PayoutRecipientID] = true
			}
		}
		if id := firstUnpaid(rot.MemberIDs, paid, active); id != "" {
			p.rotation = rot
			p.recipientID = id
			p.contributors = countActive(rot.MemberIDs, active)
		} else {
			if err := checkPayouts(ctx, q, cycles, rot.Number); err != nil {
				return nil, err
			}
			p.rotation = &models.Rotation{GroupID: group.ID, Number: rot.Number + 1}
		}
	} else {
		p.rotation = &models.Rotation{GroupID: group.ID, Number: 1}
	}

	if p.rotation.ID == "" {
		p.rotation.MemberIDs = order
		p.recipientID = order[0]
		p.contributors = len(order)
	}

	p.end, err = schedule.AddInterval(p.start, group.Frequency)
	if err != nil {
		return nil, errs.Validation("%v", err)
	}
	return p, nil
}

// checkPayouts fails unless every cycle of the rotation has a completed
// payout. A new rotation may only start once everyone has been paid.
func checkPayouts(ctx context.Context, q storage.Queries, cycles []*models.Cycle, rotation int) error {
	for _, c := range cycles {
		if c.Rotation != rotation {
			continue
		}
		collection, err := ledger.CollectionFor(ctx, q, c.ID)
		if err != nil {
			return err
		}
		if collection.Payout == nil || collection.Payout.Status != models.StatusCompleted {
			return errs.ErrPayoutOutstanding.WithDetail("cycle %d, recipient %s", c.Number, c.PayoutRecipientID)
		}
	}
	return nil
}

// firstUnpaid returns the first member of order who is still active and has
// not been a recipient in the rotation.
func firstUnpaid(order []string, paid, active map[string]bool) string {
	for _, id := range order {
		if active[id] && !paid[id] {
			return id
		}
	}
	return ""
}

func countActive(ids []string, active map[string]bool) int {
	n := 0
	for _, id := range ids {
		if active[id] {
			n++
		}
	}
	return n
}

// sequenceErr reports a uniqueness conflict while creating a rotation. Under
// the group lock and an immediate transaction it can only mean the stored
// sequence is already broken.
func sequenceErr(err error, format string, args ...any) error {
	if errors.Is(err, storage.ErrConflict) {
		return errs.ErrCycleSequence.WithDetail(format, args...)
	}
	return err
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errs.NotFound(entity, id)
	}
	return err
}
