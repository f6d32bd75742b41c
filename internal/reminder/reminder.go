// Package reminder periodically nudges members whose contribution for an
// open cycle is still outstanding close to the due date.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mmynk/kopa/internal/events"
	"github.com/mmynk/kopa/internal/ledger"
	"github.com/mmynk/kopa/internal/schedule"
	"github.com/mmynk/kopa/internal/storage"
)

// Scheduler runs the reminder sweep on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	store     storage.Queries
	publisher events.Publisher
	spec      string
	lead      time.Duration
	timeout   time.Duration
	now       func() time.Time

	// OnSweep, when set, is called after every successful scheduled sweep.
	OnSweep func(sent int)
}

// New creates a Scheduler. spec is a standard five-field cron expression;
// lead is how far ahead of a cycle's end date reminders start.
func New(store storage.Queries, publisher events.Publisher, spec string, lead time.Duration) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		store:     store,
		publisher: publisher,
		spec:      spec,
		lead:      lead,
		timeout:   time.Minute,
		now:       time.Now,
	}
}

// Start registers the sweep and starts the cron engine.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		sent, err := s.Sweep(ctx)
		if err != nil {
			slog.Error("Reminder sweep failed", "error", err)
			return
		}
		slog.Info("Reminder sweep finished", "reminders", sent)
		if s.OnSweep != nil {
			s.OnSweep(sent)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	slog.Info("Reminder scheduler started", "schedule", s.spec, "lead", s.lead)
	return nil
}

// Stop stops scheduling new sweeps and waits for a running one, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("Reminder scheduler stopped")
	case <-ctx.Done():
		slog.Warn("Reminder scheduler stop timed out", "error", ctx.Err())
	}
}

// Sweep publishes one reminder per outstanding contributor of every open
// cycle due within the lead window. It returns the number of reminders sent.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	cycles, err := s.store.ListOpenCycles(ctx)
	if err != nil {
		return 0, err
	}

	today := schedule.Day(s.now())
	horizon := today.Add(s.lead)

	sent := 0
	for _, cycle := range cycles {
		if cycle.EndDate.After(horizon) {
			continue
		}

		group, err := s.store.GetGroup(ctx, cycle.GroupID)
		if err != nil {
			return sent, err
		}
		if !group.IsActive {
			continue
		}
		rotation, err := s.store.GetRotation(ctx, cycle.GroupID, cycle.Rotation)
		if err != nil {
			return sent, err
		}
		txns, err := s.store.ListTransactionsByCycle(ctx, cycle.ID)
		if err != nil {
			return sent, err
		}
		collection := ledger.Summarize(group, cycle, txns)

		for _, memberID := range rotation.MemberIDs {
			if collection.Paid(memberID) {
				continue
			}
			member, err := s.store.GetMember(ctx, memberID)
			if err != nil {
				return sent, err
			}
			if !member.Active() {
				continue
			}

			ev := events.New(events.ContributionReminder, group.ID)
			ev.CycleID = cycle.ID
			ev.MemberID = memberID
			ev.Amount = group.ContributionAmount.String()
			ev.DueDate = schedule.FormatDate(cycle.EndDate)
			events.PublishAll(ctx, s.publisher, ev)
			sent++
		}
	}
	return sent, nil
}
