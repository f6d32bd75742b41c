// Package events publishes ledger events after they have been committed.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Type names an event; it doubles as the AMQP routing key.
type Type string

const (
	CycleStarted         Type = "cycle.started"
	CycleCompleted       Type = "cycle.completed"
	ContributionRecorded Type = "contribution.recorded"
	TransactionCompleted Type = "transaction.completed"
	TransactionFailed    Type = "transaction.failed"
	PayoutRecorded       Type = "payout.recorded"
	ContributionReminder Type = "contribution.reminder"
)

// Event is a lightweight notification; consumers fetch full state by ID.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	GroupID       string    `json:"group_id"`
	CycleID       string    `json:"cycle_id,omitempty"`
	MemberID      string    `json:"member_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	DueDate       string    `json:"due_date,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// New creates an event of the given type for a group.
func New(t Type, groupID string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		GroupID:    groupID,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON creates an event from JSON bytes.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, e Event) error {
	slog.InfoContext(ctx, "Ledger event",
		"event_id", e.ID,
		"type", e.Type,
		"group_id", e.GroupID,
		"cycle_id", e.CycleID,
		"member_id", e.MemberID,
		"transaction_id", e.TransactionID,
		"amount", e.Amount,
	)
	return nil
}

// PublishAll sends events in order. Failures are logged, not returned: the
// state they describe is already committed.
func PublishAll(ctx context.Context, p Publisher, evs ...Event) {
	if p == nil {
		return
	}
	for _, e := range evs {
		if err := p.Publish(ctx, e); err != nil {
			slog.WarnContext(ctx, "Failed to publish event",
				"type", e.Type,
				"event_id", e.ID,
				"group_id", e.GroupID,
				"error", err,
			)
		}
	}
}
