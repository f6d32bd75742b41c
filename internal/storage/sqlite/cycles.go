package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/schedule"
	"github.com/mmynk/kopa/internal/storage"
)

const cycleColumns = `id, group_id, rotation, number, start_date, end_date, payout_recipient_id, contributor_count, is_completed, completed_at, created_at`

// CreateRotation inserts a rotation and its payout order.
func (s *queries) CreateRotation(ctx context.Context, rotation *models.Rotation) error {
	if rotation.ID == "" {
		rotation.ID = uuid.New().String()
	}
	if rotation.StartedAt == 0 {
		rotation.StartedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO rotations (id, group_id, number, started_at) VALUES (?, ?, ?, ?)`,
		rotation.ID, rotation.GroupID, rotation.Number, rotation.StartedAt,
	)
	if err != nil {
		return wrapWriteErr("insert rotation", err)
	}

	for slot, memberID := range rotation.MemberIDs {
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO rotation_members (rotation_id, slot, member_id) VALUES (?, ?, ?)`,
			rotation.ID, slot+1, memberID,
		)
		if err != nil {
			return wrapWriteErr("insert rotation member", err)
		}
	}
	return nil
}

// GetRotation retrieves a rotation of a group by number, with its payout order.
func (s *queries) GetRotation(ctx context.Context, groupID string, number int) (*models.Rotation, error) {
	rotation := &models.Rotation{}
	err := s.q.QueryRowContext(ctx,
		`SELECT id, group_id, number, started_at FROM rotations WHERE group_id = ? AND number = ?`,
		groupID, number,
	).Scan(&rotation.ID, &rotation.GroupID, &rotation.Number, &rotation.StartedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rotation %d of group %s: %w", number, groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation: %w", err)
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT member_id FROM rotation_members WHERE rotation_id = ? ORDER BY slot`,
		rotation.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var memberID string
		if err := rows.Scan(&memberID); err != nil {
			return nil, fmt.Errorf("failed to scan rotation member: %w", err)
		}
		rotation.MemberIDs = append(rotation.MemberIDs, memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rotation members: %w", err)
	}
	return rotation, nil
}

// CreateCycle persists a new cycle.
func (s *queries) CreateCycle(ctx context.Context, cycle *models.Cycle) error {
	if cycle.ID == "" {
		cycle.ID = uuid.New().String()
	}
	if cycle.CreatedAt == 0 {
		cycle.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO cycles (`+cycleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cycle.ID, cycle.GroupID, cycle.Rotation, cycle.Number,
		schedule.FormatDate(cycle.StartDate), schedule.FormatDate(cycle.EndDate),
		cycle.PayoutRecipientID, cycle.ContributorCount,
		boolToInt(cycle.IsCompleted), cycle.CompletedAt, cycle.CreatedAt,
	)
	if err != nil {
		return wrapWriteErr("insert cycle", err)
	}
	return nil
}

// GetCycle retrieves a cycle by ID.
func (s *queries) GetCycle(ctx context.Context, cycleID string) (*models.Cycle, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE id = ?`, cycleID)
	cycle, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cycle %s: %w", cycleID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return cycle, nil
}

// LatestCycle returns the highest-numbered cycle of a group.
func (s *queries) LatestCycle(ctx context.Context, groupID string) (*models.Cycle, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+cycleColumns+` FROM cycles WHERE group_id = ? ORDER BY number DESC LIMIT 1`, groupID)
	cycle, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cycles of group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest cycle: %w", err)
	}
	return cycle, nil
}

// ListCycles returns every cycle of a group in order.
func (s *queries) ListCycles(ctx context.Context, groupID string) ([]*models.Cycle, error) {
	return s.listCycles(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE group_id = ? ORDER BY number`, groupID)
}

// ListOpenCycles returns every cycle not yet completed, across groups.
func (s *queries) ListOpenCycles(ctx context.Context) ([]*models.Cycle, error) {
	return s.listCycles(ctx, `SELECT `+cycleColumns+` FROM cycles WHERE is_completed = 0 ORDER BY end_date, id`)
}

// CompleteCycle marks an open cycle completed.
func (s *queries) CompleteCycle(ctx context.Context, cycleID string, completedAt int64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE cycles SET is_completed = 1, completed_at = ? WHERE id = ? AND is_completed = 0`,
		completedAt, cycleID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete cycle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("cycle %s is not open: %w", cycleID, storage.ErrConflict)
	}
	return nil
}

func (s *queries) listCycles(ctx context.Context, query string, args ...any) ([]*models.Cycle, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*models.Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}
	return cycles, nil
}

func scanCycle(row rowScanner) (*models.Cycle, error) {
	cycle := &models.Cycle{}
	var startDate, endDate string
	var completed int
	if err := row.Scan(&cycle.ID, &cycle.GroupID, &cycle.Rotation, &cycle.Number, &startDate, &endDate,
		&cycle.PayoutRecipientID, &cycle.ContributorCount, &completed, &cycle.CompletedAt, &cycle.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if cycle.StartDate, err = schedule.ParseDate(startDate); err != nil {
		return nil, err
	}
	if cycle.EndDate, err = schedule.ParseDate(endDate); err != nil {
		return nil, err
	}
	cycle.IsCompleted = completed == 1
	return cycle, nil
}
