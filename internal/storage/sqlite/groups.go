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

const groupColumns = `id, name, description, contribution_amount, frequency, start_date, admin_id, is_active, created_at, updated_at`

// CreateGroup persists a new group to the database.
func (s *queries) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	if group.UpdatedAt == 0 {
		group.UpdatedAt = group.CreatedAt
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.ContributionAmount.String(),
		string(group.Frequency), schedule.FormatDate(group.StartDate), group.AdminID,
		boolToInt(group.IsActive), group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return wrapWriteErr("insert group", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *queries) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, groupID)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListActiveGroups returns every active group ordered by creation time.
func (s *queries) ListActiveGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE is_active = 1 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// SetGroupActive flips the is_active flag.
func (s *queries) SetGroupActive(ctx context.Context, groupID string, active bool) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE groups SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), time.Now().Unix(), groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{}
	var frequency, startDate string
	var active int
	if err := row.Scan(&group.ID, &group.Name, &group.Description, &group.ContributionAmount,
		&frequency, &startDate, &group.AdminID, &active, &group.CreatedAt, &group.UpdatedAt); err != nil {
		return nil, err
	}

	start, err := schedule.ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	group.Frequency = models.Frequency(frequency)
	group.StartDate = start
	group.IsActive = active == 1
	return group, nil
}
