package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/storage"
)

const memberColumns = `id, group_id, user_id, name, phone, email, is_admin, position, joined_at, removed_at`

// CreateMember inserts a new membership row.
func (s *queries) CreateMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" {
		member.ID = uuid.New().String()
	}
	if member.JoinedAt == 0 {
		member.JoinedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID, member.GroupID, member.UserID, member.Name, member.Phone, member.Email,
		boolToInt(member.IsAdmin), member.Position, member.JoinedAt, member.RemovedAt,
	)
	if err != nil {
		return wrapWriteErr("insert member", err)
	}
	return nil
}

// GetMember retrieves a membership row by ID.
func (s *queries) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, memberID)
	member, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s: %w", memberID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// ListMembers returns every row of a group in join order.
func (s *queries) ListMembers(ctx context.Context, groupID string) ([]*models.Member, error) {
	return s.listMembers(ctx,
		`SELECT `+memberColumns+` FROM members WHERE group_id = ? ORDER BY position`, groupID)
}

// ListMembershipsByUser returns every row linked to an identity-provider user.
func (s *queries) ListMembershipsByUser(ctx context.Context, userID string) ([]*models.Member, error) {
	if userID == "" {
		return nil, nil
	}
	return s.listMembers(ctx,
		`SELECT `+memberColumns+` FROM members WHERE user_id = ? ORDER BY joined_at, id`, userID)
}

// UpdateMember writes the mutable fields of a membership row.
func (s *queries) UpdateMember(ctx context.Context, member *models.Member) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE members SET user_id = ?, name = ?, phone = ?, email = ?, is_admin = ?, removed_at = ? WHERE id = ?`,
		member.UserID, member.Name, member.Phone, member.Email, boolToInt(member.IsAdmin), member.RemovedAt, member.ID,
	)
	if err != nil {
		return wrapWriteErr("update member", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("member %s: %w", member.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *queries) listMembers(ctx context.Context, query string, arg string) ([]*models.Member, error) {
	rows, err := s.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

func scanMember(row rowScanner) (*models.Member, error) {
	member := &models.Member{}
	var isAdmin int
	if err := row.Scan(&member.ID, &member.GroupID, &member.UserID, &member.Name, &member.Phone,
		&member.Email, &isAdmin, &member.Position, &member.JoinedAt, &member.RemovedAt); err != nil {
		return nil, err
	}
	member.IsAdmin = isAdmin == 1
	return member, nil
}
