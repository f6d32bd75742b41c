// Package registry manages groups and their membership rows.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/kopa/internal/errs"
	"github.com/mmynk/kopa/internal/lock"
	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/storage"
)

// MemberInput describes a person joining a group.
type MemberInput struct {
	UserID string
	Name   string
	Phone  string
	Email  string
}

// CreateGroupInput is everything needed to open a group.
type CreateGroupInput struct {
	Name               string
	Description        string
	ContributionAmount decimal.Decimal
	Frequency          models.Frequency
	StartDate          time.Time

	// Admin owns the group and is seeded first in join order.
	Admin MemberInput

	// Members are seeded after the admin, in the given order.
	Members []MemberInput
}

// Registry tracks group membership and per-group admin flags.
type Registry struct {
	store storage.Store
	locks *lock.Keyed
	now   func() time.Time
}

// New creates a Registry. locks must be the same set the cycle engine and
// ledger use so that membership changes serialize with cycle operations.
func New(store storage.Store, locks *lock.Keyed) *Registry {
	return &Registry{store: store, locks: locks, now: time.Now}
}

// CreateGroup validates the input and persists the group with its seeded members.
func (r *Registry) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, []*models.Member, error) {
	if err := validateGroupInput(in); err != nil {
		return nil, nil, err
	}

	inputs := append([]MemberInput{in.Admin}, in.Members...)
	if err := checkDistinctPhones(inputs); err != nil {
		return nil, nil, err
	}

	group := &models.Group{
		Name:               strings.TrimSpace(in.Name),
		Description:        strings.TrimSpace(in.Description),
		ContributionAmount: in.ContributionAmount,
		Frequency:          in.Frequency,
		StartDate:          in.StartDate,
		IsActive:           true,
	}

	var members []*models.Member
	err := r.store.InTx(ctx, func(q storage.Queries) error {
		members = make([]*models.Member, 0, len(inputs))
		for i, mi := range inputs {
			members = append(members, newMember("", mi, i+1, i == 0))
		}
		// The group row points at its admin before the member rows exist.
		members[0].ID = uuid.New().String()
		group.AdminID = members[0].ID

		if err := q.CreateGroup(ctx, group); err != nil {
			return err
		}
		for _, m := range members {
			m.GroupID = group.ID
			if err := q.CreateMember(ctx, m); err != nil {
				if errors.Is(err, storage.ErrConflict) {
					return errs.Validation("duplicate phone number in group: %s", m.Phone)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	slog.InfoContext(ctx, "Group created",
		"group_id", group.ID,
		"admin_id", group.AdminID,
		"members_count", len(members),
	)
	return group, members, nil
}

// GetGroup retrieves a group by ID.
func (r *Registry) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := r.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, notFound(err, "group", groupID)
	}
	return group, nil
}

// ListMembers returns the active members of a group in join order.
func (r *Registry) ListMembers(ctx context.Context, groupID string) ([]*models.Member, error) {
	if _, err := r.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := r.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return activeOnly(rows), nil
}

// Memberships returns every active membership row of an identity-provider user.
func (r *Registry) Memberships(ctx context.Context, userID string) ([]*models.Member, error) {
	rows, err := r.store.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return activeOnly(rows), nil
}

// AddMember appends a member to a group. The new member joins the payout
// order from the next rotation.
func (r *Registry) AddMember(ctx context.Context, groupID string, in MemberInput) (*models.Member, error) {
	if err := validateMemberInput(in); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(groupID)
	defer unlock()

	var member *models.Member
	err := r.store.InTx(ctx, func(q storage.Queries) error {
		group, err := q.GetGroup(ctx, groupID)
		if err != nil {
			return notFound(err, "group", groupID)
		}
		if !group.IsActive {
			return errs.ErrGroupInactive
		}

		rows, err := q.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		position := 1
		for _, row := range rows {
			if row.Position >= position {
				position = row.Position + 1
			}
		}

		member = newMember(groupID, in, position, false)
		if err := q.CreateMember(ctx, member); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				return errs.Validation("phone number already in group: %s", in.Phone)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Member added", "group_id", groupID, "member_id", member.ID, "position", member.Position)
	return member, nil
}

// RemoveMember soft-removes a member. The last admin cannot be removed, and no
// member can be removed while a cycle is open.
func (r *Registry) RemoveMember(ctx context.Context, groupID, memberID string) (*models.Member, error) {
	unlock := r.locks.Lock(groupID)
	defer unlock()

	var member *models.Member
	err := r.store.InTx(ctx, func(q storage.Queries) error {
		var rows []*models.Member
		var err error
		member, rows, err = loadMember(ctx, q, groupID, memberID)
		if err != nil {
			return err
		}

		if member.IsAdmin && countAdmins(rows) == 1 {
			return errs.ErrLastAdmin.WithDetail("member %s", memberID)
		}

		latest, err := q.LatestCycle(ctx, groupID)
		switch {
		case err == nil && !latest.IsCompleted:
			return errs.ErrCycleInProgress.WithDetail("cycle %d", latest.Number)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}

		member.RemovedAt = r.now().Unix()
		return q.UpdateMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Member removed", "group_id", groupID, "member_id", memberID)
	return member, nil
}

// SetAdmin grants or revokes admin rights. Revoking the last admin fails.
func (r *Registry) SetAdmin(ctx context.Context, groupID, memberID string, isAdmin bool) (*models.Member, error) {
	unlock := r.locks.Lock(groupID)
	defer unlock()

	var member *models.Member
	err := r.store.InTx(ctx, func(q storage.Queries) error {
		var rows []*models.Member
		var err error
		member, rows, err = loadMember(ctx, q, groupID, memberID)
		if err != nil {
			return err
		}
		if member.IsAdmin == isAdmin {
			return nil
		}
		if !isAdmin && countAdmins(rows) == 1 {
			return errs.ErrLastAdmin.WithDetail("member %s", memberID)
		}

		member.IsAdmin = isAdmin
		return q.UpdateMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Member admin flag set", "group_id", groupID, "member_id", memberID, "is_admin", isAdmin)
	return member, nil
}

// DeactivateGroup closes a group for new cycles. Refused while a cycle is open.
func (r *Registry) DeactivateGroup(ctx context.Context, groupID string) error {
	unlock := r.locks.Lock(groupID)
	defer unlock()

	err := r.store.InTx(ctx, func(q storage.Queries) error {
		if _, err := q.GetGroup(ctx, groupID); err != nil {
			return notFound(err, "group", groupID)
		}

		latest, err := q.LatestCycle(ctx, groupID)
		switch {
		case err == nil && !latest.IsCompleted:
			return errs.ErrCycleInProgress.WithDetail("cycle %d", latest.Number)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return err
		}

		return q.SetGroupActive(ctx, groupID, false)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Group deactivated", "group_id", groupID)
	return nil
}

// loadMember fetches an active member of groupID together with every active row of the group.
func loadMember(ctx context.Context, q storage.Queries, groupID, memberID string) (*models.Member, []*models.Member, error) {
	if _, err := q.GetGroup(ctx, groupID); err != nil {
		return nil, nil, notFound(err, "group", groupID)
	}
	all, err := q.ListMembers(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	rows := activeOnly(all)
	for _, row := range rows {
		if row.ID == memberID {
			return row, rows, nil
		}
	}
	return nil, nil, errs.NotFound("member", memberID)
}

func newMember(groupID string, in MemberInput, position int, isAdmin bool) *models.Member {
	return &models.Member{
		GroupID:  groupID,
		UserID:   strings.TrimSpace(in.UserID),
		Name:     strings.TrimSpace(in.Name),
		Phone:    normalizePhone(in.Phone),
		Email:    strings.TrimSpace(in.Email),
		IsAdmin:  isAdmin,
		Position: position,
	}
}

func validateGroupInput(in CreateGroupInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return errs.Validation("group name is required")
	}
	if !in.ContributionAmount.IsPositive() {
		return errs.Validation("contribution amount must be positive, got %s", in.ContributionAmount)
	}
	if _, err := models.ParseFrequency(string(in.Frequency)); err != nil {
		return errs.Validation("%v", err)
	}
	if in.StartDate.IsZero() {
		return errs.Validation("start date is required")
	}
	if err := validateMemberInput(in.Admin); err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	for i, m := range in.Members {
		if err := validateMemberInput(m); err != nil {
			return fmt.Errorf("member %d: %w", i+1, err)
		}
	}
	return nil
}

func validateMemberInput(in MemberInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return errs.Validation("member name is required")
	}
	if normalizePhone(in.Phone) == "" {
		return errs.Validation("member phone is required")
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return errs.Validation("invalid email %q", email)
		}
	}
	return nil
}

func checkDistinctPhones(inputs []MemberInput) error {
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		phone := normalizePhone(in.Phone)
		if seen[phone] {
			return errs.Validation("duplicate phone number in group: %s", phone)
		}
		seen[phone] = true
	}
	return nil
}

// normalizePhone strips spaces, dashes and parentheses.
func normalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

func activeOnly(rows []*models.Member) []*models.Member {
	active := make([]*models.Member, 0, len(rows))
	for _, row := range rows {
		if row.Active() {
			active = append(active, row)
		}
	}
	return active
}

func countAdmins(rows []*models.Member) int {
	n := 0
	for _, row := range rows {
		if row.Active() && row.IsAdmin {
			n++
		}
	}
	return n
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return errs.NotFound(entity, id)
	}
	return err
}
