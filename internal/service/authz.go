package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/kopa/internal/auth"
	"github.com/mmynk/kopa/internal/errs"
	"github.com/mmynk/kopa/internal/middleware"
	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/registry"
	"github.com/mmynk/kopa/internal/roles"
	"github.com/mmynk/kopa/internal/storage"
)

// guard answers authorization questions from the caller's membership rows,
// loaded fresh on every call.
type guard struct {
	store    storage.Store
	registry *registry.Registry
}

// caller is the authenticated user as seen from one group.
type caller struct {
	UserID     string
	Member     *models.Member
	Resolution roles.Resolution
}

func (g *guard) memberships(ctx context.Context) (string, []models.Member, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	rows, err := g.registry.Memberships(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	out := make([]models.Member, len(rows))
	for i, row := range rows {
		out[i] = *row
	}
	return userID, out, nil
}

// requireMember fails unless the caller is an active member of groupID.
func (g *guard) requireMember(ctx context.Context, groupID string) (*caller, error) {
	userID, rows, err := g.memberships(ctx)
	if err != nil {
		return nil, err
	}
	if !roles.IsMember(rows, groupID) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("not a member of group %s", groupID))
	}

	c := &caller{UserID: userID, Resolution: roles.ResolveForGroup(rows, groupID)}
	for i := range rows {
		if rows[i].GroupID == groupID {
			c.Member = &rows[i]
			break
		}
	}
	return c, nil
}

// require fails unless the caller's role in groupID grants the permission.
func (g *guard) require(ctx context.Context, groupID, action string, allowed func(roles.Permissions) bool) (*caller, error) {
	c, err := g.requireMember(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !allowed(c.Resolution.Permissions) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("%s requires a group admin", action))
	}
	return c, nil
}

func (g *guard) groupOfCycle(ctx context.Context, cycleID string) (string, error) {
	cycle, err := g.store.GetCycle(ctx, cycleID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", errs.NotFound("cycle", cycleID)
	}
	if err != nil {
		return "", err
	}
	return cycle.GroupID, nil
}

func (g *guard) groupOfTransaction(ctx context.Context, txnID string) (string, error) {
	txn, err := g.store.GetTransaction(ctx, txnID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", errs.NotFound("transaction", txnID)
	}
	if err != nil {
		return "", err
	}
	return txn.GroupID, nil
}

func canManageMembers(p roles.Permissions) bool { return p.CanManageMembers }
func canManageLedger(p roles.Permissions) bool  { return p.CanManageLedger }
func canDeleteGroups(p roles.Permissions) bool  { return p.CanDeleteGroups }
