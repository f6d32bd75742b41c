package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/kopa/internal/models"
)

// Collection summarizes contributions for one cycle.
type Collection struct {
	CycleID string

	// Expected is contributor_count × contribution_amount.
	Expected decimal.Decimal

	// Collected sums completed contributions only.
	Collected decimal.Decimal

	// Pending sums contributions recorded but not yet confirmed.
	Pending decimal.Decimal

	// PaidMemberIDs lists members with a completed contribution, in record order.
	PaidMemberIDs []string

	// PendingMemberIDs lists members with a pending contribution, in record order.
	PendingMemberIDs []string

	// Payout is the cycle's non-failed payout, nil if none was recorded.
	Payout *models.Transaction
}

// Complete reports whether the pool has been fully collected.
func (c Collection) Complete() bool {
	return c.Collected.GreaterThanOrEqual(c.Expected)
}

// Paid reports whether memberID has a completed contribution.
func (c Collection) Paid(memberID string) bool {
	for _, id := range c.PaidMemberIDs {
		if id == memberID {
			return true
		}
	}
	return false
}

// Summarize folds a cycle's transactions into a Collection. Failed
// transactions are ignored.
func Summarize(group *models.Group, cycle *models.Cycle, txns []*models.Transaction) Collection {
	c := Collection{
		CycleID:   cycle.ID,
		Expected:  group.Pool(cycle.ContributorCount),
		Collected: decimal.Zero,
		Pending:   decimal.Zero,
	}

	for _, t := range txns {
		if t.Status == models.StatusFailed {
			continue
		}
		if t.Type == models.TransactionPayout {
			c.Payout = t
			continue
		}

		switch t.Status {
		case models.StatusCompleted:
			c.Collected = c.Collected.Add(t.Amount)
			c.PaidMemberIDs = append(c.PaidMemberIDs, t.MemberID)
		case models.StatusPending:
			c.Pending = c.Pending.Add(t.Amount)
			c.PendingMemberIDs = append(c.PendingMemberIDs, t.MemberID)
		}
	}
	return c
}
