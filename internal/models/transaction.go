package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes money flowing into the pool from money paid out.
type TransactionType string

const (
	TransactionContribution TransactionType = "contribution"
	TransactionPayout       TransactionType = "payout"
)

// ParseTransactionType converts a filter string; the empty string means "any".
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case "", TransactionContribution, TransactionPayout:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// TransactionStatus is the ledger state of a transaction.
//
//	pending -> completed (terminal)
//	pending -> failed    (terminal)
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Transaction is an append-only ledger entry.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	GroupID  string
	CycleID  string
	MemberID string

	// Amount is always positive; Type gives the direction.
	Amount decimal.Decimal

	Type   TransactionType
	Status TransactionStatus

	// PaymentDate is set when the transaction completes.
	PaymentDate *time.Time

	// Note records why a transaction failed or what it corrects.
	Note string

	// CreatedAt is the Unix timestamp when the transaction was recorded.
	CreatedAt int64
}
