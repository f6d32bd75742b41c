// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mmynk/kopa/internal/models"
)

var (
	// ErrNotFound is wrapped by every lookup that matches no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict is wrapped when a write violates a uniqueness rule or a
	// conditional update matched no row in the expected state.
	ErrConflict = errors.New("conflict")
)

// TransactionFilter narrows ListTransactions. Empty fields match everything.
type TransactionFilter struct {
	GroupID  string
	MemberID string
	Type     models.TransactionType
}

// Queries is the set of reads and writes available both on the store and
// inside a transaction.
type Queries interface {
	// CreateGroup persists a new group. ID, CreatedAt and UpdatedAt are filled in when empty.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListActiveGroups(ctx context.Context) ([]*models.Group, error)
	SetGroupActive(ctx context.Context, groupID string, active bool) error

	// CreateMember persists a new membership row. ID and JoinedAt are filled in when empty.
	CreateMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, memberID string) (*models.Member, error)
	// ListMembers returns every row of the group, removed ones included, by join order.
	ListMembers(ctx context.Context, groupID string) ([]*models.Member, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]*models.Member, error)
	// UpdateMember writes the mutable fields: user_id, name, phone, email, is_admin, removed_at.
	UpdateMember(ctx context.Context, member *models.Member) error

	CreateRotation(ctx context.Context, rotation *models.Rotation) error
	GetRotation(ctx context.Context, groupID string, number int) (*models.Rotation, error)

	CreateCycle(ctx context.Context, cycle *models.Cycle) error
	GetCycle(ctx context.Context, cycleID string) (*models.Cycle, error)
	// LatestCycle returns the cycle with the highest number, or ErrNotFound.
	LatestCycle(ctx context.Context, groupID string) (*models.Cycle, error)
	ListCycles(ctx context.Context, groupID string) ([]*models.Cycle, error)
	ListOpenCycles(ctx context.Context) ([]*models.Cycle, error)
	// CompleteCycle marks an open cycle completed; ErrConflict if it already was.
	CompleteCycle(ctx context.Context, cycleID string, completedAt int64) error

	// CreateTransaction appends a ledger entry. ID and CreatedAt are filled in when empty.
	CreateTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransaction(ctx context.Context, txnID string) (*models.Transaction, error)
	// SettleTransaction moves a pending transaction to a terminal status.
	// ErrConflict if the transaction is no longer pending.
	SettleTransaction(ctx context.Context, txnID string, status models.TransactionStatus, paymentDate *time.Time, note string) error
	ListTransactionsByCycle(ctx context.Context, cycleID string) ([]*models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error)
}

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the components that use it.
type Store interface {
	Queries

	// InTx runs fn inside a single write transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(q Queries) error) error

	// Close releases any resources held by the store.
	Close() error
}
