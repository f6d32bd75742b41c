package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/kopa/internal/models"
	"github.com/mmynk/kopa/internal/storage"
)

const transactionColumns = `id, group_id, cycle_id, member_id, amount, type, status, payment_date, note, created_at`

// CreateTransaction appends a ledger entry.
func (s *queries) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt == 0 {
		txn.CreatedAt = time.Now().Unix()
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.GroupID, txn.CycleID, txn.MemberID, txn.Amount.String(),
		string(txn.Type), string(txn.Status), unixOrNull(txn.PaymentDate), txn.Note, txn.CreatedAt,
	)
	if err != nil {
		return wrapWriteErr("insert transaction", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by ID.
func (s *queries) GetTransaction(ctx context.Context, txnID string) (*models.Transaction, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, txnID)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", txnID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// SettleTransaction moves a pending transaction to a terminal status.
// The WHERE clause makes the transition atomic.
func (s *queries) SettleTransaction(ctx context.Context, txnID string, status models.TransactionStatus, paymentDate *time.Time, note string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE transactions SET status = ?, payment_date = ?, note = ? WHERE id = ? AND status = 'pending'`,
		string(status), unixOrNull(paymentDate), note, txnID,
	)
	if err != nil {
		return wrapWriteErr("settle transaction", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s is not pending: %w", txnID, storage.ErrConflict)
	}
	return nil
}

// ListTransactionsByCycle returns every transaction of a cycle in insertion order.
func (s *queries) ListTransactionsByCycle(ctx context.Context, cycleID string) ([]*models.Transaction, error) {
	return s.listTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE cycle_id = ? ORDER BY created_at, rowid`, cycleID)
}

// ListTransactions returns transactions matching filter, newest first.
func (s *queries) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	var where []string
	var args []any
	if filter.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.MemberID != "" {
		where = append(where, "member_id = ?")
		args = append(args, filter.MemberID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	return s.listTransactions(ctx, query, args...)
}

func (s *queries) listTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txns, nil
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	txn := &models.Transaction{}
	var txnType, status string
	var paymentDate sql.NullInt64
	if err := row.Scan(&txn.ID, &txn.GroupID, &txn.CycleID, &txn.MemberID, &txn.Amount,
		&txnType, &status, &paymentDate, &txn.Note, &txn.CreatedAt); err != nil {
		return nil, err
	}

	txn.Type = models.TransactionType(txnType)
	txn.Status = models.TransactionStatus(status)
	if paymentDate.Valid {
		t := time.Unix(paymentDate.Int64, 0).UTC()
		txn.PaymentDate = &t
	}
	return txn, nil
}

func unixOrNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
