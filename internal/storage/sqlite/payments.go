package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupsplit/internal/models"
)

// CreatePaymentAttempt persists a new payment attempt.
func (s *SQLiteStore) CreatePaymentAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.CreatedAt == 0 {
		attempt.CreatedAt = s.now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_attempts (id, transaction_id, group_id, amount, status, created_at, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.TransactionID, attempt.GroupID, attempt.Amount.String(),
		attempt.Status, attempt.CreatedAt, attempt.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment attempt: %w", err)
	}

	return nil
}

// ListPaymentAttempts retrieves all attempts for a transaction.
func (s *SQLiteStore) ListPaymentAttempts(ctx context.Context, transactionID string) ([]*models.PaymentAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, transaction_id, group_id, amount, status, created_at, created_by
		 FROM payment_attempts WHERE transaction_id = ? ORDER BY created_at DESC, rowid DESC`,
		transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.PaymentAttempt
	for rows.Next() {
		a := &models.PaymentAttempt{}
		var amount string
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.GroupID, &amount, &a.Status,
			&a.CreatedAt, &a.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan payment attempt: %w", err)
		}
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment attempts: %w", err)
	}

	return attempts, nil
}
