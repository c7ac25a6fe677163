package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/storage"
)

// CreateSubmission persists a pending submission to the journal.
func (s *SQLiteStore) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	if sub.IdempotencyKey == "" {
		return fmt.Errorf("submission has no idempotency key")
	}
	now := s.now().Unix()
	if sub.CreatedAt == 0 {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.Status == "" {
		sub.Status = models.SubmissionPending
	}

	payload, err := json.Marshal(sub.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (idempotency_key, group_id, payload, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.IdempotencyKey, sub.GroupID, string(payload), string(sub.Status), sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("submission %s: %w", sub.IdempotencyKey, storage.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	return nil
}

// GetSubmission retrieves a submission by idempotency key.
func (s *SQLiteStore) GetSubmission(ctx context.Context, key string) (*models.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT idempotency_key, group_id, payload, status, expense_id, error, created_at, updated_at
		 FROM submissions WHERE idempotency_key = ?`,
		key,
	)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// MarkSubmitted records a successful backend submission.
func (s *SQLiteStore) MarkSubmitted(ctx context.Context, key, expenseID string) error {
	return s.updateSubmission(ctx, key,
		"UPDATE submissions SET status = ?, expense_id = ?, error = NULL, updated_at = ? WHERE idempotency_key = ?",
		string(models.SubmissionSubmitted), expenseID, s.now().Unix(), key,
	)
}

// MarkFailed records a failed backend submission. The submission stays replayable.
func (s *SQLiteStore) MarkFailed(ctx context.Context, key, reason string) error {
	return s.updateSubmission(ctx, key,
		"UPDATE submissions SET status = ?, error = ?, updated_at = ? WHERE idempotency_key = ? AND status != 'submitted'",
		string(models.SubmissionFailed), reason, s.now().Unix(), key,
	)
}

func (s *SQLiteStore) updateSubmission(ctx context.Context, key, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("submission %s: %w", key, storage.ErrNotFound)
	}
	return nil
}

// ListPendingSubmissions retrieves unconfirmed submissions for a group.
func (s *SQLiteStore) ListPendingSubmissions(ctx context.Context, groupID string) ([]*models.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idempotency_key, group_id, payload, status, expense_id, error, created_at, updated_at
		 FROM submissions WHERE group_id = ? AND status IN ('pending', 'failed')
		 ORDER BY created_at ASC, idempotency_key ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}

	return subs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*models.Submission, error) {
	sub := &models.Submission{}
	var (
		payload   string
		status    string
		expenseID sql.NullString
		lastErr   sql.NullString
	)
	if err := row.Scan(&sub.IdempotencyKey, &sub.GroupID, &payload, &status, &expenseID, &lastErr,
		&sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &sub.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	sub.Payload.IdempotencyKey = sub.IdempotencyKey
	sub.Status = models.SubmissionStatus(status)
	sub.ExpenseID = expenseID.String
	sub.Error = lastErr.String
	return sub, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
