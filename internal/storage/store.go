// Package storage provides abstractions for the local journal of submissions and payments.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/groupsplit/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a record with the same key already exists.
var ErrDuplicate = errors.New("already exists")

// Store defines the journal operations used by the services.
// The backend stays the source of truth for expenses and transactions; the journal
// only remembers what this process sent so retries are safe.
type Store interface {
	// CreateSubmission journals a pending submission.
	// Returns ErrDuplicate if the idempotency key is already known.
	CreateSubmission(ctx context.Context, sub *models.Submission) error

	// GetSubmission returns the submission for an idempotency key, or ErrNotFound.
	GetSubmission(ctx context.Context, key string) (*models.Submission, error)

	// MarkSubmitted records the backend expense id for a submission.
	MarkSubmitted(ctx context.Context, key, expenseID string) error

	// MarkFailed records the last backend error for a submission.
	MarkFailed(ctx context.Context, key, reason string) error

	// ListPendingSubmissions returns pending and failed submissions for a group, oldest first.
	ListPendingSubmissions(ctx context.Context, groupID string) ([]*models.Submission, error)

	// CreatePaymentAttempt records that a payment was initiated.
	CreatePaymentAttempt(ctx context.Context, attempt *models.PaymentAttempt) error

	// ListPaymentAttempts returns attempts for a transaction, newest first.
	ListPaymentAttempts(ctx context.Context, transactionID string) ([]*models.PaymentAttempt, error)

	// Close releases any resources held by the store.
	Close() error
}
