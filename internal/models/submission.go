package models

// SubmissionStatus tracks an expense submission through the local journal.
type SubmissionStatus string

const (
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionFailed    SubmissionStatus = "failed"
)

// Submission is a journaled expense submission keyed by its idempotency key.
// A pending submission has been accepted locally but not yet confirmed by the backend.
type Submission struct {
	IdempotencyKey string
	GroupID        string
	Payload        ExpensePayload
	Status         SubmissionStatus

	// ExpenseID is set once the backend confirms creation.
	ExpenseID string

	// Error holds the last backend failure for a failed submission.
	Error string

	CreatedAt int64
	UpdatedAt int64
}
