package models

import "github.com/shopspring/decimal"

// TransactionStatus is the lifecycle state of a settlement transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionCompleted, TransactionCancelled:
		return true
	}
	return false
}

// Transaction is a settlement payment computed by the backend: From owes To the Amount.
// This module never computes transactions, it only displays and triggers them.
type Transaction struct {
	ID       string
	GroupID  string
	From     string
	To       string
	Amount   decimal.Decimal
	Currency string
	Status   TransactionStatus
}

// PaymentAttempt records that a payment was initiated for a transaction.
type PaymentAttempt struct {
	// ID is the unique identifier for the attempt (UUID format).
	ID string

	TransactionID string
	GroupID       string
	Amount        decimal.Decimal

	// Status is the backend's answer to the initiation call.
	Status string

	// CreatedAt is the Unix timestamp when the attempt was recorded.
	CreatedAt int64

	// CreatedBy is the user who triggered the payment.
	CreatedBy string
}
