package models

import "github.com/shopspring/decimal"

// SplitKind names the active split method of an expense.
type SplitKind string

const (
	SplitEqual      SplitKind = "equal"
	SplitPercentage SplitKind = "percentage"
	SplitManual     SplitKind = "manual"
)

// Valid reports whether k is one of the known split kinds.
func (k SplitKind) Valid() bool {
	switch k {
	case SplitEqual, SplitPercentage, SplitManual:
		return true
	}
	return false
}

// ExpenseTotal is the amount being split. Currency is carried through unchanged.
type ExpenseTotal struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Participant references a group member taking part in a split.
type Participant struct {
	// ID is the opaque identifier used by the allocator.
	ID string `json:"id"`

	// DisplayName is for presentation only.
	DisplayName string `json:"displayName,omitempty"`
}

// SplitLine is one participant's share of an expense.
// This is the output unit of the split allocator.
type SplitLine struct {
	ParticipantID string          `json:"participantId"`
	Amount        decimal.Decimal `json:"amount"`

	// IsSettled is true only for the payer's own line: fronting the money
	// already settles their share.
	IsSettled bool `json:"isSettled"`
}
