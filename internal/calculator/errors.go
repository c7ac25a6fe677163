package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies a split validation failure.
type ErrorKind string

const (
	KindEmptyParticipants    ErrorKind = "EmptyParticipants"
	KindNonPositiveTotal     ErrorKind = "NonPositiveTotal"
	KindDuplicateParticipant ErrorKind = "DuplicateParticipant"
	KindPayerNotParticipant  ErrorKind = "PayerNotParticipant"
	KindMissingWeight        ErrorKind = "MissingWeight"
	KindMissingAmount        ErrorKind = "MissingAmount"
	KindNegativeShare        ErrorKind = "NegativeShare"
	KindPercentageMismatch   ErrorKind = "PercentageMismatch"
	KindManualMismatch       ErrorKind = "ManualMismatch"
	KindUnknownMethod        ErrorKind = "UnknownMethod"
)

// Sentinels for errors.Is. A *SplitError matches the sentinel of the same kind.
var (
	ErrEmptyParticipants    = &SplitError{Kind: KindEmptyParticipants}
	ErrNonPositiveTotal     = &SplitError{Kind: KindNonPositiveTotal}
	ErrDuplicateParticipant = &SplitError{Kind: KindDuplicateParticipant}
	ErrPayerNotParticipant  = &SplitError{Kind: KindPayerNotParticipant}
	ErrMissingWeight        = &SplitError{Kind: KindMissingWeight}
	ErrMissingAmount        = &SplitError{Kind: KindMissingAmount}
	ErrNegativeShare        = &SplitError{Kind: KindNegativeShare}
	ErrPercentageMismatch   = &SplitError{Kind: KindPercentageMismatch}
	ErrManualMismatch       = &SplitError{Kind: KindManualMismatch}
	ErrUnknownMethod        = &SplitError{Kind: KindUnknownMethod}
)

// SplitError is a caller-correctable validation failure from Allocate.
type SplitError struct {
	Kind   ErrorKind
	Detail string

	// ParticipantID names the offending participant, when there is one.
	ParticipantID string

	// Sum, Expected and Tolerance are set for mismatch errors so the caller can
	// show the computed sum against the required total.
	Sum       decimal.Decimal
	Expected  decimal.Decimal
	Tolerance decimal.Decimal
}

func (e *SplitError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is matches any *SplitError with the same Kind.
func (e *SplitError) Is(target error) bool {
	t, ok := target.(*SplitError)
	return ok && t.Kind == e.Kind
}

// HasSums reports whether Sum/Expected/Tolerance are populated.
func (e *SplitError) HasSums() bool {
	return e.Kind == KindPercentageMismatch || e.Kind == KindManualMismatch
}

func mismatch(kind ErrorKind, what string, sum, expected decimal.Decimal, places int32) *SplitError {
	return &SplitError{
		Kind: kind,
		Detail: fmt.Sprintf("%s sum to %s, expected %s (difference %s, tolerance %s)",
			what,
			sum.StringFixed(places),
			expected.StringFixed(places),
			sum.Sub(expected).Abs().StringFixed(places),
			toleranceString(places),
		),
		Sum:       sum,
		Expected:  expected,
		Tolerance: tolerance,
	}
}

func toleranceString(places int32) string {
	if places < 2 {
		places = 2
	}
	return tolerance.StringFixed(places)
}
