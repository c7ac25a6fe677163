// Package expense holds the user-entered fields of an expense and composes them with a
// split allocation into the payload the backend accepts.
package expense

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
)

const (
	maxNameLength        = 120
	maxDescriptionLength = 1000
)

var strictPolicy = bluemonday.StrictPolicy()

// Draft is the form state of an expense before submission.
type Draft struct {
	Name        string
	Date        time.Time
	Category    models.Category
	Description string

	// ReceiptRef is an opaque URL or blob handle. Its contents are never inspected.
	ReceiptRef string

	Currency string
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid field of a draft.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid expense: " + strings.Join(msgs, "; ")
}

// ErrAllocationMismatch is returned by Compose when the allocation does not belong to the total.
var ErrAllocationMismatch = errors.New("allocation does not match expense total")

// Sanitize strips HTML tags and surrounding whitespace from free-text fields and
// upper-cases the currency code. The remaining text is kept literal, not entity-escaped.
func (d Draft) Sanitize() Draft {
	d.Name = stripTags(d.Name)
	d.Description = stripTags(d.Description)
	d.ReceiptRef = strings.TrimSpace(d.ReceiptRef)
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	return d
}

// stripTags removes markup. The strict policy escapes what it keeps, so the
// result is unescaped back to plain text.
func stripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// Validate performs presence and shape checks. It reports every problem at once.
func (d Draft) Validate() error {
	var fields []FieldError
	add := func(field, format string, args ...any) {
		fields = append(fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch {
	case d.Name == "":
		add("name", "is required")
	case utf8.RuneCountInString(d.Name) > maxNameLength:
		add("name", "must be at most %d characters", maxNameLength)
	}
	if d.Date.IsZero() {
		add("date", "is required")
	}
	if !d.Category.Valid() {
		add("category", "must be one of %v", models.Categories)
	}
	if utf8.RuneCountInString(d.Description) > maxDescriptionLength {
		add("description", "must be at most %d characters", maxDescriptionLength)
	}
	if !money.ValidCurrency(d.Currency) {
		add("currency", "must be a three-letter currency code, got %q", d.Currency)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Compose attaches a split allocation to the draft and produces the payload sent to the
// backend. The draft is expected to be sanitized and valid. A fresh idempotency key is
// generated; callers retrying a submission must reuse the payload rather than compose again.
func Compose(d Draft, groupID, paidBy string, total decimal.Decimal, alloc *calculator.Allocation) (*models.ExpensePayload, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if groupID == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "groupId", Message: "is required"}}}
	}
	if alloc == nil || !alloc.Total().Equal(money.Round(total, d.Currency)) {
		return nil, ErrAllocationMismatch
	}
	if alloc.Currency != "" && alloc.Currency != d.Currency {
		return nil, fmt.Errorf("%w: allocation currency %s, draft currency %s", ErrAllocationMismatch, alloc.Currency, d.Currency)
	}

	payer := false
	for _, l := range alloc.Lines {
		if l.IsSettled && l.ParticipantID == paidBy {
			payer = true
		}
	}
	if !payer {
		return nil, fmt.Errorf("%w: payer %q has no settled line", ErrAllocationMismatch, paidBy)
	}

	splits := make([]models.SplitLine, len(alloc.Lines))
	copy(splits, alloc.Lines)

	return &models.ExpensePayload{
		IdempotencyKey: uuid.NewString(),
		Name:           d.Name,
		Amount:         money.Round(total, d.Currency),
		Date:           d.Date,
		Category:       d.Category,
		Currency:       d.Currency,
		GroupID:        groupID,
		PaidBy:         paidBy,
		Splits:         splits,
		Description:    d.Description,
		Receipt:        d.ReceiptRef,
	}, nil
}
