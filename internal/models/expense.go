package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of expense categories.
type Category string

const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryEntertainment  Category = "entertainment"
	CategoryHousing        Category = "housing"
	CategoryUtilities      Category = "utilities"
	CategoryTravel         Category = "travel"
	CategoryShopping       Category = "shopping"
	CategoryHealth         Category = "health"
	CategoryOther          Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransportation,
	CategoryEntertainment,
	CategoryHousing,
	CategoryUtilities,
	CategoryTravel,
	CategoryShopping,
	CategoryHealth,
	CategoryOther,
}

// ParseCategory maps a case-insensitive name to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Valid reports whether c is in the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Expense is an expense record as stored by the backend.
type Expense struct {
	ID          string
	GroupID     string
	Name        string
	Description string
	Amount      decimal.Decimal
	Currency    string
	PaidBy      string
	Date        time.Time
	Category    Category
	Splits      []SplitLine
	Receipt     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ExpensePayload is the body submitted to the backend's create-expense endpoint.
type ExpensePayload struct {
	// IdempotencyKey is generated client-side so a retried submission
	// cannot create the expense twice. Sent as a header, not in the body.
	IdempotencyKey string

	Name        string
	Amount      decimal.Decimal
	Date        time.Time
	Category    Category
	Currency    string
	GroupID     string
	PaidBy      string
	Splits      []SplitLine
	Description string
	Receipt     string
}
