package calculator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupsplit/internal/models"
)

// NewMethod builds a Method from its kind name. An empty kind means equal.
// Weights are used for percentage splits and amounts for manual splits; the other map is ignored.
func NewMethod(kind string, weights, amounts map[string]decimal.Decimal) (Method, error) {
	switch models.SplitKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", models.SplitEqual:
		return Equal{}, nil
	case models.SplitPercentage:
		return Percentage{Weights: weights}, nil
	case models.SplitManual:
		return Manual{Amounts: amounts}, nil
	}
	return nil, &SplitError{
		Kind:   KindUnknownMethod,
		Detail: fmt.Sprintf("unknown split method %q, want equal, percentage or manual", kind),
	}
}
