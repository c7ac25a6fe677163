// Package money provides currency-aware decimal helpers shared by the calculator,
// the expense draft and the settlement view.
//
// All amounts are shopspring decimals. Floats never take part in share arithmetic.
package money

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultMinorUnits is the number of decimal places used for unknown currencies.
const DefaultMinorUnits int32 = 2

// DefaultCurrency is used when a caller supplies no currency code.
const DefaultCurrency = "USD"

// Tolerance is the slack allowed when user-entered percentages or amounts are
// compared against their expected sum.
var Tolerance = decimal.RequireFromString("0.01")

// Hundred is the expected sum of percentage weights.
var Hundred = decimal.NewFromInt(100)

var (
	mu         sync.RWMutex
	minorUnits = map[string]int32{
		"USD": 2, "CAD": 2, "GBP": 2, "EUR": 2, "CNY": 2, "AUD": 2,
		"INR": 2, "BRL": 2, "RUB": 2, "ZAR": 2, "MXN": 2, "SGD": 2,
		"CHF": 2, "NPR": 2,
		"JPY": 0, "KRW": 0,
	}
	symbols = map[string]string{
		"USD": "$", "CAD": "CA$", "AUD": "A$", "SGD": "S$", "MXN": "MX$",
		"EUR": "€", "GBP": "£", "JPY": "¥", "CNY": "¥", "INR": "₹",
		"BRL": "R$", "RUB": "₽", "ZAR": "R", "KRW": "₩", "NPR": "Rs ",
		"CHF": "CHF ",
	}
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ValidCurrency reports whether code looks like an ISO-4217 alphabetic code.
func ValidCurrency(code string) bool {
	return currencyPattern.MatchString(code)
}

// SetMinorUnits overrides the number of decimal places used for a currency.
// Config loading calls this once at startup.
func SetMinorUnits(code string, places int32) {
	mu.Lock()
	defer mu.Unlock()
	minorUnits[strings.ToUpper(code)] = places
}

// MinorUnits returns the number of decimal places for a currency code.
func MinorUnits(code string) int32 {
	mu.RLock()
	defer mu.RUnlock()
	if places, ok := minorUnits[strings.ToUpper(code)]; ok {
		return places
	}
	return DefaultMinorUnits
}

// Unit returns the smallest representable amount for a currency (0.01 for USD, 1 for JPY).
func Unit(code string) decimal.Decimal {
	return decimal.New(1, -MinorUnits(code))
}

// Round rounds half away from zero to the currency's minor unit.
func Round(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(MinorUnits(code))
}

// Sum adds a list of amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// WithinTolerance reports whether |got - want| <= Tolerance.
func WithinTolerance(got, want decimal.Decimal) bool {
	return got.Sub(want).Abs().LessThanOrEqual(Tolerance)
}

// ParseAmount parses user-entered amounts such as "1,234.56", "1234,56", "$12" or "CHF 1'200".
func ParseAmount(s string) (decimal.Decimal, error) {
	standardized := standardize(s)
	if standardized == "" {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: empty", s)
	}
	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", s, err)
	}
	return amount, nil
}

var symbolPattern = regexp.MustCompile(`[€$£¥₹₽₩\s]|CHF|Rs|R`)

func standardize(s string) string {
	s = symbolPattern.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.ReplaceAll(s, "'", "")

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			// 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Contains(s, ","):
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}

// Symbol returns the display symbol for a currency, or the code followed by a space.
func Symbol(code string) string {
	mu.RLock()
	defer mu.RUnlock()
	if sym, ok := symbols[strings.ToUpper(code)]; ok {
		return sym
	}
	return strings.ToUpper(code) + " "
}

// Format renders an amount with its currency symbol and fixed minor units, e.g. "$33.34".
func Format(amount decimal.Decimal, code string) string {
	return Symbol(code) + amount.StringFixed(MinorUnits(code))
}
