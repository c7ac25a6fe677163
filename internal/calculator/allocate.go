// Package calculator turns an expense total into reconciled per-participant shares.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
)

var tolerance = money.Tolerance

// Method is one of Equal, Percentage or Manual.
type Method interface {
	Kind() models.SplitKind
	isMethod()
}

// Equal splits the total evenly.
type Equal struct{}

// Percentage splits by weight. Weights are percentages that must sum to 100.
type Percentage struct {
	Weights map[string]decimal.Decimal
}

// Manual takes explicit per-participant amounts that must sum to the total.
type Manual struct {
	Amounts map[string]decimal.Decimal
}

func (Equal) Kind() models.SplitKind      { return models.SplitEqual }
func (Percentage) Kind() models.SplitKind { return models.SplitPercentage }
func (Manual) Kind() models.SplitKind     { return models.SplitManual }

func (Equal) isMethod()      {}
func (Percentage) isMethod() {}
func (Manual) isMethod()     {}

// Allocation is the reconciled result of a split.
type Allocation struct {
	Currency string
	Method   models.SplitKind
	Lines    []models.SplitLine
}

// Total returns the sum of all line amounts.
func (a *Allocation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range a.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// Allocate computes one line per participant, in participant order, whose amounts
// sum exactly to total.Amount at the currency's minor unit. The payer's line is
// flagged settled. Rounding residue always lands on the last participant.
//
// Allocate is pure: identical inputs give identical output, and it is safe to call
// concurrently.
func Allocate(total models.ExpenseTotal, participants []string, method Method, payerID string) (*Allocation, error) {
	if len(participants) == 0 {
		return nil, &SplitError{Kind: KindEmptyParticipants, Detail: "at least one participant is required"}
	}
	places := money.MinorUnits(total.Currency)
	amount := total.Amount.Round(places)
	if !amount.IsPositive() {
		return nil, &SplitError{
			Kind:   KindNonPositiveTotal,
			Detail: fmt.Sprintf("total must be at least one minor unit, got %s", total.Amount.String()),
		}
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if seen[p] {
			return nil, &SplitError{
				Kind:          KindDuplicateParticipant,
				Detail:        fmt.Sprintf("participant %q appears more than once", p),
				ParticipantID: p,
			}
		}
		seen[p] = true
	}
	if !seen[payerID] {
		return nil, &SplitError{
			Kind:          KindPayerNotParticipant,
			Detail:        fmt.Sprintf("payer %q must be one of the participants", payerID),
			ParticipantID: payerID,
		}
	}

	var shares []decimal.Decimal
	var err error
	switch m := method.(type) {
	case Equal:
		shares = equalShares(amount, len(participants), places)
	case Percentage:
		shares, err = percentageShares(amount, participants, m.Weights, places)
	case Manual:
		shares, err = manualShares(total.Amount, participants, m.Amounts, places)
	default:
		err = &SplitError{Kind: KindUnknownMethod, Detail: fmt.Sprintf("unsupported split method %T", method)}
	}
	if err != nil {
		return nil, err
	}

	reconcile(shares, amount)

	lines := make([]models.SplitLine, len(participants))
	for i, p := range participants {
		lines[i] = models.SplitLine{
			ParticipantID: p,
			Amount:        shares[i],
			IsSettled:     p == payerID,
		}
	}

	return &Allocation{
		Currency: total.Currency,
		Method:   method.Kind(),
		Lines:    lines,
	}, nil
}

// equalShares gives every participant round(total/n). The last share is
// overwritten by reconcile.
func equalShares(total decimal.Decimal, n int, places int32) []decimal.Decimal {
	perShare := total.DivRound(decimal.NewFromInt(int64(n)), places)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = perShare
	}
	return shares
}

func percentageShares(total decimal.Decimal, participants []string, weights map[string]decimal.Decimal, places int32) ([]decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range participants {
		w, ok := weights[p]
		if !ok {
			return nil, &SplitError{
				Kind:          KindMissingWeight,
				Detail:        fmt.Sprintf("participant %q has no percentage", p),
				ParticipantID: p,
			}
		}
		if w.IsNegative() {
			return nil, &SplitError{
				Kind:          KindNegativeShare,
				Detail:        fmt.Sprintf("participant %q has negative percentage %s", p, w.String()),
				ParticipantID: p,
			}
		}
		sum = sum.Add(w)
	}
	if !money.WithinTolerance(sum, money.Hundred) {
		return nil, mismatch(KindPercentageMismatch, "percentages", sum, money.Hundred, 2)
	}

	shares := make([]decimal.Decimal, len(participants))
	for i, p := range participants {
		shares[i] = total.Mul(weights[p]).DivRound(money.Hundred, places)
	}
	return shares, nil
}

func manualShares(total decimal.Decimal, participants []string, amounts map[string]decimal.Decimal, places int32) ([]decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range participants {
		a, ok := amounts[p]
		if !ok {
			return nil, &SplitError{
				Kind:          KindMissingAmount,
				Detail:        fmt.Sprintf("participant %q has no amount", p),
				ParticipantID: p,
			}
		}
		if a.IsNegative() {
			return nil, &SplitError{
				Kind:          KindNegativeShare,
				Detail:        fmt.Sprintf("participant %q has negative amount %s", p, a.String()),
				ParticipantID: p,
			}
		}
		sum = sum.Add(a)
	}
	if !money.WithinTolerance(sum, total) {
		return nil, mismatch(KindManualMismatch, "manual amounts", sum, total, places)
	}

	shares := make([]decimal.Decimal, len(participants))
	for i, p := range participants {
		shares[i] = amounts[p].Round(places)
	}
	return shares, nil
}

// reconcile sets the last share to total minus the others so the shares sum
// exactly to total. If that would go negative, the last share is clamped to zero
// and the deficit is taken from earlier shares, walking backwards.
func reconcile(shares []decimal.Decimal, total decimal.Decimal) {
	last := len(shares) - 1
	others := decimal.Zero
	for _, s := range shares[:last] {
		others = others.Add(s)
	}
	shares[last] = total.Sub(others)
	if !shares[last].IsNegative() {
		return
	}

	deficit := shares[last].Neg()
	shares[last] = decimal.Zero
	for i := last - 1; i >= 0 && deficit.IsPositive(); i-- {
		take := decimal.Min(shares[i], deficit)
		shares[i] = shares[i].Sub(take)
		deficit = deficit.Sub(take)
	}
}
