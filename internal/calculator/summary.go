package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupsplit/internal/models"
)

// MemberTotals is one member's aggregate over a set of expenses.
type MemberTotals struct {
	MemberID string
	Paid     decimal.Decimal // Total fronted as payer
	Share    decimal.Decimal // Sum of this member's split lines
}

// Net is Paid - Share. Positive means the group owes this member.
func (m MemberTotals) Net() decimal.Decimal {
	return m.Paid.Sub(m.Share)
}

// CategoryTotal is the amount spent in one category.
type CategoryTotal struct {
	Category models.Category
	Amount   decimal.Decimal
}

// MonthTotal is the amount spent in one calendar month (YYYY-MM).
type MonthTotal struct {
	Month  string
	Amount decimal.Decimal
}

// Summary aggregates a group's expenses for display.
type Summary struct {
	Currency   string
	Total      decimal.Decimal
	Members    []MemberTotals
	Categories []CategoryTotal
	Months     []MonthTotal
}

// Summarize aggregates expenses by member, category and month.
// Expenses in a currency other than currency are skipped; no conversion happens here.
// This is a plain aggregation; who-pays-whom is computed by the backend.
//
// Members are returned in first-seen order, categories in models.Categories order
// and months ascending.
func Summarize(expenses []models.Expense, currency string) *Summary {
	summary := &Summary{Currency: currency, Total: decimal.Zero}

	members := make(map[string]*MemberTotals)
	var order []string
	member := func(id string) *MemberTotals {
		if m, ok := members[id]; ok {
			return m
		}
		m := &MemberTotals{MemberID: id, Paid: decimal.Zero, Share: decimal.Zero}
		members[id] = m
		order = append(order, id)
		return m
	}

	byCategory := make(map[models.Category]decimal.Decimal)
	byMonth := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		if currency != "" && e.Currency != currency {
			continue
		}
		summary.Total = summary.Total.Add(e.Amount)

		if e.PaidBy != "" {
			payer := member(e.PaidBy)
			payer.Paid = payer.Paid.Add(e.Amount)
		}
		for _, line := range e.Splits {
			m := member(line.ParticipantID)
			m.Share = m.Share.Add(line.Amount)
		}

		category := e.Category
		if !category.Valid() {
			category = models.CategoryOther
		}
		byCategory[category] = byCategory[category].Add(e.Amount)

		if !e.Date.IsZero() {
			month := e.Date.Format("2006-01")
			byMonth[month] = byMonth[month].Add(e.Amount)
		}
	}

	for _, id := range order {
		summary.Members = append(summary.Members, *members[id])
	}
	for _, c := range models.Categories {
		if amount, ok := byCategory[c]; ok {
			summary.Categories = append(summary.Categories, CategoryTotal{Category: c, Amount: amount})
		}
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		summary.Months = append(summary.Months, MonthTotal{Month: m, Amount: byMonth[m]})
	}

	return summary
}
