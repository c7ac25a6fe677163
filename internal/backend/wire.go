package backend

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
)

// The backend's JSON is inconsistent about casing (ExpenseID next to groupId);
// these structs mirror it exactly and convert to models at the edge.

type groupJSON struct {
	GroupID   string       `json:"GroupID"`
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Members   []memberJSON `json:"members"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type memberJSON struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

func (g groupJSON) toModel() *models.Group {
	id := g.GroupID
	if id == "" {
		id = g.ID
	}
	group := &models.Group{
		ID:        id,
		Name:      g.Name,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	for _, m := range g.Members {
		group.Members = append(group.Members, models.Member{
			ID:     m.ID,
			UserID: m.UserID,
			Name:   m.Name,
			Email:  m.Email,
		})
	}
	return group
}

type splitJSON struct {
	MemberID string          `json:"memberId"`
	Amount   decimal.Decimal `json:"amount"`
	Paid     bool            `json:"paid"`
}

type expenseJSON struct {
	ExpenseID    string          `json:"ExpenseID"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	GroupID      string          `json:"groupId"`
	Amount       decimal.Decimal `json:"amount"`
	Category     string          `json:"category"`
	ReceiptImage string          `json:"receiptImage"`
	Currency     string          `json:"currency"`
	PaidBy       string          `json:"paidBy"`
	Date         time.Time       `json:"date"`
	Splits       []splitJSON     `json:"splits"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (e expenseJSON) toModel(defaultCurrency string) models.Expense {
	category := models.Category(e.Category)
	if !category.Valid() {
		category = models.CategoryOther
	}
	currency := e.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	expense := models.Expense{
		ID:          e.ExpenseID,
		GroupID:     e.GroupID,
		Name:        e.Name,
		Description: e.Description,
		Amount:      e.Amount,
		Currency:    currency,
		PaidBy:      e.PaidBy,
		Date:        e.Date,
		Category:    category,
		Receipt:     e.ReceiptImage,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	for _, s := range e.Splits {
		expense.Splits = append(expense.Splits, models.SplitLine{
			ParticipantID: s.MemberID,
			Amount:        s.Amount,
			IsSettled:     s.Paid,
		})
	}
	return expense
}

// createSplitJSON and createExpenseJSON send amounts as JSON numbers fixed to the
// currency's minor unit, which is what the backend stores.
type createSplitJSON struct {
	MemberID string      `json:"memberId"`
	Amount   json.Number `json:"amount"`
	Paid     bool        `json:"paid"`
}

type createExpenseJSON struct {
	Name         string            `json:"name"`
	Amount       json.Number       `json:"amount"`
	Date         string            `json:"date"`
	Category     string            `json:"category"`
	Currency     string            `json:"currency"`
	GroupID      string            `json:"groupId"`
	PaidBy       string            `json:"paidBy"`
	Splits       []createSplitJSON `json:"splits"`
	Description  string            `json:"description,omitempty"`
	ReceiptImage string            `json:"receiptImage,omitempty"`
}

func newCreateExpenseJSON(p *models.ExpensePayload) createExpenseJSON {
	places := money.MinorUnits(p.Currency)
	body := createExpenseJSON{
		Name:         p.Name,
		Amount:       json.Number(p.Amount.StringFixed(places)),
		Date:         p.Date.UTC().Format(time.RFC3339),
		Category:     string(p.Category),
		Currency:     p.Currency,
		GroupID:      p.GroupID,
		PaidBy:       p.PaidBy,
		Description:  p.Description,
		ReceiptImage: p.Receipt,
	}
	for _, s := range p.Splits {
		body.Splits = append(body.Splits, createSplitJSON{
			MemberID: s.ParticipantID,
			Amount:   json.Number(s.Amount.StringFixed(places)),
			Paid:     s.IsSettled,
		})
	}
	return body
}

type transactionJSON struct {
	TransactionID string          `json:"TransactionID"`
	GroupID       string          `json:"GroupID"`
	From          string          `json:"From"`
	To            string          `json:"To"`
	Amount        decimal.Decimal `json:"Amount"`
	Currency      string          `json:"Currency"`
	Status        string          `json:"Status"`
}

func (t transactionJSON) toModel(groupID string) models.Transaction {
	status := models.TransactionStatus(t.Status)
	if !status.Valid() {
		status = models.TransactionPending
	}
	if t.GroupID != "" {
		groupID = t.GroupID
	}
	return models.Transaction{
		ID:       t.TransactionID,
		GroupID:  groupID,
		From:     t.From,
		To:       t.To,
		Amount:   t.Amount,
		Currency: t.Currency,
		Status:   status,
	}
}
