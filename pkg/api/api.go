// Package api defines the groupsplit.v1 request and response messages.
//
// Messages travel as JSON. Amounts are decimal strings on output and are accepted
// as strings or numbers on input.
package api

import "github.com/shopspring/decimal"

// Money is an amount in a currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// SplitMethod selects how a total is divided. Kind is "equal", "percentage" or "manual".
// Weights is read for percentage splits and Amounts for manual splits.
type SplitMethod struct {
	Kind    string                     `json:"kind"`
	Weights map[string]decimal.Decimal `json:"weights,omitempty"`
	Amounts map[string]decimal.Decimal `json:"amounts,omitempty"`
}

// SplitLine is one participant's share.
type SplitLine struct {
	ParticipantID string          `json:"participantId"`
	Amount        decimal.Decimal `json:"amount"`
	IsSettled     bool            `json:"isSettled"`
}

type AllocateRequest struct {
	Total          Money       `json:"total"`
	ParticipantIDs []string    `json:"participantIds"`
	Method         SplitMethod `json:"method"`
	PayerID        string      `json:"payerId"`
}

type AllocateResponse struct {
	Currency string      `json:"currency"`
	Lines    []SplitLine `json:"lines"`
}

// SubmitExpenseRequest carries the expense form. ParticipantIDs defaults to every
// member of the group. Date accepts RFC 3339 or YYYY-MM-DD.
type SubmitExpenseRequest struct {
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	GroupID        string          `json:"groupId"`
	PaidBy         string          `json:"paidBy"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
	Date           string          `json:"date"`
	Category       string          `json:"category"`
	Description    string          `json:"description,omitempty"`
	ReceiptImage   string          `json:"receiptImage,omitempty"`
	Method         SplitMethod     `json:"method"`
	ParticipantIDs []string        `json:"participantIds,omitempty"`
}

type SubmitExpenseResponse struct {
	ExpenseID      string      `json:"expenseId"`
	IdempotencyKey string      `json:"idempotencyKey"`
	Status         string      `json:"status"`
	Replayed       bool        `json:"replayed"`
	Lines          []SplitLine `json:"lines"`
}

type ListExpensesRequest struct {
	GroupID string `json:"groupId"`
}

type Expense struct {
	ID           string          `json:"id"`
	GroupID      string          `json:"groupId"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	PaidBy       string          `json:"paidBy"`
	Date         string          `json:"date"`
	Category     string          `json:"category"`
	ReceiptImage string          `json:"receiptImage,omitempty"`
	Splits       []SplitLine     `json:"splits"`
}

// PendingSubmission is a journaled submission the backend has not confirmed.
type PendingSubmission struct {
	IdempotencyKey string          `json:"idempotencyKey"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	Error          string          `json:"error,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []Expense          `json:"expenses"`
	Pending  []PendingSubmission `json:"pending,omitempty"`
}

type GetInsightsRequest struct {
	GroupID  string `json:"groupId"`
	Currency string `json:"currency,omitempty"`
}

type MemberTotal struct {
	MemberID string          `json:"memberId"`
	Name     string          `json:"name"`
	Paid     decimal.Decimal `json:"paid"`
	Share    decimal.Decimal `json:"share"`
	Net      decimal.Decimal `json:"net"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type MonthTotal struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type GetInsightsResponse struct {
	Currency   string          `json:"currency"`
	Total      decimal.Decimal `json:"total"`
	Members    []MemberTotal   `json:"members"`
	Categories []CategoryTotal `json:"categories"`
	Months     []MonthTotal    `json:"months"`
}

type SettleGroupRequest struct {
	GroupID string `json:"groupId"`
}

// TransactionRow is a settlement transaction ready for display.
type TransactionRow struct {
	TransactionID   string `json:"transactionId"`
	From            string `json:"from"`
	To              string `json:"to"`
	FromName        string `json:"fromName"`
	ToName          string `json:"toName"`
	Amount          string `json:"amount"`
	FormattedAmount string `json:"formattedAmount"`
	Status          string `json:"status"`
}

type SettleGroupResponse struct {
	Transactions []TransactionRow `json:"transactions"`
}

type PayTransactionRequest struct {
	TransactionID string `json:"transactionId"`
}

type PayTransactionResponse struct {
	AttemptID string `json:"attemptId"`
	Status    string `json:"status"`
}

type MarkSettledRequest struct {
	GroupID       string `json:"groupId"`
	TransactionID string `json:"transactionId"`
}

type MarkSettledResponse struct{}
