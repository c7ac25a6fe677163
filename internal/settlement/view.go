// Package settlement displays settlement transactions computed by the backend and
// triggers payment and status updates for them. It never computes who owes whom.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
	"github.com/mmynk/groupsplit/internal/storage"
)

// UnknownUser is shown for a transaction party that is not a known group member.
const UnknownUser = "Unknown User"

// ErrAlreadySettled is returned when paying a transaction that is already completed.
var ErrAlreadySettled = errors.New("transaction already settled")

// Backend is the part of the backend client the view needs.
type Backend interface {
	SettleGroup(ctx context.Context, groupID string) ([]models.Transaction, error)
	PayTransaction(ctx context.Context, transactionID string) (string, error)
	UpdateTransactionStatus(ctx context.Context, transactionID string, status models.TransactionStatus) error
}

// Row is one display line for a transaction.
type Row struct {
	TransactionID   string
	From            string
	To              string
	FromName        string
	ToName          string
	Amount          string
	FormattedAmount string
	Status          models.TransactionStatus
}

// Rows maps transactions to display rows in the order given. Amounts are passed
// through unchanged apart from formatting.
func Rows(transactions []models.Transaction, members []models.Member, currency string) []Row {
	rows := make([]Row, 0, len(transactions))
	for _, tx := range transactions {
		cur := tx.Currency
		if cur == "" {
			cur = currency
		}
		rows = append(rows, Row{
			TransactionID:   tx.ID,
			From:            tx.From,
			To:              tx.To,
			FromName:        DisplayName(tx.From, members),
			ToName:          DisplayName(tx.To, members),
			Amount:          tx.Amount.String(),
			FormattedAmount: money.Format(tx.Amount, cur),
			Status:          tx.Status,
		})
	}
	return rows
}

// DisplayName resolves a party id (member id, user id or email) to a name.
// It falls back to the member's email and then to UnknownUser.
func DisplayName(id string, members []models.Member) string {
	for _, m := range members {
		if m.ID == id || m.UserID == id || (m.Email != "" && m.Email == id) {
			if m.Name != "" {
				return m.Name
			}
			if m.Email != "" {
				return m.Email
			}
			break
		}
	}
	return UnknownUser
}

// View triggers settlement actions and remembers the last transactions it saw so
// it can refuse to pay a completed one.
type View struct {
	backend Backend
	store   storage.Store

	mu    sync.RWMutex
	known map[string]models.Transaction
}

// NewView creates a view. store may be nil, in which case payment attempts are not journaled.
func NewView(backend Backend, store storage.Store) *View {
	return &View{
		backend: backend,
		store:   store,
		known:   make(map[string]models.Transaction),
	}
}

// Settle asks the backend for the group's settlement transactions.
func (v *View) Settle(ctx context.Context, groupID string) ([]models.Transaction, error) {
	txs, err := v.backend.SettleGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	v.remember(txs...)
	return txs, nil
}

func (v *View) remember(txs ...models.Transaction) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, tx := range txs {
		v.known[tx.ID] = tx
	}
}

func (v *View) lookup(transactionID string) (models.Transaction, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	tx, ok := v.known[transactionID]
	return tx, ok
}

// Pay triggers payment initiation for exactly transactionID and journals the attempt.
func (v *View) Pay(ctx context.Context, transactionID, userID string) (*models.PaymentAttempt, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("transaction id is required")
	}
	tx, known := v.lookup(transactionID)
	if known && tx.Status == models.TransactionCompleted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadySettled, transactionID)
	}

	status, err := v.backend.PayTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	attempt := &models.PaymentAttempt{
		TransactionID: transactionID,
		GroupID:       tx.GroupID,
		Amount:        tx.Amount,
		Status:        status,
		CreatedBy:     userID,
	}
	if v.store != nil {
		if err := v.store.CreatePaymentAttempt(ctx, attempt); err != nil {
			// The backend already accepted the payment; losing the journal entry is not fatal.
			slog.Error("Failed to record payment attempt", "transaction_id", transactionID, "error", err)
		}
	}
	return attempt, nil
}

// MarkSettled sets a transaction to completed.
func (v *View) MarkSettled(ctx context.Context, groupID, transactionID string) error {
	if transactionID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if err := v.backend.UpdateTransactionStatus(ctx, transactionID, models.TransactionCompleted); err != nil {
		return err
	}

	tx, ok := v.lookup(transactionID)
	if !ok {
		tx = models.Transaction{ID: transactionID, GroupID: groupID}
	}
	tx.Status = models.TransactionCompleted
	v.remember(tx)
	return nil
}
