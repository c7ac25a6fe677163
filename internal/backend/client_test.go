package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupsplit/internal/metrics"
	"github.com/mmynk/groupsplit/internal/models"
)

const groupBody = `{
	"GroupID": "g1",
	"name": "Trip",
	"members": [
		{"id": "m1", "userId": "u1", "name": "Alice", "email": "alice@example.com"},
		{"id": "m2", "userId": "u2", "name": "", "email": "bob@example.com"}
	],
	"createdAt": "2024-01-01T00:00:00Z",
	"updatedAt": "2024-01-02T00:00:00Z"
}`

func TestClient_GetGroup(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/groups/g1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		io.WriteString(w, groupBody)
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := WithToken(context.Background(), "tok")

	group, err := c.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", group.ID)
	assert.Equal(t, "Trip", group.Name)
	require.Len(t, group.Members, 2)
	assert.Equal(t, "u1", group.Members[0].UserID)
	assert.Equal(t, "bob@example.com", group.Members[1].Email)

	_, err = c.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup should be served from cache")

	c.InvalidateGroup("g1")
	_, err = c.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_GetGroup_CacheDisabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, groupBody)
	}))
	defer srv.Close()

	c := New(srv.URL, WithGroupCacheTTL(0))
	for i := 0; i < 3; i++ {
		_, err := c.GetGroup(context.Background(), "g1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		notFound bool
	}{
		{name: "not found", status: http.StatusNotFound, notFound: true},
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			_, err := New(srv.URL).GetGroup(context.Background(), "g1")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "nope", apiErr.Body)
			assert.Equal(t, tt.notFound, errors.Is(err, ErrNotFound))
		})
	}
}

func TestClient_ListExpenses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/expenses/group/g1", r.URL.Path)
		io.WriteString(w, `[
			{"ExpenseID": "e1", "name": "Dinner", "groupId": "g1", "amount": 90, "category": "food",
			 "currency": "EUR", "paidBy": "m1", "date": "2024-03-14T00:00:00Z",
			 "splits": [{"memberId": "m1", "amount": 45, "paid": true}, {"memberId": "m2", "amount": "45.00", "paid": false}]},
			{"ExpenseID": "e2", "name": "Misc", "groupId": "g1", "amount": 1.5, "category": "bogus", "paidBy": "m2",
			 "date": "2024-03-15T00:00:00Z"}
		]`)
	}))
	defer srv.Close()

	expenses, err := New(srv.URL, WithDefaultCurrency("USD")).ListExpenses(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, expenses, 2)

	assert.Equal(t, "e1", expenses[0].ID)
	assert.Equal(t, "EUR", expenses[0].Currency)
	assert.Equal(t, models.CategoryFood, expenses[0].Category)
	require.Len(t, expenses[0].Splits, 2)
	assert.True(t, expenses[0].Splits[0].IsSettled)
	assert.True(t, expenses[0].Splits[1].Amount.Equal(decimal.NewFromInt(45)))

	assert.Equal(t, "USD", expenses[1].Currency)
	assert.Equal(t, models.CategoryOther, expenses[1].Category)
}

func TestClient_CreateExpense(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/expenses", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"expense": {"ExpenseID": "exp-1", "name": "Dinner", "amount": 100, "paidBy": "m1",
			"date": "2024-05-10T00:00:00Z", "category": "food"}}`)
	}))
	defer srv.Close()

	payload := &models.ExpensePayload{
		IdempotencyKey: "key-1",
		Name:           "Dinner",
		Amount:         decimal.NewFromInt(100),
		Date:           time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Category:       models.CategoryFood,
		Currency:       "USD",
		GroupID:        "g1",
		PaidBy:         "m1",
		Splits: []models.SplitLine{
			{ParticipantID: "m1", Amount: decimal.RequireFromString("33.33"), IsSettled: true},
			{ParticipantID: "m2", Amount: decimal.RequireFromString("33.33")},
			{ParticipantID: "m3", Amount: decimal.RequireFromString("33.34")},
		},
	}

	expense, err := New(srv.URL).CreateExpense(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "exp-1", expense.ID)
	assert.Equal(t, "g1", expense.GroupID)
	assert.Equal(t, "USD", expense.Currency)

	assert.Equal(t, "Dinner", got["name"])
	assert.Equal(t, 100.0, got["amount"])
	assert.Equal(t, "2024-05-10T00:00:00Z", got["date"])
	assert.Equal(t, "g1", got["groupId"])
	assert.NotContains(t, got, "description")
	splits := got["splits"].([]any)
	require.Len(t, splits, 3)
	last := splits[2].(map[string]any)
	assert.Equal(t, "m3", last["memberId"])
	assert.Equal(t, 33.34, last["amount"])
	assert.Equal(t, false, last["paid"])
}

func TestClient_SettleGroup(t *testing.T) {
	bodies := map[string]string{
		"bare array": `[{"TransactionID": "t1", "From": "m2", "To": "m1", "Amount": 30, "Status": "pending"}]`,
		"wrapped":    `{"transactions": [{"TransactionID": "t1", "From": "m2", "To": "m1", "Amount": "30.00", "Status": "pending"}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/groups/g1/settle", r.URL.Path)
				io.WriteString(w, body)
			}))
			defer srv.Close()

			txs, err := New(srv.URL).SettleGroup(context.Background(), "g1")
			require.NoError(t, err)
			require.Len(t, txs, 1)
			assert.Equal(t, "t1", txs[0].ID)
			assert.Equal(t, "g1", txs[0].GroupID)
			assert.Equal(t, "m2", txs[0].From)
			assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(30)))
			assert.Equal(t, models.TransactionPending, txs[0].Status)
		})
	}
}

func TestClient_PayAndUpdateStatus(t *testing.T) {
	var statusBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transactions/t1/pay":
			assert.Equal(t, http.MethodPost, r.Method)
			io.WriteString(w, `{"status": "processing"}`)
		case "/api/transactions/t1/status":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&statusBody))
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	m := metrics.New()
	c := New(srv.URL, WithMetrics(m))

	status, err := c.PayTransaction(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "processing", status)

	require.NoError(t, c.UpdateTransactionStatus(context.Background(), "t1", models.TransactionCompleted))
	assert.Equal(t, "completed", statusBody["status"])

	_, err = c.PayTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := testutil.GatherAndCount(m.Registry(), "groupsplit_backend_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL, WithTimeout(time.Second)).ListExpenses(context.Background(), "g1")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
