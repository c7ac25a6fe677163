package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err, "Failed to create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func testPayload(key, groupID string) models.ExpensePayload {
	return models.ExpensePayload{
		IdempotencyKey: key,
		Name:           "Dinner",
		Amount:         decimal.RequireFromString("100.00"),
		Date:           time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		Category:       models.CategoryFood,
		Currency:       "USD",
		GroupID:        groupID,
		PaidBy:         "m1",
		Splits: []models.SplitLine{
			{ParticipantID: "m1", Amount: decimal.RequireFromString("50.00"), IsSettled: true},
			{ParticipantID: "m2", Amount: decimal.RequireFromString("50.00")},
		},
	}
}

func TestSQLiteStore_Submissions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateSubmission defaults to pending", func(t *testing.T) {
		sub := &models.Submission{IdempotencyKey: "k1", GroupID: "g1", Payload: testPayload("k1", "g1")}
		require.NoError(t, store.CreateSubmission(ctx, sub))

		assert.Equal(t, models.SubmissionPending, sub.Status)
		assert.NotZero(t, sub.CreatedAt)

		got, err := store.GetSubmission(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "g1", got.GroupID)
		assert.Equal(t, models.SubmissionPending, got.Status)
		assert.Equal(t, "Dinner", got.Payload.Name)
		assert.True(t, got.Payload.Amount.Equal(decimal.NewFromInt(100)))
		require.Len(t, got.Payload.Splits, 2)
		assert.True(t, got.Payload.Splits[0].IsSettled)
		assert.Equal(t, "k1", got.Payload.IdempotencyKey)
	})

	t.Run("CreateSubmission rejects duplicate key", func(t *testing.T) {
		sub := &models.Submission{IdempotencyKey: "k1", GroupID: "g1", Payload: testPayload("k1", "g1")}
		err := store.CreateSubmission(ctx, sub)
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	t.Run("GetSubmission returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetSubmission(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("MarkFailed then MarkSubmitted", func(t *testing.T) {
		sub := &models.Submission{IdempotencyKey: "k2", GroupID: "g1", Payload: testPayload("k2", "g1")}
		require.NoError(t, store.CreateSubmission(ctx, sub))

		require.NoError(t, store.MarkFailed(ctx, "k2", "backend unavailable"))
		got, err := store.GetSubmission(ctx, "k2")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionFailed, got.Status)
		assert.Equal(t, "backend unavailable", got.Error)

		require.NoError(t, store.MarkSubmitted(ctx, "k2", "exp-9"))
		got, err = store.GetSubmission(ctx, "k2")
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionSubmitted, got.Status)
		assert.Equal(t, "exp-9", got.ExpenseID)
		assert.Empty(t, got.Error)

		// A confirmed submission never regresses to failed.
		assert.ErrorIs(t, store.MarkFailed(ctx, "k2", "late error"), storage.ErrNotFound)
	})

	t.Run("Mark on unknown key", func(t *testing.T) {
		assert.ErrorIs(t, store.MarkSubmitted(ctx, "nope", "x"), storage.ErrNotFound)
		assert.ErrorIs(t, store.MarkFailed(ctx, "nope", "x"), storage.ErrNotFound)
	})

	t.Run("ListPendingSubmissions excludes submitted and other groups", func(t *testing.T) {
		for _, key := range []string{"k3", "k4"} {
			require.NoError(t, store.CreateSubmission(ctx, &models.Submission{
				IdempotencyKey: key, GroupID: "g2", Payload: testPayload(key, "g2"),
			}))
		}
		require.NoError(t, store.CreateSubmission(ctx, &models.Submission{
			IdempotencyKey: "other", GroupID: "g3", Payload: testPayload("other", "g3"),
		}))
		require.NoError(t, store.MarkSubmitted(ctx, "k4", "exp-4"))

		pending, err := store.ListPendingSubmissions(ctx, "g2")
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "k3", pending[0].IdempotencyKey)

		pending, err = store.ListPendingSubmissions(ctx, "g1")
		require.NoError(t, err)
		for _, p := range pending {
			assert.NotEqual(t, models.SubmissionSubmitted, p.Status)
		}
	})
}

func TestSQLiteStore_PaymentAttempts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := &models.PaymentAttempt{
		TransactionID: "tx1",
		GroupID:       "g1",
		Amount:        decimal.RequireFromString("12.50"),
		Status:        "initiated",
		CreatedAt:     100,
		CreatedBy:     "u1",
	}
	require.NoError(t, store.CreatePaymentAttempt(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := &models.PaymentAttempt{
		TransactionID: "tx1",
		GroupID:       "g1",
		Amount:        decimal.RequireFromString("12.50"),
		Status:        "initiated",
		CreatedAt:     200,
		CreatedBy:     "u1",
	}
	require.NoError(t, store.CreatePaymentAttempt(ctx, second))
	require.NoError(t, store.CreatePaymentAttempt(ctx, &models.PaymentAttempt{
		TransactionID: "tx2", GroupID: "g1", Amount: decimal.NewFromInt(1), Status: "initiated", CreatedBy: "u2",
	}))

	attempts, err := store.ListPaymentAttempts(ctx, "tx1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, second.ID, attempts[0].ID)
	assert.Equal(t, first.ID, attempts[1].ID)
	assert.Equal(t, "12.5", attempts[0].Amount.String())

	none, err := store.ListPaymentAttempts(ctx, "tx-missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.CreateSubmission(ctx, &models.Submission{
		IdempotencyKey: "persist", GroupID: "g1", Payload: testPayload("persist", "g1"),
	}))
	require.NoError(t, store.Close())

	reopened, err := New(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetSubmission(ctx, "persist")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.GroupID)
}

func TestSQLiteStore_ConcurrentWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.CreatePaymentAttempt(ctx, &models.PaymentAttempt{
				TransactionID: "tx", GroupID: "g", Amount: decimal.NewFromInt(1), Status: "initiated", CreatedBy: "u",
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	attempts, err := store.ListPaymentAttempts(ctx, "tx")
	require.NoError(t, err)
	assert.Len(t, attempts, 20)
}
