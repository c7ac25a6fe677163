package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupsplit/internal/backend"
	"github.com/mmynk/groupsplit/internal/metrics"
	"github.com/mmynk/groupsplit/internal/middleware"
	"github.com/mmynk/groupsplit/internal/settlement"
	"github.com/mmynk/groupsplit/internal/storage/sqlite"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
)

// testAuthInterceptor returns a Connect interceptor that sets a test user and token in the context.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx = middleware.WithUser(ctx, "u1", "alice@example.com")
			ctx = backend.WithToken(ctx, "test-token")
			return next(ctx, req)
		}
	}
}

// fakeBackend is an in-memory stand-in for the expense backend's REST API.
type fakeBackend struct {
	mu sync.Mutex

	group        string
	groupFetches int
	expenses     []map[string]any
	byKey        map[string]string
	createCalls  int
	failCreates  int
	transactions []map[string]any
	paid         []string
	statuses     map[string]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		group:    testGroup,
		byKey:    make(map[string]string),
		statuses: make(map[string]string),
		transactions: []map[string]any{
			{"TransactionID": "t1", "From": "m2", "To": "m1", "Amount": 30, "Status": "pending"},
			{"TransactionID": "t2", "From": "m3", "To": "m1", "Amount": "12.5", "Status": "completed"},
		},
	}
}

const testGroup = `{
	"GroupID": "g1",
	"name": "Trip",
	"members": [
		{"id": "m1", "userId": "u1", "name": "Alice", "email": "alice@example.com"},
		{"id": "m2", "userId": "u2", "name": "Bob", "email": "bob@example.com"},
		{"id": "m3", "userId": "u3", "email": "carol@example.com"}
	]
}`

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/groups/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "g1" {
			http.Error(w, "group not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.groupFetches++
		io.WriteString(w, f.group)
	})
	mux.HandleFunc("GET /api/expenses/group/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := []map[string]any{}
		for _, e := range f.expenses {
			if e["groupId"] == r.PathValue("id") {
				list = append(list, e)
			}
		}
		json.NewEncoder(w).Encode(list)
	})
	mux.HandleFunc("POST /api/expenses", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.createCalls++
		if f.failCreates > 0 {
			f.failCreates--
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		key := r.Header.Get("Idempotency-Key")
		id, seen := f.byKey[key]
		if !seen {
			id = fmt.Sprintf("exp-%d", len(f.expenses)+1)
			body["ExpenseID"] = id
			f.expenses = append(f.expenses, body)
			if key != "" {
				f.byKey[key] = id
			}
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"expense": map[string]any{"ExpenseID": id, "groupId": body["groupId"]}})
	})
	mux.HandleFunc("POST /api/groups/{id}/settle", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"transactions": f.transactions})
	})
	mux.HandleFunc("POST /api/transactions/{id}/pay", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.paid = append(f.paid, r.PathValue("id"))
		io.WriteString(w, `{"status": "initiated"}`)
	})
	mux.HandleFunc("PUT /api/transactions/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.statuses[r.PathValue("id")] = body.Status
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

type testEnv struct {
	split      apiconnect.SplitServiceClient
	expense    apiconnect.ExpenseServiceClient
	settlement apiconnect.SettlementServiceClient
	backend    *fakeBackend
	store      *sqlite.SQLiteStore
	metrics    *metrics.Metrics
}

// setupTestServer wires every service against a fake backend and a temp SQLite journal.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	fake := newFakeBackend()
	backendSrv := httptest.NewServer(fake.handler())
	t.Cleanup(backendSrv.Close)

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })

	m := metrics.New()
	client := backend.New(backendSrv.URL, backend.WithMetrics(m))

	interceptors := connect.WithInterceptors(testAuthInterceptor(), middleware.LoggingInterceptor(m))
	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewSplitServiceHandler(NewSplitService(m, "USD"), interceptors))
	mux.Handle(apiconnect.NewExpenseServiceHandler(NewExpenseService(client, store, m, "USD"), interceptors))
	mux.Handle(apiconnect.NewSettlementServiceHandler(
		NewSettlementService(settlement.NewView(client, store), client, "USD"), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{
		split:      apiconnect.NewSplitServiceClient(http.DefaultClient, server.URL),
		expense:    apiconnect.NewExpenseServiceClient(http.DefaultClient, server.URL),
		settlement: apiconnect.NewSettlementServiceClient(http.DefaultClient, server.URL),
		backend:    fake,
		store:      store,
		metrics:    m,
	}
}
