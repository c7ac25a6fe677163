// Package backend is the HTTP client for the external expense backend that owns
// groups, expenses and settlement transactions.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mmynk/groupsplit/internal/metrics"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultCacheTTL = 30 * time.Second
	maxErrorBody    = 4 << 10
)

// ErrNotFound is returned for a 404 from the backend.
var ErrNotFound = errors.New("backend: not found")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx. Every request made with
// that context forwards it in the Authorization header.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached by WithToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to the backend REST API.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	groups          *cache.Cache
	metrics         *metrics.Metrics
	defaultCurrency string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithGroupCacheTTL sets how long group lookups are cached. Zero disables caching.
func WithGroupCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.groups = nil
			return
		}
		c.groups = cache.New(ttl, 2*ttl)
	}
}

// WithMetrics records request counts into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithDefaultCurrency sets the currency assumed for expenses the backend returns without one.
func WithDefaultCurrency(code string) Option {
	return func(c *Client) { c.defaultCurrency = code }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		httpClient:      &http.Client{Timeout: defaultTimeout},
		groups:          cache.New(defaultCacheTTL, 2*defaultCacheTTL),
		defaultCurrency: money.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetGroup fetches a group and its members. Results are cached per token and group.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	key := TokenFromContext(ctx) + "|" + groupID
	if c.groups != nil {
		if g, ok := c.groups.Get(key); ok {
			return g.(*models.Group), nil
		}
	}

	var body groupJSON
	if err := c.do(ctx, "get_group", http.MethodGet, "/api/groups/"+url.PathEscape(groupID), nil, nil, &body); err != nil {
		return nil, err
	}
	group := body.toModel()
	if group.ID == "" {
		group.ID = groupID
	}

	if c.groups != nil {
		c.groups.SetDefault(key, group)
	}
	return group, nil
}

// InvalidateGroup drops any cached copies of a group.
func (c *Client) InvalidateGroup(groupID string) {
	if c.groups == nil {
		return
	}
	for key := range c.groups.Items() {
		if strings.HasSuffix(key, "|"+groupID) {
			c.groups.Delete(key)
		}
	}
}

// ListExpenses returns the expenses of a group.
func (c *Client) ListExpenses(ctx context.Context, groupID string) ([]models.Expense, error) {
	var body []expenseJSON
	if err := c.do(ctx, "list_expenses", http.MethodGet, "/api/expenses/group/"+url.PathEscape(groupID), nil, nil, &body); err != nil {
		return nil, err
	}
	expenses := make([]models.Expense, 0, len(body))
	for _, e := range body {
		expenses = append(expenses, e.toModel(c.defaultCurrency))
	}
	return expenses, nil
}

// CreateExpense submits a composed payload. The payload's idempotency key is sent
// in the Idempotency-Key header so the backend can deduplicate retries.
func (c *Client) CreateExpense(ctx context.Context, payload *models.ExpensePayload) (*models.Expense, error) {
	headers := http.Header{}
	if payload.IdempotencyKey != "" {
		headers.Set("Idempotency-Key", payload.IdempotencyKey)
	}

	var body struct {
		Expense expenseJSON `json:"expense"`
	}
	if err := c.do(ctx, "create_expense", http.MethodPost, "/api/expenses", headers, newCreateExpenseJSON(payload), &body); err != nil {
		return nil, err
	}
	expense := body.Expense.toModel(payload.Currency)
	if expense.GroupID == "" {
		expense.GroupID = payload.GroupID
	}
	return &expense, nil
}

// SettleGroup asks the backend to compute settlement transactions for a group.
// The backend answers either with a bare array or with {"transactions": [...]}.
func (c *Client) SettleGroup(ctx context.Context, groupID string) ([]models.Transaction, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "settle_group", http.MethodPost, "/api/groups/"+url.PathEscape(groupID)+"/settle", nil, nil, &raw); err != nil {
		return nil, err
	}

	var list []transactionJSON
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode transactions: %w", err)
		}
	default:
		var wrapped struct {
			Transactions []transactionJSON `json:"transactions"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("failed to decode transactions: %w", err)
		}
		list = wrapped.Transactions
	}

	transactions := make([]models.Transaction, 0, len(list))
	for _, t := range list {
		transactions = append(transactions, t.toModel(groupID))
	}
	return transactions, nil
}

// PayTransaction triggers payment initiation for a transaction and returns the
// status the backend reports for it.
func (c *Client) PayTransaction(ctx context.Context, transactionID string) (string, error) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "pay_transaction", http.MethodPost, "/api/transactions/"+url.PathEscape(transactionID)+"/pay", nil, nil, &body); err != nil {
		return "", err
	}
	if body.Status == "" {
		body.Status = "initiated"
	}
	return body.Status, nil
}

// UpdateTransactionStatus sets the status of a settlement transaction.
func (c *Client) UpdateTransactionStatus(ctx context.Context, transactionID string, status models.TransactionStatus) error {
	req := struct {
		Status string `json:"status"`
	}{Status: string(status)}
	return c.do(ctx, "update_transaction_status", http.MethodPut, "/api/transactions/"+url.PathEscape(transactionID)+"/status", nil, req, nil)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, headers http.Header, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(endpoint, "error")
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveBackend(endpoint, strconv.Itoa(resp.StatusCode))
	slog.Debug("Backend request",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
