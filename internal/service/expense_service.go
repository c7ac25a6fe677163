package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/expense"
	"github.com/mmynk/groupsplit/internal/metrics"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
	"github.com/mmynk/groupsplit/internal/settlement"
	"github.com/mmynk/groupsplit/internal/storage"
	api "github.com/mmynk/groupsplit/pkg/api"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
)

var _ apiconnect.ExpenseServiceHandler = (*ExpenseService)(nil)

// ExpenseBackend is the part of the backend client the expense service uses.
type ExpenseBackend interface {
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	ListExpenses(ctx context.Context, groupID string) ([]models.Expense, error)
	CreateExpense(ctx context.Context, payload *models.ExpensePayload) (*models.Expense, error)
	InvalidateGroup(groupID string)
}

// ExpenseService implements the Connect ExpenseService.
type ExpenseService struct {
	backend         ExpenseBackend
	store           storage.Store
	metrics         *metrics.Metrics
	defaultCurrency string
	now             func() time.Time
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(backend ExpenseBackend, store storage.Store, m *metrics.Metrics, defaultCurrency string) *ExpenseService {
	if defaultCurrency == "" {
		defaultCurrency = money.DefaultCurrency
	}
	return &ExpenseService{
		backend:         backend,
		store:           store,
		metrics:         m,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
	}
}

// SubmitExpense validates the form, allocates the split and forwards the expense to
// the backend. Every submission is journaled under its idempotency key first; a
// request repeating a known key replays the journaled submission instead of
// creating a second expense.
func (s *ExpenseService) SubmitExpense(ctx context.Context, req *connect.Request[api.SubmitExpenseRequest]) (*connect.Response[api.SubmitExpenseResponse], error) {
	msg := req.Msg
	if msg.GroupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id is required"))
	}

	if msg.IdempotencyKey != "" {
		sub, err := s.store.GetSubmission(ctx, msg.IdempotencyKey)
		switch {
		case err == nil:
			if sub.GroupID != msg.GroupID {
				return nil, connect.NewError(connect.CodeInvalidArgument,
					fmt.Errorf("idempotency key %s belongs to another group", msg.IdempotencyKey))
			}
			return s.replay(ctx, sub)
		case !errors.Is(err, storage.ErrNotFound):
			return nil, storageError(err)
		}
	}

	draft := expense.Draft{
		Name:        msg.Name,
		Category:    parseCategory(msg.Category),
		Description: msg.Description,
		ReceiptRef:  msg.ReceiptImage,
		Currency:    normalizeCurrency(msg.Currency, s.defaultCurrency),
	}.Sanitize()
	date, dateErr := parseDate(msg.Date)
	if strings.TrimSpace(msg.Date) == "" {
		date = today(s.now())
	}
	draft.Date = date

	if err := draft.Validate(); err != nil || dateErr != nil {
		return nil, validationError(mergeDateError(err, dateErr))
	}

	group, err := s.backend.GetGroup(ctx, msg.GroupID)
	if err != nil {
		return nil, backendError(err)
	}
	if missingMember(group, msg.ParticipantIDs) != "" {
		// The cached group may predate a member joining.
		s.backend.InvalidateGroup(msg.GroupID)
		if group, err = s.backend.GetGroup(ctx, msg.GroupID); err != nil {
			return nil, backendError(err)
		}
	}
	if p := missingMember(group, msg.ParticipantIDs); p != "" {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("participant %q is not a member of group %s", p, msg.GroupID))
	}
	participants := msg.ParticipantIDs
	if len(participants) == 0 {
		participants = group.MemberIDs()
	}

	total := models.ExpenseTotal{Amount: msg.Amount, Currency: draft.Currency}
	alloc, err := allocate(s.metrics, msg.Method, total, participants, msg.PaidBy)
	if err != nil {
		return nil, splitError(err)
	}

	payload, err := expense.Compose(draft, msg.GroupID, msg.PaidBy, msg.Amount, alloc)
	if err != nil {
		var ve *expense.ValidationError
		if errors.As(err, &ve) {
			return nil, validationError(err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if msg.IdempotencyKey != "" {
		payload.IdempotencyKey = msg.IdempotencyKey
	}

	sub := &models.Submission{
		IdempotencyKey: payload.IdempotencyKey,
		GroupID:        msg.GroupID,
		Payload:        *payload,
	}
	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// A concurrent request with the same key won the insert.
			existing, gerr := s.store.GetSubmission(ctx, payload.IdempotencyKey)
			if gerr != nil {
				return nil, storageError(gerr)
			}
			return s.replay(ctx, existing)
		}
		return nil, storageError(err)
	}

	return s.send(ctx, sub, false)
}

// replay answers a request whose idempotency key is already journaled.
func (s *ExpenseService) replay(ctx context.Context, sub *models.Submission) (*connect.Response[api.SubmitExpenseResponse], error) {
	if sub.Status == models.SubmissionSubmitted {
		slog.Info("Replayed submitted expense", "idempotency_key", sub.IdempotencyKey, "expense_id", sub.ExpenseID)
		return connect.NewResponse(submitResponse(sub, true)), nil
	}
	slog.Info("Resending journaled expense", "idempotency_key", sub.IdempotencyKey, "status", sub.Status)
	return s.send(ctx, sub, true)
}

// send forwards a journaled submission and records the outcome.
func (s *ExpenseService) send(ctx context.Context, sub *models.Submission, replayed bool) (*connect.Response[api.SubmitExpenseResponse], error) {
	created, err := s.backend.CreateExpense(ctx, &sub.Payload)
	if err != nil {
		if merr := s.store.MarkFailed(context.WithoutCancel(ctx), sub.IdempotencyKey, err.Error()); merr != nil {
			slog.Error("Failed to journal submission failure", "idempotency_key", sub.IdempotencyKey, "error", merr)
		}
		slog.Warn("Expense submission failed", "group_id", sub.GroupID, "idempotency_key", sub.IdempotencyKey, "error", err)
		return nil, backendError(err)
	}

	if err := s.store.MarkSubmitted(context.WithoutCancel(ctx), sub.IdempotencyKey, created.ID); err != nil {
		// The expense exists in the backend; a later replay resends with the same key
		// and the backend deduplicates it.
		slog.Error("Failed to journal submitted expense", "idempotency_key", sub.IdempotencyKey, "error", err)
	}
	sub.Status = models.SubmissionSubmitted
	sub.ExpenseID = created.ID

	slog.Info("Expense submitted",
		"group_id", sub.GroupID,
		"expense_id", created.ID,
		"idempotency_key", sub.IdempotencyKey,
	)
	return connect.NewResponse(submitResponse(sub, replayed)), nil
}

func submitResponse(sub *models.Submission, replayed bool) *api.SubmitExpenseResponse {
	return &api.SubmitExpenseResponse{
		ExpenseID:      sub.ExpenseID,
		IdempotencyKey: sub.IdempotencyKey,
		Status:         string(sub.Status),
		Replayed:       replayed,
		Lines:          toAPILines(sub.Payload.Splits),
	}
}

// ListExpenses returns the group's expenses from the backend along with any
// submissions the backend has not confirmed yet.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	groupID := req.Msg.GroupID
	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id is required"))
	}

	var (
		expenses []models.Expense
		pending  []*models.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if expenses, err = s.backend.ListExpenses(gctx, groupID); err != nil {
			return backendError(err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if pending, err = s.store.ListPendingSubmissions(gctx, groupID); err != nil {
			return storageError(err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &api.ListExpensesResponse{Expenses: make([]api.Expense, 0, len(expenses))}
	for _, e := range expenses {
		resp.Expenses = append(resp.Expenses, toAPIExpense(e))
	}
	for _, p := range pending {
		resp.Pending = append(resp.Pending, api.PendingSubmission{
			IdempotencyKey: p.IdempotencyKey,
			Name:           p.Payload.Name,
			Amount:         p.Payload.Amount,
			Status:         string(p.Status),
			Error:          p.Error,
		})
	}
	return connect.NewResponse(resp), nil
}

// GetInsights aggregates the group's expenses by member, category and month.
func (s *ExpenseService) GetInsights(ctx context.Context, req *connect.Request[api.GetInsightsRequest]) (*connect.Response[api.GetInsightsResponse], error) {
	groupID := req.Msg.GroupID
	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id is required"))
	}
	currency := normalizeCurrency(req.Msg.Currency, s.defaultCurrency)

	var (
		group    *models.Group
		expenses []models.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		group, err = s.backend.GetGroup(gctx, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.backend.ListExpenses(gctx, groupID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, backendError(err)
	}

	summary := calculator.Summarize(expenses, currency)
	resp := &api.GetInsightsResponse{
		Currency:   summary.Currency,
		Total:      summary.Total,
		Members:    []api.MemberTotal{},
		Categories: []api.CategoryTotal{},
		Months:     []api.MonthTotal{},
	}
	for _, m := range summary.Members {
		resp.Members = append(resp.Members, api.MemberTotal{
			MemberID: m.MemberID,
			Name:     settlement.DisplayName(m.MemberID, group.Members),
			Paid:     m.Paid,
			Share:    m.Share,
			Net:      m.Net(),
		})
	}
	for _, c := range summary.Categories {
		resp.Categories = append(resp.Categories, api.CategoryTotal{Category: string(c.Category), Amount: c.Amount})
	}
	for _, m := range summary.Months {
		resp.Months = append(resp.Months, api.MonthTotal{Month: m.Month, Amount: m.Amount})
	}
	return connect.NewResponse(resp), nil
}

func toAPIExpense(e models.Expense) api.Expense {
	out := api.Expense{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Name:         e.Name,
		Description:  e.Description,
		Amount:       e.Amount,
		Currency:     e.Currency,
		PaidBy:       e.PaidBy,
		Category:     string(e.Category),
		ReceiptImage: e.Receipt,
		Splits:       toAPILines(e.Splits),
	}
	if !e.Date.IsZero() {
		out.Date = e.Date.UTC().Format(time.RFC3339)
	}
	return out
}

func parseCategory(raw string) models.Category {
	if c, err := models.ParseCategory(raw); err == nil {
		return c
	}
	return models.Category(raw)
}

// missingMember returns the first participant that is not a member of group.
func missingMember(group *models.Group, participants []string) string {
	for _, p := range participants {
		if !group.HasMember(p) {
			return p
		}
	}
	return ""
}

// today is midnight UTC of the calendar day t falls on in UTC.
func today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. An empty
// string yields the zero time.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// mergeDateError replaces the generic "date is required" message with the parse
// failure when the date was present but malformed.
func mergeDateError(validateErr, dateErr error) error {
	if dateErr == nil {
		return validateErr
	}
	ve := &expense.ValidationError{}
	if validateErr != nil {
		errors.As(validateErr, &ve)
	}
	fields := ve.Fields[:0:0]
	for _, f := range ve.Fields {
		if f.Field != "date" {
			fields = append(fields, f)
		}
	}
	fields = append(fields, expense.FieldError{Field: "date", Message: dateErr.Error()})
	return &expense.ValidationError{Fields: fields}
}
