package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/groupsplit/internal/calculator"
	"github.com/mmynk/groupsplit/internal/metrics"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
	api "github.com/mmynk/groupsplit/pkg/api"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
)

var _ apiconnect.SplitServiceHandler = (*SplitService)(nil)

// SplitService implements the Connect SplitService.
type SplitService struct {
	metrics         *metrics.Metrics
	defaultCurrency string
}

// NewSplitService creates a SplitService. m may be nil.
func NewSplitService(m *metrics.Metrics, defaultCurrency string) *SplitService {
	if defaultCurrency == "" {
		defaultCurrency = money.DefaultCurrency
	}
	return &SplitService{metrics: m, defaultCurrency: defaultCurrency}
}

// Allocate divides a total among participants.
func (s *SplitService) Allocate(ctx context.Context, req *connect.Request[api.AllocateRequest]) (*connect.Response[api.AllocateResponse], error) {
	msg := req.Msg
	currency := normalizeCurrency(msg.Total.Currency, s.defaultCurrency)

	alloc, err := allocate(s.metrics, msg.Method, models.ExpenseTotal{Amount: msg.Total.Amount, Currency: currency}, msg.ParticipantIDs, msg.PayerID)
	if err != nil {
		slog.Debug("Allocate rejected", "error", err)
		return nil, splitError(err)
	}

	return connect.NewResponse(&api.AllocateResponse{
		Currency: alloc.Currency,
		Lines:    toAPILines(alloc.Lines),
	}), nil
}

// allocate runs the calculator and counts the outcome.
func allocate(m *metrics.Metrics, method api.SplitMethod, total models.ExpenseTotal, participants []string, payerID string) (*calculator.Allocation, error) {
	kind := strings.ToLower(strings.TrimSpace(method.Kind))
	if kind == "" {
		kind = string(models.SplitEqual)
	}
	if !models.SplitKind(kind).Valid() {
		kind = "unknown"
	}

	calcMethod, err := calculator.NewMethod(method.Kind, method.Weights, method.Amounts)
	if err == nil {
		var alloc *calculator.Allocation
		alloc, err = calculator.Allocate(total, participants, calcMethod, payerID)
		if err == nil {
			m.ObserveAllocation(kind, "ok")
			return alloc, nil
		}
	}

	outcome := "error"
	var se *calculator.SplitError
	if errors.As(err, &se) {
		outcome = string(se.Kind)
	}
	m.ObserveAllocation(kind, outcome)
	return nil, err
}

func normalizeCurrency(code, fallback string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fallback
	}
	return code
}

func toAPILines(lines []models.SplitLine) []api.SplitLine {
	out := make([]api.SplitLine, len(lines))
	for i, l := range lines {
		out[i] = api.SplitLine{
			ParticipantID: l.ParticipantID,
			Amount:        l.Amount,
			IsSettled:     l.IsSettled,
		}
	}
	return out
}
