package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/groupsplit/internal/middleware"
	"github.com/mmynk/groupsplit/internal/models"
	"github.com/mmynk/groupsplit/internal/money"
	"github.com/mmynk/groupsplit/internal/settlement"
	api "github.com/mmynk/groupsplit/pkg/api"
	"github.com/mmynk/groupsplit/pkg/api/apiconnect"
)

var _ apiconnect.SettlementServiceHandler = (*SettlementService)(nil)

// GroupGetter looks up a group and its members.
type GroupGetter interface {
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
}

// SettlementService implements the Connect SettlementService.
type SettlementService struct {
	view            *settlement.View
	groups          GroupGetter
	defaultCurrency string
}

// NewSettlementService creates a SettlementService.
func NewSettlementService(view *settlement.View, groups GroupGetter, defaultCurrency string) *SettlementService {
	if defaultCurrency == "" {
		defaultCurrency = money.DefaultCurrency
	}
	return &SettlementService{view: view, groups: groups, defaultCurrency: defaultCurrency}
}

// SettleGroup asks the backend to settle the group and returns display rows.
func (s *SettlementService) SettleGroup(ctx context.Context, req *connect.Request[api.SettleGroupRequest]) (*connect.Response[api.SettleGroupResponse], error) {
	groupID := req.Msg.GroupID
	if groupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id is required"))
	}

	var (
		group *models.Group
		txs   []models.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		group, err = s.groups.GetGroup(gctx, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.view.Settle(gctx, groupID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, backendError(err)
	}

	rows := settlement.Rows(txs, group.Members, s.defaultCurrency)
	resp := &api.SettleGroupResponse{Transactions: make([]api.TransactionRow, 0, len(rows))}
	for _, r := range rows {
		resp.Transactions = append(resp.Transactions, api.TransactionRow{
			TransactionID:   r.TransactionID,
			From:            r.From,
			To:              r.To,
			FromName:        r.FromName,
			ToName:          r.ToName,
			Amount:          r.Amount,
			FormattedAmount: r.FormattedAmount,
			Status:          string(r.Status),
		})
	}
	return connect.NewResponse(resp), nil
}

// PayTransaction triggers payment for one transaction.
func (s *SettlementService) PayTransaction(ctx context.Context, req *connect.Request[api.PayTransactionRequest]) (*connect.Response[api.PayTransactionResponse], error) {
	if req.Msg.TransactionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("transaction_id is required"))
	}

	attempt, err := s.view.Pay(ctx, req.Msg.TransactionID, middleware.GetUserID(ctx))
	if err != nil {
		if errors.Is(err, settlement.ErrAlreadySettled) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		}
		return nil, backendError(err)
	}

	return connect.NewResponse(&api.PayTransactionResponse{
		AttemptID: attempt.ID,
		Status:    attempt.Status,
	}), nil
}

// MarkSettled marks one transaction as completed.
func (s *SettlementService) MarkSettled(ctx context.Context, req *connect.Request[api.MarkSettledRequest]) (*connect.Response[api.MarkSettledResponse], error) {
	if req.Msg.TransactionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("transaction_id is required"))
	}

	if err := s.view.MarkSettled(ctx, req.Msg.GroupID, req.Msg.TransactionID); err != nil {
		return nil, backendError(err)
	}
	return connect.NewResponse(&api.MarkSettledResponse{}), nil
}
