// Package apiconnect wires the groupsplit.v1 services to Connect handlers and clients.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	api "github.com/mmynk/groupsplit/pkg/api"
)

const (
	SplitServiceName      = "groupsplit.v1.SplitService"
	ExpenseServiceName    = "groupsplit.v1.ExpenseService"
	SettlementServiceName = "groupsplit.v1.SettlementService"
)

const (
	SplitServiceAllocateProcedure = "/groupsplit.v1.SplitService/Allocate"

	ExpenseServiceSubmitExpenseProcedure = "/groupsplit.v1.ExpenseService/SubmitExpense"
	ExpenseServiceListExpensesProcedure  = "/groupsplit.v1.ExpenseService/ListExpenses"
	ExpenseServiceGetInsightsProcedure   = "/groupsplit.v1.ExpenseService/GetInsights"

	SettlementServiceSettleGroupProcedure    = "/groupsplit.v1.SettlementService/SettleGroup"
	SettlementServicePayTransactionProcedure = "/groupsplit.v1.SettlementService/PayTransaction"
	SettlementServiceMarkSettledProcedure    = "/groupsplit.v1.SettlementService/MarkSettled"
)

// routes serves each procedure from its handler and 404s the rest.
func routes(prefix string, handlers map[string]http.Handler) (string, http.Handler) {
	return prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// SplitServiceHandler is implemented by the split service.
type SplitServiceHandler interface {
	Allocate(context.Context, *connect.Request[api.AllocateRequest]) (*connect.Response[api.AllocateResponse], error)
}

// NewSplitServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewSplitServiceHandler(svc SplitServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return routes("/"+SplitServiceName+"/", map[string]http.Handler{
		SplitServiceAllocateProcedure: connect.NewUnaryHandler(SplitServiceAllocateProcedure, svc.Allocate, opts...),
	})
}

// SplitServiceClient is a client for groupsplit.v1.SplitService.
type SplitServiceClient interface {
	Allocate(context.Context, *connect.Request[api.AllocateRequest]) (*connect.Response[api.AllocateResponse], error)
}

type splitServiceClient struct {
	allocate *connect.Client[api.AllocateRequest, api.AllocateResponse]
}

// NewSplitServiceClient constructs a client. baseURL is the server root, e.g. http://localhost:8080.
func NewSplitServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SplitServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &splitServiceClient{
		allocate: connect.NewClient[api.AllocateRequest, api.AllocateResponse](httpClient, baseURL+SplitServiceAllocateProcedure, opts...),
	}
}

func (c *splitServiceClient) Allocate(ctx context.Context, req *connect.Request[api.AllocateRequest]) (*connect.Response[api.AllocateResponse], error) {
	return c.allocate.CallUnary(ctx, req)
}

// ExpenseServiceHandler is implemented by the expense service.
type ExpenseServiceHandler interface {
	SubmitExpense(context.Context, *connect.Request[api.SubmitExpenseRequest]) (*connect.Response[api.SubmitExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	GetInsights(context.Context, *connect.Request[api.GetInsightsRequest]) (*connect.Response[api.GetInsightsResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler from the service implementation.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return routes("/"+ExpenseServiceName+"/", map[string]http.Handler{
		ExpenseServiceSubmitExpenseProcedure: connect.NewUnaryHandler(ExpenseServiceSubmitExpenseProcedure, svc.SubmitExpense, opts...),
		ExpenseServiceListExpensesProcedure:  connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...),
		ExpenseServiceGetInsightsProcedure:   connect.NewUnaryHandler(ExpenseServiceGetInsightsProcedure, svc.GetInsights, opts...),
	})
}

// ExpenseServiceClient is a client for groupsplit.v1.ExpenseService.
type ExpenseServiceClient interface {
	SubmitExpense(context.Context, *connect.Request[api.SubmitExpenseRequest]) (*connect.Response[api.SubmitExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	GetInsights(context.Context, *connect.Request[api.GetInsightsRequest]) (*connect.Response[api.GetInsightsResponse], error)
}

type expenseServiceClient struct {
	submitExpense *connect.Client[api.SubmitExpenseRequest, api.SubmitExpenseResponse]
	listExpenses  *connect.Client[api.ListExpensesRequest, api.ListExpensesResponse]
	getInsights   *connect.Client[api.GetInsightsRequest, api.GetInsightsResponse]
}

// NewExpenseServiceClient constructs a client.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &expenseServiceClient{
		submitExpense: connect.NewClient[api.SubmitExpenseRequest, api.SubmitExpenseResponse](httpClient, baseURL+ExpenseServiceSubmitExpenseProcedure, opts...),
		listExpenses:  connect.NewClient[api.ListExpensesRequest, api.ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		getInsights:   connect.NewClient[api.GetInsightsRequest, api.GetInsightsResponse](httpClient, baseURL+ExpenseServiceGetInsightsProcedure, opts...),
	}
}

func (c *expenseServiceClient) SubmitExpense(ctx context.Context, req *connect.Request[api.SubmitExpenseRequest]) (*connect.Response[api.SubmitExpenseResponse], error) {
	return c.submitExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *expenseServiceClient) GetInsights(ctx context.Context, req *connect.Request[api.GetInsightsRequest]) (*connect.Response[api.GetInsightsResponse], error) {
	return c.getInsights.CallUnary(ctx, req)
}

// SettlementServiceHandler is implemented by the settlement service.
type SettlementServiceHandler interface {
	SettleGroup(context.Context, *connect.Request[api.SettleGroupRequest]) (*connect.Response[api.SettleGroupResponse], error)
	PayTransaction(context.Context, *connect.Request[api.PayTransactionRequest]) (*connect.Response[api.PayTransactionResponse], error)
	MarkSettled(context.Context, *connect.Request[api.MarkSettledRequest]) (*connect.Response[api.MarkSettledResponse], error)
}

// NewSettlementServiceHandler builds an HTTP handler from the service implementation.
func NewSettlementServiceHandler(svc SettlementServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return routes("/"+SettlementServiceName+"/", map[string]http.Handler{
		SettlementServiceSettleGroupProcedure:    connect.NewUnaryHandler(SettlementServiceSettleGroupProcedure, svc.SettleGroup, opts...),
		SettlementServicePayTransactionProcedure: connect.NewUnaryHandler(SettlementServicePayTransactionProcedure, svc.PayTransaction, opts...),
		SettlementServiceMarkSettledProcedure:    connect.NewUnaryHandler(SettlementServiceMarkSettledProcedure, svc.MarkSettled, opts...),
	})
}

// SettlementServiceClient is a client for groupsplit.v1.SettlementService.
type SettlementServiceClient interface {
	SettleGroup(context.Context, *connect.Request[api.SettleGroupRequest]) (*connect.Response[api.SettleGroupResponse], error)
	PayTransaction(context.Context, *connect.Request[api.PayTransactionRequest]) (*connect.Response[api.PayTransactionResponse], error)
	MarkSettled(context.Context, *connect.Request[api.MarkSettledRequest]) (*connect.Response[api.MarkSettledResponse], error)
}

type settlementServiceClient struct {
	settleGroup    *connect.Client[api.SettleGroupRequest, api.SettleGroupResponse]
	payTransaction *connect.Client[api.PayTransactionRequest, api.PayTransactionResponse]
	markSettled    *connect.Client[api.MarkSettledRequest, api.MarkSettledResponse]
}

// NewSettlementServiceClient constructs a client.
func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SettlementServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &settlementServiceClient{
		settleGroup:    connect.NewClient[api.SettleGroupRequest, api.SettleGroupResponse](httpClient, baseURL+SettlementServiceSettleGroupProcedure, opts...),
		payTransaction: connect.NewClient[api.PayTransactionRequest, api.PayTransactionResponse](httpClient, baseURL+SettlementServicePayTransactionProcedure, opts...),
		markSettled:    connect.NewClient[api.MarkSettledRequest, api.MarkSettledResponse](httpClient, baseURL+SettlementServiceMarkSettledProcedure, opts...),
	}
}

func (c *settlementServiceClient) SettleGroup(ctx context.Context, req *connect.Request[api.SettleGroupRequest]) (*connect.Response[api.SettleGroupResponse], error) {
	return c.settleGroup.CallUnary(ctx, req)
}

func (c *settlementServiceClient) PayTransaction(ctx context.Context, req *connect.Request[api.PayTransactionRequest]) (*connect.Response[api.PayTransactionResponse], error) {
	return c.payTransaction.CallUnary(ctx, req)
}

func (c *settlementServiceClient) MarkSettled(ctx context.Context, req *connect.Request[api.MarkSettledRequest]) (*connect.Response[api.MarkSettledResponse], error) {
	return c.markSettled.CallUnary(ctx, req)
}
