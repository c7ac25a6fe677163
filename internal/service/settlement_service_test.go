package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/mmynk/groupsplit/pkg/api"
)

func TestSettleGroup(t *testing.T) {
	env := setupTestServer(t)

	resp, err := env.settlement.SettleGroup(context.Background(), connect.NewRequest(&api.SettleGroupRequest{GroupID: "g1"}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Transactions, 2)

	first := resp.Msg.Transactions[0]
	assert.Equal(t, "t1", first.TransactionID)
	assert.Equal(t, "Bob", first.FromName)
	assert.Equal(t, "Alice", first.ToName)
	assert.Equal(t, "30", first.Amount)
	assert.Equal(t, "$30.00", first.FormattedAmount)
	assert.Equal(t, "pending", first.Status)

	second := resp.Msg.Transactions[1]
	assert.Equal(t, "carol@example.com", second.FromName)
	assert.Equal(t, "$12.50", second.FormattedAmount)
	assert.Equal(t, "completed", second.Status)
}

func TestSettleGroup_UnknownGroup(t *testing.T) {
	env := setupTestServer(t)

	_, err := env.settlement.SettleGroup(context.Background(), connect.NewRequest(&api.SettleGroupRequest{GroupID: "nope"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = env.settlement.SettleGroup(context.Background(), connect.NewRequest(&api.SettleGroupRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestPayTransaction(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.settlement.SettleGroup(ctx, connect.NewRequest(&api.SettleGroupRequest{GroupID: "g1"}))
	require.NoError(t, err)

	resp, err := env.settlement.PayTransaction(ctx, connect.NewRequest(&api.PayTransactionRequest{TransactionID: "t1"}))
	require.NoError(t, err)
	assert.Equal(t, "initiated", resp.Msg.Status)
	assert.NotEmpty(t, resp.Msg.AttemptID)
	assert.Equal(t, []string{"t1"}, env.backend.paid)

	attempts, err := env.store.ListPaymentAttempts(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "u1", attempts[0].CreatedBy)
	assert.Equal(t, "g1", attempts[0].GroupID)
	assert.Equal(t, "30", attempts[0].Amount.String())

	_, err = env.settlement.PayTransaction(ctx, connect.NewRequest(&api.PayTransactionRequest{TransactionID: "t2"}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	assert.Equal(t, []string{"t1"}, env.backend.paid)

	_, err = env.settlement.PayTransaction(ctx, connect.NewRequest(&api.PayTransactionRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestMarkSettled(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	_, err := env.settlement.MarkSettled(ctx, connect.NewRequest(&api.MarkSettledRequest{GroupID: "g1", TransactionID: "t1"}))
	require.NoError(t, err)
	assert.Equal(t, "completed", env.backend.statuses["t1"])

	_, err = env.settlement.PayTransaction(ctx, connect.NewRequest(&api.PayTransactionRequest{TransactionID: "t1"}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}
