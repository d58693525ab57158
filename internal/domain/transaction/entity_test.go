package transaction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safenet-risk-service/internal/pkg/geo"
)

func TestTransactionStatusTransitions(t *testing.T) {
	tx := New(uuid.New(), TypeTransfer, decimal.NewFromInt(100), "DZD")
	assert.Equal(t, StatusPending, tx.Status)

	require.NoError(t, tx.Complete())
	assert.Equal(t, StatusCompleted, tx.Status)

	assert.ErrorIs(t, tx.Complete(), ErrNotPending)
	assert.ErrorIs(t, tx.Cancel(), ErrNotPending)
}

func TestTransactionCancelOnlyWhilePending(t *testing.T) {
	tx := New(uuid.New(), TypeWithdraw, decimal.NewFromInt(100), "DZD")
	require.NoError(t, tx.Cancel())
	assert.Equal(t, StatusCancelled, tx.Status)
}

func TestTypeIsDebit(t *testing.T) {
	assert.True(t, TypeWithdraw.IsDebit())
	assert.True(t, TypeTransfer.IsDebit())
	assert.False(t, TypeDeposit.IsDebit())
}

func TestClientDebitGuardsBalance(t *testing.T) {
	c := &ClientProfile{Balance: decimal.NewFromInt(100)}

	assert.ErrorIs(t, c.Debit(decimal.NewFromInt(101)), ErrInsufficientFunds)
	require.NoError(t, c.Debit(decimal.NewFromInt(100)))
	assert.True(t, c.Balance.IsZero())

	c.Credit(decimal.NewFromInt(250))
	assert.True(t, c.Balance.Equal(decimal.NewFromInt(250)))
}

func TestVerifyLocationCopiesPoint(t *testing.T) {
	c := &ClientProfile{}
	p := &geo.Point{Latitude: 36.75, Longitude: 3.05}

	c.VerifyLocation(p)
	require.NotNil(t, c.LastVerifiedLocation)

	p.Latitude = 0
	assert.Equal(t, 36.75, c.LastVerifiedLocation.Latitude, "the stored point must not alias the caller's")

	c.VerifyLocation(nil)
	assert.NotNil(t, c.LastVerifiedLocation, "nil input leaves the trusted point untouched")
}

func TestAccountAgeDays(t *testing.T) {
	now := time.Now()
	c := &ClientProfile{CreatedAt: now.AddDate(0, 0, -10)}

	assert.InDelta(t, 10, c.AccountAgeDays(now), 0.01)
	assert.Equal(t, 0.0, (&ClientProfile{}).AccountAgeDays(now))
}
