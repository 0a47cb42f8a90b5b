package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrder_LockAmount(t *testing.T) {
	buy := NewOrder(1, OrderSideBuy, "BTC", "USDT", decimal.NewFromFloat(0.5), decimal.NewFromInt(50000), 1)
	assert.Equal(t, "USDT", buy.LockCurrency())
	assert.True(t, buy.LockAmount().Equal(decimal.NewFromInt(25000)))

	sell := NewOrder(1, OrderSideSell, "BTC", "USDT", decimal.NewFromFloat(0.5), decimal.NewFromInt(50000), 1)
	assert.Equal(t, "BTC", sell.LockCurrency())
	assert.True(t, sell.LockAmount().Equal(decimal.NewFromFloat(0.5)))
}

func TestOrder_RemainingLockAmount(t *testing.T) {
	order := NewOrder(1, OrderSideBuy, "BTC", "USDT", decimal.NewFromInt(2), decimal.NewFromInt(100), 1)
	order.FilledAmount = decimal.NewFromFloat(0.5)

	assert.True(t, order.RemainingAmount().Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, order.RemainingLockAmount().Equal(decimal.NewFromInt(150)))
	assert.False(t, order.IsFullyFilled())

	order.FilledAmount = decimal.NewFromInt(2)
	assert.True(t, order.IsFullyFilled())
	assert.True(t, order.RemainingLockAmount().IsZero())
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusPartiallyFilled.IsTerminal())
	assert.True(t, OrderStatusFilled.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
}

func TestWallet_AvailableBalance(t *testing.T) {
	w := NewWallet(7, "USDT", 1)
	assert.True(t, w.AvailableBalance().IsZero())

	w.Balance = decimal.NewFromInt(100)
	w.LockedAmount = decimal.NewFromInt(40)
	assert.True(t, w.AvailableBalance().Equal(decimal.NewFromInt(60)))
	assert.True(t, w.CanLock(decimal.NewFromInt(60)))
	assert.False(t, w.CanLock(decimal.NewFromFloat(60.01)))
}

func TestNewFeeTransaction_AssignsTxID(t *testing.T) {
	a := NewFeeTransaction(1, decimal.NewFromInt(1), FeeTypeTrading, 1)
	b := NewFeeTransaction(1, decimal.NewFromInt(1), FeeTypeTrading, 1)
	assert.Len(t, a.TxID, 36)
	assert.NotEqual(t, a.TxID, b.TxID)
}

func TestOrder_RemainingLockAmountRoundsToColumnScale(t *testing.T) {
	order := NewOrder(1, OrderSideBuy, "BTC", "USDT", decimal.NewFromInt(1), decimal.RequireFromString("0.25"), 1)
	order.FilledAmount = decimal.RequireFromString("0.123456789012345678")

	// 0.876543210987654322 × 0.25 = 0.2191358027469135805
	got := order.RemainingLockAmount()
	assert.Equal(t, "0.219135802746913581", got.String())
	assert.True(t, got.LessThanOrEqual(order.LockAmount()))
}

func TestFitsMoney(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0.123456789012345678", true},
		{"1.500000000000000000000", true},
		{"999999999999999999.999999999999999999", true},
		{"0.0000000000000000001", false},
		{"0.01524157877488187881", false},
		{"1000000000000000000", false},
		{"-1000000000000000000", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FitsMoney(decimal.RequireFromString(tt.in)), tt.in)
	}
}
