package handler

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/eidos-exchange/eidos-ledger/internal/model"
)

// AddBalanceRequest 入账请求
type AddBalanceRequest struct {
	Currency string          `json:"currency" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	Side          string          `json:"side" binding:"required"`
	BaseCurrency  string          `json:"base_currency" binding:"required"`
	QuoteCurrency string          `json:"quote_currency" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Price         decimal.Decimal `json:"price"`
}

// FillOrderRequest 成交请求
type FillOrderRequest struct {
	FillAmount decimal.Decimal `json:"fill_amount"`
}

// UpdateFeeRateRequest 调整费率请求
type UpdateFeeRateRequest struct {
	FeePercentage decimal.Decimal `json:"fee_percentage"`
}

// BalanceResponse 余额响应
type BalanceResponse struct {
	UserID           int64  `json:"user_id"`
	Currency         string `json:"currency"`
	Balance          string `json:"balance"`
	LockedAmount     string `json:"locked_amount"`
	AvailableBalance string `json:"available_balance"`
}

// OrderResponse 订单响应
type OrderResponse struct {
	ID            int64  `json:"id"`
	UserID        int64  `json:"user_id"`
	Side          string `json:"side"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
	Amount        string `json:"amount"`
	Price         string `json:"price"`
	FilledAmount  string `json:"filled_amount"`
	Status        string `json:"status"`
	FeeRate       string `json:"fee_rate,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// OrderEventResponse 订单事件响应
type OrderEventResponse struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	EventType string          `json:"event_type"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt int64           `json:"created_at"`
}

// RecordFeeRequest 记录手续费请求
type RecordFeeRequest struct {
	OrderID int64           `json:"order_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
	FeeType string          `json:"fee_type" binding:"required"`
}

// FeeTransactionResponse 手续费流水响应
type FeeTransactionResponse struct {
	TxID      string `json:"tx_id"`
	OrderID   int64  `json:"order_id"`
	Amount    string `json:"amount"`
	FeeType   string `json:"fee_type"`
	CreatedAt int64  `json:"created_at"`
}

// FeeRateResponse 费率响应
type FeeRateResponse struct {
	CurrencyPair  string `json:"currency_pair"`
	FeePercentage string `json:"fee_percentage"`
}

// TotalFeesResponse 手续费汇总响应
type TotalFeesResponse struct {
	TotalFees string `json:"total_fees"`
}

func toBalanceResponse(w *model.Wallet) *BalanceResponse {
	return &BalanceResponse{
		UserID:           w.UserID,
		Currency:         w.Currency,
		Balance:          w.Balance.String(),
		LockedAmount:     w.LockedAmount.String(),
		AvailableBalance: w.AvailableBalance().String(),
	}
}

func toOrderResponse(o *model.Order) *OrderResponse {
	return &OrderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		Side:          string(o.Side),
		BaseCurrency:  o.BaseCurrency,
		QuoteCurrency: o.QuoteCurrency,
		Amount:        o.Amount.String(),
		Price:         o.Price.String(),
		FilledAmount:  o.FilledAmount.String(),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toOrderEventResponse(e *model.OrderEvent) *OrderEventResponse {
	resp := &OrderEventResponse{
		ID:        e.ID,
		OrderID:   e.OrderID,
		EventType: string(e.EventType),
		CreatedAt: e.CreatedAt,
	}
	if e.Details != "" && json.Valid([]byte(e.Details)) {
		resp.Details = json.RawMessage(e.Details)
	}
	return resp
}

func toFeeTransactionResponse(tx *model.FeeTransaction) *FeeTransactionResponse {
	return &FeeTransactionResponse{
		TxID:      tx.TxID,
		OrderID:   tx.OrderID,
		Amount:    tx.Amount.String(),
		FeeType:   string(tx.FeeType),
		CreatedAt: tx.CreatedAt,
	}
}
