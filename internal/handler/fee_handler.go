package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
)

// FeeService 手续费服务接口
type FeeService interface {
	GetFeeRate(ctx context.Context, pair string) (decimal.Decimal, error)
	GetTotalFees(ctx context.Context) (decimal.Decimal, error)
	UpdateFeeRate(ctx context.Context, pair string, feePercentage decimal.Decimal, adminID int64) (*model.FeeRate, error)
	RecordFeeTransaction(ctx context.Context, orderID int64, amount decimal.Decimal, feeType model.FeeType) (*model.FeeTransaction, error)
	ListFeeTransactions(ctx context.Context, orderID int64) ([]*model.FeeTransaction, error)
}

// FeeHandler 手续费处理器
// 写操作和流水查询由路由层的 RequireAdmin 保护
type FeeHandler struct {
	svc FeeService
}

// NewFeeHandler 创建手续费处理器
func NewFeeHandler(svc FeeService) *FeeHandler {
	return &FeeHandler{svc: svc}
}

// GetTotalFees 手续费汇总
// GET /v1/fees/total
func (h *FeeHandler) GetTotalFees(c *gin.Context) {
	total, err := h.svc.GetTotalFees(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, &TotalFeesResponse{TotalFees: total.String()})
}

// GetFeeRate 查询交易对费率
// GET /v1/fees/rate/:pair
func (h *FeeHandler) GetFeeRate(c *gin.Context) {
	pair := strings.ToUpper(strings.TrimSpace(c.Param("pair")))
	rate, err := h.svc.GetFeeRate(c.Request.Context(), pair)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, &FeeRateResponse{CurrencyPair: pair, FeePercentage: rate.String()})
}

// UpdateFeeRate 调整交易对费率，仅管理员
// PUT /v1/fees/rate/:pair
func (h *FeeHandler) UpdateFeeRate(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		Error(c, errors.ErrUnauthorized)
		return
	}

	var req UpdateFeeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	rate, err := h.svc.UpdateFeeRate(c.Request.Context(), c.Param("pair"), req.FeePercentage, userID)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, &FeeRateResponse{CurrencyPair: rate.CurrencyPair, FeePercentage: rate.FeePercentage.String()})
}

// RecordFeeTransaction 追加手续费流水，仅管理员
// POST /v1/fees/transactions
func (h *FeeHandler) RecordFeeTransaction(c *gin.Context) {
	var req RecordFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	tx, err := h.svc.RecordFeeTransaction(c.Request.Context(), req.OrderID, req.Amount,
		model.FeeType(strings.ToUpper(strings.TrimSpace(req.FeeType))))
	if err != nil {
		Error(c, err)
		return
	}
	Created(c, toFeeTransactionResponse(tx))
}

// ListFeeTransactions 查询订单的手续费流水，仅管理员
// GET /v1/fees/transactions?order_id=1
func (h *FeeHandler) ListFeeTransactions(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Query("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		BadRequest(c, "invalid order_id")
		return
	}

	txs, err := h.svc.ListFeeTransactions(c.Request.Context(), orderID)
	if err != nil {
		Error(c, err)
		return
	}
	items := make([]*FeeTransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toFeeTransactionResponse(tx))
	}
	Success(c, items)
}
