package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/eidos-exchange/eidos-ledger/internal/service"
	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
)

// BalanceHandler 余额处理器
type BalanceHandler struct {
	svc service.LedgerService
}

// NewBalanceHandler 创建余额处理器
func NewBalanceHandler(svc service.LedgerService) *BalanceHandler {
	return &BalanceHandler{svc: svc}
}

// AddBalance 入账
// POST /v1/balance/add
func (h *BalanceHandler) AddBalance(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		Error(c, errors.ErrUnauthorized)
		return
	}

	var req AddBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	wallet, err := h.svc.AddBalance(c.Request.Context(), userID, req.Currency, req.Amount)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toBalanceResponse(wallet))
}

// ListBalances 查询全部币种余额
// GET /v1/balance
func (h *BalanceHandler) ListBalances(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		Error(c, errors.ErrUnauthorized)
		return
	}

	wallets, err := h.svc.ListWallets(c.Request.Context(), userID)
	if err != nil {
		Error(c, err)
		return
	}
	items := make([]*BalanceResponse, 0, len(wallets))
	for _, w := range wallets {
		items = append(items, toBalanceResponse(w))
	}
	Success(c, items)
}

// GetBalance 查询余额
// GET /v1/balance/:currency
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		Error(c, errors.ErrUnauthorized)
		return
	}

	wallet, err := h.svc.GetWallet(c.Request.Context(), userID, c.Param("currency"))
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toBalanceResponse(wallet))
}
