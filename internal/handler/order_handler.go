package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/internal/repository"
	"github.com/eidos-exchange/eidos-ledger/internal/service"
	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

// OrderHandler 订单处理器
type OrderHandler struct {
	svc   service.LedgerService
	rates service.FeeRateProvider
}

// NewOrderHandler 创建订单处理器，rates 为空时下单响应不带费率
func NewOrderHandler(svc service.LedgerService, rates service.FeeRateProvider) *OrderHandler {
	return &OrderHandler{svc: svc, rates: rates}
}

// CreateOrder 创建订单
// POST /v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		Error(c, errors.ErrUnauthorized)
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	side := model.OrderSide(strings.ToUpper(strings.TrimSpace(req.Side)))
	order, err := h.svc.CreateOrder(c.Request.Context(), userID, side,
		req.BaseCurrency, req.QuoteCurrency, req.Amount, req.Price)
	if err != nil {
		Error(c, err)
		return
	}

	resp := toOrderResponse(order)
	// 费率仅用于展示，查询失败不影响下单结果
	if h.rates != nil {
		rate, err := h.rates.GetFeeRate(c.Request.Context(), order.CurrencyPair())
		if err != nil {
			logger.Warn("fee rate lookup failed",
				zap.String("pair", order.CurrencyPair()),
				zap.Error(err))
		} else {
			resp.FeeRate = rate.String()
		}
	}
	Created(c, resp)
}

// GetOrder 查询订单，只能查询自己的订单
// GET /v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		Error(c, errors.ErrUnauthorized)
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.svc.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		Error(c, err)
		return
	}
	if order.UserID != userID {
		Error(c, errors.ErrForbidden.WithMessagef("order %d does not belong to user %d", orderID, userID))
		return
	}
	Success(c, toOrderResponse(order))
}

// CancelOrder 撤单
// DELETE /v1/orders/:id
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		Error(c, errors.ErrUnauthorized)
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	if err := h.svc.CancelOrder(c.Request.Context(), orderID, userID); err != nil {
		Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListOrderEvents 查询订单事件
// GET /v1/orders/:id/events
func (h *OrderHandler) ListOrderEvents(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		Error(c, errors.ErrUnauthorized)
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	events, err := h.svc.ListOrderEvents(c.Request.Context(), orderID, userID)
	if err != nil {
		Error(c, err)
		return
	}
	items := make([]*OrderEventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, toOrderEventResponse(e))
	}
	Success(c, items)
}

// FillOrder 外部成交信号，仅管理员
// POST /v1/orders/:id/fill
func (h *OrderHandler) FillOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req FillOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	order, err := h.svc.FillOrder(c.Request.Context(), orderID, req.FillAmount)
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, toOrderResponse(order))
}

// ListOrders 查询当前用户的订单，按创建时间倒序
// GET /v1/orders?page=1&page_size=20
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		Error(c, errors.ErrUnauthorized)
		return
	}

	page := &repository.Pagination{Page: 1, PageSize: 20}
	if v := c.Query("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page.Page = p
		}
	}
	if v := c.Query("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= 100 {
			page.PageSize = ps
		}
	}

	orders, err := h.svc.ListOrders(c.Request.Context(), userID, page)
	if err != nil {
		Error(c, err)
		return
	}

	items := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderResponse(o))
	}
	SuccessWithPagination(c, items, page.Total, page.Page, page.PageSize)
}

func parseOrderID(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		BadRequest(c, "invalid order id")
		return 0, false
	}
	return orderID, true
}
