package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/metrics"
	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/internal/repository"
	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

// OrderEventPublisher 订单事件外发
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, order *model.Order, event *model.OrderEvent) error
}

// OrderLifecycle 订单状态机
//
// 只负责订单行本身的状态流转和事件生成，不涉及资金锁定。
// 状态变更使用与钱包相同的版本号条件更新。
type OrderLifecycle struct {
	orders     repository.OrderRepository
	events     repository.OrderEventRepository
	publisher  OrderEventPublisher
	maxRetries int
}

// NewOrderLifecycle 创建订单状态机，publisher 可为 nil
func NewOrderLifecycle(orders repository.OrderRepository, events repository.OrderEventRepository,
	publisher OrderEventPublisher, maxRetries int) *OrderLifecycle {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &OrderLifecycle{
		orders:     orders,
		events:     events,
		publisher:  publisher,
		maxRetries: maxRetries,
	}
}

// Prepare 校验参数并构造待落库的订单
func (l *OrderLifecycle) Prepare(userID int64, side model.OrderSide, base, quote string,
	amount, price decimal.Decimal) (*model.Order, error) {

	side = model.OrderSide(strings.ToUpper(string(side)))
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))

	switch {
	case !side.IsValid():
		return nil, errors.ErrInvalidOrder.WithMessagef("invalid side: %q", side)
	case base == "" || quote == "":
		return nil, errors.ErrInvalidOrder.WithMessage("base and quote currency are required")
	case base == quote:
		return nil, errors.ErrInvalidOrder.WithMessagef("base and quote currency must differ, got %s", base)
	case !amount.IsPositive():
		return nil, errors.ErrInvalidOrder.WithMessagef("amount must be positive, got %s", amount)
	case !price.IsPositive():
		return nil, errors.ErrInvalidOrder.WithMessagef("price must be positive, got %s", price)
	case !model.FitsMoney(amount):
		return nil, errors.ErrInvalidOrder.WithMessagef("amount %s exceeds %d decimal places or range", amount, model.MoneyScale)
	case !model.FitsMoney(price):
		return nil, errors.ErrInvalidOrder.WithMessagef("price %s exceeds %d decimal places or range", price, model.MoneyScale)
	}

	order := model.NewOrder(userID, side, base, quote, amount, price, nowMillis())
	// 锁定额必须能原样落库，否则撤单时解锁额与钱包锁定额对不上
	if lock := order.LockAmount(); !model.FitsMoney(lock) {
		return nil, errors.ErrInvalidOrder.WithMessagef("lock amount %s exceeds %d decimal places or range", lock, model.MoneyScale)
	}
	return order, nil
}

// Create 插入 PENDING 订单，返回待记录的 CREATED 事件
func (l *OrderLifecycle) Create(ctx context.Context, order *model.Order) (*model.OrderEvent, error) {
	if err := l.orders.Create(ctx, order); err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	return newOrderEvent(order.ID, model.OrderEventCreated, order.UpdatedAt, map[string]string{
		"side":          string(order.Side),
		"amount":        order.Amount.String(),
		"price":         order.Price.String(),
		"lock_currency": order.LockCurrency(),
		"lock_amount":   order.LockAmount().String(),
	}), nil
}

// Load 从数据库读取订单
func (l *OrderLifecycle) Load(ctx context.Context, orderID int64) (*model.Order, error) {
	order, err := l.orders.GetByID(ctx, orderID)
	if err != nil {
		if stderrors.Is(err, repository.ErrOrderNotFound) {
			return nil, errors.ErrOrderNotFound.WithMessagef("order not found: %d", orderID)
		}
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	return order, nil
}

// Fill 累加成交数量
// 超出委托数量的部分截断，保证 FILLED 当且仅当 filled == amount
func (l *OrderLifecycle) Fill(ctx context.Context, orderID int64, increment decimal.Decimal) (*model.Order, *model.OrderEvent, error) {
	if !increment.IsPositive() {
		return nil, nil, errors.ErrInvalidOrder.WithMessagef("fill amount must be positive, got %s", increment)
	}
	if !model.FitsMoney(increment) {
		return nil, nil, errors.ErrInvalidOrder.WithMessagef("fill amount %s exceeds %d decimal places or range", increment, model.MoneyScale)
	}

	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		order, err := l.Load(ctx, orderID)
		if err != nil {
			return nil, nil, err
		}

		switch order.Status {
		case model.OrderStatusCancelled:
			return nil, nil, errors.ErrInvalidOrder.WithMessage("cannot fill cancelled order")
		case model.OrderStatusFilled:
			return nil, nil, errors.ErrInvalidOrder.WithMessage("order already filled")
		}

		applied := increment
		if remaining := order.RemainingAmount(); applied.GreaterThan(remaining) {
			logger.Warn("fill exceeds remaining amount, clamping",
				zap.Int64("order_id", orderID),
				zap.String("increment", increment.String()),
				zap.String("remaining", remaining.String()))
			applied = remaining
		}

		order.FilledAmount = order.FilledAmount.Add(applied)
		eventType := model.OrderEventPartiallyFilled
		order.Status = model.OrderStatusPartiallyFilled
		if order.IsFullyFilled() {
			order.FilledAmount = order.Amount
			order.Status = model.OrderStatusFilled
			eventType = model.OrderEventFilled
		}
		order.Touch(nowMillis())

		err = l.orders.Update(ctx, order)
		if err == nil {
			event := newOrderEvent(order.ID, eventType, order.UpdatedAt, map[string]string{
				"fill_amount":   applied.String(),
				"filled_amount": order.FilledAmount.String(),
			})
			return order, event, nil
		}
		if !stderrors.Is(err, repository.ErrOrderVersionConflict) {
			return nil, nil, errors.Wrap(errors.ErrInternal, err)
		}
		metrics.RecordOptimisticConflict("order", "retry")
	}

	metrics.RecordOptimisticConflict("order", "exhausted")
	return nil, nil, errors.ErrConcurrencyConflict.WithMessagef("order %d is being modified concurrently, retry the request", orderID)
}

// Cancel 将已加载的订单置为 CANCELLED
// 订单在读取后被其他请求修改时返回 repository.ErrOrderVersionConflict，由调用方回滚并重试
func (l *OrderLifecycle) Cancel(ctx context.Context, order *model.Order) (*model.OrderEvent, error) {
	switch order.Status {
	case model.OrderStatusCancelled:
		return nil, errors.ErrInvalidOrder.WithMessage("order already cancelled")
	case model.OrderStatusFilled:
		return nil, errors.ErrInvalidOrder.WithMessage("cannot cancel filled order")
	}

	unlockAmount := order.RemainingLockAmount()
	order.Status = model.OrderStatusCancelled
	order.Touch(nowMillis())

	if err := l.orders.Update(ctx, order); err != nil {
		if stderrors.Is(err, repository.ErrOrderVersionConflict) {
			return nil, err
		}
		return nil, errors.Wrap(errors.ErrInternal, err)
	}

	return newOrderEvent(order.ID, model.OrderEventCancelled, order.UpdatedAt, map[string]string{
		"filled_amount":   order.FilledAmount.String(),
		"unlock_currency": order.LockCurrency(),
		"unlock_amount":   unlockAmount.String(),
	}), nil
}

// Record 记录事件并外发
// 只在状态变更提交后调用，失败只记日志，不影响已提交的状态
func (l *OrderLifecycle) Record(ctx context.Context, order *model.Order, event *model.OrderEvent) {
	if event == nil {
		return
	}
	if err := l.events.Create(ctx, event); err != nil {
		metrics.RecordEventWriteFailure("db")
		logger.Error("record order event failed",
			zap.Int64("order_id", event.OrderID),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
	}

	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishOrderEvent(ctx, order, event); err != nil {
		metrics.RecordEventWriteFailure("kafka")
		logger.Warn("publish order event failed",
			zap.Int64("order_id", event.OrderID),
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
	}
}

// Events 订单事件，按写入顺序
func (l *OrderLifecycle) Events(ctx context.Context, orderID int64) ([]*model.OrderEvent, error) {
	events, err := l.events.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	return events, nil
}

func newOrderEvent(orderID int64, eventType model.OrderEventType, at int64, details map[string]string) *model.OrderEvent {
	data, err := json.Marshal(details)
	if err != nil {
		data = []byte("{}")
	}
	return &model.OrderEvent{
		OrderID:   orderID,
		EventType: eventType,
		Details:   string(data),
		CreatedAt: at,
	}
}
