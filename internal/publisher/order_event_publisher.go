// Package publisher 提供 Kafka 消息发布功能
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/kafka"
	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

// KafkaProducer 发布者依赖的生产者能力
type KafkaProducer interface {
	Send(ctx context.Context, topic string, key, value []byte) error
}

// OrderEventMessage 订单事件消息
type OrderEventMessage struct {
	EventID      string          `json:"event_id"`
	OrderID      int64           `json:"order_id"`
	UserID       int64           `json:"user_id"`
	EventType    string          `json:"event_type"`
	Status       string          `json:"status"`
	Side         string          `json:"side"`
	Pair         string          `json:"pair"`
	Amount       string          `json:"amount"`
	FilledAmount string          `json:"filled_amount"`
	Details      json.RawMessage `json:"details,omitempty"`
	Timestamp    int64           `json:"timestamp"`
}

// OrderEventPublisher 订单事件发布者
// 发布到 ledger-order-events，以订单 ID 为 key 保证同一订单有序
type OrderEventPublisher struct {
	producer KafkaProducer
}

// NewOrderEventPublisher 创建订单事件发布者，producer 为 nil 时不发布
func NewOrderEventPublisher(producer KafkaProducer) *OrderEventPublisher {
	return &OrderEventPublisher{
		producer: producer,
	}
}

// PublishOrderEvent 发布订单事件
func (p *OrderEventPublisher) PublishOrderEvent(ctx context.Context, order *model.Order, event *model.OrderEvent) error {
	if p == nil || p.producer == nil {
		return nil // Kafka 未启用
	}

	msg := &OrderEventMessage{
		EventID:      uuid.New().String(),
		OrderID:      order.ID,
		UserID:       order.UserID,
		EventType:    string(event.EventType),
		Status:       string(order.Status),
		Side:         string(order.Side),
		Pair:         order.CurrencyPair(),
		Amount:       order.Amount.String(),
		FilledAmount: order.FilledAmount.String(),
		Timestamp:    event.CreatedAt,
	}
	if event.Details != "" && json.Valid([]byte(event.Details)) {
		msg.Details = json.RawMessage(event.Details)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal order event message: %w", err)
	}

	key := []byte(strconv.FormatInt(order.ID, 10))
	if err := p.producer.Send(ctx, kafka.TopicOrderEvents, key, data); err != nil {
		return fmt.Errorf("send order event: %w", err)
	}

	logger.Debug("order event published",
		zap.Int64("order_id", order.ID),
		zap.String("event_type", msg.EventType),
		zap.String("event_id", msg.EventID))
	return nil
}
