package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eidos-exchange/eidos-ledger/internal/kafka"
	"github.com/eidos-exchange/eidos-ledger/internal/model"
)

type MockKafkaProducer struct {
	mock.Mock
}

func (m *MockKafkaProducer) Send(ctx context.Context, topic string, key, value []byte) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func testOrder() *model.Order {
	order := model.NewOrder(42, model.OrderSideBuy, "BTC", "USDT", decimal.NewFromInt(2), decimal.NewFromInt(100), 1000)
	order.ID = 7
	order.FilledAmount = decimal.NewFromFloat(0.5)
	order.Status = model.OrderStatusPartiallyFilled
	return order
}

func TestOrderEventPublisher_Publish(t *testing.T) {
	producer := new(MockKafkaProducer)
	p := NewOrderEventPublisher(producer)

	var sent OrderEventMessage
	producer.On("Send", mock.Anything, kafka.TopicOrderEvents, []byte("7"), mock.Anything).
		Run(func(args mock.Arguments) {
			require.NoError(t, json.Unmarshal(args.Get(3).([]byte), &sent))
		}).
		Return(nil)

	event := &model.OrderEvent{OrderID: 7, EventType: model.OrderEventPartiallyFilled, Details: `{"fill_amount":"0.5"}`, CreatedAt: 2000}
	err := p.PublishOrderEvent(context.Background(), testOrder(), event)

	require.NoError(t, err)
	producer.AssertExpectations(t)
	assert.Equal(t, int64(7), sent.OrderID)
	assert.Equal(t, int64(42), sent.UserID)
	assert.Equal(t, "PARTIALLY_FILLED", sent.EventType)
	assert.Equal(t, "BTC-USDT", sent.Pair)
	assert.Equal(t, "0.5", sent.FilledAmount)
	assert.JSONEq(t, `{"fill_amount":"0.5"}`, string(sent.Details))
	assert.Len(t, sent.EventID, 36)
}

func TestOrderEventPublisher_ProducerError(t *testing.T) {
	producer := new(MockKafkaProducer)
	p := NewOrderEventPublisher(producer)

	producer.On("Send", mock.Anything, kafka.TopicOrderEvents, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))

	err := p.PublishOrderEvent(context.Background(), testOrder(), &model.OrderEvent{EventType: model.OrderEventCreated})
	assert.Error(t, err)
}

func TestOrderEventPublisher_Disabled(t *testing.T) {
	var nilPublisher *OrderEventPublisher
	assert.NoError(t, nilPublisher.PublishOrderEvent(context.Background(), testOrder(), &model.OrderEvent{}))
	assert.NoError(t, NewOrderEventPublisher(nil).PublishOrderEvent(context.Background(), testOrder(), &model.OrderEvent{}))
}
