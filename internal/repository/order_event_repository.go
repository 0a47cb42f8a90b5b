package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos-ledger/internal/model"
)

// OrderEventRepository 订单事件仓储接口 (只追加)
type OrderEventRepository interface {
	Create(ctx context.Context, event *model.OrderEvent) error
	ListByOrderID(ctx context.Context, orderID int64) ([]*model.OrderEvent, error)
}

type orderEventRepository struct {
	*Repository
}

// NewOrderEventRepository 创建订单事件仓储
func NewOrderEventRepository(db *gorm.DB) OrderEventRepository {
	return &orderEventRepository{
		Repository: NewRepository(db),
	}
}

func (r *orderEventRepository) Create(ctx context.Context, event *model.OrderEvent) error {
	if err := r.DB(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create order event failed: %w", err)
	}
	return nil
}

func (r *orderEventRepository) ListByOrderID(ctx context.Context, orderID int64) ([]*model.OrderEvent, error) {
	var events []*model.OrderEvent
	if err := r.DB(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list order events failed: %w", err)
	}
	return events, nil
}
