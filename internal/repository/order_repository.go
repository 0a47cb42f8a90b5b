package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos-ledger/internal/model"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderVersionConflict = errors.New("order version conflict")
)

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Transaction 执行事务
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Create 创建订单，回填自增 ID
	Create(ctx context.Context, order *model.Order) error

	// GetByID 根据 ID 查询订单
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// ListByUser 按创建时间倒序分页查询用户订单
	ListByUser(ctx context.Context, userID int64, page *Pagination) ([]*model.Order, error)

	// Update 按版本号条件更新成交数量与状态
	Update(ctx context.Context, order *model.Order) error
}

// orderRepository 订单仓储实现
type orderRepository struct {
	*Repository
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{
		Repository: NewRepository(db),
	}
}

// Create 创建订单
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order failed: %w", err)
	}
	return nil
}

// GetByID 根据 ID 查询订单
func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	result := r.DB(ctx).Where("id = ?", id).First(&order)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order failed: %w", result.Error)
	}
	return &order, nil
}

// ListByUser 分页查询用户订单
func (r *orderRepository) ListByUser(ctx context.Context, userID int64, page *Pagination) ([]*model.Order, error) {
	base := r.DB(ctx).Model(&model.Order{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	query := base.Order("created_at DESC, id DESC")
	if page != nil {
		if err := base.Count(&page.Total).Error; err != nil {
			return nil, fmt.Errorf("count orders failed: %w", err)
		}
		query = query.Offset(page.Offset()).Limit(page.Limit())
	}

	var orders []*model.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders failed: %w", err)
	}
	return orders, nil
}

// Update 乐观锁更新
func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	oldVersion := order.Version

	result := r.DB(ctx).Model(&model.Order{}).
		Where("id = ? AND version = ?", order.ID, oldVersion).
		Updates(map[string]interface{}{
			"filled_amount": order.FilledAmount,
			"status":        order.Status,
			"version":       oldVersion + 1,
			"updated_at":    order.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("update order failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderVersionConflict
	}
	order.Version = oldVersion + 1
	return nil
}
