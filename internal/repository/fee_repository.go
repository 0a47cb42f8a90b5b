package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos-ledger/internal/model"
)

var ErrFeeRateNotFound = errors.New("fee rate not found")

// FeeRepository 手续费仓储接口
type FeeRepository interface {
	// CreateTransaction 追加手续费流水
	CreateTransaction(ctx context.Context, tx *model.FeeTransaction) error

	// ListTransactionsByOrder 查询订单的手续费流水
	ListTransactionsByOrder(ctx context.Context, orderID int64) ([]*model.FeeTransaction, error)

	// SumTransactionAmount 汇总全部手续费，无记录时返回 0
	SumTransactionAmount(ctx context.Context) (decimal.Decimal, error)

	// GetEffectiveRate 查询 at 时刻生效的最新费率
	GetEffectiveRate(ctx context.Context, pair string, at int64) (*model.FeeRate, error)

	// CreateRate 追加费率记录
	CreateRate(ctx context.Context, rate *model.FeeRate) error
}

type feeRepository struct {
	*Repository
}

// NewFeeRepository 创建手续费仓储
func NewFeeRepository(db *gorm.DB) FeeRepository {
	return &feeRepository{
		Repository: NewRepository(db),
	}
}

func (r *feeRepository) CreateTransaction(ctx context.Context, tx *model.FeeTransaction) error {
	if err := r.DB(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("create fee transaction failed: %w", err)
	}
	return nil
}

func (r *feeRepository) ListTransactionsByOrder(ctx context.Context, orderID int64) ([]*model.FeeTransaction, error) {
	var txs []*model.FeeTransaction
	if err := r.DB(ctx).Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("list fee transactions failed: %w", err)
	}
	return txs, nil
}

// SumTransactionAmount 汇总手续费
// 以字符串读取 SUM 结果，避免不同驱动返回 float/numeric 的精度差异
func (r *feeRepository) SumTransactionAmount(ctx context.Context) (decimal.Decimal, error) {
	var total string
	err := r.DB(ctx).Model(&model.FeeTransaction{}).
		Select("CAST(COALESCE(SUM(amount), 0) AS TEXT)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum fee transactions failed: %w", err)
	}
	if total == "" {
		return decimal.Zero, nil
	}
	sum, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse fee sum %q failed: %w", total, err)
	}
	return sum, nil
}

func (r *feeRepository) GetEffectiveRate(ctx context.Context, pair string, at int64) (*model.FeeRate, error) {
	var rate model.FeeRate
	result := r.DB(ctx).
		Where("currency_pair = ? AND effective_from <= ?", pair, at).
		Order("effective_from DESC, id DESC").
		First(&rate)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFeeRateNotFound
		}
		return nil, fmt.Errorf("get fee rate failed: %w", result.Error)
	}
	return &rate, nil
}

func (r *feeRepository) CreateRate(ctx context.Context, rate *model.FeeRate) error {
	if err := r.DB(ctx).Create(rate).Error; err != nil {
		return fmt.Errorf("create fee rate failed: %w", err)
	}
	return nil
}
