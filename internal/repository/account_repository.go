package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eidos-exchange/eidos-ledger/internal/model"
)

var ErrAccountNotFound = errors.New("user account not found")

// AccountRepository 用户账户仓储接口
type AccountRepository interface {
	// GetByUserID 查询账户
	GetByUserID(ctx context.Context, userID int64) (*model.UserAccount, error)

	// AddDeposit 累加充值总额，账户不存在时创建
	AddDeposit(ctx context.Context, userID int64, amount decimal.Decimal, now int64) error
}

type accountRepository struct {
	*Repository
}

// NewAccountRepository 创建用户账户仓储
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		Repository: NewRepository(db),
	}
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID int64) (*model.UserAccount, error) {
	var account model.UserAccount
	result := r.DB(ctx).Where("user_id = ?", userID).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get user account failed: %w", result.Error)
	}
	return &account, nil
}

// AddDeposit 累加充值总额
// 累计值只增不减，用原子表达式更新，不参与余额的乐观锁
func (r *accountRepository) AddDeposit(ctx context.Context, userID int64, amount decimal.Decimal, now int64) error {
	account := &model.UserAccount{
		UserID:           userID,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	result := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(account)
	if result.Error != nil {
		return fmt.Errorf("create user account failed: %w", result.Error)
	}

	result = r.DB(ctx).Model(&model.UserAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"total_deposits": gorm.Expr("total_deposits + ?", amount),
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		})
	if result.Error != nil {
		return fmt.Errorf("add deposit failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
