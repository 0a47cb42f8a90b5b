package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eidos-exchange/eidos-ledger/internal/model"
)

var (
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrWalletVersionConflict = errors.New("wallet version conflict")
)

// WalletRepository 钱包仓储接口
type WalletRepository interface {
	// Transaction 执行事务
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	// GetByUserCurrency 查询钱包，不存在返回 ErrWalletNotFound
	GetByUserCurrency(ctx context.Context, userID int64, currency string) (*model.Wallet, error)

	// GetOrCreate 获取钱包，不存在时创建零余额钱包
	GetOrCreate(ctx context.Context, userID int64, currency string, now int64) (*model.Wallet, error)

	// ListByUser 查询用户所有钱包
	ListByUser(ctx context.Context, userID int64) ([]*model.Wallet, error)

	// Update 按版本号条件更新余额与锁定金额
	// 版本不匹配时返回 ErrWalletVersionConflict，wallet.Version 保持原值
	Update(ctx context.Context, wallet *model.Wallet) error
}

// walletRepository 钱包仓储实现
type walletRepository struct {
	*Repository
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{
		Repository: NewRepository(db),
	}
}

// GetByUserCurrency 查询钱包
func (r *walletRepository) GetByUserCurrency(ctx context.Context, userID int64, currency string) (*model.Wallet, error) {
	var wallet model.Wallet
	result := r.DB(ctx).Where("user_id = ? AND currency = ?", userID, currency).First(&wallet)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet failed: %w", result.Error)
	}
	return &wallet, nil
}

// GetOrCreate 获取或创建钱包
func (r *walletRepository) GetOrCreate(ctx context.Context, userID int64, currency string, now int64) (*model.Wallet, error) {
	wallet, err := r.GetByUserCurrency(ctx, userID, currency)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	wallet = model.NewWallet(userID, currency, now)

	// 并发首次入账时依赖唯一索引，冲突方重新查询
	result := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "currency"}},
		DoNothing: true,
	}).Create(wallet)
	if result.Error != nil {
		return nil, fmt.Errorf("create wallet failed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		wallet, err = r.GetByUserCurrency(ctx, userID, currency)
		if err != nil {
			return nil, fmt.Errorf("get wallet after conflict failed: %w", err)
		}
	}
	return wallet, nil
}

// ListByUser 查询用户所有钱包
func (r *walletRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Wallet, error) {
	var wallets []*model.Wallet
	result := r.DB(ctx).Where("user_id = ?", userID).Order("currency ASC").Find(&wallets)
	if result.Error != nil {
		return nil, fmt.Errorf("list wallets failed: %w", result.Error)
	}
	return wallets, nil
}

// Update 乐观锁更新
func (r *walletRepository) Update(ctx context.Context, wallet *model.Wallet) error {
	oldVersion := wallet.Version

	result := r.DB(ctx).Model(&model.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, oldVersion).
		Updates(map[string]interface{}{
			"balance":       wallet.Balance,
			"locked_amount": wallet.LockedAmount,
			"version":       oldVersion + 1,
			"updated_at":    wallet.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("update wallet failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletVersionConflict
	}
	wallet.Version = oldVersion + 1
	return nil
}
