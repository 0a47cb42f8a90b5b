package model

import (
	"github.com/shopspring/decimal"
)

// Wallet 用户单币种钱包
// 对应数据库表 ledger_wallets，(user_id, currency) 唯一
// 不变量: balance >= 0, 0 <= locked_amount <= balance
type Wallet struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64           `gorm:"type:bigint;uniqueIndex:uk_wallet_user_currency;not null" json:"user_id"`
	Currency     string          `gorm:"type:varchar(10);uniqueIndex:uk_wallet_user_currency;not null" json:"currency"`
	Balance      decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"balance"`       // 总余额
	LockedAmount decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"locked_amount"` // 挂单锁定
	Version      int64           `gorm:"type:bigint;not null;default:1" json:"version"`              // 乐观锁版本号
	CreatedAt    int64           `gorm:"type:bigint;not null" json:"created_at"`
	UpdatedAt    int64           `gorm:"type:bigint;not null" json:"updated_at"`
}

// TableName 返回表名
func (Wallet) TableName() string {
	return "ledger_wallets"
}

// NewWallet 创建零余额钱包
func NewWallet(userID int64, currency string, now int64) *Wallet {
	return &Wallet{
		UserID:       userID,
		Currency:     currency,
		Balance:      decimal.Zero,
		LockedAmount: decimal.Zero,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AvailableBalance 返回可用余额 = balance - locked_amount
func (w *Wallet) AvailableBalance() decimal.Decimal {
	return w.Balance.Sub(w.LockedAmount)
}

// CanLock 检查可用余额是否足够锁定
func (w *Wallet) CanLock(amount decimal.Decimal) bool {
	return w.AvailableBalance().GreaterThanOrEqual(amount)
}

// Touch 写入前刷新更新时间
func (w *Wallet) Touch(now int64) {
	w.UpdatedAt = now
}
