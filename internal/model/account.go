package model

import (
	"github.com/shopspring/decimal"
)

// UserAccount 用户账户累计统计
// 对应数据库表 ledger_user_accounts
type UserAccount struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           int64           `gorm:"type:bigint;uniqueIndex;not null" json:"user_id"`
	TotalDeposits    decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"total_withdrawals"`
	Version          int64           `gorm:"type:bigint;not null;default:1" json:"version"`
	CreatedAt        int64           `gorm:"type:bigint;not null" json:"created_at"`
	UpdatedAt        int64           `gorm:"type:bigint;not null" json:"updated_at"`
}

// TableName 返回表名
func (UserAccount) TableName() string {
	return "ledger_user_accounts"
}

// AllModels 返回全部表模型，测试中用于 AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&Wallet{},
		&UserAccount{},
		&Order{},
		&OrderEvent{},
		&FeeRate{},
		&FeeTransaction{},
	}
}
