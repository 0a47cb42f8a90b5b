package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeType 手续费类型
type FeeType string

const (
	FeeTypeTrading    FeeType = "TRADING_FEE"
	FeeTypeWithdrawal FeeType = "WITHDRAWAL_FEE"
)

// IsValid 检查类型是否合法
func (t FeeType) IsValid() bool {
	return t == FeeTypeTrading || t == FeeTypeWithdrawal
}

// FeeTransaction 手续费流水 (不可变)
// 对应数据库表 ledger_fee_transactions
type FeeTransaction struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	TxID      string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"tx_id"`
	OrderID   int64           `gorm:"type:bigint;index;not null" json:"order_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"amount"`
	FeeType   FeeType         `gorm:"type:varchar(20);not null" json:"fee_type"`
	CreatedAt int64           `gorm:"type:bigint;not null" json:"created_at"`
}

// TableName 返回表名
func (FeeTransaction) TableName() string {
	return "ledger_fee_transactions"
}

// NewFeeTransaction 创建手续费流水，分配新的 tx_id
func NewFeeTransaction(orderID int64, amount decimal.Decimal, feeType FeeType, now int64) *FeeTransaction {
	return &FeeTransaction{
		TxID:      uuid.New().String(),
		OrderID:   orderID,
		Amount:    amount,
		FeeType:   feeType,
		CreatedAt: now,
	}
}

// FeeRate 交易对费率，按 effective_from 取最新生效的一条
// 对应数据库表 ledger_fee_rates
type FeeRate struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CurrencyPair  string          `gorm:"type:varchar(20);index:idx_fee_rates_pair_effective,priority:1;not null" json:"currency_pair"`
	FeePercentage decimal.Decimal `gorm:"type:decimal(10,6);not null" json:"fee_percentage"` // 0.001 = 0.1%
	EffectiveFrom int64           `gorm:"type:bigint;index:idx_fee_rates_pair_effective,priority:2;not null" json:"effective_from"`
	AdminID       *int64          `gorm:"type:bigint" json:"admin_id,omitempty"`
	CreatedAt     int64           `gorm:"type:bigint;not null" json:"created_at"`
}

// TableName 返回表名
func (FeeRate) TableName() string {
	return "ledger_fee_rates"
}
