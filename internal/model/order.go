package model

import (
	"github.com/shopspring/decimal"
)

// OrderSide 订单方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// IsValid 检查方向是否合法
func (s OrderSide) IsValid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderStatus 订单状态
//
// 状态机:
//
//	PENDING ──fill──> PARTIALLY_FILLED ──fill──> FILLED
//	   │                    │
//	   └────cancel──────────┴──> CANCELLED
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// IsTerminal 是否终态
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// Order 订单
// 对应数据库表 ledger_orders，只会进入终态，不会删除
type Order struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64           `gorm:"type:bigint;index:idx_orders_user_created,priority:1;not null" json:"user_id"`
	Side          OrderSide       `gorm:"type:varchar(4);not null" json:"side"`
	BaseCurrency  string          `gorm:"type:varchar(10);not null" json:"base_currency"`
	QuoteCurrency string          `gorm:"type:varchar(10);not null" json:"quote_currency"`
	Amount        decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"amount"`                  // 委托数量 (base)
	Price         decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"price"`                   // 委托价格 (quote/base)
	FilledAmount  decimal.Decimal `gorm:"type:decimal(36,18);not null;default:0" json:"filled_amount"` // 已成交数量
	Status        OrderStatus     `gorm:"type:varchar(20);index;not null" json:"status"`
	Version       int64           `gorm:"type:bigint;not null;default:1" json:"version"`
	CreatedAt     int64           `gorm:"type:bigint;index:idx_orders_user_created,priority:2;not null" json:"created_at"`
	UpdatedAt     int64           `gorm:"type:bigint;not null" json:"updated_at"`
}

// TableName 返回表名
func (Order) TableName() string {
	return "ledger_orders"
}

// NewOrder 创建待成交订单
func NewOrder(userID int64, side OrderSide, base, quote string, amount, price decimal.Decimal, now int64) *Order {
	return &Order{
		UserID:        userID,
		Side:          side,
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Amount:        amount,
		Price:         price,
		FilledAmount:  decimal.Zero,
		Status:        OrderStatusPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CurrencyPair 返回交易对，如 BTC-USDT
func (o *Order) CurrencyPair() string {
	return o.BaseCurrency + "-" + o.QuoteCurrency
}

// LockCurrency 返回需要锁定的币种
// 买单锁定计价币，卖单锁定基础币
func (o *Order) LockCurrency() string {
	if o.Side == OrderSideBuy {
		return o.QuoteCurrency
	}
	return o.BaseCurrency
}

// LockAmount 返回下单时锁定的金额
func (o *Order) LockAmount() decimal.Decimal {
	return o.lockFor(o.Amount)
}

// RemainingAmount 返回未成交数量
func (o *Order) RemainingAmount() decimal.Decimal {
	return o.Amount.Sub(o.FilledAmount)
}

// RemainingLockAmount 返回撤单时应解锁的金额，按下单价格计价
// 部分成交后的买单按金额列精度向上取整，结果不会超过 LockAmount
func (o *Order) RemainingLockAmount() decimal.Decimal {
	return o.lockFor(o.RemainingAmount()).RoundCeil(MoneyScale)
}

func (o *Order) lockFor(qty decimal.Decimal) decimal.Decimal {
	if o.Side == OrderSideBuy {
		return qty.Mul(o.Price)
	}
	return qty
}

// IsFullyFilled 是否完全成交
func (o *Order) IsFullyFilled() bool {
	return o.FilledAmount.GreaterThanOrEqual(o.Amount)
}

// IsTerminal 是否终态
func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// Touch 写入前刷新更新时间
func (o *Order) Touch(now int64) {
	o.UpdatedAt = now
}
