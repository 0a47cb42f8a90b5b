package model

// OrderEventType 订单事件类型
type OrderEventType string

const (
	OrderEventCreated         OrderEventType = "CREATED"
	OrderEventPartiallyFilled OrderEventType = "PARTIALLY_FILLED"
	OrderEventFilled          OrderEventType = "FILLED"
	OrderEventCancelled       OrderEventType = "CANCELLED"
)

// OrderEvent 订单事件 (只追加)
// 对应数据库表 ledger_order_events
type OrderEvent struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64          `gorm:"type:bigint;index;not null" json:"order_id"`
	EventType OrderEventType `gorm:"type:varchar(20);not null" json:"event_type"`
	Details   string         `gorm:"type:jsonb" json:"details"` // JSON 文本
	CreatedAt int64          `gorm:"type:bigint;not null" json:"created_at"`
}

// TableName 返回表名
func (OrderEvent) TableName() string {
	return "ledger_order_events"
}
