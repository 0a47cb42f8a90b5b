package kafka

// Kafka topic 名称
const (
	// TopicOrderEvents 订单生命周期事件 (ledger → 下游对账/推送)
	TopicOrderEvents = "ledger-order-events"
)
