package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ledger Service Metrics - 账本服务监控指标
var (
	// OrdersTotal 订单生命周期计数 (按状态、交易对、方向分组)
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eidos",
			Subsystem: "ledger",
			Name:      "orders_total",
			Help:      "订单总数，按状态(created/partially_filled/filled/cancelled)、交易对、买卖方向分组",
		},
		[]string{"status", "pair", "side"},
	)

	// OrderLatency 订单操作延迟
	OrderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eidos",
			Subsystem: "ledger",
			Name:      "order_latency_seconds",
			Help:      "订单操作延迟(秒)，按操作类型(create/cancel/fill)分组",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"operation"},
	)

	// BalanceOperations 余额操作计数
	BalanceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eidos",
			Subsystem: "ledger",
			Name:      "balance_operations_total",
			Help:      "余额操作次数，按操作类型(credit/lock/unlock)、币种分组",
		},
		[]string{"operation", "currency"},
	)

	// OptimisticConflicts 乐观锁冲突次数
	OptimisticConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eidos",
			Subsystem: "ledger",
			Name:      "optimistic_conflicts_total",
			Help:      "版本号冲突次数，按实体(wallet/order)和结果(retry/exhausted)分组",
		},
		[]string{"entity", "result"},
	)

	// CacheRequests 缓存请求计数
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eidos",
			Subsystem: "ledger",
			Name:      "cache_requests_total",
			Help:      "缓存请求次数，按对象(wallet/order/fee_rate)和结果(hit/miss/error)分组",
		},
		[]string{"kind", "result"},
	)

	// EventWriteFailures 订单事件写入/投递失败
	EventWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eidos",
			Subsystem: "ledger",
			Name:      "event_write_failures_total",
			Help:      "订单事件写入失败次数，按目标(db/kafka)分组",
		},
		[]string{"sink"},
	)

	// DataIntegrityCritical 数据完整性严重错误
	// 出现即说明存在逻辑缺陷，需要人工介入
	DataIntegrityCritical = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eidos",
			Subsystem: "ledger",
			Name:      "data_integrity_critical_total",
			Help:      "数据完整性严重错误次数，按错误类型和原因分组",
		},
		[]string{"type", "reason"},
	)

	// KafkaMessagesSent Kafka 消息发送结果
	KafkaMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eidos",
			Subsystem: "ledger",
			Name:      "kafka_messages_total",
			Help:      "Kafka 消息发送结果，按 topic 和结果(success/error)分组",
		},
		[]string{"topic", "result"},
	)
)

func RecordOrderEvent(status, pair, side string) {
	OrdersTotal.WithLabelValues(status, pair, side).Inc()
}

// ObserveOrderLatency 记录自 start 起的耗时
func ObserveOrderLatency(operation string, start time.Time) {
	OrderLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func RecordBalanceOperation(operation, currency string) {
	BalanceOperations.WithLabelValues(operation, currency).Inc()
}

func RecordOptimisticConflict(entity, result string) {
	OptimisticConflicts.WithLabelValues(entity, result).Inc()
}

func RecordCacheRequest(kind, result string) {
	CacheRequests.WithLabelValues(kind, result).Inc()
}

func RecordEventWriteFailure(sink string) {
	EventWriteFailures.WithLabelValues(sink).Inc()
}

// RecordDataIntegrityCritical 记录数据完整性严重错误
func RecordDataIntegrityCritical(errType, reason string) {
	DataIntegrityCritical.WithLabelValues(errType, reason).Inc()
}

func RecordKafkaMessage(topic, result string) {
	KafkaMessagesSent.WithLabelValues(topic, result).Inc()
}
