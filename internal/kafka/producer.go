// Package kafka 提供 Kafka 异步生产者
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/metrics"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

// ErrProducerClosed 生产者已关闭
var ErrProducerClosed = errors.New("kafka producer is closed")

// Producer Kafka 异步生产者
// 发送结果只记录日志和指标，不回传给调用方
type Producer struct {
	producer sarama.AsyncProducer
	wg       sync.WaitGroup
	closed   bool
	mu       sync.RWMutex
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	Brokers       []string
	ClientID      string
	RequiredAcks  sarama.RequiredAcks // 默认 WaitForAll
	MaxRetry      int                 // 默认 3
	RetryBackoff  time.Duration       // 默认 100ms
	FlushMessages int                 // 批量发送消息数，默认 100
	FlushBytes    int                 // 批量发送字节数，默认 1MB
	FlushFreq     time.Duration       // 批量发送间隔，默认 10ms
}

// DefaultProducerConfig 返回默认生产者配置
func DefaultProducerConfig(brokers []string) *ProducerConfig {
	return &ProducerConfig{
		Brokers:       brokers,
		ClientID:      "eidos-ledger",
		RequiredAcks:  sarama.WaitForAll,
		MaxRetry:      3,
		RetryBackoff:  100 * time.Millisecond,
		FlushMessages: 100,
		FlushBytes:    1024 * 1024, // 1MB
		FlushFreq:     10 * time.Millisecond,
	}
}

// SaramaConfig 生成 sarama 配置
func (cfg *ProducerConfig) SaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	if cfg.ClientID != "" {
		config.ClientID = cfg.ClientID
	}

	config.Producer.RequiredAcks = cfg.RequiredAcks
	config.Producer.Retry.Max = cfg.MaxRetry
	config.Producer.Retry.Backoff = cfg.RetryBackoff
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// 批量配置
	config.Producer.Flush.Messages = cfg.FlushMessages
	config.Producer.Flush.Bytes = cfg.FlushBytes
	config.Producer.Flush.Frequency = cfg.FlushFreq

	config.Producer.Compression = sarama.CompressionSnappy

	// 幂等性要求 WaitForAll 且单连接单请求
	if cfg.RequiredAcks == sarama.WaitForAll {
		config.Producer.Idempotent = true
		config.Net.MaxOpenRequests = 1
	}
	return config
}

// NewProducer 连接 broker 并创建异步生产者
func NewProducer(cfg *ProducerConfig) (*Producer, error) {
	producer, err := sarama.NewAsyncProducer(cfg.Brokers, cfg.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer failed: %w", err)
	}

	logger.Info("kafka producer started", zap.Strings("brokers", cfg.Brokers))
	return NewProducerWith(producer), nil
}

// NewProducerWith 包装已有的 sarama.AsyncProducer
func NewProducerWith(producer sarama.AsyncProducer) *Producer {
	p := &Producer{
		producer: producer,
	}

	p.wg.Add(2)
	go p.handleSuccesses()
	go p.handleErrors()

	return p
}

// Send 异步发送消息，ctx 取消时放弃入队
func (p *Producer) Send(ctx context.Context, topic string, key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != nil {
		msg.Key = sarama.ByteEncoder(key)
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Producer) handleSuccesses() {
	defer p.wg.Done()

	for msg := range p.producer.Successes() {
		metrics.RecordKafkaMessage(msg.Topic, "success")
		logger.Debug("kafka message sent",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset))
	}
}

func (p *Producer) handleErrors() {
	defer p.wg.Done()

	for err := range p.producer.Errors() {
		metrics.RecordKafkaMessage(err.Msg.Topic, "error")
		logger.Error("kafka message send failed",
			zap.String("topic", err.Msg.Topic),
			zap.Error(err.Err))
	}
}

// Close 关闭生产者，等待在途消息的回执处理完
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// 关闭生产者会关闭 Successes 和 Errors channel
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer failed: %w", err)
	}
	p.wg.Wait()

	logger.Info("kafka producer closed")
	return nil
}
