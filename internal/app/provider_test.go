package app

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"

	"github.com/eidos-exchange/eidos-ledger/internal/config"
)

func TestNewProducerConfig(t *testing.T) {
	pc := newProducerConfig(&config.KafkaConfig{
		Brokers:  []string{"kafka-1:9092", "kafka-2:9092"},
		ClientID: "ledger-test",
		Producer: config.ProducerConfig{
			RequiredAcks:  1,
			MaxRetry:      5,
			FlushMessages: 50,
			FlushFreqMs:   20,
		},
	})

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, pc.Brokers)
	assert.Equal(t, "ledger-test", pc.ClientID)
	assert.Equal(t, sarama.WaitForLocal, pc.RequiredAcks)
	assert.Equal(t, 5, pc.MaxRetry)
	assert.Equal(t, 50, pc.FlushMessages)
	assert.Equal(t, 1024*1024, pc.FlushBytes)
	assert.Equal(t, 20*time.Millisecond, pc.FlushFreq)
}

func TestNewProducerConfig_Defaults(t *testing.T) {
	pc := newProducerConfig(&config.KafkaConfig{Brokers: []string{"localhost:9092"}, Producer: config.ProducerConfig{RequiredAcks: -1}})

	assert.Equal(t, "eidos-ledger", pc.ClientID)
	assert.Equal(t, sarama.WaitForAll, pc.RequiredAcks)
	assert.Equal(t, 3, pc.MaxRetry)
	assert.Equal(t, 10*time.Millisecond, pc.FlushFreq)
	assert.True(t, pc.SaramaConfig().Producer.Idempotent)
}

func TestNewTTLConfig(t *testing.T) {
	ttl := newTTLConfig(&config.CacheConfig{WalletTTLSec: 60, OrderTTLSec: 120, FeeRateTTLSec: 0})

	assert.Equal(t, time.Minute, ttl.Wallet)
	assert.Equal(t, 2*time.Minute, ttl.Order)
	assert.Zero(t, ttl.FeeRate)
}
