package app

import (
	"time"

	"github.com/IBM/sarama"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/eidos-exchange/eidos-ledger/internal/cache"
	"github.com/eidos-exchange/eidos-ledger/internal/config"
	"github.com/eidos-exchange/eidos-ledger/internal/kafka"
)

// newDatabase 创建 postgres 连接池
func newDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	return db, nil
}

// newRedisClient 创建 Redis 客户端
func newRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// newProducerConfig 把配置文件中的生产者参数映射为 sarama 参数，未配置的项保持默认
func newProducerConfig(cfg *config.KafkaConfig) *kafka.ProducerConfig {
	pc := kafka.DefaultProducerConfig(cfg.Brokers)
	if cfg.ClientID != "" {
		pc.ClientID = cfg.ClientID
	}
	switch cfg.Producer.RequiredAcks {
	case 0:
		pc.RequiredAcks = sarama.NoResponse
	case 1:
		pc.RequiredAcks = sarama.WaitForLocal
	default:
		pc.RequiredAcks = sarama.WaitForAll
	}
	if cfg.Producer.MaxRetry > 0 {
		pc.MaxRetry = cfg.Producer.MaxRetry
	}
	if cfg.Producer.FlushMessages > 0 {
		pc.FlushMessages = cfg.Producer.FlushMessages
	}
	if cfg.Producer.FlushBytes > 0 {
		pc.FlushBytes = cfg.Producer.FlushBytes
	}
	if cfg.Producer.FlushFreqMs > 0 {
		pc.FlushFreq = time.Duration(cfg.Producer.FlushFreqMs) * time.Millisecond
	}
	return pc
}

// newTTLConfig 缓存过期时间
func newTTLConfig(cfg *config.CacheConfig) cache.TTLConfig {
	return cache.TTLConfig{
		Wallet:  cfg.WalletTTL(),
		Order:   cfg.OrderTTL(),
		FeeRate: cfg.FeeRateTTL(),
	}
}
