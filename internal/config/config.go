package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config 服务配置
type Config struct {
	Service  ServiceConfig  `yaml:"service" json:"service"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka" json:"kafka"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Cache    CacheConfig    `yaml:"cache" json:"cache"`
	Ledger   LedgerConfig   `yaml:"ledger" json:"ledger"`
}

// ServiceConfig 服务配置
type ServiceConfig struct {
	Name     string `yaml:"name" json:"name"`
	GRPCPort int    `yaml:"grpc_port" json:"grpc_port"`
	HTTPPort int    `yaml:"http_port" json:"http_port"`
	Env      string `yaml:"env" json:"env"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host                   string `yaml:"host" json:"host"`
	Port                   int    `yaml:"port" json:"port"`
	User                   string `yaml:"user" json:"user"`
	Password               string `yaml:"password" json:"password"`
	Database               string `yaml:"database" json:"database"`
	SSLMode                string `yaml:"ssl_mode" json:"ssl_mode"`
	MaxIdleConns           int    `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxOpenConns           int    `yaml:"max_open_conns" json:"max_open_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" json:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `yaml:"auto_migrate" json:"auto_migrate"` // 启动时执行内嵌迁移
}

// DSN 返回 postgres 连接串
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"` // 关闭时使用 NopCache
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

// Addr 返回 host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled  bool           `yaml:"enabled" json:"enabled"`
	Brokers  []string       `yaml:"brokers" json:"brokers"`
	ClientID string         `yaml:"client_id" json:"client_id"`
	Producer ProducerConfig `yaml:"producer" json:"producer"`
}

// ProducerConfig Kafka 生产者配置
type ProducerConfig struct {
	RequiredAcks  int `yaml:"required_acks" json:"required_acks"`   // 0=NoResponse, 1=WaitForLocal, -1=WaitForAll
	MaxRetry      int `yaml:"max_retry" json:"max_retry"`           // 最大重试次数
	FlushMessages int `yaml:"flush_messages" json:"flush_messages"` // 批量发送消息数
	FlushBytes    int `yaml:"flush_bytes" json:"flush_bytes"`       // 批量发送字节数
	FlushFreqMs   int `yaml:"flush_freq_ms" json:"flush_freq_ms"`   // 批量发送间隔 (毫秒)
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// CacheConfig 缓存过期时间 (秒)
type CacheConfig struct {
	WalletTTLSec  int `yaml:"wallet_ttl_sec" json:"wallet_ttl_sec"`
	OrderTTLSec   int `yaml:"order_ttl_sec" json:"order_ttl_sec"`
	FeeRateTTLSec int `yaml:"fee_rate_ttl_sec" json:"fee_rate_ttl_sec"`
}

func (c CacheConfig) WalletTTL() time.Duration  { return time.Duration(c.WalletTTLSec) * time.Second }
func (c CacheConfig) OrderTTL() time.Duration   { return time.Duration(c.OrderTTLSec) * time.Second }
func (c CacheConfig) FeeRateTTL() time.Duration { return time.Duration(c.FeeRateTTLSec) * time.Second }

// LedgerConfig 账本配置
type LedgerConfig struct {
	// MaxRetries 乐观锁冲突的最大重试次数，耗尽后返回 CONCURRENCY_CONFLICT
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// DefaultFeeRate 交易对未配置费率时使用的默认费率
	DefaultFeeRate decimal.Decimal `yaml:"default_fee_rate" json:"default_fee_rate"`

	// AdminUserIDs 允许调整费率的用户
	AdminUserIDs []int64 `yaml:"admin_user_ids" json:"admin_user_ids"`
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := defaultConfig()

	// 尝试从配置文件加载
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	// 从环境变量覆盖
	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Ledger.MaxRetries < 1 {
		return fmt.Errorf("ledger.max_retries must be >= 1, got %d", c.Ledger.MaxRetries)
	}
	if c.Ledger.DefaultFeeRate.IsNegative() || c.Ledger.DefaultFeeRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("ledger.default_fee_rate must be within [0, 1], got %s", c.Ledger.DefaultFeeRate)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// defaultConfig 返回默认配置
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "eidos-ledger",
			GRPCPort: 50061,
			HTTPPort: 8080,
			Env:      "dev",
		},
		Database: DatabaseConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "postgres",
			Password:               "postgres",
			Database:               "eidos_ledger",
			SSLMode:                "disable",
			MaxIdleConns:           10,
			MaxOpenConns:           100,
			ConnMaxLifetimeMinutes: 30,
			AutoMigrate:            true,
		},
		Redis: RedisConfig{
			Enabled:  true,
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			PoolSize: 100,
		},
		Kafka: KafkaConfig{
			Enabled:  false, // 默认不启用 Kafka
			Brokers:  []string{"localhost:9092"},
			ClientID: "eidos-ledger",
			Producer: ProducerConfig{
				RequiredAcks:  -1, // WaitForAll
				MaxRetry:      3,
				FlushMessages: 100,
				FlushBytes:    1024 * 1024, // 1MB
				FlushFreqMs:   10,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			WalletTTLSec:  300,  // 5 分钟
			OrderTTLSec:   3600, // 60 分钟
			FeeRateTTLSec: 3600, // 60 分钟
		},
		Ledger: LedgerConfig{
			MaxRetries:     3,
			DefaultFeeRate: decimal.NewFromFloat(0.001),
		},
	}
}

// loadFromEnv 从环境变量加载配置
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("SERVICE_NAME"); v != "" {
		cfg.Service.Name = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Service.HTTPPort = port
		}
	}
	if v := os.Getenv("GRPC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Service.GRPCPort = port
		}
	}

	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		cfg.Database.AutoMigrate = v == "true"
	}

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = v == "true"
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = v == "true"
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if v := os.Getenv("LEDGER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ledger.MaxRetries = n
		}
	}
	if v := os.Getenv("LEDGER_DEFAULT_FEE_RATE"); v != "" {
		if rate, err := decimal.NewFromString(v); err == nil {
			cfg.Ledger.DefaultFeeRate = rate
		}
	}
}
