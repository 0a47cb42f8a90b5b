package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/metrics"
	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

// 缓存键格式
const (
	KeyWallet        = "ledger:wallet:%d:%s" // userID:currency
	KeyOrder         = "ledger:order:%d"     // orderID
	KeyFeeRate       = "ledger:fee_rate:%s"  // pair
	KeyFeeRatePrefix = "ledger:fee_rate:"
)

// 默认 TTL
const (
	DefaultWalletTTL  = 5 * time.Minute
	DefaultOrderTTL   = 60 * time.Minute
	DefaultFeeRateTTL = 60 * time.Minute
)

func WalletKey(userID int64, currency string) string {
	return fmt.Sprintf(KeyWallet, userID, currency)
}

func OrderKey(orderID int64) string {
	return fmt.Sprintf(KeyOrder, orderID)
}

func FeeRateKey(pair string) string {
	return fmt.Sprintf(KeyFeeRate, pair)
}

// TTLConfig 各类快照的过期时间
type TTLConfig struct {
	Wallet  time.Duration
	Order   time.Duration
	FeeRate time.Duration
}

// LedgerCache 账本快照缓存
// 所有方法吞掉底层错误，只记录日志和指标；缓存故障退化为直接读库
type LedgerCache struct {
	cache Cache
	ttl   TTLConfig
}

// NewLedgerCache 创建账本缓存，TTL 为零的项使用默认值
func NewLedgerCache(c Cache, ttl TTLConfig) *LedgerCache {
	if c == nil {
		c = NopCache{}
	}
	if ttl.Wallet <= 0 {
		ttl.Wallet = DefaultWalletTTL
	}
	if ttl.Order <= 0 {
		ttl.Order = DefaultOrderTTL
	}
	if ttl.FeeRate <= 0 {
		ttl.FeeRate = DefaultFeeRateTTL
	}
	return &LedgerCache{cache: c, ttl: ttl}
}

// GetWallet 读取钱包快照，未命中或出错返回 nil
func (c *LedgerCache) GetWallet(ctx context.Context, userID int64, currency string) *model.Wallet {
	var wallet model.Wallet
	if !c.get(ctx, "wallet", WalletKey(userID, currency), &wallet) {
		return nil
	}
	return &wallet
}

func (c *LedgerCache) SetWallet(ctx context.Context, wallet *model.Wallet) {
	c.set(ctx, WalletKey(wallet.UserID, wallet.Currency), wallet, c.ttl.Wallet)
}

func (c *LedgerCache) GetOrder(ctx context.Context, orderID int64) *model.Order {
	var order model.Order
	if !c.get(ctx, "order", OrderKey(orderID), &order) {
		return nil
	}
	return &order
}

func (c *LedgerCache) SetOrder(ctx context.Context, order *model.Order) {
	c.set(ctx, OrderKey(order.ID), order, c.ttl.Order)
}

// GetFeeRate 读取费率，第二个返回值表示是否命中
func (c *LedgerCache) GetFeeRate(ctx context.Context, pair string) (decimal.Decimal, bool) {
	var rate decimal.Decimal
	if !c.get(ctx, "fee_rate", FeeRateKey(pair), &rate) {
		return decimal.Zero, false
	}
	return rate, true
}

func (c *LedgerCache) SetFeeRate(ctx context.Context, pair string, rate decimal.Decimal) {
	c.set(ctx, FeeRateKey(pair), rate, c.ttl.FeeRate)
}

// Invalidate 删除键，只在事务提交后调用
func (c *LedgerCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.cache.Delete(ctx, keys...); err != nil {
		metrics.RecordCacheRequest("invalidate", "error")
		logger.Warn("cache invalidate failed",
			zap.Strings("keys", keys),
			zap.Error(err))
	}
}

// InvalidateFeeRates 删除所有交易对的费率缓存
func (c *LedgerCache) InvalidateFeeRates(ctx context.Context) {
	if err := c.cache.DeleteByPrefix(ctx, KeyFeeRatePrefix); err != nil {
		metrics.RecordCacheRequest("fee_rate", "error")
		logger.Warn("cache invalidate fee rates failed", zap.Error(err))
	}
}

func (c *LedgerCache) get(ctx context.Context, kind, key string, dest interface{}) bool {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			metrics.RecordCacheRequest(kind, "miss")
			return false
		}
		metrics.RecordCacheRequest(kind, "error")
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		metrics.RecordCacheRequest(kind, "error")
		logger.Warn("cache entry corrupted, dropping",
			zap.String("key", key),
			zap.Error(err))
		c.Invalidate(ctx, key)
		return false
	}
	metrics.RecordCacheRequest(kind, "hit")
	return true
}

func (c *LedgerCache) set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}
