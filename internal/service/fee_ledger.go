package service

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/cache"
	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/internal/repository"
	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

// DefaultFeeRate 交易对未配置费率时的默认费率 (0.1%)
var DefaultFeeRate = decimal.NewFromFloat(0.001)

// FeeRateProvider 交易对费率查询
type FeeRateProvider interface {
	GetFeeRate(ctx context.Context, pair string) (decimal.Decimal, error)
}

// FeeLedger 手续费账本
// 手续费流水只追加，汇总结果不为 null
type FeeLedger struct {
	repo        repository.FeeRepository
	cache       *cache.LedgerCache
	defaultRate decimal.Decimal
}

// NewFeeLedger 创建手续费账本，defaultRate 为零时使用 DefaultFeeRate
func NewFeeLedger(repo repository.FeeRepository, ledgerCache *cache.LedgerCache, defaultRate decimal.Decimal) *FeeLedger {
	if ledgerCache == nil {
		ledgerCache = cache.NewLedgerCache(cache.NopCache{}, cache.TTLConfig{})
	}
	if defaultRate.IsZero() {
		defaultRate = DefaultFeeRate
	}
	return &FeeLedger{
		repo:        repo,
		cache:       ledgerCache,
		defaultRate: defaultRate,
	}
}

// RecordFeeTransaction 追加一笔手续费流水
func (f *FeeLedger) RecordFeeTransaction(ctx context.Context, orderID int64, amount decimal.Decimal, feeType model.FeeType) (*model.FeeTransaction, error) {
	if !feeType.IsValid() {
		return nil, errors.ErrInvalidRequest.WithMessagef("invalid fee type: %q", feeType)
	}
	if amount.IsNegative() {
		return nil, errors.ErrInvalidRequest.WithMessagef("fee amount must not be negative, got %s", amount)
	}
	if !model.FitsMoney(amount) {
		return nil, errors.ErrInvalidRequest.WithMessagef("fee amount %s exceeds %d decimal places or range", amount, model.MoneyScale)
	}

	tx := model.NewFeeTransaction(orderID, amount, feeType, nowMillis())
	if err := f.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err)
	}

	logger.Info("fee transaction recorded",
		zap.String("tx_id", tx.TxID),
		zap.Int64("order_id", orderID),
		zap.String("fee_type", string(feeType)),
		zap.String("amount", amount.String()))
	return tx, nil
}

// GetTotalFees 汇总全部手续费，无流水时为 0
func (f *FeeLedger) GetTotalFees(ctx context.Context) (decimal.Decimal, error) {
	total, err := f.repo.SumTransactionAmount(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrInternal, err)
	}
	return total, nil
}

// ListFeeTransactions 查询订单的手续费流水
func (f *FeeLedger) ListFeeTransactions(ctx context.Context, orderID int64) ([]*model.FeeTransaction, error) {
	txs, err := f.repo.ListTransactionsByOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	return txs, nil
}

// GetFeeRate 查询交易对当前费率
// 缓存 → 最新生效的费率记录 → 写入默认费率并返回
func (f *FeeLedger) GetFeeRate(ctx context.Context, pair string) (decimal.Decimal, error) {
	pair = normalizePair(pair)
	if pair == "" {
		return decimal.Zero, errors.ErrInvalidRequest.WithMessage("currency pair is required")
	}

	if rate, ok := f.cache.GetFeeRate(ctx, pair); ok {
		return rate, nil
	}

	now := nowMillis()
	rate, err := f.repo.GetEffectiveRate(ctx, pair, now)
	switch {
	case err == nil:
		f.cache.SetFeeRate(ctx, pair, rate.FeePercentage)
		return rate.FeePercentage, nil
	case !stderrors.Is(err, repository.ErrFeeRateNotFound):
		return decimal.Zero, errors.Wrap(errors.ErrInternal, err)
	}

	defaultRate := &model.FeeRate{
		CurrencyPair:  pair,
		FeePercentage: f.defaultRate,
		EffectiveFrom: now,
		CreatedAt:     now,
	}
	if err := f.repo.CreateRate(ctx, defaultRate); err != nil {
		// 写默认费率失败不影响查询
		logger.Warn("persist default fee rate failed",
			zap.String("pair", pair),
			zap.Error(err))
		return f.defaultRate, nil
	}

	logger.Info("default fee rate created",
		zap.String("pair", pair),
		zap.String("fee_percentage", f.defaultRate.String()))
	f.cache.SetFeeRate(ctx, pair, f.defaultRate)
	return f.defaultRate, nil
}

// UpdateFeeRate 设置交易对新费率，立即生效并清空全部费率缓存
func (f *FeeLedger) UpdateFeeRate(ctx context.Context, pair string, feePercentage decimal.Decimal, adminID int64) (*model.FeeRate, error) {
	pair = normalizePair(pair)
	if pair == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("currency pair is required")
	}
	if feePercentage.IsNegative() || feePercentage.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.ErrInvalidRequest.WithMessagef("fee percentage must be between 0 and 1, got %s", feePercentage)
	}
	if !feePercentage.Equal(feePercentage.Truncate(model.FeeRateScale)) {
		return nil, errors.ErrInvalidRequest.WithMessagef("fee percentage %s exceeds %d decimal places", feePercentage, model.FeeRateScale)
	}

	now := nowMillis()
	rate := &model.FeeRate{
		CurrencyPair:  pair,
		FeePercentage: feePercentage,
		EffectiveFrom: now,
		AdminID:       &adminID,
		CreatedAt:     now,
	}
	if err := f.repo.CreateRate(ctx, rate); err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err)
	}

	f.cache.InvalidateFeeRates(ctx)

	logger.Info("fee rate updated",
		zap.String("pair", pair),
		zap.String("fee_percentage", feePercentage.String()),
		zap.Int64("admin_id", adminID))
	return rate, nil
}

func normalizePair(pair string) string {
	return strings.ToUpper(strings.TrimSpace(pair))
}
