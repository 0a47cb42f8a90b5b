package service

import (
	"context"
	stderrors "errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/metrics"
	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/internal/repository"
	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

// WalletStore 钱包余额的读改写
//
// 每次变更都是 读取 → 计算 → UPDATE ... WHERE version = ?，
// 影响行数为 0 时重新读取并重试，最多 maxRetries 次。
// 检查余额一律读数据库，不读缓存。
type WalletStore struct {
	repo       repository.WalletRepository
	maxRetries int
}

// NewWalletStore 创建钱包存储
func NewWalletStore(repo repository.WalletRepository, maxRetries int) *WalletStore {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &WalletStore{
		repo:       repo,
		maxRetries: maxRetries,
	}
}

// Get 读取钱包，不存在返回 WALLET_NOT_FOUND
func (s *WalletStore) Get(ctx context.Context, userID int64, currency string) (*model.Wallet, error) {
	wallet, err := s.repo.GetByUserCurrency(ctx, userID, currency)
	if err != nil {
		if stderrors.Is(err, repository.ErrWalletNotFound) {
			return nil, errors.ErrWalletNotFound.WithMessagef("wallet not found: user %d currency %s", userID, currency)
		}
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	return wallet, nil
}

// List 用户全部钱包，按币种排序
func (s *WalletStore) List(ctx context.Context, userID int64) ([]*model.Wallet, error) {
	wallets, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	return wallets, nil
}

// Credit 入账，钱包不存在时创建
func (s *WalletStore) Credit(ctx context.Context, userID int64, currency string, amount decimal.Decimal) (*model.Wallet, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidRequest.WithMessagef("credit amount must be positive, got %s", amount)
	}
	if !model.FitsMoney(amount) {
		return nil, errors.ErrInvalidRequest.WithMessagef("credit amount %s exceeds %d decimal places or range", amount, model.MoneyScale)
	}
	return s.mutate(ctx, "credit", userID, currency, true, func(w *model.Wallet) error {
		w.Balance = w.Balance.Add(amount)
		return nil
	})
}

// Lock 锁定可用余额，可用余额不足时返回 INSUFFICIENT_BALANCE 并携带可用金额
func (s *WalletStore) Lock(ctx context.Context, userID int64, currency string, amount decimal.Decimal) (*model.Wallet, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidRequest.WithMessagef("lock amount must be positive, got %s", amount)
	}
	return s.mutate(ctx, "lock", userID, currency, true, func(w *model.Wallet) error {
		if !w.CanLock(amount) {
			available := w.AvailableBalance()
			return errors.ErrInsufficientBalance.
				WithMessagef("insufficient %s balance. Available: %s", currency, available).
				WithDetail("available", available.String()).
				WithDetail("required", amount.String())
		}
		w.LockedAmount = w.LockedAmount.Add(amount)
		return nil
	})
}

// Unlock 释放锁定金额
// 释放超过锁定额说明上游账务错误，按内部错误处理并告警，不当作用户错误
func (s *WalletStore) Unlock(ctx context.Context, userID int64, currency string, amount decimal.Decimal) (*model.Wallet, error) {
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidRequest.WithMessagef("unlock amount must be positive, got %s", amount)
	}
	return s.mutate(ctx, "unlock", userID, currency, false, func(w *model.Wallet) error {
		if amount.GreaterThan(w.LockedAmount) {
			metrics.RecordDataIntegrityCritical("unlock_exceeds_locked", currency)
			logger.Error("unlock exceeds locked amount",
				zap.Int64("user_id", userID),
				zap.String("currency", currency),
				zap.String("locked", w.LockedAmount.String()),
				zap.String("unlock", amount.String()))
			return errors.ErrInternal.WithMessagef("unlock %s exceeds locked %s for user %d %s",
				amount, w.LockedAmount, userID, currency)
		}
		w.LockedAmount = w.LockedAmount.Sub(amount)
		return nil
	})
}

func (s *WalletStore) mutate(ctx context.Context, op string, userID int64, currency string, create bool,
	apply func(w *model.Wallet) error) (*model.Wallet, error) {

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		wallet, err := s.load(ctx, userID, currency, create)
		if err != nil {
			return nil, err
		}

		if err := apply(wallet); err != nil {
			return nil, err
		}
		wallet.Touch(nowMillis())

		err = s.repo.Update(ctx, wallet)
		if err == nil {
			metrics.RecordBalanceOperation(op, currency)
			logger.Debug("wallet updated",
				zap.String("op", op),
				zap.Int64("user_id", userID),
				zap.String("currency", currency),
				zap.String("balance", wallet.Balance.String()),
				zap.String("locked", wallet.LockedAmount.String()),
				zap.Int64("version", wallet.Version))
			return wallet, nil
		}
		if !stderrors.Is(err, repository.ErrWalletVersionConflict) {
			return nil, errors.Wrap(errors.ErrInternal, err)
		}

		metrics.RecordOptimisticConflict("wallet", "retry")
		logger.Debug("wallet version conflict, retrying",
			zap.String("op", op),
			zap.Int64("user_id", userID),
			zap.String("currency", currency),
			zap.Int("attempt", attempt))
	}

	metrics.RecordOptimisticConflict("wallet", "exhausted")
	logger.Warn("wallet update retries exhausted",
		zap.String("op", op),
		zap.Int64("user_id", userID),
		zap.String("currency", currency),
		zap.Int("max_retries", s.maxRetries))
	return nil, errors.ErrConcurrencyConflict.WithMessagef("wallet %d/%s is being modified concurrently, retry the request", userID, currency)
}

func (s *WalletStore) load(ctx context.Context, userID int64, currency string, create bool) (*model.Wallet, error) {
	if create {
		wallet, err := s.repo.GetOrCreate(ctx, userID, currency, nowMillis())
		if err != nil {
			return nil, errors.Wrap(errors.ErrInternal, err)
		}
		return wallet, nil
	}

	wallet, err := s.repo.GetByUserCurrency(ctx, userID, currency)
	if err != nil {
		if stderrors.Is(err, repository.ErrWalletNotFound) {
			// 释放锁定时钱包必然存在
			metrics.RecordDataIntegrityCritical("unlock_wallet_missing", currency)
			logger.Error("unlock on missing wallet",
				zap.Int64("user_id", userID),
				zap.String("currency", currency))
			return nil, errors.ErrInternal.WithMessagef("wallet missing for unlock: user %d currency %s", userID, currency)
		}
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	return wallet, nil
}
