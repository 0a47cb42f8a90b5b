package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/cache"
	"github.com/eidos-exchange/eidos-ledger/internal/metrics"
	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/internal/repository"
	"github.com/eidos-exchange/eidos-ledger/pkg/errors"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

// LedgerService 账本服务接口
// 负责资金锁定与订单生命周期的协调
type LedgerService interface {
	// CreateOrder 锁定资金并创建订单
	// 买单锁定 amount*price 计价币，卖单锁定 amount 基础币
	CreateOrder(ctx context.Context, userID int64, side model.OrderSide, base, quote string,
		amount, price decimal.Decimal) (*model.Order, error)

	// CancelOrder 撤单并释放未成交部分的锁定资金，只有订单所有者可以撤单
	CancelOrder(ctx context.Context, orderID, callerUserID int64) error

	// FillOrder 外部成交信号，只推进订单状态，不改变锁定资金
	FillOrder(ctx context.Context, orderID int64, increment decimal.Decimal) (*model.Order, error)

	// GetOrder 查询订单 (读缓存)
	GetOrder(ctx context.Context, orderID int64) (*model.Order, error)

	// ListOrders 按创建时间倒序查询用户订单
	ListOrders(ctx context.Context, userID int64, page *repository.Pagination) ([]*model.Order, error)

	// AddBalance 入账并累加用户充值总额
	AddBalance(ctx context.Context, userID int64, currency string, amount decimal.Decimal) (*model.Wallet, error)

	// GetWallet 查询钱包 (读缓存)
	GetWallet(ctx context.Context, userID int64, currency string) (*model.Wallet, error)

	// ListOrderEvents 查询订单事件，只有订单所有者可以查询
	ListOrderEvents(ctx context.Context, orderID, callerUserID int64) ([]*model.OrderEvent, error)

	// ListWallets 查询用户全部钱包 (不读缓存)
	ListWallets(ctx context.Context, userID int64) ([]*model.Wallet, error)
}

// ledgerService 账本服务实现
type ledgerService struct {
	tx         Transactor
	wallets    *WalletStore
	lifecycle  *OrderLifecycle
	orderRepo  repository.OrderRepository
	accounts   repository.AccountRepository
	cache      *cache.LedgerCache
	maxRetries int
}

// NewLedgerService 创建账本服务
func NewLedgerService(
	tx Transactor,
	wallets *WalletStore,
	lifecycle *OrderLifecycle,
	orderRepo repository.OrderRepository,
	accounts repository.AccountRepository,
	ledgerCache *cache.LedgerCache,
	maxRetries int,
) LedgerService {
	if ledgerCache == nil {
		ledgerCache = cache.NewLedgerCache(cache.NopCache{}, cache.TTLConfig{})
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &ledgerService{
		tx:         tx,
		wallets:    wallets,
		lifecycle:  lifecycle,
		orderRepo:  orderRepo,
		accounts:   accounts,
		cache:      ledgerCache,
		maxRetries: maxRetries,
	}
}

// CreateOrder 创建订单
// 锁定资金与插入订单在同一事务中，任一步失败整体回滚
func (s *ledgerService) CreateOrder(ctx context.Context, userID int64, side model.OrderSide, base, quote string,
	amount, price decimal.Decimal) (*model.Order, error) {

	start := time.Now()
	defer metrics.ObserveOrderLatency("create", start)

	order, err := s.lifecycle.Prepare(userID, side, base, quote, amount, price)
	if err != nil {
		return nil, err
	}
	lockCurrency, lockAmount := order.LockCurrency(), order.LockAmount()

	var event *model.OrderEvent
	err = s.tx.Transaction(ctx, func(txCtx context.Context) error {
		if _, err := s.wallets.Lock(txCtx, userID, lockCurrency, lockAmount); err != nil {
			return err
		}
		var err error
		event, err = s.lifecycle.Create(txCtx, order)
		return err
	})
	if err != nil {
		logger.Info("create order rejected",
			zap.Int64("user_id", userID),
			zap.String("side", string(order.Side)),
			zap.String("pair", order.CurrencyPair()),
			zap.String("lock_amount", lockAmount.String()),
			zap.String("code", errors.GetCode(err)))
		return nil, internalError(err)
	}

	s.cache.Invalidate(ctx, cache.WalletKey(userID, lockCurrency), cache.OrderKey(order.ID))
	s.lifecycle.Record(ctx, order, event)
	metrics.RecordOrderEvent("created", order.CurrencyPair(), string(order.Side))

	logger.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.String("side", string(order.Side)),
		zap.String("pair", order.CurrencyPair()),
		zap.String("amount", order.Amount.String()),
		zap.String("price", order.Price.String()),
		zap.String("lock_currency", lockCurrency),
		zap.String("lock_amount", lockAmount.String()))
	return order, nil
}

// CancelOrder 撤单
// 订单从数据库读取，不读缓存。撤单与解锁在同一事务中；
// 事务内订单版本冲突 (与成交并发) 时回滚并整体重试
func (s *ledgerService) CancelOrder(ctx context.Context, orderID, callerUserID int64) error {
	start := time.Now()
	defer metrics.ObserveOrderLatency("cancel", start)

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		var (
			order        *model.Order
			event        *model.OrderEvent
			unlockAmount decimal.Decimal
		)

		err := s.tx.Transaction(ctx, func(txCtx context.Context) error {
			var err error
			order, err = s.lifecycle.Load(txCtx, orderID)
			if err != nil {
				return err
			}
			if order.UserID != callerUserID {
				return errors.ErrForbidden.WithMessagef("order %d does not belong to user %d", orderID, callerUserID)
			}

			unlockAmount = order.RemainingLockAmount()
			event, err = s.lifecycle.Cancel(txCtx, order)
			if err != nil {
				return err
			}

			if unlockAmount.IsPositive() {
				if _, err := s.wallets.Unlock(txCtx, order.UserID, order.LockCurrency(), unlockAmount); err != nil {
					return err
				}
			}
			return nil
		})

		if err == nil {
			s.cache.Invalidate(ctx, cache.WalletKey(order.UserID, order.LockCurrency()), cache.OrderKey(order.ID))
			s.lifecycle.Record(ctx, order, event)
			metrics.RecordOrderEvent("cancelled", order.CurrencyPair(), string(order.Side))

			logger.Info("order cancelled",
				zap.Int64("order_id", order.ID),
				zap.Int64("user_id", order.UserID),
				zap.String("filled_amount", order.FilledAmount.String()),
				zap.String("unlock_currency", order.LockCurrency()),
				zap.String("unlock_amount", unlockAmount.String()))
			return nil
		}

		if !stderrors.Is(err, repository.ErrOrderVersionConflict) {
			return internalError(err)
		}
		metrics.RecordOptimisticConflict("order", "retry")
		logger.Debug("cancel order raced with another update, retrying",
			zap.Int64("order_id", orderID),
			zap.Int("attempt", attempt))
	}

	metrics.RecordOptimisticConflict("order", "exhausted")
	return errors.ErrConcurrencyConflict.WithMessagef("order %d is being modified concurrently, retry the request", orderID)
}

// FillOrder 推进成交
// 成交不释放锁定资金
func (s *ledgerService) FillOrder(ctx context.Context, orderID int64, increment decimal.Decimal) (*model.Order, error) {
	start := time.Now()
	defer metrics.ObserveOrderLatency("fill", start)

	order, event, err := s.lifecycle.Fill(ctx, orderID, increment)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.OrderKey(order.ID))
	s.lifecycle.Record(ctx, order, event)
	metrics.RecordOrderEvent(strings.ToLower(string(order.Status)), order.CurrencyPair(), string(order.Side))

	logger.Info("order filled",
		zap.Int64("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.String("filled_amount", order.FilledAmount.String()),
		zap.String("amount", order.Amount.String()))
	return order, nil
}

// GetOrder 查询订单
func (s *ledgerService) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	if order := s.cache.GetOrder(ctx, orderID); order != nil {
		return order, nil
	}

	order, err := s.lifecycle.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.cache.SetOrder(ctx, order)
	return order, nil
}

// ListOrders 查询用户订单
func (s *ledgerService) ListOrders(ctx context.Context, userID int64, page *repository.Pagination) ([]*model.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInternal, err)
	}
	return orders, nil
}

// AddBalance 入账
func (s *ledgerService) AddBalance(ctx context.Context, userID int64, currency string, amount decimal.Decimal) (*model.Wallet, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("currency is required")
	}
	if !amount.IsPositive() {
		return nil, errors.ErrInvalidRequest.WithMessagef("amount must be positive, got %s", amount)
	}
	if !model.FitsMoney(amount) {
		return nil, errors.ErrInvalidRequest.WithMessagef("amount %s exceeds %d decimal places or range", amount, model.MoneyScale)
	}

	var wallet *model.Wallet
	err := s.tx.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		wallet, err = s.wallets.Credit(txCtx, userID, currency, amount)
		if err != nil {
			return err
		}
		if err := s.accounts.AddDeposit(txCtx, userID, amount, wallet.UpdatedAt); err != nil {
			return errors.Wrap(errors.ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, internalError(err)
	}

	s.cache.Invalidate(ctx, cache.WalletKey(userID, currency))

	logger.Info("balance added",
		zap.Int64("user_id", userID),
		zap.String("currency", currency),
		zap.String("amount", amount.String()),
		zap.String("balance", wallet.Balance.String()))
	return wallet, nil
}

// GetWallet 查询钱包
func (s *ledgerService) GetWallet(ctx context.Context, userID int64, currency string) (*model.Wallet, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if wallet := s.cache.GetWallet(ctx, userID, currency); wallet != nil {
		return wallet, nil
	}

	wallet, err := s.wallets.Get(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	s.cache.SetWallet(ctx, wallet)
	return wallet, nil
}

// ListWallets 查询用户全部钱包
func (s *ledgerService) ListWallets(ctx context.Context, userID int64) ([]*model.Wallet, error) {
	return s.wallets.List(ctx, userID)
}

// ListOrderEvents 查询订单事件
func (s *ledgerService) ListOrderEvents(ctx context.Context, orderID, callerUserID int64) ([]*model.OrderEvent, error) {
	order, err := s.lifecycle.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != callerUserID {
		return nil, errors.ErrForbidden.WithMessagef("order %d does not belong to user %d", orderID, callerUserID)
	}
	return s.lifecycle.Events(ctx, orderID)
}
