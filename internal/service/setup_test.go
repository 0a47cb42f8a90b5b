package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/eidos-exchange/eidos-ledger/internal/cache"
	"github.com/eidos-exchange/eidos-ledger/internal/model"
	"github.com/eidos-exchange/eidos-ledger/internal/repository"
)

var testDBCounter int64

// setupTestDB 创建独立的 SQLite 内存库
// 单连接模式保证并发测试中所有 goroutine 看到同一份数据
func setupTestDB(t *testing.T) *gorm.DB {
	counter := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:ledgertest_%d?mode=memory&cache=shared&_busy_timeout=5000", counter)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// testLedger 组装好的账本服务及其依赖
type testLedger struct {
	db         *gorm.DB
	walletRepo repository.WalletRepository
	orderRepo  repository.OrderRepository
	eventRepo  repository.OrderEventRepository
	accounts   repository.AccountRepository
	wallets    *WalletStore
	lifecycle  *OrderLifecycle
	cache      *cache.LedgerCache
	svc        LedgerService
}

type ledgerOption func(*testLedger)

// withOrderRepo 替换订单仓储 (用于注入故障)
func withOrderRepo(wrap func(repository.OrderRepository) repository.OrderRepository) ledgerOption {
	return func(l *testLedger) {
		l.orderRepo = wrap(l.orderRepo)
	}
}

func withEventRepo(repo repository.OrderEventRepository) ledgerOption {
	return func(l *testLedger) {
		l.eventRepo = repo
	}
}

func withCache(c cache.Cache) ledgerOption {
	return func(l *testLedger) {
		l.cache = cache.NewLedgerCache(c, cache.TTLConfig{})
	}
}

func newTestLedger(t *testing.T, opts ...ledgerOption) *testLedger {
	db := setupTestDB(t)
	l := &testLedger{
		db:         db,
		walletRepo: repository.NewWalletRepository(db),
		orderRepo:  repository.NewOrderRepository(db),
		eventRepo:  repository.NewOrderEventRepository(db),
		accounts:   repository.NewAccountRepository(db),
		cache:      cache.NewLedgerCache(cache.NopCache{}, cache.TTLConfig{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.wallets = NewWalletStore(l.walletRepo, DefaultMaxRetries)
	l.lifecycle = NewOrderLifecycle(l.orderRepo, l.eventRepo, nil, DefaultMaxRetries)
	l.svc = NewLedgerService(repository.NewRepository(db), l.wallets, l.lifecycle, l.orderRepo, l.accounts, l.cache, DefaultMaxRetries)
	return l
}

// fund 直接入账
func (l *testLedger) fund(t *testing.T, userID int64, currency string, amount string) {
	_, err := l.svc.AddBalance(context.Background(), userID, currency, decimal.RequireFromString(amount))
	require.NoError(t, err)
}

// wallet 直接读库
func (l *testLedger) wallet(t *testing.T, userID int64, currency string) *model.Wallet {
	w, err := l.walletRepo.GetByUserCurrency(context.Background(), userID, currency)
	require.NoError(t, err)
	return w
}

func (l *testLedger) order(t *testing.T, orderID int64) *model.Order {
	o, err := l.orderRepo.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	return o
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ========== 故障注入 ==========

// conflictingOrderRepo 前 conflicts 次 Update 返回版本冲突
type conflictingOrderRepo struct {
	repository.OrderRepository
	conflicts int32
	updates   int32
}

func (r *conflictingOrderRepo) Update(ctx context.Context, order *model.Order) error {
	n := atomic.AddInt32(&r.updates, 1)
	if n <= r.conflicts {
		return repository.ErrOrderVersionConflict
	}
	return r.OrderRepository.Update(ctx, order)
}

// barrierWalletRepo 前 n 次读取互相等待，保证 n 个写入基于同一版本发生冲突
type barrierWalletRepo struct {
	repository.WalletRepository
	n         int32
	reads     int32
	conflicts int32
	barrier   sync.WaitGroup
}

func newBarrierWalletRepo(inner repository.WalletRepository, n int) *barrierWalletRepo {
	r := &barrierWalletRepo{WalletRepository: inner, n: int32(n)}
	r.barrier.Add(n)
	return r
}

func (r *barrierWalletRepo) wait() {
	if atomic.AddInt32(&r.reads, 1) <= r.n {
		r.barrier.Done()
		r.barrier.Wait()
	}
}

func (r *barrierWalletRepo) GetOrCreate(ctx context.Context, userID int64, currency string, now int64) (*model.Wallet, error) {
	w, err := r.WalletRepository.GetOrCreate(ctx, userID, currency, now)
	r.wait()
	return w, err
}

func (r *barrierWalletRepo) GetByUserCurrency(ctx context.Context, userID int64, currency string) (*model.Wallet, error) {
	w, err := r.WalletRepository.GetByUserCurrency(ctx, userID, currency)
	r.wait()
	return w, err
}

func (r *barrierWalletRepo) Update(ctx context.Context, wallet *model.Wallet) error {
	err := r.WalletRepository.Update(ctx, wallet)
	if stderrors.Is(err, repository.ErrWalletVersionConflict) {
		atomic.AddInt32(&r.conflicts, 1)
	}
	return err
}

// failingCreateOrderRepo 插入订单总是失败
type failingCreateOrderRepo struct {
	repository.OrderRepository
}

func (r *failingCreateOrderRepo) Create(ctx context.Context, order *model.Order) error {
	return fmt.Errorf("insert order: disk full")
}

// ========== testify mocks ==========

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockWalletRepository) GetByUserCurrency(ctx context.Context, userID int64, currency string) (*model.Wallet, error) {
	args := m.Called(ctx, userID, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetOrCreate(ctx context.Context, userID int64, currency string, now int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID, currency, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Wallet), args.Error(1)
}

func (m *MockWalletRepository) Update(ctx context.Context, wallet *model.Wallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

type MockOrderEventRepository struct {
	mock.Mock
}

func (m *MockOrderEventRepository) Create(ctx context.Context, event *model.OrderEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOrderEventRepository) ListByOrderID(ctx context.Context, orderID int64) ([]*model.OrderEvent, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OrderEvent), args.Error(1)
}

type MockOrderEventPublisher struct {
	mock.Mock
}

func (m *MockOrderEventPublisher) PublishOrderEvent(ctx context.Context, order *model.Order, event *model.OrderEvent) error {
	args := m.Called(ctx, order, event)
	return args.Error(0)
}
