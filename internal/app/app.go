// Package app 提供应用生命周期管理
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos-ledger/internal/cache"
	"github.com/eidos-exchange/eidos-ledger/internal/config"
	"github.com/eidos-exchange/eidos-ledger/internal/handler"
	"github.com/eidos-exchange/eidos-ledger/internal/kafka"
	"github.com/eidos-exchange/eidos-ledger/internal/publisher"
	"github.com/eidos-exchange/eidos-ledger/internal/repository"
	"github.com/eidos-exchange/eidos-ledger/internal/service"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

const serviceName = "eidos-ledger"

// App 应用实例
type App struct {
	cfg *config.Config

	// 基础设施
	db  *gorm.DB
	rdb *redis.Client

	// gRPC (仅健康检查)
	grpcServer   *grpc.Server
	healthServer *health.Server

	// HTTP (业务接口 + metrics + health)
	httpServer    *http.Server
	healthHandler *handler.HealthHandler

	// Kafka
	producer       *kafka.Producer
	eventPublisher service.OrderEventPublisher

	// 仓储层
	walletRepo repository.WalletRepository
	orderRepo  repository.OrderRepository
	eventRepo  repository.OrderEventRepository
	feeRepo    repository.FeeRepository
	accounts   repository.AccountRepository

	// 服务层
	ledgerCache *cache.LedgerCache
	ledgerSvc   service.LedgerService
	feeLedger   *service.FeeLedger
}

// New 创建应用实例
func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Run 启动应用，阻塞直到收到退出信号
func (a *App) Run() error {
	logger.Info("starting service", zap.String("service", serviceName))

	if err := a.initInfra(); err != nil {
		return fmt.Errorf("init infra: %w", err)
	}
	a.initRepositories()
	if err := a.initKafka(); err != nil {
		return fmt.Errorf("init kafka: %w", err)
	}
	a.initServices()

	if err := a.startGRPCServer(); err != nil {
		return fmt.Errorf("start grpc: %w", err)
	}
	a.startHTTPServer()
	a.healthHandler.SetReady(true)

	a.waitForShutdown()
	return nil
}

// initInfra 初始化数据库和 Redis
func (a *App) initInfra() error {
	var err error
	a.db, err = newDatabase(&a.cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	if a.cfg.Database.AutoMigrate {
		if err := AutoMigrate(a.db); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Info("database migrated")
	}

	if a.cfg.Redis.Enabled {
		a.rdb = newRedisClient(&a.cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			// 缓存不可用时照常启动，读请求回落到数据库
			logger.Warn("redis ping failed", zap.String("addr", a.cfg.Redis.Addr()), zap.Error(err))
		}
	} else {
		logger.Warn("redis is disabled, cache bypassed")
	}
	return nil
}

// initRepositories 初始化仓储层
func (a *App) initRepositories() {
	a.walletRepo = repository.NewWalletRepository(a.db)
	a.orderRepo = repository.NewOrderRepository(a.db)
	a.eventRepo = repository.NewOrderEventRepository(a.db)
	a.feeRepo = repository.NewFeeRepository(a.db)
	a.accounts = repository.NewAccountRepository(a.db)
}

// initKafka 初始化订单事件生产者
func (a *App) initKafka() error {
	if !a.cfg.Kafka.Enabled {
		logger.Warn("kafka is disabled, order events are only stored in the database")
		return nil
	}

	var err error
	a.producer, err = kafka.NewProducer(newProducerConfig(&a.cfg.Kafka))
	if err != nil {
		return fmt.Errorf("create producer: %w", err)
	}
	a.eventPublisher = publisher.NewOrderEventPublisher(a.producer)
	logger.Info("kafka producer created", zap.Strings("brokers", a.cfg.Kafka.Brokers))
	return nil
}

// initServices 初始化服务层
func (a *App) initServices() {
	var c cache.Cache = cache.NopCache{}
	if a.rdb != nil {
		c = cache.NewRedisCache(a.rdb)
	}
	a.ledgerCache = cache.NewLedgerCache(c, newTTLConfig(&a.cfg.Cache))

	maxRetries := a.cfg.Ledger.MaxRetries
	wallets := service.NewWalletStore(a.walletRepo, maxRetries)
	lifecycle := service.NewOrderLifecycle(a.orderRepo, a.eventRepo, a.eventPublisher, maxRetries)
	a.ledgerSvc = service.NewLedgerService(
		repository.NewRepository(a.db),
		wallets,
		lifecycle,
		a.orderRepo,
		a.accounts,
		a.ledgerCache,
		maxRetries,
	)
	a.feeLedger = service.NewFeeLedger(a.feeRepo, a.ledgerCache, a.cfg.Ledger.DefaultFeeRate)
}

// startGRPCServer 启动 gRPC 健康检查服务
func (a *App) startGRPCServer() error {
	a.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recoveryUnaryInterceptor(),
			loggingUnaryInterceptor(),
		),
	)
	a.healthServer = health.NewServer()
	grpc_health_v1.RegisterHealthServer(a.grpcServer, a.healthServer)
	a.healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Service.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		logger.Info("gRPC server listening", zap.Int("port", a.cfg.Service.GRPCPort))
		if err := a.grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve error", zap.Error(err))
		}
	}()
	return nil
}

// startHTTPServer 启动 HTTP 服务
func (a *App) startHTTPServer() {
	a.healthHandler = handler.NewHealthHandler(a.healthDeps())

	engine := handler.NewEngine(&handler.Router{
		Balance:  handler.NewBalanceHandler(a.ledgerSvc),
		Order:    handler.NewOrderHandler(a.ledgerSvc, a.feeLedger),
		Fee:      handler.NewFeeHandler(a.feeLedger),
		Health:   a.healthHandler,
		Identity: handler.BearerIdentityResolver{},
		AdminIDs: a.cfg.Ledger.AdminUserIDs,
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Service.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.Int("port", a.cfg.Service.HTTPPort))
		if err := a.httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", zap.Error(err))
		}
	}()
}

// healthDeps 健康检查依赖，Redis 故障只降级缓存，不影响就绪
func (a *App) healthDeps() map[string]handler.Pinger {
	deps := map[string]handler.Pinger{
		"postgres": handler.PingFunc(func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	return deps
}

// waitForShutdown 等待关闭信号
func (a *App) waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	a.shutdown()
}

// shutdown 优雅关闭
func (a *App) shutdown() {
	if a.healthHandler != nil {
		a.healthHandler.SetReady(false)
	}
	if a.healthServer != nil {
		a.healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
		}
		cancel()
	}

	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	// 请求处理完毕后再关闭生产者，保证已提交事件尽量发出
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Error("close kafka producer failed", zap.Error(err))
		}
	}

	if a.rdb != nil {
		a.rdb.Close()
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	logger.Info("service stopped")
}
