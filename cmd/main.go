package main

import (
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/app"
	"github.com/eidos-exchange/eidos-ledger/internal/config"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
)

func main() {
	// 先以默认参数初始化日志，保证配置加载失败也能输出
	if err := logger.Init(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "eidos-ledger",
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.Service.Name,
	}); err != nil {
		logger.Fatal("failed to init logger", zap.Error(err))
	}

	if err := app.New(cfg).Run(); err != nil {
		logger.Fatal("application error", zap.Error(err))
	}
}
