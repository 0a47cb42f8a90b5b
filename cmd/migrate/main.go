// Package main 提供数据库迁移命令行工具
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos-ledger/internal/config"
	"github.com/eidos-exchange/eidos-ledger/migrations"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
	"github.com/eidos-exchange/eidos-ledger/pkg/migrate"
)

func main() {
	var (
		command string
		steps   int
		dsn     string
	)
	flag.StringVar(&command, "cmd", "up", "Command: up, down, version")
	flag.IntVar(&steps, "steps", 1, "Number of migrations to roll back (down only)")
	flag.StringVar(&dsn, "dsn", "", "Database DSN (overrides config)")
	flag.Parse()

	if err := logger.Init(&logger.Config{
		Level:       "info",
		Format:      "console",
		ServiceName: "migrate",
	}); err != nil {
		fmt.Printf("init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			logger.Fatal("load config failed", zap.Error(err))
		}
		dsn = cfg.Database.DSN()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal("open database failed", zap.Error(err))
	}
	defer db.Close()

	m := migrate.NewMigrator(db, "eidos-ledger", migrations.FS, ".", logger.L())

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down(steps)
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = m.Version()
		if err == nil {
			fmt.Printf("version: %d, dirty: %v\n", version, dirty)
		}
	default:
		logger.Fatal("unknown command", zap.String("cmd", command))
	}
	if err != nil {
		logger.Fatal("migrate failed", zap.String("cmd", command), zap.Error(err))
	}
}
