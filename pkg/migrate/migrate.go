// Package migrate 基于 golang-migrate 执行内嵌 SQL 迁移
package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator 迁移器
type Migrator struct {
	db          *sql.DB
	logger      *zap.Logger
	serviceName string
	source      fs.FS
	path        string
}

// NewMigrator 创建迁移器
// source 为包含迁移文件的文件系统 (通常是 embed.FS)，path 为其中的目录
func NewMigrator(db *sql.DB, serviceName string, source fs.FS, path string, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{
		db:          db,
		logger:      logger,
		serviceName: serviceName,
		source:      source,
		path:        path,
	}
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	src, err := iofs.New(m.source, m.path)
	if err != nil {
		return nil, fmt.Errorf("create migration source failed: %w", err)
	}
	driver, err := postgres.WithInstance(m.db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver failed: %w", err)
	}
	mg, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator failed: %w", err)
	}
	return mg, nil
}

// Up 执行全部未应用的迁移
func (m *Migrator) Up() error {
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("no new migrations to apply", zap.String("service", m.serviceName))
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return m.logVersion(mg, "migration completed")
}

// Down 回滚 steps 个版本
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		steps = 1
	}
	mg, err := m.open()
	if err != nil {
		return err
	}
	defer mg.Close()

	if err := mg.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("no migrations to rollback", zap.String("service", m.serviceName))
			return nil
		}
		return fmt.Errorf("rollback failed: %w", err)
	}
	return m.logVersion(mg, "rollback completed")
}

// Version 返回当前版本，未迁移时返回 0
func (m *Migrator) Version() (uint, bool, error) {
	mg, err := m.open()
	if err != nil {
		return 0, false, err
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return version, dirty, nil
}

func (m *Migrator) logVersion(mg *migrate.Migrate, msg string) error {
	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("get migration version failed: %w", err)
	}
	m.logger.Info(msg,
		zap.String("service", m.serviceName),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}
