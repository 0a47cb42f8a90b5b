package app

import (
	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos-ledger/migrations"
	"github.com/eidos-exchange/eidos-ledger/pkg/logger"
	"github.com/eidos-exchange/eidos-ledger/pkg/migrate"
)

// AutoMigrate 执行内嵌的数据库迁移
func AutoMigrate(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return migrate.NewMigrator(sqlDB, serviceName, migrations.FS, ".", logger.L()).Up()
}
