package models

import (
	"fmt"

	"github.com/matterdesk/matterdesk/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := logger.Warn
	if cfg.Debug {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	// sqlite serializes writers; a single connection avoids "database is locked" under concurrent transactions.
	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	DB = db
	return nil
}

// AllModels lists every persisted model in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Firm{},
		&Profile{},
		&Matter{},
		&Assignment{},
		&AuditRecord{},
		&Notification{},
		&Invitation{},
		&MatterDocument{},
		&MatterUpdate{},
		&Payment{},
		&Invoice{},
		&RefreshToken{},
		&SchedulerLock{},
	}
}

func AutoMigrate() error {
	return DB.AutoMigrate(AllModels()...)
}

func GetDB() *gorm.DB {
	return DB
}
