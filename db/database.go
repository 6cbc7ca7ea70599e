package db

import (
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the shared handle the service layer operates on.
var DB *gorm.DB

// Initialize opens the sqlite database in WAL mode and migrates the given
// models in one step. WAL keeps concurrent submissions from blocking export
// reads. Query logging is verbose outside production.
func Initialize(dbPath, environment string, models ...interface{}) error {
	logLevel := logger.Info
	if environment == "production" {
		logLevel = logger.Warn
	}

	conn, err := gorm.Open(sqlite.Open(dbPath+"?_journal_mode=WAL"), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if len(models) > 0 {
		if err := conn.AutoMigrate(models...); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	DB = conn
	log.Printf("[DB] connected to %s (WAL mode, %d models migrated)", dbPath, len(models))
	return nil
}

// Close releases the underlying connection pool.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
