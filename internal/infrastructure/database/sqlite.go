package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opentill/terminal/internal/domain/entity"
)

// NewSQLiteDB opens (or creates) the terminal's local database file. WAL
// journaling keeps reads available during writes; the busy timeout rides out
// checkpointing. SQLite allows a single writer, so the pool is capped at one
// connection.
func NewSQLiteDB(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return db, nil
}

// AutoMigrate runs GORM auto-migration for the local storage tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Record{},
		&entity.OfflineQueueEntry{},
	)
}
