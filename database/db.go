package database

import (
	"fmt"

	"ecochain/config"
	"ecochain/logger"
	"ecochain/models/log"
	"ecochain/models/pickup"
	"ecochain/models/user"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DSN builds the PostgreSQL connection string.
func DSN(cfg config.PostgresConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, cfg.SSLMode)
}

// InitDB opens the PostgreSQL connection, migrates the schema and creates indexes.
func InitDB(cfg config.PostgresConfig, debug bool) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	}
	if debug {
		gormCfg.Logger = gormLogger.Default.LogMode(gormLogger.Info)
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), gormCfg)
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success(fmt.Sprintf("Successfully connected to the database %s@%s:%s", cfg.Database, cfg.Host, cfg.Port))

	if err := Migrate(db); err != nil {
		logger.Error("Failed to migrate the database", err)
		return nil, err
	}
	return db, nil
}

// Migrate runs auto migration followed by the extra indexes.
func Migrate(db *gorm.DB) error {
	if err := autoMigrate(db); err != nil {
		return err
	}
	logger.Success("All migrations completed successfully")

	if err := createIndexes(db); err != nil {
		return err
	}
	logger.Success("All indexes created successfully")
	return nil
}

// autoMigrate runs auto migration for all models
func autoMigrate(db *gorm.DB) error {
	// Stage 1: users are referenced by everything else
	stage1Models := []interface{}{
		&user.User{},
	}

	// Stage 2: pickups and their audit trail
	stage2Models := []interface{}{
		&pickup.Pickup{},
		&pickup.StatusEvent{},
	}

	// Stage 3: logging
	remainingModels := []interface{}{
		&log.Log{},
	}

	for _, stage := range [][]interface{}{stage1Models, stage2Models, remainingModels} {
		for _, model := range stage {
			if err := db.AutoMigrate(model); err != nil {
				return fmt.Errorf("failed to migrate %T: %w", model, err)
			}
		}
	}
	return nil
}

// createIndexes creates additional indexes for better performance
func createIndexes(db *gorm.DB) error {
	indexes := []struct {
		name string
		sql  string
	}{
		{"users email", "CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users(lower(email))"},
		{"pickups status/pincode", "CREATE INDEX IF NOT EXISTS idx_scheduled_pickups_status_pincode ON scheduled_pickups(status, pincode)"},
		{"pickups assignee/status", "CREATE INDEX IF NOT EXISTS idx_scheduled_pickups_assigned_status ON scheduled_pickups(assigned_to, status)"},
		{"pickups created_at", "CREATE INDEX IF NOT EXISTS idx_scheduled_pickups_created_at ON scheduled_pickups(created_at DESC)"},
		{"status events pickup", "CREATE INDEX IF NOT EXISTS idx_pickup_status_events_pickup_created ON pickup_status_events(pickup_id, created_at)"},
		{"logs created_at", "CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at)"},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create %s index: %w", idx.name, err)
		}
		logger.Debug("Index ready: " + idx.name)
	}
	return nil
}
