package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var Postgres *gorm.DB

// ConnectPostgres opens the payments database, retrying with backoff, and
// migrates the given models.
func ConnectPostgres(dsn string, logger *zap.Logger, autoMigrateModels ...interface{}) error {
	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, poolErr := db.DB()
			if poolErr == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}

			logger.Info("Connected to PostgreSQL")

			if len(autoMigrateModels) > 0 {
				if err := db.AutoMigrate(autoMigrateModels...); err != nil {
					return fmt.Errorf("AutoMigrate failed: %w", err)
				}
			}
			Postgres = db
			return nil
		}

		logger.Warn("DB connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		time.Sleep(time.Duration(i+1) * 2 * time.Second)
	}

	return fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
}

// ClosePostgres closes the underlying sql.DB.
func ClosePostgres() error {
	if Postgres == nil {
		return nil
	}
	sqlDB, err := Postgres.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
