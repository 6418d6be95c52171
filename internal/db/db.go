package db

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"barber-growth-backend/config"
	"barber-growth-backend/internal/model"
)

// Models lists every table owned or read by the service, in migration order.
func Models() []any {
	return []any{
		&model.Tenant{},
		&model.Staff{},
		&model.Client{},
		&model.Service{},
		&model.GrowthPolicy{},
		&model.WorkHourRule{},
		&model.BreakRule{},
		&model.DateException{},
		&model.Appointment{},
		&model.ClientBehavior{},
		&model.EmptySlot{},
		&model.ReactivationQueueEntry{},
		&model.MoneyLostAlert{},
		&model.PushSubscription{},
	}
}

// Dialector picks the gorm driver for a DSN. "sqlite:" and "file:" DSNs open
// the embedded sqlite driver, anything else is handed to postgres.
func Dialector(dsn string) gorm.Dialector {
	switch {
	case strings.HasPrefix(dsn, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	case strings.HasPrefix(dsn, "file:"):
		return sqlite.Open(dsn)
	default:
		return postgres.Open(dsn)
	}
}

// Init initializes the database connection and runs migrations when enabled.
func Init(cfg *config.DatabaseConfig, log *zap.Logger, level string) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(cfg.DSN), &gorm.Config{
		Logger: newGormLogger(log.Named("gorm"), gormLogLevel(level)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if cfg.AutoMigrate {
		log.Info("running database migrations")
		if err := db.AutoMigrate(Models()...); err != nil {
			return nil, fmt.Errorf("automigrate failed: %w", err)
		}
	}

	log.Info("database initialization complete", zap.String("dialect", db.Dialector.Name()))
	return db, nil
}

// gormLogLevel maps the application log level onto gorm's SQL logging.
// SQL statements are only printed at debug.
func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.Info
	case "warn", "info":
		return logger.Warn
	default:
		return logger.Error
	}
}
