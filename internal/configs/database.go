package config

import (
	"context"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"task-tracker.com/task-tracker/internal/logger"
	model "task-tracker.com/task-tracker/internal/models"
)

const databasePingTimeout = 10 * time.Second

// NewDatabaseClient opens the shared connection pool, checks it is reachable
// and makes sure the tasks table exists.
func NewDatabaseClient(cfg Config, log zerolog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.NewGormLogger(log, cfg.DatabaseSlowQuery),
	})
	if err != nil {
		return nil, fmt.Errorf("db open failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}

	if cfg.DatabaseMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	}
	if cfg.DatabaseMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	}
	if cfg.DatabaseConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	}
	if cfg.DatabaseConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.DatabaseConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), databasePingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.AutoMigrate(&model.Task{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	log.Info().Str("driver", cfg.DatabaseDriver).Int("max_open_conns", cfg.DatabaseMaxOpenConns).Msg("connected to the database")
	return db, nil
}

// CloseDatabase releases every pooled connection.
func CloseDatabase(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverSQLite, "":
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverMySQL:
		mcfg, err := mysqldriver.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		// Timestamps scan into time.Time, and an UPDATE that matches a row
		// reports it as affected even when no column value changed.
		mcfg.ParseTime = true
		mcfg.ClientFoundRows = true
		return mysql.Open(mcfg.FormatDSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
