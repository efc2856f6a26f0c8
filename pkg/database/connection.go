package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
}

// NewConnection opens the results database. URLs starting with "sqlite://"
// or "file:" open a local sqlite file with a single writer; anything else
// is handed to the postgres driver.
func NewConnection(databaseURL string, isDevelopment bool) (*DB, error) {
	dialector, embedded := openDialector(databaseURL)

	logLevel := logger.Warn
	if isDevelopment {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:      logger.Default.LogMode(logLevel),
		NowFunc:     func() time.Time { return time.Now().UTC() },
		PrepareStmt: !embedded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if embedded {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("driver", dialector.Name()).Info("Database connection established")
	return &DB{db}, nil
}

func openDialector(databaseURL string) (gorm.Dialector, bool) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://")), true
	case strings.HasPrefix(databaseURL, "file:"):
		return sqlite.Open(databaseURL), true
	default:
		return postgres.Open(databaseURL), false
	}
}

// Wrap adapts an already opened gorm handle, e.g. an in-memory sqlite database in tests.
func Wrap(db *gorm.DB) *DB {
	return &DB{db}
}

// HealthCheck pings the underlying connection pool.
func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
