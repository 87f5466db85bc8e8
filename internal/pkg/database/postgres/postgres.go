package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/pkg/logger"
)

const DriverName = "pgx"

type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// MaxRetries bounds connection attempts before giving up.
	MaxRetries int
	RetryDelay time.Duration
	// Schema is executed once the connection is up.
	Schema string
}

// Opener opens and verifies a connection. Replaced in tests.
type Opener func(ctx context.Context, driver, dsn string) (*sqlx.DB, error)

func defaultOpener(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	return sqlx.ConnectContext(ctx, driver, dsn)
}

// NewPostgres connects with bounded retry and applies the schema.
func NewPostgres(ctx context.Context, cfg *Config, log logger.ZapLogger) (*sqlx.DB, error) {
	return connect(ctx, cfg, log, DriverName, defaultOpener)
}

func connect(ctx context.Context, cfg *Config, log logger.ZapLogger, driver string, open Opener) (*sqlx.DB, error) {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		log.Info("Attempting to connect to database and ensure tables",
			zap.Int("attempt", i), zap.Int("max_attempts", attempts))

		db, err := open(ctx, driver, cfg.DSN)
		if err == nil {
			configurePool(db, cfg)
			if err = Migrate(ctx, db, cfg.Schema); err == nil {
				log.Info("Connected to database and ensured tables exist")
				return db, nil
			}
			_ = db.Close()
		}
		lastErr = err
		log.Warn("Failed to connect to database", zap.Error(err))

		if i == attempts {
			break
		}
		log.Info("Retrying database connection", zap.Duration("delay", cfg.RetryDelay))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("connect to database after %d attempts: %w", attempts, lastErr)
}

func configurePool(db *sqlx.DB, cfg *Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// Migrate executes each ';'-separated statement of schema in order.
// Statements must be idempotent.
func Migrate(ctx context.Context, db *sqlx.DB, schema string) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
