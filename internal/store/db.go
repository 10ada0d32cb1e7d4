package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"claimsledger/internal/config"
	apperrors "claimsledger/internal/errors"
)

const connectAttempts = 5

// Open connects to Postgres and pings it, retrying while the server comes up.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, apperrors.NewConfigError("database dsn is empty", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open database", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, connectAttempts-1), ctx)

	err = backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, policy, func(err error, wait time.Duration) {
		logger.WarnContext(ctx, "database not ready",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", wait))
	})
	if err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to reach database", err)
	}
	return db, nil
}
