package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"price-oracle-dashboard/internal/logger"
)

var Pool *pgxpool.Pool

var ErrNoDSN = errors.New("DATABASE_URL is not set")

var (
	newPool = pgxpool.NewWithConfig
	pingDB  = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

// InitPostgres opens Pool. Callers fall back to in-memory stores on error.
func InitPostgres(ctx context.Context, dsn string) error {
	if dsn == "" {
		return ErrNoDSN
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pingDB(ctx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}
	Pool = pool
	logger.L().WithComponent("db").WithField("host", cfg.ConnConfig.Host).Info("connected to postgres")
	return nil
}

func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
	}
}
