// Package store implements the relational store: the symbols lookup
// table and the append-only trades/bars fact tables, with idempotent
// batched writes suitable for at-least-once upstream delivery.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps a pgxpool.Pool sized per StoreConfig.
type Pool struct {
	*pgxpool.Pool
}

// Connect opens a connection pool against dsn.
func Connect(ctx context.Context, dsn string, minConns, maxConns int32) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = minConns
	poolCfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}
