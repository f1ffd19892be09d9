package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SymbolCache resolves tickers to surrogate symbol_ids via a get-or-insert
// protocol, caching results in memory. Owned per processor instance;
// consistent-on-write (the cache is updated only after a successful
// insert), per spec §5.
type SymbolCache struct {
	db *pgxpool.Pool

	mu    sync.RWMutex
	byTix map[string]int64
}

// NewSymbolCache creates an empty cache over db.
func NewSymbolCache(db *pgxpool.Pool) *SymbolCache {
	return &SymbolCache{db: db, byTix: make(map[string]int64)}
}

// Resolve returns the symbol_id for ticker, inserting a new symbols row
// if one does not already exist. One row per ticker is guaranteed by the
// UNIQUE constraint; concurrent get-or-inserts race safely via
// ON CONFLICT DO UPDATE ... RETURNING.
func (c *SymbolCache) Resolve(ctx context.Context, ticker string) (int64, error) {
	c.mu.RLock()
	id, ok := c.byTix[ticker]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	err := c.db.QueryRow(ctx, `
		INSERT INTO symbols (ticker)
		VALUES ($1)
		ON CONFLICT (ticker) DO UPDATE SET ticker = EXCLUDED.ticker
		RETURNING symbol_id
	`, ticker).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve symbol %s: %w", ticker, err)
	}

	c.mu.Lock()
	c.byTix[ticker] = id
	c.mu.Unlock()

	return id, nil
}
