package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shubham-shewale/stock-watchlist/pkg/models"
)

// TradeWriter batches trades.Insert calls against the trades table,
// resolving each trade's ticker to a symbol_id and stamping its
// cumulative volume before writing. Conflicts (duplicate idempotency
// key) are detected via RowsAffected()==0, the same pattern BarWriter
// uses for bars.
type TradeWriter struct {
	db      *Pool
	symbols *SymbolCache
	volumes *VolumeTracker
}

// NewTradeWriter returns a writer over db, sharing symbols and volumes
// with any other writers in the same process.
func NewTradeWriter(db *Pool, symbols *SymbolCache, volumes *VolumeTracker) *TradeWriter {
	return &TradeWriter{db: db, symbols: symbols, volumes: volumes}
}

// PreparedTrade is a models.Trade resolved to a symbol_id with its
// cumulative volume stamped, ready for InsertBatch. Late carries
// whether this trade arrived out of order relative to the symbol's
// running volume (spec §5): late trades are persisted but excluded
// from republication by the caller.
type PreparedTrade struct {
	SymbolID int64
	Trade    models.Trade
	Late     bool
}

// Prepare resolves t's ticker and stamps its volume, classifying it as
// in-order (advances the running total) or late (ordinal estimate
// only). isLate is supplied by the caller, which tracks the last seen
// timestamp per symbol.
func (w *TradeWriter) Prepare(ctx context.Context, t models.Trade, isLate bool) (PreparedTrade, error) {
	symbolID, err := w.symbols.Resolve(ctx, t.Symbol)
	if err != nil {
		return PreparedTrade{}, err
	}

	var vol = t.Volume
	if isLate {
		vol, err = w.volumes.Ordinal(ctx, symbolID, t.Size)
	} else {
		vol, err = w.volumes.Advance(ctx, symbolID, t.Size)
	}
	if err != nil {
		return PreparedTrade{}, err
	}
	t.Volume = vol

	return PreparedTrade{SymbolID: symbolID, Trade: t, Late: isLate}, nil
}

// InsertBatch writes rows using pgx.Batch with ON CONFLICT DO NOTHING,
// returning how many rows were actually inserted (as opposed to
// conflicting with an existing row, which is expected under
// at-least-once delivery).
func (w *TradeWriter) InsertBatch(ctx context.Context, rows []PreparedTrade) (inserted int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO trades (symbol_id, ts, price, size, volume)
			VALUES ($1, to_timestamp($2::double precision / 1000.0), $3, $4, $5)
			ON CONFLICT (symbol_id, ts, price, size) DO NOTHING
		`, r.SymbolID, r.Trade.Timestamp, r.Trade.Price, r.Trade.Size, r.Trade.Volume)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert trade batch: %w", err)
		}
		if ct.RowsAffected() > 0 {
			inserted++
		}
	}

	return inserted, nil
}
