package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shubham-shewale/stock-watchlist/pkg/models"
)

// BarWriter batches bar inserts against the bars table, resolving each
// bar's ticker to a symbol_id. Bars that fail validation
// (models.Bar.Validate) are rejected before ever reaching the batch.
type BarWriter struct {
	db      *Pool
	symbols *SymbolCache
}

// NewBarWriter returns a writer over db, sharing symbols with any other
// writers in the same process.
func NewBarWriter(db *Pool, symbols *SymbolCache) *BarWriter {
	return &BarWriter{db: db, symbols: symbols}
}

// PreparedBar is a models.Bar resolved to a symbol_id, ready for
// InsertBatch.
type PreparedBar struct {
	SymbolID int64
	Bar      models.Bar
}

// Prepare validates b and resolves its ticker to a symbol_id.
func (w *BarWriter) Prepare(ctx context.Context, b models.Bar) (PreparedBar, error) {
	if err := b.Validate(); err != nil {
		return PreparedBar{}, fmt.Errorf("invalid bar: %w", err)
	}

	symbolID, err := w.symbols.Resolve(ctx, b.Symbol)
	if err != nil {
		return PreparedBar{}, err
	}

	return PreparedBar{SymbolID: symbolID, Bar: b}, nil
}

// InsertBatch writes rows using pgx.Batch with ON CONFLICT DO NOTHING,
// returning how many rows were actually inserted.
func (w *BarWriter) InsertBatch(ctx context.Context, rows []PreparedBar) (inserted int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO bars (symbol_id, timeframe, ts, open, high, low, close, volume, trade_count, vwap)
			VALUES ($1, $2, to_timestamp($3::double precision / 1000.0), $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (symbol_id, ts, timeframe) DO NOTHING
		`, r.SymbolID, r.Bar.Timeframe, r.Bar.Timestamp, r.Bar.Open, r.Bar.High, r.Bar.Low, r.Bar.Close,
			r.Bar.Volume, r.Bar.TradeCount, r.Bar.VWAP)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert bar batch: %w", err)
		}
		if ct.RowsAffected() > 0 {
			inserted++
		}
	}

	return inserted, nil
}
