package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// VolumeTracker maintains the running (prefix-sum) traded volume per
// symbol so each persisted trade carries the cumulative volume as of
// that trade, not just its own size. State is seeded lazily from the
// trades table on first use per symbol, which is what makes this
// survive a Stream Processor restart without a gap (spec §5).
type VolumeTracker struct {
	db *Pool

	mu      sync.Mutex
	running map[int64]decimal.Decimal
}

// NewVolumeTracker returns a tracker backed by db.
func NewVolumeTracker(db *Pool) *VolumeTracker {
	return &VolumeTracker{db: db, running: make(map[int64]decimal.Decimal)}
}

// seedLocked loads the most recent running volume for symbolID from the
// trades table if it is not already cached. Caller must hold mu.
func (t *VolumeTracker) seedLocked(ctx context.Context, symbolID int64) (decimal.Decimal, error) {
	if v, ok := t.running[symbolID]; ok {
		return v, nil
	}

	var v decimal.Decimal
	err := t.db.QueryRow(ctx, `
		SELECT volume FROM trades
		WHERE symbol_id = $1
		ORDER BY ts DESC, trade_id DESC
		LIMIT 1
	`, symbolID).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			v = decimal.Zero
		} else {
			return decimal.Zero, fmt.Errorf("seed volume for symbol %d: %w", symbolID, err)
		}
	}

	t.running[symbolID] = v
	return v, nil
}

// Advance adds size to symbolID's running volume and returns the new
// total. Used for in-order trades, where the running sum is the trade's
// authoritative cumulative volume.
func (t *VolumeTracker) Advance(ctx context.Context, symbolID int64, size decimal.Decimal) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	base, err := t.seedLocked(ctx, symbolID)
	if err != nil {
		return decimal.Zero, err
	}

	next := base.Add(size)
	t.running[symbolID] = next
	return next, nil
}

// Ordinal returns the current running volume for symbolID plus size,
// without mutating the tracked running total. Used for late,
// out-of-order trades: the trade is still persisted with a best-effort
// volume figure, but it must not perturb the running sum that in-order
// trades depend on, and it is never republished downstream (spec §5).
func (t *VolumeTracker) Ordinal(ctx context.Context, symbolID int64, size decimal.Decimal) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	base, err := t.seedLocked(ctx, symbolID)
	if err != nil {
		return decimal.Zero, err
	}
	return base.Add(size), nil
}
