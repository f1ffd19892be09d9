// Package lifecycle provides the signal-driven startup/shutdown
// skeleton shared by the ingest worker, stream processor, fan-out
// bridge, and WebSocket gateway binaries.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DrainTimeout bounds how long DrainWait waits for in-flight work
// to finish after shutdown begins.
const DrainTimeout = 15 * time.Second

// WithSignals returns a context cancelled on SIGINT/SIGTERM, plus a
// stop function that releases the underlying signal handler. Callers
// start their workers against the returned context and, once it's
// cancelled, run their own drain sequence (closing readers/writers,
// waiting on a sync.WaitGroup with a bounded timeout).
func WithSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			logger.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// DrainWait waits for done to be closed, returning false if
// DrainTimeout elapses first.
func DrainWait(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-time.After(DrainTimeout):
		return false
	}
}
