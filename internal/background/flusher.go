package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/attune/internal/alerts"
)

// SnapshotStore persists the retained alert window.
type SnapshotStore interface {
	ReplaceSnapshot(ctx context.Context, snapshot []alerts.Alert) error
}

// LedgerFlusher mirrors the in-memory alert ledger to a SnapshotStore. A
// flush is skipped while the ledger version is unchanged.
type LedgerFlusher struct {
	ledger   *alerts.Ledger
	store    SnapshotStore
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	flushed uint64
}

// NewLedgerFlusher creates a flusher. The ledger's current version counts
// as already persisted, so a freshly restored ledger is not rewritten.
func NewLedgerFlusher(ledger *alerts.Ledger, store SnapshotStore, logger *slog.Logger, interval time.Duration) *LedgerFlusher {
	return &LedgerFlusher{
		ledger:   ledger,
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		flushed:  ledger.Version(),
	}
}

// Start flushes on every tick until Stop is called or ctx ends.
func (f *LedgerFlusher) Start(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.Flush(ctx); err != nil {
				f.logger.Error("failed to flush alert ledger", slog.Any("error", err))
			}
		case <-f.stopCh:
			f.logger.Info("ledger flusher stopped")
			return
		case <-ctx.Done():
			f.logger.Info("ledger flusher context cancelled")
			return
		}
	}
}

// Flush writes the ledger if it changed since the last successful flush.
func (f *LedgerFlusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot, version := f.ledger.Snapshot()
	if version == f.flushed {
		return nil
	}

	flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := f.store.ReplaceSnapshot(flushCtx, snapshot); err != nil {
		return err
	}
	f.flushed = version
	f.logger.Debug("alert ledger flushed", slog.Int("alerts", len(snapshot)), slog.Uint64("version", version))
	return nil
}

// Stop signals the flusher to stop. It is safe to call more than once.
func (f *LedgerFlusher) Stop() {
	f.stopOnce.Do(func() { close(f.stopCh) })
}
