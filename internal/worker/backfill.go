package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"financeiro/internal/log"
)

// TombstonePurger is implemented by stores that keep deleted documents
// until the mirror has caught up.
type TombstonePurger interface {
	PurgeTombstones(ctx context.Context, cutoff time.Time) (int64, error)
}

// BackfillConfig holds configuration for the backfill loop
type BackfillConfig struct {
	// PollInterval is how often pending documents are retried (default: 30s)
	PollInterval time.Duration

	// CleanupInterval is how often synced tombstones are purged (default: 1h)
	CleanupInterval time.Duration

	// TombstoneAge is how old a synced tombstone must be before purge (default: 24h)
	TombstoneAge time.Duration
}

// DefaultBackfillConfig returns sensible defaults
func DefaultBackfillConfig() BackfillConfig {
	return BackfillConfig{
		PollInterval:    30 * time.Second,
		CleanupInterval: time.Hour,
		TombstoneAge:    24 * time.Hour,
	}
}

// Backfill periodically runs the worker's pending sync next to the
// message consumer, and purges old tombstones.
type Backfill struct {
	worker *SyncWorker
	purger TombstonePurger
	config BackfillConfig
	logger *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewBackfill creates a backfill loop. purger may be nil.
func NewBackfill(worker *SyncWorker, purger TombstonePurger, config BackfillConfig) *Backfill {
	def := DefaultBackfillConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.TombstoneAge <= 0 {
		config.TombstoneAge = def.TombstoneAge
	}
	return &Backfill{
		worker: worker,
		purger: purger,
		config: config,
		logger: worker.logger,
	}
}

// Start begins the loop. Returns an error if already running.
func (b *Backfill) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("backfill is already running")
	}
	b.running = true
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	b.mu.Unlock()

	go b.runLoop(ctx)

	b.logger.InfoContext(ctx, "Backfill started",
		"poll_interval", b.config.PollInterval,
		"cleanup_interval", b.config.CleanupInterval)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (b *Backfill) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	stopCh, doneCh := b.stopCh, b.doneCh
	b.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		b.logger.InfoContext(ctx, "Backfill stopped gracefully")
	case <-ctx.Done():
		b.logger.WarnContext(ctx, "Backfill stop timed out")
		return ctx.Err()
	}

	b.mu.Lock()
	b.running = false
	b.mu.Unlock()
	return nil
}

// IsRunning returns whether the loop is currently running
func (b *Backfill) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Backfill) runLoop(ctx context.Context) {
	defer close(b.doneCh)

	pollTicker := time.NewTicker(b.config.PollInterval)
	defer pollTicker.Stop()
	cleanupTicker := time.NewTicker(b.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			if _, err := b.worker.ProcessPending(ctx); err != nil {
				b.logger.ErrorContext(ctx, "Backfill pass failed", log.FieldError, err)
			}
		case <-cleanupTicker.C:
			b.purge(ctx)
		}
	}
}

func (b *Backfill) purge(ctx context.Context) {
	if b.purger == nil {
		return
	}
	cutoff := time.Now().Add(-b.config.TombstoneAge)
	n, err := b.purger.PurgeTombstones(ctx, cutoff)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to purge tombstones", log.FieldError, err)
		return
	}
	if n > 0 {
		b.logger.InfoContext(ctx, "Purged synced tombstones", log.FieldCount, n)
	}
}
