package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/core"
	sheetsmem "financeiro/internal/sheets/memory"
	"financeiro/internal/store"
)

type countingPurger struct{ calls atomic.Int32 }

func (p *countingPurger) PurgeTombstones(context.Context, time.Time) (int64, error) {
	p.calls.Add(1)
	return 0, nil
}

func TestDefaultBackfillConfig(t *testing.T) {
	cfg := DefaultBackfillConfig()
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 24*time.Hour, cfg.TombstoneAge)
}

func TestBackfill_StartTwiceAndStopNotRunning(t *testing.T) {
	w := NewSyncWorker(openStore(t), sheetsmem.New(), 10, nil)
	b := NewBackfill(w, nil, BackfillConfig{})

	assert.False(t, b.IsRunning())
	require.NoError(t, b.Stop(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Start(ctx))
	assert.True(t, b.IsRunning())
	assert.Error(t, b.Start(ctx))

	require.NoError(t, b.Stop(context.Background()))
	assert.False(t, b.IsRunning())
}

func TestBackfill_LoopSyncsAndPurges(t *testing.T) {
	docs := openStore(t)
	mirror := sheetsmem.New()
	w := NewSyncWorker(docs, mirror, 10, nil)
	purger := &countingPurger{}
	b := NewBackfill(w, purger, BackfillConfig{
		PollInterval:    10 * time.Millisecond,
		CleanupInterval: 10 * time.Millisecond,
	})

	ctx := context.Background()
	require.NoError(t, store.NewRepository(docs, core.Firm).SaveEntry(ctx, entry("a", "Luz")))

	require.NoError(t, b.Start(ctx))
	assert.Eventually(t, func() bool {
		return len(mirror.Rows(core.Firm)) == 1 && purger.calls.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, b.Stop(ctx))
}
