package services

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// blockingIngestor implements driving.Ingestor with a controllable run
// duration, counting runs per source.
type blockingIngestor struct {
	mu       stdsync.Mutex
	runs     map[string]int
	active   int
	maxSeen  int
	duration time.Duration
	release  chan struct{}
}

func newBlockingIngestor(duration time.Duration) *blockingIngestor {
	return &blockingIngestor{
		runs:     make(map[string]int),
		duration: duration,
	}
}

func (b *blockingIngestor) Run(ctx context.Context, source domain.SourceInstance) (*domain.RunReport, error) {
	b.mu.Lock()
	b.runs[source.Name]++
	b.active++
	if b.active > b.maxSeen {
		b.maxSeen = b.active
	}
	release := b.release
	b.mu.Unlock()

	if release != nil {
		<-release
	} else if b.duration > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(b.duration):
		}
	}

	b.mu.Lock()
	b.active--
	b.mu.Unlock()

	return &domain.RunReport{
		SourceName: source.Name,
		Status:     domain.RunSuccess,
		StartedAt:  time.Now(),
		EndedAt:    time.Now(),
	}, nil
}

func (b *blockingIngestor) runCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runs[name]
}

// failingRunStore implements driven.RunStore with an injectable Latest
// failure.
type failingRunStore struct {
	latestErr error
}

func (f *failingRunStore) Record(context.Context, *domain.RunReport) error { return nil }

func (f *failingRunStore) Latest(context.Context, string) (*domain.RunReport, error) {
	return nil, f.latestErr
}

func (f *failingRunStore) History(context.Context, string, int) ([]domain.RunReport, error) {
	return nil, nil
}

func (f *failingRunStore) Prune(context.Context, int) error { return nil }

func testSource(name string, intervals ...time.Duration) domain.SourceInstance {
	return domain.SourceInstance{
		Type:      "mock",
		Name:      name,
		Intervals: intervals,
	}
}

func TestNewDispatcher(t *testing.T) {
	t.Run("creates dispatcher with sources", func(t *testing.T) {
		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", time.Hour)},
			newBlockingIngestor(0),
			memory.NewRunStore(),
			2,
		)

		require.NoError(t, err)
		require.NotNil(t, d)
		defer d.Stop()
	})

	t.Run("workers below 1 fall back to the default", func(t *testing.T) {
		d, err := NewDispatcher(nil, newBlockingIngestor(0), nil, 0)

		require.NoError(t, err)
		defer d.Stop()
	})
}

func TestDispatcher_TriggerNow(t *testing.T) {
	ctx := context.Background()

	t.Run("runs the named source", func(t *testing.T) {
		ingestor := newBlockingIngestor(0)
		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", time.Hour)},
			ingestor,
			memory.NewRunStore(),
			2,
		)
		require.NoError(t, err)
		defer d.Stop()

		require.NoError(t, d.TriggerNow(ctx, "a"))
		d.jobs.Wait()

		assert.Equal(t, 1, ingestor.runCount("a"))
	})

	t.Run("unknown source returns not found", func(t *testing.T) {
		d, err := NewDispatcher(nil, newBlockingIngestor(0), nil, 2)
		require.NoError(t, err)
		defer d.Stop()

		err = d.TriggerNow(ctx, "missing")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("trigger while running is dropped not queued", func(t *testing.T) {
		ingestor := newBlockingIngestor(0)
		ingestor.release = make(chan struct{})

		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", time.Hour)},
			ingestor,
			memory.NewRunStore(),
			2,
		)
		require.NoError(t, err)
		defer d.Stop()

		require.NoError(t, d.TriggerNow(ctx, "a"))

		// Wait until the run is actually in flight
		require.Eventually(t, func() bool {
			status, err := d.Status(ctx, "a")
			return err == nil && status.Running
		}, time.Second, time.Millisecond)

		err = d.TriggerNow(ctx, "a")
		assert.ErrorIs(t, err, domain.ErrRunInProgress)

		err = d.TriggerNow(ctx, "a")
		assert.ErrorIs(t, err, domain.ErrRunInProgress)

		close(ingestor.release)
		d.jobs.Wait()

		// The in-flight run completed, the dropped triggers never ran
		assert.Equal(t, 1, ingestor.runCount("a"))

		status, err := d.Status(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 2, status.Skipped)
	})

	t.Run("different sources run concurrently", func(t *testing.T) {
		ingestor := newBlockingIngestor(0)
		ingestor.release = make(chan struct{})

		d, err := NewDispatcher(
			[]domain.SourceInstance{
				testSource("a", time.Hour),
				testSource("b", time.Hour),
			},
			ingestor,
			memory.NewRunStore(),
			2,
		)
		require.NoError(t, err)
		defer d.Stop()

		require.NoError(t, d.TriggerNow(ctx, "a"))
		require.NoError(t, d.TriggerNow(ctx, "b"))

		require.Eventually(t, func() bool {
			ingestor.mu.Lock()
			defer ingestor.mu.Unlock()
			return ingestor.active == 2
		}, time.Second, time.Millisecond)

		close(ingestor.release)
		d.jobs.Wait()

		assert.Equal(t, 1, ingestor.runCount("a"))
		assert.Equal(t, 1, ingestor.runCount("b"))
	})
}

func TestDispatcher_Schedule(t *testing.T) {
	t.Run("interval triggers fire repeatedly", func(t *testing.T) {
		ingestor := newBlockingIngestor(0)
		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", 10*time.Millisecond)},
			ingestor,
			memory.NewRunStore(),
			2,
		)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- d.Start(ctx) }()

		require.Eventually(t, func() bool {
			return ingestor.runCount("a") >= 3
		}, 2*time.Second, 5*time.Millisecond)

		cancel()
		<-done
		require.NoError(t, d.Stop())
	})

	t.Run("overlapping intervals share the non-overlap guard", func(t *testing.T) {
		ingestor := newBlockingIngestor(50 * time.Millisecond)
		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", 5*time.Millisecond, 7*time.Millisecond)},
			ingestor,
			memory.NewRunStore(),
			4,
		)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- d.Start(ctx) }()

		require.Eventually(t, func() bool {
			status, serr := d.Status(ctx, "a")
			return serr == nil && status.Skipped > 0
		}, 2*time.Second, 5*time.Millisecond)

		cancel()
		<-done
		require.NoError(t, d.Stop())

		ingestor.mu.Lock()
		maxSeen := ingestor.maxSeen
		ingestor.mu.Unlock()
		assert.Equal(t, 1, maxSeen, "at most one in-flight run per source")
	})
}

func TestDispatcher_Stop(t *testing.T) {
	t.Run("waits for in-flight runs", func(t *testing.T) {
		ingestor := newBlockingIngestor(30 * time.Millisecond)
		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", time.Hour)},
			ingestor,
			memory.NewRunStore(),
			2,
		)
		require.NoError(t, err)

		ctx := context.Background()
		go d.Start(ctx)

		require.NoError(t, d.TriggerNow(ctx, "a"))
		require.NoError(t, d.Stop())

		ingestor.mu.Lock()
		active := ingestor.active
		ingestor.mu.Unlock()
		assert.Equal(t, 0, active, "Stop must not return with runs in flight")
		assert.Equal(t, 1, ingestor.runCount("a"))
	})

	t.Run("triggers after stop are rejected", func(t *testing.T) {
		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", time.Hour)},
			newBlockingIngestor(0),
			memory.NewRunStore(),
			2,
		)
		require.NoError(t, err)

		go d.Start(context.Background())
		require.NoError(t, d.Stop())

		err = d.TriggerNow(context.Background(), "a")
		assert.ErrorIs(t, err, domain.ErrDispatcherStopped)
	})

	t.Run("stop before start is a no-op", func(t *testing.T) {
		d, err := NewDispatcher(nil, newBlockingIngestor(0), nil, 2)
		require.NoError(t, err)

		assert.NoError(t, d.Stop())
	})
}

func TestDispatcher_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("includes the latest run report", func(t *testing.T) {
		ingestor := newBlockingIngestor(0)
		runStore := memory.NewRunStore()
		require.NoError(t, runStore.Record(ctx, &domain.RunReport{
			SourceName: "a",
			Status:     domain.RunSuccess,
			New:        3,
		}))

		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", time.Hour)},
			ingestor,
			runStore,
			2,
		)
		require.NoError(t, err)
		defer d.Stop()

		status, err := d.Status(ctx, "a")

		require.NoError(t, err)
		assert.False(t, status.Running)
		require.NotNil(t, status.LastRun)
		assert.Equal(t, 3, status.LastRun.New)
	})

	t.Run("source that never ran has no last run", func(t *testing.T) {
		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", time.Hour)},
			newBlockingIngestor(0),
			memory.NewRunStore(),
			2,
		)
		require.NoError(t, err)
		defer d.Stop()

		status, err := d.Status(ctx, "a")

		require.NoError(t, err)
		assert.Nil(t, status.LastRun)
	})

	t.Run("store failure is surfaced, not mistaken for never-ran", func(t *testing.T) {
		storeErr := errors.New("database locked")
		d, err := NewDispatcher(
			[]domain.SourceInstance{testSource("a", time.Hour)},
			newBlockingIngestor(0),
			&failingRunStore{latestErr: storeErr},
			2,
		)
		require.NoError(t, err)
		defer d.Stop()

		_, err = d.Status(ctx, "a")

		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("status all preserves configuration order", func(t *testing.T) {
		d, err := NewDispatcher(
			[]domain.SourceInstance{
				testSource("zeta", time.Hour),
				testSource("alpha", time.Hour),
			},
			newBlockingIngestor(0),
			memory.NewRunStore(),
			2,
		)
		require.NoError(t, err)
		defer d.Stop()

		statuses, err := d.StatusAll(context.Background())

		require.NoError(t, err)
		require.Len(t, statuses, 2)
		assert.Equal(t, "zeta", statuses[0].Source.Name)
		assert.Equal(t, "alpha", statuses[1].Source.Name)
	})
}
