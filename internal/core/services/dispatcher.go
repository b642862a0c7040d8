package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure Dispatcher implements the interface.
var _ driving.Dispatcher = (*Dispatcher)(nil)

// DefaultWorkers is the default size of the run worker pool.
const DefaultWorkers = 4

// Dispatcher schedules recurring ingestion runs. Each configured interval
// of each source instance drives an independent ticker; all tickers feed
// the per-instance non-overlap guard, and admitted triggers execute on a
// bounded worker pool.
type Dispatcher struct {
	sources  map[string]domain.SourceInstance
	order    []string
	ingestor driving.Ingestor
	runStore driven.RunStore
	pool     *ants.Pool

	mu       sync.Mutex
	running  map[string]bool
	skipped  map[string]int
	started  bool
	stopping bool
	stopCh   chan struct{}

	tickers sync.WaitGroup
	jobs    sync.WaitGroup
}

// NewDispatcher creates a dispatcher for the given source instances.
// workers bounds the number of concurrent runs across all sources;
// values below 1 fall back to DefaultWorkers.
func NewDispatcher(
	sources []domain.SourceInstance,
	ingestor driving.Ingestor,
	runStore driven.RunStore,
	workers int,
) (*Dispatcher, error) {
	if workers < 1 {
		workers = DefaultWorkers
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	d := &Dispatcher{
		sources:  make(map[string]domain.SourceInstance, len(sources)),
		ingestor: ingestor,
		runStore: runStore,
		pool:     pool,
		running:  make(map[string]bool),
		skipped:  make(map[string]int),
		stopCh:   make(chan struct{}),
	}
	for _, src := range sources {
		d.sources[src.Name] = src
		d.order = append(d.order, src.Name)
	}
	return d, nil
}

// Start begins dispatching scheduled triggers. Blocks until the context
// is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return domain.ErrDispatcherStopped
	}
	if d.started {
		d.mu.Unlock()
		return nil // Already running
	}
	d.started = true
	stopCh := d.stopCh
	d.mu.Unlock()

	for _, name := range d.order {
		src := d.sources[name]
		for _, interval := range src.Intervals {
			d.tickers.Add(1)
			go d.tick(ctx, src, interval, stopCh)
		}
	}

	logger.Info("Dispatcher started: %d sources, %d workers", len(d.sources), d.pool.Cap())

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-stopCh:
		return nil
	}
}

// tick fires a trigger for src every interval until shutdown.
func (d *Dispatcher) tick(ctx context.Context, src domain.SourceInstance, interval time.Duration, stopCh <-chan struct{}) {
	defer d.tickers.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if err := d.dispatch(ctx, src); err != nil {
				logger.Debug("[%s] Trigger dropped: %v", src.Name, err)
			}
		}
	}
}

// Stop shuts the dispatcher down gracefully. No new triggers are
// dispatched; in-flight runs complete before Stop returns. Stop is
// terminal: a stopped dispatcher cannot be restarted.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	d.stopping = true
	close(d.stopCh)
	d.mu.Unlock()

	d.tickers.Wait()
	d.jobs.Wait()
	d.pool.Release()

	logger.Info("Dispatcher stopped")
	return nil
}

// TriggerNow fires an out-of-band trigger, subject to the same
// non-overlap guard as scheduled triggers.
func (d *Dispatcher) TriggerNow(ctx context.Context, sourceName string) error {
	src, ok := d.sources[sourceName]
	if !ok {
		return fmt.Errorf("%w: source %q", domain.ErrNotFound, sourceName)
	}
	return d.dispatch(ctx, src)
}

// dispatch admits a trigger through the non-overlap guard and hands the
// run to the worker pool. A trigger for a busy instance is dropped, not
// queued, so ingestion cadence degrades instead of accumulating backlog.
func (d *Dispatcher) dispatch(ctx context.Context, src domain.SourceInstance) error {
	d.mu.Lock()
	if d.stopping {
		d.mu.Unlock()
		return domain.ErrDispatcherStopped
	}
	if d.running[src.Name] {
		d.skipped[src.Name]++
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrRunInProgress, src.Name)
	}
	d.running[src.Name] = true
	d.mu.Unlock()

	d.jobs.Add(1)
	err := d.pool.Submit(func() {
		defer d.jobs.Done()
		defer d.clearRunning(src.Name)

		// Run logs and records its own report; wholesale failures are
		// retried only by the next scheduled trigger.
		_, _ = d.ingestor.Run(ctx, src)
	})
	if err != nil {
		d.jobs.Done()
		d.clearRunning(src.Name)
		return fmt.Errorf("submit run: %w", err)
	}
	return nil
}

func (d *Dispatcher) clearRunning(sourceName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.running, sourceName)
}

// Status returns the admin view for one source instance.
func (d *Dispatcher) Status(ctx context.Context, sourceName string) (*driving.SourceStatus, error) {
	src, ok := d.sources[sourceName]
	if !ok {
		return nil, fmt.Errorf("%w: source %q", domain.ErrNotFound, sourceName)
	}

	d.mu.Lock()
	status := &driving.SourceStatus{
		Source:  src,
		Running: d.running[sourceName],
		Skipped: d.skipped[sourceName],
	}
	d.mu.Unlock()

	if d.runStore != nil {
		last, err := d.runStore.Latest(ctx, sourceName)
		switch {
		case err == nil:
			status.LastRun = last
		case errors.Is(err, domain.ErrNotFound):
			// Never run: LastRun stays nil.
		default:
			return nil, fmt.Errorf("load last run for %s: %w", sourceName, err)
		}
	}
	return status, nil
}

// StatusAll returns the admin view for every configured source, in
// configuration order.
func (d *Dispatcher) StatusAll(ctx context.Context) ([]driving.SourceStatus, error) {
	statuses := make([]driving.SourceStatus, 0, len(d.order))
	for _, name := range d.order {
		status, err := d.Status(ctx, name)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}
	return statuses, nil
}
