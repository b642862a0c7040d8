package driving

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// SourceStatus is the admin view of one source instance.
type SourceStatus struct {
	// Source is the configured instance.
	Source domain.SourceInstance

	// Running reports whether a run is currently in flight.
	Running bool

	// Skipped counts triggers dropped because a run was in flight.
	Skipped int

	// LastRun is the most recent run report, nil if the source has
	// never run.
	LastRun *domain.RunReport
}

// Dispatcher schedules recurring ingestion runs across source instances.
// It guarantees at most one in-flight run per source instance; a trigger
// that fires while the instance is busy is dropped, not queued.
type Dispatcher interface {
	// Start begins dispatching triggers. Blocks until the context is
	// cancelled or Stop is called. Running jobs are allowed to finish.
	Start(ctx context.Context) error

	// Stop shuts down gracefully: no new triggers are dispatched and
	// in-flight runs complete.
	Stop() error

	// TriggerNow fires an out-of-band trigger for the named source.
	// Subject to the same non-overlap guard as scheduled triggers:
	// returns ErrRunInProgress if the instance is busy.
	TriggerNow(ctx context.Context, sourceName string) error

	// Status returns the admin view for one source instance.
	Status(ctx context.Context, sourceName string) (*SourceStatus, error)

	// StatusAll returns the admin view for every configured source.
	StatusAll(ctx context.Context) ([]SourceStatus, error)
}
