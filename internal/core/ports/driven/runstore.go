package driven

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// RunStore persists ingestion run reports for the admin surface and
// crash-survivable history.
type RunStore interface {
	// Record logs a completed run.
	Record(ctx context.Context, report *domain.RunReport) error

	// Latest returns the most recent report for a source instance.
	// Returns ErrNotFound if the source has never run.
	Latest(ctx context.Context, sourceName string) (*domain.RunReport, error)

	// History returns recent reports for a source, most recent first.
	History(ctx context.Context, sourceName string, limit int) ([]domain.RunReport, error)

	// Prune removes old reports beyond the retention limit.
	// Keeps the most recent 'keep' reports per source.
	Prune(ctx context.Context, keep int) error
}
