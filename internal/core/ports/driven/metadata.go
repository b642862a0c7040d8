package driven

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// MetadataTracker persists DocumentRecords, the system of record mapping
// each document identity to its last-ingested state.
// Records are mutated only by vector sync; connectors and jobs read only.
type MetadataTracker interface {
	// Get retrieves the record for (sourceName, key).
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, sourceName, key string) (*domain.DocumentRecord, error)

	// Save stores or replaces the record for its identity.
	Save(ctx context.Context, record *domain.DocumentRecord) error

	// Delete removes the record for (sourceName, key).
	// Deleting an absent record is a no-op.
	Delete(ctx context.Context, sourceName, key string) error

	// List returns all records for a source instance.
	List(ctx context.Context, sourceName string) ([]domain.DocumentRecord, error)
}
