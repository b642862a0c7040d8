package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// DedupEngine classifies documents against the metadata tracker.
// Classification is a pure read; all mutation happens in VectorSync.
type DedupEngine struct {
	tracker driven.MetadataTracker
}

// NewDedupEngine creates a dedup engine backed by the given tracker.
func NewDedupEngine(tracker driven.MetadataTracker) *DedupEngine {
	return &DedupEngine{tracker: tracker}
}

// Classify decides how a document should be handled this run.
// Checksum equality is the sole criterion: source-reported modification
// timestamps are not trusted and never consulted.
func (e *DedupEngine) Classify(ctx context.Context, sourceName, key, checksum string) (domain.Classification, error) {
	record, err := e.tracker.Get(ctx, sourceName, key)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.New, nil
	}
	if err != nil {
		return domain.Unchanged, fmt.Errorf("get record: %w", err)
	}

	if record.Checksum == checksum {
		return domain.Unchanged, nil
	}
	return domain.Updated, nil
}
