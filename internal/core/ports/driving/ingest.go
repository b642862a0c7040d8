package driving

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// Ingestor executes one ingestion run for one source instance.
type Ingestor interface {
	// Run pulls documents from the source's connector, classifies each
	// against the metadata tracker and applies the necessary vector index
	// mutations. It returns a report in every case; the error is non-nil
	// only for wholesale failures (the report then carries RunFailed).
	Run(ctx context.Context, source domain.SourceInstance) (*domain.RunReport, error)
}
