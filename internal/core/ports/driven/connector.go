package driven

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// Connector fetches raw documents from a data source.
// Each connector type (filesystem, mediawiki, etc.) implements this interface.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// SourceName returns the configured source instance name.
	SourceName() string

	// Validate checks the connector is properly configured and the source
	// is reachable. Returns nil if ready to fetch.
	Validate(ctx context.Context) error

	// Fetch streams all documents for the current run.
	// The document channel closes on end-of-sequence. A wholesale failure
	// (auth, network) is sent on the error channel and aborts the run;
	// per-item failures are the connector's to skip, not to report here.
	Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Close releases resources.
	Close() error
}

// ConnectorBuilder creates a Connector for a source instance.
type ConnectorBuilder func(source domain.SourceInstance) (Connector, error)

// ConnectorFactory creates connectors from source configuration.
// It maintains a registry of connector types and their builders.
// Adding a connector type means registering one builder.
type ConnectorFactory interface {
	// Create returns a Connector for the given source.
	// Returns ErrUnsupportedType if the source type is unknown.
	Create(ctx context.Context, source domain.SourceInstance) (Connector, error)

	// Register adds a connector builder for the given type.
	Register(connectorType string, builder ConnectorBuilder)

	// SupportedTypes returns all registered connector types.
	SupportedTypes() []string
}
