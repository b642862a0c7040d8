// Package domain defines the core business entities for ragsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceInstance: A configured data source with its schedules
//   - RawDocument: Opaque content from a connector
//   - NormalizedDocument: Canonical text plus content fingerprint
//   - DocumentRecord: System-of-record entry per document identity
//   - EmbeddingChunk: The unit stored in the vector index
//   - RunReport: Outcome of one ingestion run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
