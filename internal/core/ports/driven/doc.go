// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Connector: Fetches raw documents from a data source
//   - ConnectorFactory: Creates connectors from source configuration
//   - Normalizer: Converts raw documents to canonical text
//   - NormalizerRegistry: Selects the appropriate normalizer
//   - MetadataTracker: DocumentRecord persistence (the system of record)
//   - VectorIndex: Chunk storage in the vector store
//   - EmbeddingService: Generates vector embeddings
//   - RunStore: Run report persistence and history
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normalizer package
package driven
