package domain

import "time"

// NormalizedDocument is a document after conversion to canonical text.
// The checksum is computed over Text, not the raw payload, so that
// immaterial upstream re-encoding does not look like a content change.
type NormalizedDocument struct {
	// SourceName links to the producing SourceInstance.
	SourceName string

	// Key is the source-local document identity.
	Key string

	// Text is the canonical text content.
	Text string

	// Checksum is the SHA-256 fingerprint of Text, hex encoded.
	Checksum string

	// Metadata contains source metadata carried through to chunks.
	Metadata map[string]any
}

// DocumentRecord is the system-of-record entry for a document's
// last-ingested state. At any time the chunk IDs recorded here are exactly
// the chunk IDs present in the vector index for this identity.
type DocumentRecord struct {
	// SourceName and Key form the composite document identity.
	SourceName string
	Key        string

	// Checksum is the fingerprint of the canonical text last ingested.
	Checksum string

	// Version increases by one on every content change, starting at 1.
	Version int

	// ChunkIDs are the chunks currently stored in the vector index for
	// this version, in document order.
	ChunkIDs []string

	// UpdatedAt is when this record was last written.
	UpdatedAt time.Time
}

// EmbeddingChunk is one retrievable unit stored in the vector index.
type EmbeddingChunk struct {
	// ID is the unique chunk identifier.
	ID string

	// SourceName, Key and Version identify the owning document version.
	SourceName string
	Key        string
	Version    int

	// Position is the ordinal position within the document.
	Position int

	// Text is the chunk content.
	Text string

	// Embedding is the vector representation.
	Embedding []float32

	// Metadata contains source metadata carried through for citation.
	Metadata map[string]any
}
