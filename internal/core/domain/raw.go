package domain

// RawDocument represents opaque content fetched by a connector.
// It is the connector's output before normalization and is never persisted.
type RawDocument struct {
	// SourceName links to the SourceInstance that produced this document.
	SourceName string

	// SourceType is the connector type of the producing source.
	SourceType string

	// Key uniquely identifies the document within its source. It must be
	// stable across runs for the same logical document.
	Key string

	// MIMEType is the content type (e.g., "text/markdown").
	MIMEType string

	// Content is the raw payload.
	Content []byte

	// Metadata contains source-specific key-value pairs carried through
	// to the vector index for citation.
	Metadata map[string]any
}
