package driven

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// Normalizer converts raw documents into canonical text.
// Each normalizer handles specific MIME types (e.g., Markdown, HTML).
type Normalizer interface {
	// SupportedMIMETypes returns the MIME types this normalizer handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// MIME-specific normalizers should return 50-89.
	// Fallback normalizers should return 1-9.
	Priority() int

	// Normalize produces the canonical text for a raw document.
	// The returned document carries no checksum; the registry computes it.
	Normalize(ctx context.Context, raw *domain.RawDocument) (*domain.NormalizedDocument, error)
}

// NormalizerRegistry selects the appropriate normalizer for a document
// and stamps the result with its content fingerprint.
type NormalizerRegistry interface {
	// Normalize converts a raw document using the best matching normalizer
	// and computes the checksum over the canonical text.
	Normalize(ctx context.Context, raw *domain.RawDocument) (*domain.NormalizedDocument, error)

	// Register adds a normalizer to the registry.
	Register(normalizer Normalizer)

	// SupportedMIMETypes returns all MIME types that can be normalized.
	SupportedMIMETypes() []string
}
