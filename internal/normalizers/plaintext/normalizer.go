package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure Normalizer implements the interface.
var _ driven.Normalizer = (*Normalizer)(nil)

// Normalizer handles plain text documents. It is also the catch-all
// fallback for any text-like MIME type without a dedicated normalizer.
type Normalizer struct{}

// New creates a new plain text normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// SupportedMIMETypes returns nil: this normalizer accepts any MIME type
// as the lowest-priority fallback.
func (n *Normalizer) SupportedMIMETypes() []string {
	return nil
}

// Priority returns the selection priority.
func (n *Normalizer) Priority() int {
	return 5 // Fallback normalizer
}

// Normalize converts a raw document to canonical text.
func (n *Normalizer) Normalize(_ context.Context, raw *domain.RawDocument) (*domain.NormalizedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, domain.ErrInvalidInput
	}

	text := string(raw.Content)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return &domain.NormalizedDocument{
		SourceName: raw.SourceName,
		Key:        raw.Key,
		Text:       text,
		Metadata:   withMIMEType(raw),
	}, nil
}

// withMIMEType copies raw metadata and records the original MIME type.
func withMIMEType(raw *domain.RawDocument) map[string]any {
	dst := make(map[string]any, len(raw.Metadata)+1)
	for k, v := range raw.Metadata {
		dst[k] = v
	}
	dst["mime_type"] = raw.MIMEType
	return dst
}
