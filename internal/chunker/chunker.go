// Package chunker provides fixed-size text chunking with overlap.
package chunker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 512

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// Chunker splits canonical text into fixed-size chunks. The overlap is
// reused between adjacent chunks to preserve context at boundaries.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for the window to advance
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split chunks a normalized document into embedding chunks for the given
// version. Windows are measured in runes so multi-byte text never splits
// mid-character.
//
// Chunk IDs are derived from (source, key, checksum, position). Re-splitting
// the same content regenerates the same IDs, so a retried apply upserts the
// chunks of a half-finished attempt instead of orphaning them, while a
// changed checksum never collides with the IDs it supersedes.
func (c *Chunker) Split(doc *domain.NormalizedDocument, version int) []domain.EmbeddingChunk {
	if doc.Text == "" {
		return nil
	}

	runes := []rune(doc.Text)
	textLen := len(runes)

	estimated := (textLen / (c.chunkSize - c.overlap)) + 1
	chunks := make([]domain.EmbeddingChunk, 0, estimated)

	position := 0
	start := 0

	for start < textLen {
		end := start + c.chunkSize
		if end > textLen {
			end = textLen
		}

		chunks = append(chunks, domain.EmbeddingChunk{
			ID:         chunkID(doc, position),
			SourceName: doc.SourceName,
			Key:        doc.Key,
			Version:    version,
			Position:   position,
			Text:       string(runes[start:end]),
			Metadata:   copyMetadata(doc.Metadata),
		})
		position++

		start += c.chunkSize - c.overlap
	}

	return chunks
}

// chunkNamespace scopes deterministic chunk IDs to this system.
var chunkNamespace = uuid.MustParse("5cb1a5fb-3876-4efb-a9d7-6b4bdcceb2a1")

func chunkID(doc *domain.NormalizedDocument, position int) string {
	name := fmt.Sprintf("%s\x00%s\x00%s\x00%d", doc.SourceName, doc.Key, doc.Checksum, position)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
