// Package memory provides an in-memory vector index.
// Used in tests and for ephemeral runs; both operations are idempotent as
// the VectorIndex port requires.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory implementation of driven.VectorIndex.
type Index struct {
	mu     sync.RWMutex
	chunks map[string]domain.EmbeddingChunk
}

// NewIndex creates a new in-memory vector index.
func NewIndex() *Index {
	return &Index{
		chunks: make(map[string]domain.EmbeddingChunk),
	}
}

// Insert upserts chunks into the index.
func (i *Index) Insert(_ context.Context, chunks []domain.EmbeddingChunk) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, chunk := range chunks {
		i.chunks[chunk.ID] = chunk
	}
	return nil
}

// Delete removes chunks by ID. Absent IDs are ignored.
func (i *Index) Delete(_ context.Context, chunkIDs []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, id := range chunkIDs {
		delete(i.chunks, id)
	}
	return nil
}

// Close releases resources.
func (i *Index) Close() error {
	return nil
}

// Has reports whether a chunk ID is present. Test helper.
func (i *Index) Has(chunkID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.chunks[chunkID]
	return ok
}

// Len returns the number of stored chunks. Test helper.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.chunks)
}

// IDs returns all stored chunk IDs, sorted. Test helper.
func (i *Index) IDs() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	ids := make([]string, 0, len(i.chunks))
	for id := range i.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ByDocument returns the chunks owned by (sourceName, key), in position
// order. Test helper.
func (i *Index) ByDocument(sourceName, key string) []domain.EmbeddingChunk {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var chunks []domain.EmbeddingChunk
	for _, chunk := range i.chunks {
		if chunk.SourceName == sourceName && chunk.Key == key {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(a, b int) bool {
		return chunks[a].Position < chunks[b].Position
	})
	return chunks
}
