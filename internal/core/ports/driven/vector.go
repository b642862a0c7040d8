package driven

import (
	"context"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

// VectorIndex stores embedded chunks for retrieval.
// Both operations are idempotent: inserting an existing chunk ID upserts,
// deleting an absent chunk ID is a no-op. Vector sync relies on this to
// converge after a crash between insert-new and delete-old.
type VectorIndex interface {
	// Insert upserts chunks into the index.
	Insert(ctx context.Context, chunks []domain.EmbeddingChunk) error

	// Delete removes chunks by ID.
	Delete(ctx context.Context, chunkIDs []string) error

	// Close releases resources.
	Close() error
}
