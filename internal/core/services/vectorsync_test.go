package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/ragsync/internal/adapters/driven/storage/memory"
	vecmemory "github.com/custodia-labs/ragsync/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/ragsync/internal/chunker"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/normalizers"
)

// flakyIndex wraps the in-memory index with injectable failures.
type flakyIndex struct {
	*vecmemory.Index
	insertErr error
	deleteErr error
}

func (i *flakyIndex) Insert(ctx context.Context, chunks []domain.EmbeddingChunk) error {
	if i.insertErr != nil {
		return i.insertErr
	}
	return i.Index.Insert(ctx, chunks)
}

func (i *flakyIndex) Delete(ctx context.Context, chunkIDs []string) error {
	if i.deleteErr != nil {
		return i.deleteErr
	}
	return i.Index.Delete(ctx, chunkIDs)
}

func newTestVectorSync() (*VectorSync, *memory.MetadataTracker, *vecmemory.Index) {
	tracker := memory.NewMetadataTracker()
	index := vecmemory.NewIndex()
	embedder := local.NewEmbeddingService(32)
	ch := chunker.New(chunker.WithChunkSize(64), chunker.WithOverlap(8))
	return NewVectorSync(tracker, index, embedder, ch), tracker, index
}

func normalized(sourceName, key, text string) *domain.NormalizedDocument {
	return &domain.NormalizedDocument{
		SourceName: sourceName,
		Key:        key,
		Text:       text,
		Checksum:   normalizers.Fingerprint(text),
	}
}

func TestVectorSync_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("new document gets version 1", func(t *testing.T) {
		sync, tracker, index := newTestVectorSync()
		doc := normalized("wiki", "Page-1", "hello world")

		record, err := sync.Apply(ctx, domain.New, doc)

		require.NoError(t, err)
		assert.Equal(t, 1, record.Version)
		assert.Equal(t, doc.Checksum, record.Checksum)
		assert.NotEmpty(t, record.ChunkIDs)
		assert.False(t, record.UpdatedAt.IsZero())

		stored, err := tracker.Get(ctx, "wiki", "Page-1")
		require.NoError(t, err)
		assert.Equal(t, record.Version, stored.Version)

		for _, id := range record.ChunkIDs {
			assert.True(t, index.Has(id))
		}
	})

	t.Run("long text produces one chunk per window", func(t *testing.T) {
		sync, _, index := newTestVectorSync()
		doc := normalized("wiki", "Long", strings.Repeat("a", 200))

		record, err := sync.Apply(ctx, domain.New, doc)

		require.NoError(t, err)
		// 200 chars, window 64, step 56: positions 0,56,112,168
		assert.Len(t, record.ChunkIDs, 4)
		assert.Equal(t, 4, index.Len())

		chunks := index.ByDocument("wiki", "Long")
		require.Len(t, chunks, 4)
		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.Position)
			assert.Equal(t, 1, chunk.Version)
			assert.NotEmpty(t, chunk.Embedding)
		}
	})

	t.Run("update increments version and replaces all chunks", func(t *testing.T) {
		sync, tracker, index := newTestVectorSync()

		first, err := sync.Apply(ctx, domain.New, normalized("wiki", "Page-1", strings.Repeat("old content ", 20)))
		require.NoError(t, err)

		second, err := sync.Apply(ctx, domain.Updated, normalized("wiki", "Page-1", "new content"))
		require.NoError(t, err)

		assert.Equal(t, 2, second.Version)

		// Full replacement: no chunk of the old version survives
		for _, id := range first.ChunkIDs {
			assert.False(t, index.Has(id), "old chunk %s should be gone", id)
		}
		for _, id := range second.ChunkIDs {
			assert.True(t, index.Has(id))
		}

		// Old and new chunk IDs are disjoint
		old := make(map[string]bool)
		for _, id := range first.ChunkIDs {
			old[id] = true
		}
		for _, id := range second.ChunkIDs {
			assert.False(t, old[id], "chunk ID %s reused across versions", id)
		}

		stored, err := tracker.Get(ctx, "wiki", "Page-1")
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Version)
	})

	t.Run("repeated updates keep incrementing the version", func(t *testing.T) {
		sync, tracker, _ := newTestVectorSync()

		_, err := sync.Apply(ctx, domain.New, normalized("wiki", "Page-1", "v1"))
		require.NoError(t, err)
		for i := 2; i <= 5; i++ {
			_, err := sync.Apply(ctx, domain.Updated, normalized("wiki", "Page-1", strings.Repeat("x", i)))
			require.NoError(t, err)
		}

		stored, err := tracker.Get(ctx, "wiki", "Page-1")
		require.NoError(t, err)
		assert.Equal(t, 5, stored.Version)
	})

	t.Run("unchanged classification is rejected", func(t *testing.T) {
		sync, _, _ := newTestVectorSync()

		_, err := sync.Apply(ctx, domain.Unchanged, normalized("wiki", "Page-1", "text"))

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		sync, _, _ := newTestVectorSync()

		_, err := sync.Apply(ctx, domain.New, normalized("wiki", "Page-1", ""))

		assert.ErrorIs(t, err, domain.ErrEmptyContent)
	})

	t.Run("insert failure leaves tracker untouched", func(t *testing.T) {
		tracker := memory.NewMetadataTracker()
		index := &flakyIndex{Index: vecmemory.NewIndex(), insertErr: errors.New("index down")}
		sync := NewVectorSync(tracker, index, local.NewEmbeddingService(32), chunker.New())

		_, err := sync.Apply(ctx, domain.New, normalized("wiki", "Page-1", "text"))

		require.Error(t, err)
		_, err = tracker.Get(ctx, "wiki", "Page-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("failed delete leaves superset and converges on retry", func(t *testing.T) {
		tracker := memory.NewMetadataTracker()
		index := &flakyIndex{Index: vecmemory.NewIndex()}
		sync := NewVectorSync(tracker, index, local.NewEmbeddingService(32), chunker.New())

		first, err := sync.Apply(ctx, domain.New, normalized("wiki", "Page-1", "original"))
		require.NoError(t, err)

		// Simulated crash between insert and delete: new chunks are in,
		// old ones are not removed, the record is not advanced.
		index.deleteErr = errors.New("index down")
		_, err = sync.Apply(ctx, domain.Updated, normalized("wiki", "Page-1", "changed"))
		require.Error(t, err)

		stored, err := tracker.Get(ctx, "wiki", "Page-1")
		require.NoError(t, err)
		assert.Equal(t, 1, stored.Version, "record must not advance past a failed delete")
		for _, id := range first.ChunkIDs {
			assert.True(t, index.Has(id), "superset: old chunks still present")
		}

		// Retry converges: stale chunks of version 1 are removed, the
		// record advances, and the half-finished attempt's chunks are
		// upserted rather than duplicated under new IDs.
		index.deleteErr = nil
		second, err := sync.Apply(ctx, domain.Updated, normalized("wiki", "Page-1", "changed"))
		require.NoError(t, err)
		assert.Equal(t, 2, second.Version)
		for _, id := range first.ChunkIDs {
			assert.False(t, index.Has(id))
		}
		assert.ElementsMatch(t, second.ChunkIDs, index.IDs(),
			"index must hold exactly the recorded chunk set, nothing orphaned")
	})
}

func TestVectorSync_Remove(t *testing.T) {
	ctx := context.Background()

	t.Run("removes chunks and record", func(t *testing.T) {
		sync, tracker, index := newTestVectorSync()

		record, err := sync.Apply(ctx, domain.New, normalized("wiki", "Page-1", "content"))
		require.NoError(t, err)

		require.NoError(t, sync.Remove(ctx, record))

		_, err = tracker.Get(ctx, "wiki", "Page-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 0, index.Len())
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		sync, _, _ := newTestVectorSync()

		record, err := sync.Apply(ctx, domain.New, normalized("wiki", "Page-1", "content"))
		require.NoError(t, err)

		require.NoError(t, sync.Remove(ctx, record))
		require.NoError(t, sync.Remove(ctx, record))
	})
}
