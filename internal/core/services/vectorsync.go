package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ragsync/internal/chunker"
	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// VectorSync applies classified documents to the vector index and the
// metadata tracker. It is the only component that mutates DocumentRecords.
type VectorSync struct {
	tracker  driven.MetadataTracker
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	chunker  *chunker.Chunker

	now func() time.Time
}

// NewVectorSync creates a vector sync service.
func NewVectorSync(
	tracker driven.MetadataTracker,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	ch *chunker.Chunker,
) *VectorSync {
	return &VectorSync{
		tracker:  tracker,
		index:    index,
		embedder: embedder,
		chunker:  ch,
		now:      time.Now,
	}
}

// Apply performs the mutations for a New or Updated document.
//
// The mutation order is fixed: insert new chunks, delete the chunks of the
// superseded version, then write the record. A crash between insert and
// delete leaves the index with stale-but-retrievable extra chunks rather
// than a content gap. The next run converges to exactly the new set:
// chunk IDs are deterministic per content, so the retry upserts the
// half-finished attempt's chunks instead of orphaning them, and deletes
// are no-ops for absent IDs. The record is written last so that any
// earlier failure leaves the document eligible for re-classification.
func (s *VectorSync) Apply(ctx context.Context, class domain.Classification, doc *domain.NormalizedDocument) (*domain.DocumentRecord, error) {
	switch class {
	case domain.New, domain.Updated:
	default:
		return nil, fmt.Errorf("%w: apply called with classification %s", domain.ErrInvalidInput, class)
	}

	version := 1
	var oldChunkIDs []string

	if class == domain.Updated {
		prev, err := s.tracker.Get(ctx, doc.SourceName, doc.Key)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get previous record: %w", err)
		}
		if prev != nil {
			version = prev.Version + 1
			oldChunkIDs = prev.ChunkIDs
		}
	}

	chunks := s.chunker.Split(doc, version)
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyContent
	}

	if err := s.embed(ctx, chunks); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	if err := s.index.Insert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("insert chunks: %w", err)
	}

	if len(oldChunkIDs) > 0 {
		if err := s.index.Delete(ctx, oldChunkIDs); err != nil {
			// New chunks are already in the index; bail before the record
			// write so the next run retries the delete.
			return nil, fmt.Errorf("delete superseded chunks: %w", err)
		}
	}

	record := &domain.DocumentRecord{
		SourceName: doc.SourceName,
		Key:        doc.Key,
		Checksum:   doc.Checksum,
		Version:    version,
		ChunkIDs:   chunkIDs(chunks),
		UpdatedAt:  s.now(),
	}
	if err := s.tracker.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	logger.Debug("Applied %s for %s/%s (version %d, %d chunks)",
		class, doc.SourceName, doc.Key, version, len(chunks))
	return record, nil
}

// Remove deletes a document's chunks and record, used by the purge stale
// policy. Chunks are deleted before the record so a crash in between
// leaves a record pointing at absent chunks, which the next purge pass
// cleans up idempotently.
func (s *VectorSync) Remove(ctx context.Context, record *domain.DocumentRecord) error {
	if len(record.ChunkIDs) > 0 {
		if err := s.index.Delete(ctx, record.ChunkIDs); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
	}
	if err := s.tracker.Delete(ctx, record.SourceName, record.Key); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (s *VectorSync) embed(ctx context.Context, chunks []domain.EmbeddingChunk) error {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return nil
}

func chunkIDs(chunks []domain.EmbeddingChunk) []string {
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}
	return ids
}
