package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

func TestMetadataTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get round-trip", func(t *testing.T) {
		tracker := NewMetadataTracker()
		want := &domain.DocumentRecord{
			SourceName: "wiki",
			Key:        "Page-1",
			Checksum:   "abc",
			Version:    1,
			ChunkIDs:   []string{"c1"},
			UpdatedAt:  time.Now(),
		}

		require.NoError(t, tracker.Save(ctx, want))

		got, err := tracker.Get(ctx, "wiki", "Page-1")
		require.NoError(t, err)
		assert.Equal(t, want.Checksum, got.Checksum)
		assert.Equal(t, want.ChunkIDs, got.ChunkIDs)
	})

	t.Run("get unknown is not found", func(t *testing.T) {
		tracker := NewMetadataTracker()

		_, err := tracker.Get(ctx, "wiki", "missing")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		tracker := NewMetadataTracker()
		require.NoError(t, tracker.Save(ctx, &domain.DocumentRecord{
			SourceName: "wiki", Key: "Page-1", Checksum: "abc", Version: 1,
		}))

		got, err := tracker.Get(ctx, "wiki", "Page-1")
		require.NoError(t, err)
		got.Checksum = "mutated"

		again, err := tracker.Get(ctx, "wiki", "Page-1")
		require.NoError(t, err)
		assert.Equal(t, "abc", again.Checksum)
	})

	t.Run("delete removes only the targeted record", func(t *testing.T) {
		tracker := NewMetadataTracker()
		require.NoError(t, tracker.Save(ctx, &domain.DocumentRecord{SourceName: "wiki", Key: "Page-1"}))
		require.NoError(t, tracker.Save(ctx, &domain.DocumentRecord{SourceName: "wiki", Key: "Page-2"}))

		require.NoError(t, tracker.Delete(ctx, "wiki", "Page-1"))

		_, err := tracker.Get(ctx, "wiki", "Page-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = tracker.Get(ctx, "wiki", "Page-2")
		assert.NoError(t, err)
	})

	t.Run("list is scoped to the source", func(t *testing.T) {
		tracker := NewMetadataTracker()
		require.NoError(t, tracker.Save(ctx, &domain.DocumentRecord{SourceName: "a", Key: "k1"}))
		require.NoError(t, tracker.Save(ctx, &domain.DocumentRecord{SourceName: "a", Key: "k2"}))
		require.NoError(t, tracker.Save(ctx, &domain.DocumentRecord{SourceName: "b", Key: "k1"}))

		records, err := tracker.List(ctx, "a")
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})
}

func TestRunStore(t *testing.T) {
	ctx := context.Background()

	report := func(source string, n int) *domain.RunReport {
		return &domain.RunReport{SourceName: source, Status: domain.RunSuccess, New: n}
	}

	t.Run("latest returns the most recent record call", func(t *testing.T) {
		store := NewRunStore()
		require.NoError(t, store.Record(ctx, report("a", 1)))
		require.NoError(t, store.Record(ctx, report("a", 2)))

		got, err := store.Latest(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 2, got.New)
	})

	t.Run("latest with no runs is not found", func(t *testing.T) {
		store := NewRunStore()

		_, err := store.Latest(ctx, "a")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("history is most recent first and limited", func(t *testing.T) {
		store := NewRunStore()
		for i := 1; i <= 4; i++ {
			require.NoError(t, store.Record(ctx, report("a", i)))
		}

		history, err := store.History(ctx, "a", 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 4, history[0].New)
		assert.Equal(t, 3, history[1].New)
	})

	t.Run("prune keeps the most recent per source", func(t *testing.T) {
		store := NewRunStore()
		for i := 1; i <= 5; i++ {
			require.NoError(t, store.Record(ctx, report("a", i)))
		}

		require.NoError(t, store.Prune(ctx, 3))

		history, err := store.History(ctx, "a", 0)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, 5, history[0].New)
	})
}
