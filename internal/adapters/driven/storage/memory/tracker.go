// Package memory provides in-memory implementations of the storage ports.
// Used in tests and for ephemeral runs where persistence is not needed.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure MetadataTracker implements the interface.
var _ driven.MetadataTracker = (*MetadataTracker)(nil)

// MetadataTracker is an in-memory implementation of driven.MetadataTracker.
type MetadataTracker struct {
	mu      sync.RWMutex
	records map[string]domain.DocumentRecord
}

// NewMetadataTracker creates a new in-memory metadata tracker.
func NewMetadataTracker() *MetadataTracker {
	return &MetadataTracker{
		records: make(map[string]domain.DocumentRecord),
	}
}

func recordKey(sourceName, key string) string {
	return sourceName + "\x00" + key
}

// Get retrieves the record for (sourceName, key).
func (t *MetadataTracker) Get(_ context.Context, sourceName, key string) (*domain.DocumentRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	record, ok := t.records[recordKey(sourceName, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// Save stores or replaces the record for its identity.
func (t *MetadataTracker) Save(_ context.Context, record *domain.DocumentRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[recordKey(record.SourceName, record.Key)] = *record
	return nil
}

// Delete removes the record for (sourceName, key).
func (t *MetadataTracker) Delete(_ context.Context, sourceName, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, recordKey(sourceName, key))
	return nil
}

// List returns all records for a source instance.
func (t *MetadataTracker) List(_ context.Context, sourceName string) ([]domain.DocumentRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var records []domain.DocumentRecord
	for _, record := range t.records {
		if record.SourceName == sourceName {
			records = append(records, record)
		}
	}
	return records, nil
}
