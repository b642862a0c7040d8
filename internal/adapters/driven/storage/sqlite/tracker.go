package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// metadataTracker implements driven.MetadataTracker.
type metadataTracker struct {
	store *Store
}

var _ driven.MetadataTracker = (*metadataTracker)(nil)

// Get retrieves the record for (sourceName, key).
func (t *metadataTracker) Get(ctx context.Context, sourceName, key string) (*domain.DocumentRecord, error) {
	row := t.store.db.QueryRowContext(ctx, `
		SELECT source_name, key, checksum, version, chunk_ids, updated_at
		FROM document_records
		WHERE source_name = ? AND key = ?
	`, sourceName, key)

	record, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}
	return record, nil
}

// Save stores or replaces the record for its identity.
func (t *metadataTracker) Save(ctx context.Context, record *domain.DocumentRecord) error {
	chunkJSON, err := json.Marshal(record.ChunkIDs)
	if err != nil {
		return fmt.Errorf("marshalling chunk ids: %w", err)
	}

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err = t.store.db.ExecContext(ctx, `
		INSERT INTO document_records (source_name, key, checksum, version, chunk_ids, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_name, key) DO UPDATE SET
			checksum = excluded.checksum,
			version = excluded.version,
			chunk_ids = excluded.chunk_ids,
			updated_at = excluded.updated_at
	`, record.SourceName, record.Key, record.Checksum, record.Version, string(chunkJSON), updatedAt)

	if err != nil {
		return fmt.Errorf("saving record: %w", err)
	}
	return nil
}

// Delete removes the record for (sourceName, key).
func (t *metadataTracker) Delete(ctx context.Context, sourceName, key string) error {
	_, err := t.store.db.ExecContext(ctx, `
		DELETE FROM document_records WHERE source_name = ? AND key = ?
	`, sourceName, key)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return nil
}

// List returns all records for a source instance.
func (t *metadataTracker) List(ctx context.Context, sourceName string) ([]domain.DocumentRecord, error) {
	rows, err := t.store.db.QueryContext(ctx, `
		SELECT source_name, key, checksum, version, chunk_ids, updated_at
		FROM document_records
		WHERE source_name = ?
		ORDER BY key
	`, sourceName)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []domain.DocumentRecord
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanRecord(scan func(...any) error) (*domain.DocumentRecord, error) {
	var record domain.DocumentRecord
	var chunkJSON string

	if err := scan(&record.SourceName, &record.Key, &record.Checksum,
		&record.Version, &chunkJSON, &record.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(chunkJSON), &record.ChunkIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling chunk ids: %w", err)
	}
	return &record, nil
}
