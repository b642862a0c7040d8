package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Record logs a completed run.
func (s *runStore) Record(ctx context.Context, report *domain.RunReport) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO run_history
			(source_name, status, new_count, updated_count, unchanged_count,
			 failed_count, purged_count, started_at, ended_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.SourceName, string(report.Status), report.New, report.Updated,
		report.Unchanged, report.Failed, report.Purged,
		report.StartedAt, report.EndedAt, report.Error)

	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Latest returns the most recent report for a source instance.
func (s *runStore) Latest(ctx context.Context, sourceName string) (*domain.RunReport, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_name, status, new_count, updated_count, unchanged_count,
		       failed_count, purged_count, started_at, ended_at, error
		FROM run_history
		WHERE source_name = ?
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, sourceName)

	report, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest run: %w", err)
	}
	return report, nil
}

// History returns recent reports for a source, most recent first.
func (s *runStore) History(ctx context.Context, sourceName string, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_name, status, new_count, updated_count, unchanged_count,
		       failed_count, purged_count, started_at, ended_at, error
		FROM run_history
		WHERE source_name = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("listing run history: %w", err)
	}
	defer rows.Close()

	var reports []domain.RunReport
	for rows.Next() {
		report, err := scanReport(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

// Prune keeps the most recent 'keep' reports per source.
func (s *runStore) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		return nil
	}

	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM run_history
		WHERE id NOT IN (
			SELECT id FROM run_history AS r
			WHERE r.source_name = run_history.source_name
			ORDER BY r.started_at DESC, r.id DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning run history: %w", err)
	}
	return nil
}

func scanReport(scan func(...any) error) (*domain.RunReport, error) {
	var report domain.RunReport
	var status string

	if err := scan(&report.SourceName, &status, &report.New, &report.Updated,
		&report.Unchanged, &report.Failed, &report.Purged,
		&report.StartedAt, &report.EndedAt, &report.Error); err != nil {
		return nil, err
	}

	report.Status = domain.RunStatus(status)
	return &report, nil
}
