package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
// Reports are held per source, most recent first.
type RunStore struct {
	mu      sync.RWMutex
	reports map[string][]domain.RunReport
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		reports: make(map[string][]domain.RunReport),
	}
}

// Record logs a completed run.
func (s *RunStore) Record(_ context.Context, report *domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.SourceName] = append([]domain.RunReport{*report}, s.reports[report.SourceName]...)
	return nil
}

// Latest returns the most recent report for a source instance.
func (s *RunStore) Latest(_ context.Context, sourceName string) (*domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := s.reports[sourceName]
	if len(reports) == 0 {
		return nil, domain.ErrNotFound
	}
	report := reports[0]
	return &report, nil
}

// History returns recent reports for a source, most recent first.
func (s *RunStore) History(_ context.Context, sourceName string, limit int) ([]domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := s.reports[sourceName]
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	out := make([]domain.RunReport, len(reports))
	copy(out, reports)
	return out, nil
}

// Prune keeps the most recent 'keep' reports per source.
func (s *RunStore) Prune(_ context.Context, keep int) error {
	if keep < 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, reports := range s.reports {
		if len(reports) > keep {
			s.reports[name] = reports[:keep]
		}
	}
	return nil
}
