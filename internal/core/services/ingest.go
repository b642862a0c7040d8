package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/core/ports/driving"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.Ingestor = (*Ingestor)(nil)

// seenCapacity bounds the in-run duplicate checksum cache.
const seenCapacity = 10000

// DefaultHistoryKeep is how many run reports are retained per source
// unless overridden with SetHistoryKeep.
const DefaultHistoryKeep = 100

// Ingestor executes ingestion runs: connector output is normalized,
// classified against the metadata tracker and applied to the vector index.
type Ingestor struct {
	factory  driven.ConnectorFactory
	registry driven.NormalizerRegistry
	dedup    *DedupEngine
	sync     *VectorSync
	tracker  driven.MetadataTracker
	runStore driven.RunStore

	historyKeep int
}

// NewIngestor creates an ingestor.
func NewIngestor(
	factory driven.ConnectorFactory,
	registry driven.NormalizerRegistry,
	dedup *DedupEngine,
	sync *VectorSync,
	tracker driven.MetadataTracker,
	runStore driven.RunStore,
) *Ingestor {
	return &Ingestor{
		factory:     factory,
		registry:    registry,
		dedup:       dedup,
		sync:        sync,
		tracker:     tracker,
		runStore:    runStore,
		historyKeep: DefaultHistoryKeep,
	}
}

// SetHistoryKeep overrides how many run reports are retained per source.
func (in *Ingestor) SetHistoryKeep(n int) {
	if n > 0 {
		in.historyKeep = n
	}
}

// Run executes one ingestion run for one source instance.
// Per-document failures are contained: they degrade the run to partial.
// Only a wholesale connector failure marks the run failed; cancellation
// marks it aborted. The returned error is non-nil exactly in those cases.
func (in *Ingestor) Run(ctx context.Context, source domain.SourceInstance) (*domain.RunReport, error) {
	report := &domain.RunReport{
		SourceName: source.Name,
		StartedAt:  time.Now(),
	}

	logger.Info("[%s] Starting ingestion run", source.Name)

	err := in.run(ctx, source, report)

	report.EndedAt = time.Now()
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// A shutdown mid-run says nothing about the source. The report
		// is returned for the caller but kept out of the run history.
		report.Status = domain.RunAborted
		report.Error = err.Error()
		logger.Info("[%s] Run aborted: %v", source.Name, err)
		return report, err
	case err != nil:
		report.Status = domain.RunFailed
		report.Error = err.Error()
		logger.Warn("[%s] Run failed: %v", source.Name, err)
	case report.Failed > 0:
		report.Status = domain.RunPartial
		logger.Info("[%s] Completed with failures: %d new, %d updated, %d unchanged, %d failed",
			source.Name, report.New, report.Updated, report.Unchanged, report.Failed)
	default:
		report.Status = domain.RunSuccess
		logger.Info("[%s] Completed: %d new, %d updated, %d unchanged",
			source.Name, report.New, report.Updated, report.Unchanged)
	}

	in.record(ctx, report)
	return report, err
}

//nolint:gocognit // Orchestration function coordinating multiple async operations
func (in *Ingestor) run(ctx context.Context, source domain.SourceInstance, report *domain.RunReport) error {
	connector, err := in.factory.Create(ctx, source)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()

	if err := connector.Validate(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}

	var limiter *rate.Limiter
	if source.RequestDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(source.RequestDelay), 1)
	}

	// Bounded cache of checksums already applied this run: two items with
	// identical canonical text are ingested once.
	seen := newSeenSet(seenCapacity)

	// Keys observed this run, for the purge stale policy.
	var present map[string]bool
	if source.Stale == domain.StalePurge {
		present = make(map[string]bool)
	}

	docsCh, errsCh := connector.Fetch(ctx)

	// A closed document channel alone is not end-of-stream: connectors
	// buffer a wholesale failure on the error channel before closing
	// both, and select picks between ready cases at random. Both
	// channels must drain before the run can be declared clean.
	for docsCh != nil || errsCh != nil {
		// Checked first: select picks randomly among ready cases, and a
		// cancelled run must not race the stream to a clean finish.
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("connector: %w", err)
			}

		case raw, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}

			if present != nil {
				present[raw.Key] = true
			}
			in.processOne(ctx, &raw, seen, report)
		}
	}

	// Only a clean, fully drained stream may drive the purge policy: an
	// incomplete listing must never delete live documents.
	if present != nil {
		in.purgeStale(ctx, source, present, report)
	}
	return nil
}

// processOne runs one document through normalize, classify and apply.
// Any failure is contained to the document.
func (in *Ingestor) processOne(ctx context.Context, raw *domain.RawDocument, seen *seenSet, report *domain.RunReport) {
	logger.Debug("[%s] Processing: %s", raw.SourceName, raw.Key)

	doc, err := in.registry.Normalize(ctx, raw)
	if err != nil {
		report.Failed++
		logger.Debug("[%s] Failed to normalize %s: %v", raw.SourceName, raw.Key, err)
		return
	}

	if seen.contains(doc.Checksum) {
		report.Unchanged++
		logger.Debug("[%s] Duplicate checksum within run: %s", raw.SourceName, raw.Key)
		return
	}

	class, err := in.dedup.Classify(ctx, doc.SourceName, doc.Key, doc.Checksum)
	if err != nil {
		report.Failed++
		logger.Debug("[%s] Failed to classify %s: %v", raw.SourceName, raw.Key, err)
		return
	}

	if class == domain.Unchanged {
		report.Unchanged++
		seen.add(doc.Checksum)
		return
	}

	if _, err := in.sync.Apply(ctx, class, doc); err != nil {
		report.Failed++
		logger.Debug("[%s] Failed to apply %s: %v", raw.SourceName, raw.Key, err)
		return
	}

	seen.add(doc.Checksum)
	switch class {
	case domain.New:
		report.New++
	case domain.Updated:
		report.Updated++
	}
}

// purgeStale removes records for documents absent from a fully successful
// run. Skipped when any document failed: an absent key might just be a
// failed fetch upstream.
func (in *Ingestor) purgeStale(ctx context.Context, source domain.SourceInstance, present map[string]bool, report *domain.RunReport) {
	if report.Failed > 0 {
		logger.Debug("[%s] Skipping stale purge: run had failures", source.Name)
		return
	}

	records, err := in.tracker.List(ctx, source.Name)
	if err != nil {
		logger.Warn("[%s] Failed to list records for purge: %v", source.Name, err)
		return
	}

	for i := range records {
		if present[records[i].Key] {
			continue
		}
		if err := in.sync.Remove(ctx, &records[i]); err != nil {
			logger.Warn("[%s] Failed to purge %s: %v", source.Name, records[i].Key, err)
			continue
		}
		report.Purged++
		logger.Debug("[%s] Purged stale document: %s", source.Name, records[i].Key)
	}
}

func (in *Ingestor) record(ctx context.Context, report *domain.RunReport) {
	if in.runStore == nil {
		return
	}
	if err := in.runStore.Record(ctx, report); err != nil {
		logger.Warn("[%s] Failed to record run report: %v", report.SourceName, err)
		return
	}
	if err := in.runStore.Prune(ctx, in.historyKeep); err != nil {
		logger.Warn("Failed to prune run history: %v", err)
	}
}

// seenSet is a bounded FIFO set of checksums.
type seenSet struct {
	capacity int
	order    []string
	members  map[string]bool
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		capacity: capacity,
		members:  make(map[string]bool),
	}
}

func (s *seenSet) contains(checksum string) bool {
	return s.members[checksum]
}

func (s *seenSet) add(checksum string) {
	if s.members[checksum] {
		return
	}
	s.members[checksum] = true
	s.order = append(s.order, checksum)
	if len(s.order) > s.capacity {
		delete(s.members, s.order[0])
		s.order = s.order[1:]
	}
}
