package domain

import "time"

// RunStatus is the overall outcome of one ingestion run.
type RunStatus string

const (
	// RunSuccess means the connector completed and every document was
	// processed without error.
	RunSuccess RunStatus = "success"

	// RunPartial means the connector completed but some documents failed.
	RunPartial RunStatus = "partial"

	// RunFailed means the connector itself failed wholesale. Documents
	// not yet processed were never touched.
	RunFailed RunStatus = "failed"

	// RunAborted means the run was halted by shutdown or cancellation
	// before the connector finished. Aborted runs say nothing about the
	// source and are not persisted to the run history.
	RunAborted RunStatus = "aborted"
)

// RunReport summarises one ingestion run for one source instance.
type RunReport struct {
	// SourceName identifies the source instance.
	SourceName string

	// Status is the overall run outcome.
	Status RunStatus

	// Per-run document counts.
	New       int
	Updated   int
	Unchanged int
	Failed    int

	// Purged is the number of stale documents removed, when the source's
	// stale policy is purge.
	Purged int

	// StartedAt and EndedAt bound the run.
	StartedAt time.Time
	EndedAt   time.Time

	// Error holds the wholesale failure message when Status is RunFailed.
	Error string
}

// Processed returns the total number of documents the run classified.
func (r *RunReport) Processed() int {
	return r.New + r.Updated + r.Unchanged + r.Failed
}
