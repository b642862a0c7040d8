package domain

import "time"

// StalePolicy controls what happens to documents that disappear from the
// upstream source entirely.
type StalePolicy string

const (
	// StaleRetain keeps records and chunks for documents no longer present
	// upstream. This is the default.
	StaleRetain StalePolicy = "retain"

	// StalePurge deletes records and chunks for documents absent from a
	// fully successful run.
	StalePurge StalePolicy = "purge"
)

// SourceInstance is a configured, named instance of a connector type.
// Instances are built from configuration at startup and are immutable for
// the lifetime of the process.
type SourceInstance struct {
	// Type identifies the connector type (e.g., "filesystem", "mediawiki").
	Type string

	// Name uniquely identifies this instance within the system.
	Name string

	// Config contains connector-specific configuration.
	Config map[string]string

	// Intervals are the recurring trigger intervals for this instance.
	// Each interval produces an independent trigger stream; all streams
	// feed the same non-overlap guard.
	Intervals []time.Duration

	// RequestDelay is the minimum time between documents within one run.
	// Zero disables rate limiting.
	RequestDelay time.Duration

	// Stale controls handling of documents absent from the source.
	Stale StalePolicy
}
