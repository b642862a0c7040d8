package domain

// Classification is the dedup engine's verdict for one document.
type Classification int

const (
	// Unchanged means the stored checksum matches; no mutation follows.
	Unchanged Classification = iota

	// New means no record exists for this identity.
	New

	// Updated means the checksum differs from the stored one; the prior
	// version is superseded.
	Updated
)

// String returns a human-readable name for the classification.
func (c Classification) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case New:
		return "new"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}
