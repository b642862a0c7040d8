package normalizers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormalizerRegistry = (*Registry)(nil)

// Registry selects normalizers by MIME type and priority and computes the
// content fingerprint over the canonical text. Hashing the canonical text
// rather than the raw payload means an upstream re-encoding that does not
// change the text does not look like a content change.
type Registry struct {
	mu          sync.RWMutex
	normalizers []driven.Normalizer
}

// NewRegistry creates an empty normalizer registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a normalizer to the registry.
func (r *Registry) Register(n driven.Normalizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalizers = append(r.normalizers, n)
}

// Normalize converts a raw document using the best matching normalizer.
// Selection is by MIME type, highest priority first; a normalizer with no
// declared MIME types acts as a catch-all fallback.
func (r *Registry) Normalize(ctx context.Context, raw *domain.RawDocument) (*domain.NormalizedDocument, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	n := r.match(raw.MIMEType)
	if n == nil {
		return nil, fmt.Errorf("%w: no normalizer for %q", domain.ErrUnsupportedType, raw.MIMEType)
	}

	doc, err := n.Normalize(ctx, raw)
	if err != nil {
		return nil, err
	}

	doc.Text = strings.TrimSpace(doc.Text)
	if doc.Text == "" {
		return nil, domain.ErrEmptyContent
	}

	doc.Checksum = Fingerprint(doc.Text)
	return doc, nil
}

// SupportedMIMETypes returns all MIME types with a registered normalizer,
// sorted and de-duplicated.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]bool)
	for _, n := range r.normalizers {
		for _, m := range n.SupportedMIMETypes() {
			set[m] = true
		}
	}

	types := make([]string, 0, len(set))
	for m := range set {
		types = append(types, m)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) match(mimeType string) driven.Normalizer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Parameters like charset are not part of the match
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	var best driven.Normalizer
	bestPriority := -1

	for _, n := range r.normalizers {
		if !handles(n, mimeType) {
			continue
		}
		if n.Priority() > bestPriority {
			best = n
			bestPriority = n.Priority()
		}
	}
	return best
}

func handles(n driven.Normalizer, mimeType string) bool {
	types := n.SupportedMIMETypes()
	if len(types) == 0 {
		return true // Catch-all fallback
	}
	for _, m := range types {
		if m == mimeType {
			return true
		}
	}
	return false
}

// Fingerprint computes the hex-encoded SHA-256 checksum of canonical text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
