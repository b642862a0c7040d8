package normalizers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/normalizers/markdown"
	"github.com/custodia-labs/ragsync/internal/normalizers/plaintext"
)

// staticNormalizer returns fixed text for specific MIME types.
type staticNormalizer struct {
	types    []string
	priority int
	text     string
}

func (n *staticNormalizer) SupportedMIMETypes() []string { return n.types }
func (n *staticNormalizer) Priority() int                { return n.priority }

func (n *staticNormalizer) Normalize(_ context.Context, raw *domain.RawDocument) (*domain.NormalizedDocument, error) {
	return &domain.NormalizedDocument{
		SourceName: raw.SourceName,
		Key:        raw.Key,
		Text:       n.text,
	}, nil
}

func raw(mimeType, content string) *domain.RawDocument {
	return &domain.RawDocument{
		SourceName: "docs",
		Key:        "a",
		MIMEType:   mimeType,
		Content:    []byte(content),
	}
}

func TestRegistry_Normalize(t *testing.T) {
	ctx := context.Background()

	t.Run("selects by MIME type", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&staticNormalizer{types: []string{"text/a"}, priority: 10, text: "from-a"})
		registry.Register(&staticNormalizer{types: []string{"text/b"}, priority: 10, text: "from-b"})

		doc, err := registry.Normalize(ctx, raw("text/b", "x"))

		require.NoError(t, err)
		assert.Equal(t, "from-b", doc.Text)
	})

	t.Run("highest priority wins", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&staticNormalizer{types: []string{"text/a"}, priority: 10, text: "low"})
		registry.Register(&staticNormalizer{types: []string{"text/a"}, priority: 90, text: "high"})

		doc, err := registry.Normalize(ctx, raw("text/a", "x"))

		require.NoError(t, err)
		assert.Equal(t, "high", doc.Text)
	})

	t.Run("catch-all handles unknown MIME types", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(plaintext.New())

		doc, err := registry.Normalize(ctx, raw("application/x-whatever", "some text"))

		require.NoError(t, err)
		assert.Equal(t, "some text", doc.Text)
	})

	t.Run("specific normalizer beats the catch-all", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(plaintext.New())
		registry.Register(markdown.New())

		doc, err := registry.Normalize(ctx, raw("text/markdown", "# Heading\n\nbody"))

		require.NoError(t, err)
		assert.Equal(t, "Heading\n\nbody", doc.Text)
	})

	t.Run("charset parameter is ignored in matching", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&staticNormalizer{types: []string{"text/html"}, priority: 10, text: "matched"})

		doc, err := registry.Normalize(ctx, raw("text/html; charset=utf-8", "x"))

		require.NoError(t, err)
		assert.Equal(t, "matched", doc.Text)
	})

	t.Run("no matching normalizer is unsupported", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&staticNormalizer{types: []string{"text/a"}, priority: 10, text: "x"})

		_, err := registry.Normalize(ctx, raw("text/b", "x"))

		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("whitespace-only text is empty content", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(plaintext.New())

		_, err := registry.Normalize(ctx, raw("text/plain", "  \n\t "))

		assert.ErrorIs(t, err, domain.ErrEmptyContent)
	})

	t.Run("nil document is invalid", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(plaintext.New())

		_, err := registry.Normalize(ctx, nil)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("checksum is set over the canonical text", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(plaintext.New())

		doc, err := registry.Normalize(ctx, raw("text/plain", "hello"))

		require.NoError(t, err)
		assert.Equal(t, Fingerprint("hello"), doc.Checksum)
		assert.Len(t, doc.Checksum, 64)
	})

	t.Run("identical canonical text from different encodings matches", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(plaintext.New())

		unix, err := registry.Normalize(ctx, raw("text/plain", "line one\nline two"))
		require.NoError(t, err)
		dos, err := registry.Normalize(ctx, raw("text/plain", "line one\r\nline two"))
		require.NoError(t, err)

		assert.Equal(t, unix.Checksum, dos.Checksum)
	})
}

func TestRegistry_SupportedMIMETypes(t *testing.T) {
	t.Run("sorted and de-duplicated", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(&staticNormalizer{types: []string{"text/b", "text/a"}, priority: 10})
		registry.Register(&staticNormalizer{types: []string{"text/a", "text/c"}, priority: 20})

		assert.Equal(t, []string{"text/a", "text/b", "text/c"}, registry.SupportedMIMETypes())
	})
}

func TestFingerprint(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Fingerprint("text"), Fingerprint("text"))
	})

	t.Run("content sensitive", func(t *testing.T) {
		assert.NotEqual(t, Fingerprint("text"), Fingerprint("text "))
	})
}
