package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsync/internal/core/domain"
)

func TestNormalizer_Normalize(t *testing.T) {
	ctx := context.Background()
	n := New()

	t.Run("passes text through", func(t *testing.T) {
		doc, err := n.Normalize(ctx, &domain.RawDocument{
			SourceName: "docs",
			Key:        "a.txt",
			MIMEType:   "text/plain",
			Content:    []byte("plain content"),
		})

		require.NoError(t, err)
		assert.Equal(t, "plain content", doc.Text)
		assert.Equal(t, "docs", doc.SourceName)
		assert.Equal(t, "a.txt", doc.Key)
	})

	t.Run("normalises CRLF line endings", func(t *testing.T) {
		doc, err := n.Normalize(ctx, &domain.RawDocument{
			Content: []byte("one\r\ntwo\r\nthree"),
		})

		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\nthree", doc.Text)
	})

	t.Run("rejects invalid utf-8", func(t *testing.T) {
		_, err := n.Normalize(ctx, &domain.RawDocument{
			Content: []byte{0xff, 0xfe, 0x00},
		})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("rejects nil document", func(t *testing.T) {
		_, err := n.Normalize(ctx, nil)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("records the original MIME type in metadata", func(t *testing.T) {
		doc, err := n.Normalize(ctx, &domain.RawDocument{
			MIMEType: "text/csv",
			Content:  []byte("a,b,c"),
			Metadata: map[string]any{"path": "/x"},
		})

		require.NoError(t, err)
		assert.Equal(t, "text/csv", doc.Metadata["mime_type"])
		assert.Equal(t, "/x", doc.Metadata["path"])
	})

	t.Run("is the catch-all fallback", func(t *testing.T) {
		assert.Nil(t, n.SupportedMIMETypes())
		assert.Equal(t, 5, n.Priority())
	})
}
