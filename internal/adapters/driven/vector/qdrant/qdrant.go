// Package qdrant provides a vector index adapter backed by a Qdrant
// server, using its REST API directly.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 15 * time.Second

// Config holds configuration for the Qdrant index.
type Config struct {
	// URL is the Qdrant base URL (e.g., "http://localhost:6333").
	URL string

	// APIKey is the optional Qdrant API key.
	APIKey string

	// Collection is the collection name.
	Collection string

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Index is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
// Point upserts and deletes are idempotent, as the VectorIndex port
// requires.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// NewIndex creates a Qdrant-backed vector index.
func NewIndex(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init ensures the collection exists with the given embedding dimension.
func (i *Index) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension %d", domain.ErrInvalidInput, dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 if the collection already exists with the same schema
	return i.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s", i.url, i.collection), body, nil)
}

// Insert upserts chunks into the collection.
func (i *Index) Insert(ctx context.Context, chunks []domain.EmbeddingChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]map[string]any, len(chunks))
	for n, chunk := range chunks {
		payload := map[string]any{
			"source_name": chunk.SourceName,
			"key":         chunk.Key,
			"version":     chunk.Version,
			"position":    chunk.Position,
			"text":        chunk.Text,
		}
		for k, v := range chunk.Metadata {
			if _, reserved := payload[k]; !reserved {
				payload[k] = v
			}
		}
		points[n] = map[string]any{
			"id":      chunk.ID,
			"vector":  chunk.Embedding,
			"payload": payload,
		}
	}

	body := map[string]any{"points": points}
	return i.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", i.url, i.collection), body, nil)
}

// Delete removes chunks by ID. Absent IDs are a no-op on the server side.
func (i *Index) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	body := map[string]any{"points": chunkIDs}
	return i.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/delete?wait=true", i.url, i.collection), body, nil)
}

// Close releases resources.
func (i *Index) Close() error {
	i.client.CloseIdleConnections()
	return nil
}

// do executes one JSON request against the Qdrant API.
func (i *Index) do(ctx context.Context, method, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if i.apiKey != "" {
		req.Header.Set("api-key", i.apiKey)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qdrant %s %s: status %d: %s", method, url, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
