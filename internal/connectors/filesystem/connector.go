// Package filesystem provides a connector that fetches documents from a
// local directory tree.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
	"github.com/custodia-labs/ragsync/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Type is the connector type identifier.
const Type = "filesystem"

// Connector fetches documents from a directory tree.
type Connector struct {
	source   domain.SourceInstance
	root     string
	patterns []string
	closed   bool
}

// New creates a filesystem connector for the given source instance.
// Required config: "path". Optional: "patterns", comma-separated glob
// patterns matched against file names (default: all files).
func New(source domain.SourceInstance) (*Connector, error) {
	root := source.Config["path"]
	if root == "" {
		return nil, fmt.Errorf("%w: filesystem source %q requires config key \"path\"", domain.ErrInvalidInput, source.Name)
	}

	var patterns []string
	if raw := source.Config["patterns"]; raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
	}

	return &Connector{
		source:   source,
		root:     root,
		patterns: patterns,
	}, nil
}

// Builder adapts New to the ConnectorBuilder signature.
func Builder(source domain.SourceInstance) (driven.Connector, error) {
	return New(source)
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return Type
}

// SourceName returns the configured source instance name.
func (c *Connector) SourceName() string {
	return c.source.Name
}

// Validate checks the configured path exists and is a readable directory.
func (c *Connector) Validate(_ context.Context) error {
	if c.closed {
		return domain.ErrConnectorClosed
	}
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", c.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, c.root)
	}
	return nil
}

// Fetch walks the directory tree and streams one RawDocument per matching
// file. Unreadable files are skipped; a failure to walk the root itself is
// a wholesale failure.
func (c *Connector) Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		err := filepath.WalkDir(c.root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if entry.IsDir() {
				return nil
			}
			if !c.matches(entry.Name()) {
				return nil
			}

			content, readErr := os.ReadFile(path)
			if readErr != nil {
				// Per-item failure: skip, keep walking
				logger.Debug("[%s] Skipping unreadable file %s: %v", c.source.Name, path, readErr)
				return nil
			}

			rel, relErr := filepath.Rel(c.root, path)
			if relErr != nil {
				rel = path
			}

			info, _ := entry.Info()
			meta := map[string]any{
				"path": path,
			}
			if info != nil {
				meta["size"] = info.Size()
				meta["mod_time"] = info.ModTime().UTC().Format("2006-01-02T15:04:05Z07:00")
			}

			doc := domain.RawDocument{
				SourceName: c.source.Name,
				SourceType: Type,
				Key:        filepath.ToSlash(rel),
				MIMEType:   mimeTypeFor(path),
				Content:    content,
				Metadata:   meta,
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case docs <- doc:
				return nil
			}
		})
		if err != nil {
			errs <- fmt.Errorf("walk %s: %w", c.root, err)
		}
	}()

	return docs, errs
}

// Close releases resources.
func (c *Connector) Close() error {
	c.closed = true
	return nil
}

func (c *Connector) matches(name string) bool {
	if len(c.patterns) == 0 {
		return true
	}
	for _, pattern := range c.patterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// mimeTypeFor maps a file path to a MIME type, with overrides for
// extensions the platform MIME database gets wrong or misses.
func mimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt", "":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "text/plain"
}
