// Package mediawiki provides a connector that fetches pages from a
// MediaWiki installation through its action API.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/custodia-labs/ragsync/internal/core/domain"
	"github.com/custodia-labs/ragsync/internal/core/ports/driven"
)

var _ driven.Connector = (*Connector)(nil)

// Type is the connector type identifier.
const Type = "mediawiki"

const (
	defaultPageLimit = 50
	defaultTimeout   = 30 * time.Second
)

// Connector fetches wiki pages through the MediaWiki action API.
type Connector struct {
	source    domain.SourceInstance
	apiURL    string
	pageLimit int
	client    *http.Client
	closed    bool
}

// New creates a mediawiki connector for the given source instance.
// Required config: "api_url" pointing at the api.php endpoint.
// Optional: "page_limit", pages per listing request (default 50).
func New(source domain.SourceInstance) (*Connector, error) {
	apiURL := source.Config["api_url"]
	if apiURL == "" {
		return nil, fmt.Errorf("%w: mediawiki source %q requires config key \"api_url\"", domain.ErrInvalidInput, source.Name)
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("%w: invalid api_url: %v", domain.ErrInvalidInput, err)
	}

	limit := defaultPageLimit
	if raw := source.Config["page_limit"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: invalid page_limit %q", domain.ErrInvalidInput, raw)
		}
		limit = n
	}

	return &Connector{
		source:    source,
		apiURL:    apiURL,
		pageLimit: limit,
		client:    &http.Client{Timeout: defaultTimeout},
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

// Validate performs a siteinfo query to confirm the endpoint responds.
func (c *Connector) Validate(ctx context.Context) error {
	if c.closed {
		return domain.ErrConnectorClosed
	}
	params := url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"format": {"json"},
	}
	var resp struct {
		Query struct {
			General struct {
				SiteName string `json:"sitename"`
			} `json:"general"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return fmt.Errorf("mediawiki siteinfo: %w", err)
	}
	return nil
}

// Fetch lists all pages and streams each page's wikitext as a RawDocument.
// Any API failure is a wholesale failure: the listing cannot be trusted to
// be complete, so the run aborts rather than silently dropping pages.
func (c *Connector) Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		cont := ""
		for {
			pages, next, err := c.listPages(ctx, cont)
			if err != nil {
				errs <- fmt.Errorf("list pages: %w", err)
				return
			}

			for _, page := range pages {
				content, err := c.pageContent(ctx, page.PageID)
				if err != nil {
					errs <- fmt.Errorf("page %q: %w", page.Title, err)
					return
				}

				doc := domain.RawDocument{
					SourceName: c.source.Name,
					SourceType: Type,
					Key:        page.Title,
					MIMEType:   "text/plain",
					Content:    []byte(content),
					Metadata: map[string]any{
						"page_id": page.PageID,
						"api_url": c.apiURL,
					},
				}

				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				case docs <- doc:
				}
			}

			if next == "" {
				return
			}
			cont = next
		}
	}()

	return docs, errs
}

// Close releases resources.
func (c *Connector) Close() error {
	c.closed = true
	c.client.CloseIdleConnections()
	return nil
}

type pageRef struct {
	PageID int    `json:"pageid"`
	Title  string `json:"title"`
}

func (c *Connector) listPages(ctx context.Context, cont string) ([]pageRef, string, error) {
	params := url.Values{
		"action":  {"query"},
		"list":    {"allpages"},
		"aplimit": {strconv.Itoa(c.pageLimit)},
		"format":  {"json"},
	}
	if cont != "" {
		params.Set("apcontinue", cont)
	}

	var resp struct {
		Continue struct {
			APContinue string `json:"apcontinue"`
		} `json:"continue"`
		Query struct {
			AllPages []pageRef `json:"allpages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, "", err
	}
	return resp.Query.AllPages, resp.Continue.APContinue, nil
}

func (c *Connector) pageContent(ctx context.Context, pageID int) (string, error) {
	params := url.Values{
		"action":  {"query"},
		"pageids": {strconv.Itoa(pageID)},
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
		"format":  {"json"},
	}

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Revisions []struct {
					Slots struct {
						Main struct {
							Content string `json:"*"`
						} `json:"main"`
					} `json:"slots"`
				} `json:"revisions"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}

	for _, page := range resp.Query.Pages {
		if len(page.Revisions) > 0 {
			return page.Revisions[0].Slots.Main.Content, nil
		}
	}
	return "", fmt.Errorf("no revision content for pageid %d", pageID)
}

func (c *Connector) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
