package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bookshelf/pkg/ratelimit"
)

// Doc is one OpenLibrary search result. Field names mirror the upstream
// snake_case wire format; optional fields are omitted when absent so the
// enriched response passes them through verbatim.
type Doc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorKey        []string `json:"author_key,omitempty"`
	AuthorName       []string `json:"author_name,omitempty"`
	CoverEditionKey  string   `json:"cover_edition_key,omitempty"`
	CoverID          *int64   `json:"cover_i,omitempty"`
	EbookAccess      string   `json:"ebook_access,omitempty"`
	EditionCount     int      `json:"edition_count,omitempty"`
	FirstPublishYear int      `json:"first_publish_year,omitempty"`
	HasFulltext      *bool    `json:"has_fulltext,omitempty"`
	Language         []string `json:"language,omitempty"`
	PublicScan       *bool    `json:"public_scan_b,omitempty"`
}

type SearchResult struct {
	Start         int    `json:"start"`
	NumFound      int    `json:"num_found"`
	NumFoundExact *bool  `json:"numFoundExact,omitempty"`
	Offset        *int   `json:"offset"`
	Docs          []Doc  `json:"docs"`
}

// Client talks to the OpenLibrary search API. One attempt per call, bounded
// by the client timeout; retries are a transport concern, not ours.
type Client struct {
	BaseURL string
	Client  *http.Client
	Limiter *ratelimit.Limiter
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 12 * time.Second},
		Limiter: ratelimit.New("openlibrary", 5),
	}
}

func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(c.BaseURL + "/search.json")
	if err != nil {
		return nil, fmt.Errorf("openlibrary: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("openlibrary: build request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openlibrary: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openlibrary: status %d: %s", resp.StatusCode, string(body))
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("openlibrary: decode: %w", err)
	}
	return &result, nil
}
