package covers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"bookshelf/pkg/ratelimit"
)

// Resolver turns cover hints into a fetchable image URL. Direct cover ids
// win, then cover edition OLIDs; only when neither hint exists does it fetch
// the work document and look at its attached covers. An empty result is not
// an error, it means "no cover known".
type Resolver struct {
	CoversURL string // e.g. https://covers.openlibrary.org
	WorksURL  string // e.g. https://openlibrary.org
	Meta      *http.Client
	Images    *http.Client
	Limiter   *ratelimit.Limiter
}

func NewResolver(worksURL, coversURL string) *Resolver {
	return &Resolver{
		CoversURL: coversURL,
		WorksURL:  worksURL,
		Meta:      &http.Client{Timeout: 5 * time.Second},
		Images:    &http.Client{Timeout: 7 * time.Second},
		Limiter:   ratelimit.New("openlibrary-covers", 5),
	}
}

// Resolve picks the cover URL for the given hints, earlier hints strictly
// preferred. Only the work-key path touches the network; its failures are
// logged and resolve to "".
func (r *Resolver) Resolve(ctx context.Context, coverID *int64, editionKey, workKey string) string {
	if coverID != nil {
		return fmt.Sprintf("%s/b/id/%d-L.jpg", r.CoversURL, *coverID)
	}
	if editionKey != "" {
		return fmt.Sprintf("%s/b/olid/%s-L.jpg", r.CoversURL, editionKey)
	}
	if workKey == "" {
		return ""
	}

	id, err := r.workCoverID(ctx, workKey)
	if err != nil {
		log.Printf("[covers] work cover lookup failed for %s: %v", workKey, err)
		return ""
	}
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("%s/b/id/%d-L.jpg", r.CoversURL, id)
}

// workCoverID fetches the work document and returns its first listed cover
// id, or 0 when the work has none.
func (r *Resolver) workCoverID(ctx context.Context, workKey string) (int64, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	url := r.WorksURL + workKey + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.Meta.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch work: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("work fetch status %d", resp.StatusCode)
	}

	var work struct {
		Covers []int64 `json:"covers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return 0, fmt.Errorf("decode work: %w", err)
	}
	if len(work.Covers) == 0 {
		return 0, nil
	}
	return work.Covers[0], nil
}

// Download fetches cover image bytes for storing alongside a library entry.
// Content type comes from the response header, falling back to the URL
// extension.
func (r *Resolver) Download(ctx context.Context, url string) ([]byte, string, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := r.Images.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("cover fetch status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read cover body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		if strings.HasSuffix(url, ".png") {
			contentType = "image/png"
		} else {
			contentType = "image/jpeg"
		}
	}
	return data, contentType, nil
}
