package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"bookshelf/internal/catalog"
	"bookshelf/internal/library"
)

// ErrQueryTooShort rejects a query before any network call is made.
var ErrQueryTooShort = errors.New("query must be at least 2 characters")

const (
	maxDocs           = 10
	lookupTimeout     = 1500 * time.Millisecond
	historyTimeout    = 2 * time.Second
	documentationURL  = "https://openlibrary.org/dev/docs/api/search"
	internalCoverPath = "/api/books/library/front-cover/%d"
)

// Library is the bulk membership lookup the aggregator needs from the store.
type Library interface {
	BulkExists(ctx context.Context, userID string, keys []string) (map[string]library.Presence, error)
}

// Recorder appends search history; failures never reach the caller.
type Recorder interface {
	Record(ctx context.Context, userID, query string) error
}

// Doc is a catalog result enriched with library membership and a resolved
// cover URL. The upstream fields pass through untouched.
type Doc struct {
	catalog.Doc
	OpenLibraryKeyNormalized string `json:"openLibraryKeyNormalized,omitempty"`
	CoverURL                 string `json:"coverUrl,omitempty"`
	InMyLibrary              bool   `json:"inMyLibrary"`
}

type Response struct {
	Start            int    `json:"start"`
	NumFound         int    `json:"num_found"`
	NumFoundAlias    int    `json:"numFound"`
	NumFoundExact    *bool  `json:"numFoundExact,omitempty"`
	DocumentationURL string `json:"documentation_url"`
	Query            string `json:"q"`
	Offset           *int   `json:"offset"`
	Docs             []Doc  `json:"docs"`
}

// Service runs one search end to end: catalog call, key normalization, bulk
// library lookup, per-result cover decision, best-effort history append.
// Only the catalog call can fail the request; everything after it degrades.
type Service struct {
	Catalog   *catalog.Client
	Library   Library
	History   Recorder
	Cache     *Cache // optional, nil disables response caching
	CoversURL string // e.g. https://covers.openlibrary.org
}

func NewService(cat *catalog.Client, lib Library, hist Recorder, coversURL string) *Service {
	return &Service{
		Catalog:   cat,
		Library:   lib,
		History:   hist,
		CoversURL: coversURL,
	}
}

func (s *Service) Search(ctx context.Context, userID, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < 2 {
		return nil, ErrQueryTooShort
	}

	if s.Cache != nil {
		if resp, ok := s.Cache.Get(ctx, userID, query); ok {
			return resp, nil
		}
	}

	result, err := s.Catalog.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}

	docs := result.Docs
	if len(docs) > maxDocs {
		docs = docs[:maxDocs]
	}

	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		if k := catalog.NormalizeWorkKey(d.Key); k != "" {
			keys = append(keys, k)
		}
	}

	presence := s.lookupOwned(ctx, userID, keys)

	enriched := make([]Doc, 0, len(docs))
	for _, d := range docs {
		keyNorm := catalog.NormalizeWorkKey(d.Key)
		found, ok := presence[keyNorm]
		inLib := ok && found.Exists

		var coverURL string
		if inLib && found.CoverID != nil {
			coverURL = fmt.Sprintf(internalCoverPath, *found.CoverID)
		} else if d.CoverID != nil {
			coverURL = fmt.Sprintf("%s/b/id/%d-M.jpg", s.CoversURL, *d.CoverID)
		}

		enriched = append(enriched, Doc{
			Doc:                      d,
			OpenLibraryKeyNormalized: keyNorm,
			CoverURL:                 coverURL,
			InMyLibrary:              inLib,
		})
	}

	s.recordSearch(userID, query)

	resp := &Response{
		Start:            result.Start,
		NumFound:         result.NumFound,
		NumFoundAlias:    result.NumFound,
		NumFoundExact:    result.NumFoundExact,
		DocumentationURL: documentationURL,
		Query:            query,
		Offset:           result.Offset,
		Docs:             enriched,
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, userID, query, resp)
	}
	return resp, nil
}

// lookupOwned asks the store which of the keys the caller already owns. Any
// failure degrades to "owns nothing": a broken membership check must never
// fail the search.
func (s *Service) lookupOwned(ctx context.Context, userID string, keys []string) map[string]library.Presence {
	if len(keys) == 0 || s.Library == nil {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	m, err := s.Library.BulkExists(lookupCtx, userID, keys)
	if err != nil {
		log.Printf("[search] library lookup degraded: %v", err)
		return nil
	}
	return m
}

// recordSearch is fire and forget: it runs off the request context and its
// errors are logged, never surfaced.
func (s *Service) recordSearch(userID, query string) {
	if s.History == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()
		if err := s.History.Record(ctx, userID, query); err != nil {
			log.Printf("[search] history record failed: %v", err)
		}
	}()
}
