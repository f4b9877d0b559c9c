package models

import "time"

// Book is one library entry: a single user's saved copy of an OpenLibrary
// work, keyed by the normalized "/works/OL...W" key. The (UserID,
// OpenLibraryKey) pair is unique; the store enforces it.
type Book struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	OpenLibraryKey   string    `json:"openLibraryKey"`
	Title            string    `json:"title"`
	Authors          []string  `json:"authors"`
	FirstPublishYear int       `json:"firstPublishYear,omitempty"`
	CoverID          *int64    `json:"cover_i,omitempty"`
	CoverData        []byte    `json:"-"`
	CoverContentType string    `json:"coverContentType,omitempty"`
	Review           string    `json:"review,omitempty"`
	Rating           *float64  `json:"rating,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
