package library

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/pkg/database"
	"bookshelf/pkg/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db))
	return NewRepo(db)
}

func intPtr(v int64) *int64       { return &v }
func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestUpsertInsertThenUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, models.Book{
		UserID:         "alice",
		OpenLibraryKey: "/works/OL1W",
		Title:          "Dune",
		Authors:        []string{"Frank Herbert"},
	})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Dune", first.Title)

	time.Sleep(10 * time.Millisecond)

	second, err := repo.Upsert(ctx, models.Book{
		UserID:         "alice",
		OpenLibraryKey: "/works/OL1W",
		Title:          "Dune (40th Anniversary Edition)",
		Authors:        []string{"Frank Herbert"},
	})
	require.NoError(t, err)
	require.NotNil(t, second)

	// same row, updated title, creation timestamp untouched
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Dune (40th Anniversary Edition)", second.Title)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	_, total, err := repo.List(ctx, "alice", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestUpsertKeepsExistingCoverAndReview(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Upsert(ctx, models.Book{
		UserID:           "alice",
		OpenLibraryKey:   "/works/OL1W",
		Title:            "Dune",
		CoverID:          intPtr(42),
		CoverData:        []byte{0xff, 0xd8, 0xff},
		CoverContentType: "image/jpeg",
		Review:           "a classic",
		Rating:           floatPtr(5),
	})
	require.NoError(t, err)

	// second upsert without cover or review must not wipe them
	saved, err := repo.Upsert(ctx, models.Book{
		UserID:         "alice",
		OpenLibraryKey: "/works/OL1W",
		Title:          "Dune",
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	require.NotNil(t, saved.CoverID)
	assert.Equal(t, int64(42), *saved.CoverID)
	assert.Equal(t, "a classic", saved.Review)
	require.NotNil(t, saved.Rating)
	assert.Equal(t, float64(5), *saved.Rating)

	data, contentType, err := repo.CoverByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestBulkExistsReturnsEveryKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// empty store: every requested key present, exists=false
	m, err := repo.BulkExists(ctx, "alice", []string{"/works/OL1W", "/works/OL2W"})
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.False(t, m["/works/OL1W"].Exists)
	assert.False(t, m["/works/OL2W"].Exists)

	_, err = repo.Upsert(ctx, models.Book{
		UserID:         "alice",
		OpenLibraryKey: "/works/OL1W",
		Title:          "Dune",
		CoverID:        intPtr(99),
	})
	require.NoError(t, err)

	m, err = repo.BulkExists(ctx, "alice", []string{"/works/OL1W", "/works/OL2W"})
	require.NoError(t, err)
	require.Len(t, m, 2)
	assert.True(t, m["/works/OL1W"].Exists)
	require.NotNil(t, m["/works/OL1W"].CoverID)
	assert.Equal(t, int64(99), *m["/works/OL1W"].CoverID)
	assert.False(t, m["/works/OL2W"].Exists)

	// membership is owner-scoped
	m, err = repo.BulkExists(ctx, "bob", []string{"/works/OL1W"})
	require.NoError(t, err)
	assert.False(t, m["/works/OL1W"].Exists)
}

func TestGetByIDOwnershipScoping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Upsert(ctx, models.Book{
		UserID:         "alice",
		OpenLibraryKey: "/works/OL1W",
		Title:          "Dune",
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "alice", saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.ID, got.ID)

	// bob must not see alice's entry
	got, err = repo.GetByID(ctx, "bob", saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateReviewPartial(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Upsert(ctx, models.Book{
		UserID:         "alice",
		OpenLibraryKey: "/works/OL1W",
		Title:          "Dune",
		Review:         "first impression",
		Rating:         floatPtr(3),
	})
	require.NoError(t, err)

	// rating only: review stays
	got, err := repo.UpdateReview(ctx, "alice", saved.ID, nil, floatPtr(4.5))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first impression", got.Review)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.5, *got.Rating)

	// explicit empty review clears it, rating stays
	got, err = repo.UpdateReview(ctx, "alice", saved.ID, strPtr(""), nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "", got.Review)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.5, *got.Rating)

	// ownership scoping applies here too
	got, err = repo.UpdateReview(ctx, "bob", saved.ID, strPtr("mine now"), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRemove(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	saved, err := repo.Upsert(ctx, models.Book{
		UserID:         "alice",
		OpenLibraryKey: "/works/OL1W",
		Title:          "Dune",
	})
	require.NoError(t, err)

	ok, err := repo.Remove(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Remove(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(ctx, "alice", saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListFiltersAndPagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []models.Book{
		{UserID: "alice", OpenLibraryKey: "/works/OL1W", Title: "Dune", Authors: []string{"Frank Herbert"}, Review: "spice"},
		{UserID: "alice", OpenLibraryKey: "/works/OL2W", Title: "Dune Messiah", Authors: []string{"Frank Herbert"}},
		{UserID: "alice", OpenLibraryKey: "/works/OL3W", Title: "The Hobbit", Authors: []string{"J.R.R. Tolkien"}, Review: ""},
		{UserID: "bob", OpenLibraryKey: "/works/OL1W", Title: "Dune", Authors: []string{"Frank Herbert"}},
	}
	for _, b := range seed {
		_, err := repo.Upsert(ctx, b)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	// owner scoping
	items, total, err := repo.List(ctx, "alice", ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 3)

	// most recently modified first
	assert.Equal(t, "The Hobbit", items[0].Title)
	assert.Equal(t, "Dune Messiah", items[1].Title)
	assert.Equal(t, "Dune", items[2].Title)

	// case-insensitive substring title match
	items, total, err = repo.List(ctx, "alice", ListQuery{Title: "dune"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)

	// case-insensitive substring author match
	items, total, err = repo.List(ctx, "alice", ListQuery{Author: "tolkien"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "The Hobbit", items[0].Title)

	// hasReview=true only matches non-empty reviews
	items, total, err = repo.List(ctx, "alice", ListQuery{HasReview: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Dune", items[0].Title)

	// hasReview=false matches NULL and empty-string reviews alike
	_, total, err = repo.List(ctx, "alice", ListQuery{HasReview: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// page 2 of size 1 is exactly the second-most-recent entry
	items, total, err = repo.List(ctx, "alice", ListQuery{Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Dune Messiah", items[0].Title)

	// bounds are clamped rather than rejected
	items, _, err = repo.List(ctx, "alice", ListQuery{Page: -3, Limit: 1000})
	require.NoError(t, err)
	require.Len(t, items, 3)
}
