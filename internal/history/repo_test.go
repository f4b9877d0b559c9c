package history

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/pkg/database"
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

func TestRecordAndLast(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		require.NoError(t, repo.Record(ctx, "alice", fmt.Sprintf("query %d", i)))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, repo.Record(ctx, "bob", "someone else"))

	items, err := repo.Last(ctx, "alice", 5)
	require.NoError(t, err)
	require.Len(t, items, 5)

	// newest first, capped at 5, scoped to the caller
	assert.Equal(t, "query 7", items[0].Query)
	assert.Equal(t, "query 3", items[4].Query)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].At.After(items[i-1].At))
	}
}

func TestLastEmpty(t *testing.T) {
	repo := newTestRepo(t)

	items, err := repo.Last(context.Background(), "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}
