package database

import (
	"database/sql"
	"fmt"
)

// schema is applied on every startup; all statements are idempotent.
//
// library_books carries the uniqueness invariant: at most one row per
// (user_id, work_key). Concurrent upserts for the same pair are serialized
// by the ON CONFLICT clause in the library repo, not by application locks.
const schema = `
CREATE TABLE IF NOT EXISTS library_books (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	work_key           TEXT NOT NULL,
	title              TEXT NOT NULL,
	authors            TEXT NOT NULL DEFAULT '[]',
	first_publish_year INTEGER,
	cover_id           INTEGER,
	cover_data         BLOB,
	cover_content_type TEXT,
	review             TEXT,
	rating             REAL,
	created_at         TIMESTAMP NOT NULL,
	updated_at         TIMESTAMP NOT NULL,
	UNIQUE (user_id, work_key)
);

CREATE INDEX IF NOT EXISTS idx_library_books_user_updated
	ON library_books (user_id, updated_at DESC);

CREATE INDEX IF NOT EXISTS idx_library_books_user_title
	ON library_books (user_id, title);

CREATE INDEX IF NOT EXISTS idx_library_books_cover
	ON library_books (cover_id);

CREATE TABLE IF NOT EXISTS search_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	query      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_history_user_created
	ON search_history (user_id, created_at DESC);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
