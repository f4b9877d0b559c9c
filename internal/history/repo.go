package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookshelf/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Record appends one search to the caller's history. Rows are never updated
// or deleted.
func (r *Repo) Record(ctx context.Context, userID, query string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO search_history (user_id, query, created_at)
		VALUES (?, ?, ?)
	`, userID, query, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// Last returns the caller's n most recent searches, newest first.
func (r *Repo) Last(ctx context.Context, userID string, n int) ([]models.SearchRecord, error) {
	if n <= 0 {
		n = 5
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT query, created_at
		FROM search_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	defer rows.Close()

	out := make([]models.SearchRecord, 0, n)
	for rows.Next() {
		var rec models.SearchRecord
		if err := rows.Scan(&rec.Query, &rec.At); err != nil {
			return nil, fmt.Errorf("scan search history row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
