package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookshelf/pkg/models"
)

// Presence is one bulk-lookup result: whether the caller owns the work and,
// if a cover is stored for it, which cover id serves it.
type Presence struct {
	Exists  bool   `json:"exists"`
	CoverID *int64 `json:"cover_i,omitempty"`
}

type ListQuery struct {
	Title     string
	Author    string
	HasReview *bool
	Page      int
	Limit     int
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const bookColumns = `id, user_id, work_key, title, authors, first_publish_year,
	cover_id, cover_content_type, review, rating, created_at, updated_at`

// Upsert inserts or updates the caller's entry for a work. The UNIQUE
// (user_id, work_key) constraint plus ON CONFLICT keeps concurrent upserts
// for the same pair down to a single row; created_at survives updates.
// Cover and review fields only overwrite when the incoming value is set.
func (r *Repo) Upsert(ctx context.Context, b models.Book) (*models.Book, error) {
	authors, err := json.Marshal(emptyIfNil(b.Authors))
	if err != nil {
		return nil, fmt.Errorf("marshal authors: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO library_books
			(id, user_id, work_key, title, authors, first_publish_year,
			 cover_id, cover_data, cover_content_type, review, rating,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, work_key) DO UPDATE SET
			title              = excluded.title,
			authors            = excluded.authors,
			first_publish_year = excluded.first_publish_year,
			cover_id           = COALESCE(excluded.cover_id, library_books.cover_id),
			cover_data         = COALESCE(excluded.cover_data, library_books.cover_data),
			cover_content_type = COALESCE(excluded.cover_content_type, library_books.cover_content_type),
			review             = COALESCE(excluded.review, library_books.review),
			rating             = COALESCE(excluded.rating, library_books.rating),
			updated_at         = excluded.updated_at
	`, uuid.NewString(), b.UserID, b.OpenLibraryKey, b.Title, string(authors),
		nullYear(b.FirstPublishYear), b.CoverID, nullBytes(b.CoverData),
		nullString(b.CoverContentType), nullString(b.Review), b.Rating,
		now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert library book: %w", err)
	}

	return r.GetByKey(ctx, b.UserID, b.OpenLibraryKey)
}

// BulkExists answers one batched membership query. Every requested key gets
// an entry in the result, exists=false included, so callers never need to
// special-case missing keys.
func (r *Repo) BulkExists(ctx context.Context, userID string, keys []string) (map[string]Presence, error) {
	out := make(map[string]Presence, len(keys))
	for _, k := range keys {
		out[k] = Presence{Exists: false}
	}
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(keys)-1) + "?"
	args := make([]any, 0, len(keys)+1)
	args = append(args, userID)
	for _, k := range keys {
		args = append(args, k)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT work_key, cover_id
		FROM library_books
		WHERE user_id = ? AND work_key IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("bulk exists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var coverID sql.NullInt64
		if err := rows.Scan(&key, &coverID); err != nil {
			return nil, fmt.Errorf("scan bulk exists row: %w", err)
		}
		p := Presence{Exists: true}
		if coverID.Valid {
			id := coverID.Int64
			p.CoverID = &id
		}
		out[key] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// GetByID is owner-scoped: an entry owned by someone else reads as missing.
func (r *Repo) GetByID(ctx context.Context, userID, id string) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+bookColumns+`
		FROM library_books
		WHERE id = ? AND user_id = ?
	`, id, userID)
	return scanBook(row)
}

func (r *Repo) GetByKey(ctx context.Context, userID, workKey string) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+bookColumns+`
		FROM library_books
		WHERE user_id = ? AND work_key = ?
	`, userID, workKey)
	return scanBook(row)
}

// UpdateReview changes only the fields that were supplied; a nil pointer
// means "leave it alone", not "clear it".
func (r *Repo) UpdateReview(ctx context.Context, userID, id string, review *string, rating *float64) (*models.Book, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if review != nil {
		sets = append(sets, "review = ?")
		args = append(args, *review)
	}
	if rating != nil {
		sets = append(sets, "rating = ?")
		args = append(args, *rating)
	}
	args = append(args, id, userID)

	res, err := r.DB.ExecContext(ctx, `
		UPDATE library_books
		SET `+strings.Join(sets, ", ")+`
		WHERE id = ? AND user_id = ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, userID, id)
}

func (r *Repo) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM library_books
		WHERE id = ?
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete library book: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns the caller's entries, most recently modified first. Title and
// author filters are case-insensitive substring matches; HasReview treats
// NULL and empty string both as "no review".
func (r *Repo) List(ctx context.Context, userID string, q ListQuery) ([]models.Book, int, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}

	where := []string{"user_id = ?"}
	args := []any{userID}
	if q.Title != "" {
		where = append(where, "title LIKE '%' || ? || '%'")
		args = append(args, q.Title)
	}
	if q.Author != "" {
		where = append(where, "authors LIKE '%' || ? || '%'")
		args = append(args, q.Author)
	}
	if q.HasReview != nil {
		if *q.HasReview {
			where = append(where, "review IS NOT NULL AND review != ''")
		} else {
			where = append(where, "(review IS NULL OR review = '')")
		}
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM library_books WHERE `+cond,
		args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count library: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+bookColumns+`
		FROM library_books
		WHERE `+cond+`
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, append(args, q.Limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list library: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0, q.Limit)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan library row: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// CoverByID returns stored cover bytes for a cover id, regardless of owner:
// the same cover id always serves the same image.
func (r *Repo) CoverByID(ctx context.Context, coverID int64) ([]byte, string, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT cover_data, cover_content_type
		FROM library_books
		WHERE cover_id = ? AND cover_data IS NOT NULL
		LIMIT 1
	`, coverID)

	var data []byte
	var contentType sql.NullString
	if err := row.Scan(&data, &contentType); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("get stored cover: %w", err)
	}
	return data, contentType.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*models.Book, error) {
	var b models.Book
	var authors string
	var year, coverID sql.NullInt64
	var contentType, review sql.NullString
	var rating sql.NullFloat64
	var created, updated time.Time

	err := row.Scan(&b.ID, &b.UserID, &b.OpenLibraryKey, &b.Title, &authors,
		&year, &coverID, &contentType, &review, &rating, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan library book: %w", err)
	}

	if err := json.Unmarshal([]byte(authors), &b.Authors); err != nil {
		return nil, fmt.Errorf("unmarshal authors: %w", err)
	}
	if b.Authors == nil {
		b.Authors = []string{}
	}
	if year.Valid {
		b.FirstPublishYear = int(year.Int64)
	}
	if coverID.Valid {
		id := coverID.Int64
		b.CoverID = &id
	}
	b.CoverContentType = contentType.String
	b.Review = review.String
	if rating.Valid {
		v := rating.Float64
		b.Rating = &v
	}
	b.CreatedAt = created
	b.UpdatedAt = updated
	return &b, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullYear(y int) any {
	if y == 0 {
		return nil
	}
	return y
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
