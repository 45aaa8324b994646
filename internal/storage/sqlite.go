package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/furrow/internal/models"
)

// maxSearchTerms bounds the number of LIKE predicates built for one query.
const maxSearchTerms = 8

const entryColumns = `id, content_type, title, slug, new_slug, summary, body, ingredients,
	instructions, image_url, published_at, created_at, updated_at`

// SQLiteStore implements ContentSource using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL DEFAULT '',
		new_slug TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		body TEXT,
		body_text TEXT NOT NULL DEFAULT '',
		ingredients TEXT,
		instructions TEXT,
		image_url TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_entries_type_published ON entries(content_type, published_at);
	CREATE INDEX IF NOT EXISTS idx_entries_type_updated ON entries(content_type, updated_at);
	CREATE INDEX IF NOT EXISTS idx_entries_slug ON entries(slug);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert inserts entry or replaces the stored entry with the same id. CreatedAt of an
// existing entry is kept. Zero CreatedAt/UpdatedAt are set to now.
func (s *SQLiteStore) Upsert(ctx context.Context, e *models.Entry) error {
	if e.ID == "" {
		return errors.New("entry id is required")
	}
	if !models.ValidContentType(e.ContentType) {
		return fmt.Errorf("invalid content type %q", e.ContentType)
	}

	body, err := marshalNullable(e.Body, e.Body == nil)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}
	ingredients, err := marshalNullable(e.Ingredients, len(e.Ingredients) == 0)
	if err != nil {
		return fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	instructions, err := marshalNullable(e.Instructions, len(e.Instructions) == 0)
	if err != nil {
		return fmt.Errorf("failed to marshal instructions: %w", err)
	}

	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (id, content_type, title, slug, new_slug, summary, body, body_text,
			ingredients, instructions, image_url, published_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			content_type = excluded.content_type,
			title = excluded.title,
			slug = excluded.slug,
			new_slug = excluded.new_slug,
			summary = excluded.summary,
			body = excluded.body,
			body_text = excluded.body_text,
			ingredients = excluded.ingredients,
			instructions = excluded.instructions,
			image_url = excluded.image_url,
			published_at = excluded.published_at,
			updated_at = excluded.updated_at`,
		e.ID, e.ContentType, e.Title, e.Slug, e.NewSlug, e.Summary, body, e.Body.PlainText(),
		ingredients, instructions, e.ImageURL, e.PublishedAt.UTC(), e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entry %s: %w", e.ID, err)
	}
	return nil
}

// GetByIdentifier returns the entry whose slug, new slug or id equals slugOrID, in that
// order of preference.
func (s *SQLiteStore) GetByIdentifier(ctx context.Context, contentType, slugOrID string) (*models.Entry, error) {
	where, args := typeFilter(contentType)
	args = append(args, slugOrID, slugOrID, slugOrID, slugOrID, slugOrID)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE `+where+` AND (slug = ? OR new_slug = ? OR id = ?)
		 ORDER BY CASE WHEN slug = ? THEN 0 WHEN new_slug = ? THEN 1 ELSE 2 END
		 LIMIT 1`, args...)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, contentType, slugOrID)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByType returns one page of entries and the total for the type.
func (s *SQLiteStore) ListByType(ctx context.Context, contentType string, limit, offset int, sort Sort) ([]*models.Entry, int, error) {
	where, args := typeFilter(contentType)
	total, err := s.count(ctx, where, args)
	if err != nil {
		return nil, 0, err
	}
	order := "published_at DESC, created_at DESC, id"
	if sort == SortUpdatedDesc {
		order = "updated_at DESC, id"
	}
	entries, err := s.query(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Search returns entries containing every word of query (case-insensitive) in the
// title, summary or body text, most recently updated first.
func (s *SQLiteStore) Search(ctx context.Context, contentType, query string, limit int) ([]*models.Entry, int, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []*models.Entry{}, 0, nil
	}
	if len(terms) > maxSearchTerms {
		terms = terms[:maxSearchTerms]
	}

	where, args := typeFilter(contentType)
	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		where += ` AND (lower(title) LIKE ? ESCAPE '\' OR lower(summary) LIKE ? ESCAPE '\' OR lower(body_text) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern, pattern)
	}

	total, err := s.count(ctx, where, args)
	if err != nil {
		return nil, 0, err
	}
	entries, err := s.query(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE `+where+` ORDER BY updated_at DESC, id LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Delete removes an entry by id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Count returns the number of entries of contentType.
func (s *SQLiteStore) Count(ctx context.Context, contentType string) (int, error) {
	where, args := typeFilter(contentType)
	return s.count(ctx, where, args)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) count(ctx context.Context, where string, args []interface{}) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE `+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...interface{}) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*models.Entry, error) {
	var (
		e                                 models.Entry
		body, ingredients, instructions   sql.NullString
		publishedAt, createdAt, updatedAt sql.NullTime
	)
	err := row.Scan(&e.ID, &e.ContentType, &e.Title, &e.Slug, &e.NewSlug, &e.Summary,
		&body, &ingredients, &instructions, &e.ImageURL, &publishedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if body.Valid && body.String != "" {
		e.Body = &models.RichText{}
		if err := json.Unmarshal([]byte(body.String), e.Body); err != nil {
			return nil, fmt.Errorf("failed to unmarshal body of %s: %w", e.ID, err)
		}
	}
	if ingredients.Valid && ingredients.String != "" {
		if err := json.Unmarshal([]byte(ingredients.String), &e.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients of %s: %w", e.ID, err)
		}
	}
	if instructions.Valid && instructions.String != "" {
		if err := json.Unmarshal([]byte(instructions.String), &e.Instructions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instructions of %s: %w", e.ID, err)
		}
	}
	e.PublishedAt = utcOrZero(publishedAt)
	e.CreatedAt = utcOrZero(createdAt)
	e.UpdatedAt = utcOrZero(updatedAt)
	return &e, nil
}

func utcOrZero(t sql.NullTime) time.Time {
	if !t.Valid || t.Time.IsZero() {
		return time.Time{}
	}
	return t.Time.UTC()
}

// typeFilter returns a WHERE fragment restricting to contentType; "" and "all" match everything.
func typeFilter(contentType string) (string, []interface{}) {
	if contentType == "" || contentType == models.TypeAll {
		return "1 = 1", nil
	}
	return "content_type = ?", []interface{}{contentType}
}

func marshalNullable(v interface{}, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
