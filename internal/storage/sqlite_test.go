package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/furrow/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "content.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func day(n int) time.Time {
	return time.Date(2024, 3, n, 9, 0, 0, 0, time.UTC)
}

func paragraph(text string) *models.RichText {
	return &models.RichText{NodeType: "document", Content: []*models.RichText{
		{NodeType: "paragraph", Content: []*models.RichText{{NodeType: "text", Value: text}}},
	}}
}

func seed(t *testing.T, store *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	entries := []*models.Entry{
		{
			ID: "a1", ContentType: models.TypeArticle, Title: "Growing Tomatoes in Pots", Slug: "growing-tomatoes",
			Summary: "Container tips", Body: paragraph("Tomatoes need sun and deep pots."),
			PublishedAt: day(1), UpdatedAt: day(5),
		},
		{
			ID: "a2", ContentType: models.TypeArticle, Title: "Basil Care", Slug: "basil-care", NewSlug: "basil-care-guide",
			Body: paragraph("Pinch basil often. Plant near a tomato."), PublishedAt: day(3), UpdatedAt: day(4),
		},
		{
			ID: "r1", ContentType: models.TypeRecipe, Title: "Roasted Tomato Soup", Slug: "tomato-soup",
			Ingredients:  []models.Ingredient{{Amount: "1 kg", Name: "tomatoes"}},
			Instructions: []string{"Roast.", "Blend."}, ImageURL: "//images.example.com/soup.jpg",
			PublishedAt: day(2), UpdatedAt: day(6),
		},
	}
	for _, e := range entries {
		if err := store.Upsert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
}

func ids(entries []*models.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	got, err := store.GetByIdentifier(ctx, models.TypeRecipe, "tomato-soup")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "r1" || got.Title != "Roasted Tomato Soup" {
		t.Errorf("got %+v", got)
	}
	if len(got.Ingredients) != 1 || got.Ingredients[0].Name != "tomatoes" {
		t.Errorf("ingredients = %+v", got.Ingredients)
	}
	if len(got.Instructions) != 2 {
		t.Errorf("instructions = %+v", got.Instructions)
	}
	if !got.PublishedAt.Equal(day(2)) {
		t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, day(2))
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err = store.GetByIdentifier(ctx, models.TypeArticle, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Body.PlainText() != "Tomatoes need sun and deep pots." {
		t.Errorf("body = %q", got.Body.PlainText())
	}

	// update keeps created_at
	created := got.CreatedAt
	got.Title = "Growing Tomatoes in Containers"
	got.UpdatedAt = day(7)
	if err := store.Upsert(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, err := store.GetByIdentifier(ctx, models.TypeArticle, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if again.Title != "Growing Tomatoes in Containers" {
		t.Errorf("title = %q", again.Title)
	}
	if !again.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed from %v to %v", created, again.CreatedAt)
	}
}

func TestSQLiteStore_GetByIdentifierPrecedence(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	got, err := store.GetByIdentifier(ctx, models.TypeArticle, "basil-care-guide")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "a2" {
		t.Errorf("new slug lookup: got %s, want a2", got.ID)
	}

	// an entry whose slug equals another entry's id wins over the id match
	if err := store.Upsert(ctx, &models.Entry{ID: "x9", ContentType: models.TypeArticle, Title: "Odd", Slug: "a2"}); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetByIdentifier(ctx, models.TypeArticle, "a2")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "x9" {
		t.Errorf("slug should win over id: got %s", got.ID)
	}

	_, err = store.GetByIdentifier(ctx, models.TypeRecipe, "basil-care")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong type: err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListByType(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	list, total, err := store.ListByType(ctx, models.TypeArticle, 10, 0, SortPublishedDesc)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || !equalIDs(ids(list), []string{"a2", "a1"}) {
		t.Errorf("published_desc: total=%d ids=%v", total, ids(list))
	}

	list, total, err = store.ListByType(ctx, models.TypeAll, 10, 0, SortUpdatedDesc)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || !equalIDs(ids(list), []string{"r1", "a1", "a2"}) {
		t.Errorf("updated_desc all: total=%d ids=%v", total, ids(list))
	}

	list, total, err = store.ListByType(ctx, "", 1, 1, SortPublishedDesc)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || !equalIDs(ids(list), []string{"r1"}) {
		t.Errorf("paged: total=%d ids=%v", total, ids(list))
	}
}

func TestSQLiteStore_Search(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	tests := []struct {
		name        string
		contentType string
		query       string
		limit       int
		want        []string
		wantTotal   int
	}{
		{"title match, newest update first", models.TypeAll, "tomato", 10, []string{"r1", "a1", "a2"}, 3},
		{"type filter", models.TypeArticle, "tomato", 10, []string{"a1", "a2"}, 2},
		{"every word must match", models.TypeAll, "basil tomato", 10, []string{"a2"}, 1},
		{"case-insensitive", models.TypeAll, "ROASTED", 10, []string{"r1"}, 1},
		{"summary match", models.TypeAll, "container", 10, []string{"a1"}, 1},
		{"limit keeps total", models.TypeAll, "tomato", 1, []string{"r1"}, 3},
		{"no match", models.TypeAll, "xyz123", 10, []string{}, 0},
		{"like wildcards are literal", models.TypeAll, "%", 10, []string{}, 0},
		{"blank query", models.TypeAll, "   ", 10, []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := store.Search(ctx, tt.contentType, tt.query, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("ids = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestSQLiteStore_DeleteAndCount(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	n, err := store.Count(ctx, models.TypeArticle)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("article count = %d, want 2", n)
	}

	if err := store.Delete(ctx, "a1"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "a1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
	n, _ = store.Count(ctx, models.TypeAll)
	if n != 2 {
		t.Errorf("count after delete = %d, want 2", n)
	}
}

func TestSQLiteStore_UpsertValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Upsert(ctx, &models.Entry{ContentType: models.TypeArticle}); err == nil {
		t.Error("expected error for missing id")
	}
	if err := store.Upsert(ctx, &models.Entry{ID: "p1", ContentType: "podcast"}); err == nil {
		t.Error("expected error for unknown content type")
	}
}
