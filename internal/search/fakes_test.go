package search

import (
	"context"
	"sync"
	"time"

	"github.com/hyperjump/furrow/internal/keyword"
	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
)

// fakeEngine answers Search with a canned result or error.
type fakeEngine struct {
	mu        sync.Mutex
	result    *keyword.RawResult
	err       error
	delay     time.Duration
	calls     int
	lastIndex string
	lastQuery *ranking.CompiledQuery
	lastLimit int
}

func (f *fakeEngine) Search(ctx context.Context, name string, q *ranking.CompiledQuery, limit int) (*keyword.RawResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastIndex, f.lastQuery, f.lastLimit = name, q, limit
	delay, result, err := f.delay, f.result, f.err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return result, err
}

func (f *fakeEngine) IndexExists(context.Context, string) (bool, error) { return true, nil }
func (f *fakeEngine) CreateIndex(context.Context, string, []keyword.FieldMapping) error {
	return nil
}
func (f *fakeEngine) BulkIndex(context.Context, string, []*models.SearchDocument) error {
	return nil
}
func (f *fakeEngine) Delete(context.Context, string, string) error     { return nil }
func (f *fakeEngine) DeleteAll(context.Context, string) error          { return nil }
func (f *fakeEngine) DocCount(context.Context, string) (uint64, error) { return 0, nil }
func (f *fakeEngine) Close() error                                     { return nil }

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fallbackCall struct {
	contentType string
	query       string
	limit       int
}

// fakeFallback serves entries per content type.
type fakeFallback struct {
	mu      sync.Mutex
	entries map[string][]*models.Entry
	totals  map[string]int
	err     error
	calls   []fallbackCall
}

func (f *fakeFallback) Search(ctx context.Context, contentType, query string, limit int) ([]*models.Entry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fallbackCall{contentType, query, limit})
	if f.err != nil {
		return nil, 0, f.err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	items := f.entries[contentType]
	total, ok := f.totals[contentType]
	if !ok {
		total = len(items)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, total, nil
}

func (f *fakeFallback) recorded() []fallbackCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fallbackCall(nil), f.calls...)
}
