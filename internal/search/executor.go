// Package search runs weighted queries against the search engine and falls back to
// the content source's own search when the engine fails.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/furrow/internal/keyword"
	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
	"github.com/hyperjump/furrow/pkg/utils"
)

// ExcerptLength is the maximum length in characters of a result body.
const ExcerptLength = 150

// ResultPage is one page of normalized results and the total number of matches.
type ResultPage struct {
	Results []*models.SearchResult
	Total   int
}

// Executor sends compiled queries to the engine and normalizes the hits.
type Executor struct {
	engine  keyword.Engine
	index   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecutor creates an executor for one index. A zero timeout means no deadline
// beyond the caller's context.
func NewExecutor(engine keyword.Engine, index string, timeout time.Duration, logger *zap.Logger) *Executor {
	return &Executor{
		engine:  engine,
		index:   index,
		timeout: timeout,
		logger:  utils.OrNop(logger),
	}
}

// Execute runs q with at most limit results. Every failure is an *EngineError whose
// Kind is ErrEngineUnavailable, ErrEngineTimeout or ErrEngineProtocol.
func (e *Executor) Execute(ctx context.Context, q *ranking.CompiledQuery, limit int) (*ResultPage, error) {
	if e.engine == nil {
		return nil, &EngineError{Kind: ErrEngineUnavailable, Op: "search", Err: errors.New("no engine configured")}
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := e.engine.Search(ctx, e.index, q, limit)
	if err != nil {
		return nil, classify(ctx, "search", err)
	}
	if raw == nil {
		return nil, &EngineError{Kind: ErrEngineProtocol, Op: "search", Err: errors.New("empty engine response")}
	}

	page, err := normalize(raw, limit)
	if err != nil {
		return nil, &EngineError{Kind: ErrEngineProtocol, Op: "decode", Err: err}
	}
	e.logger.Debug("engine search",
		zap.String("index", e.index),
		zap.Int("hits", len(page.Results)),
		zap.Int("total", page.Total),
		zap.Duration("took", time.Since(start)),
	)
	return page, nil
}

// classify maps an engine error onto the error taxonomy. A missing index or any
// unrecognized failure is a protocol error.
func classify(ctx context.Context, op string, err error) *EngineError {
	kind := ErrEngineProtocol
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = ErrEngineTimeout
	case errors.Is(err, context.Canceled):
		kind = ErrEngineTimeout
	case errors.Is(err, keyword.ErrEngineClosed):
		kind = ErrEngineUnavailable
	}
	return &EngineError{Kind: kind, Op: op, Err: err}
}

func normalize(raw *keyword.RawResult, limit int) (*ResultPage, error) {
	hits := raw.Hits
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	page := &ResultPage{
		Results: make([]*models.SearchResult, 0, len(hits)),
		Total:   int(raw.Total),
	}
	for i, hit := range hits {
		if hit == nil || hit.ID == "" {
			return nil, fmt.Errorf("hit %d has no id", i)
		}
		r, err := resultFromHit(hit)
		if err != nil {
			return nil, fmt.Errorf("hit %s: %w", hit.ID, err)
		}
		page.Results = append(page.Results, r)
	}
	if page.Total < len(page.Results) {
		page.Total = len(page.Results)
	}
	return page, nil
}

func resultFromHit(hit *keyword.Hit) (*models.SearchResult, error) {
	score := hit.Score
	r := &models.SearchResult{
		ID:        hit.ID,
		Title:     stringField(hit.Fields, models.FieldTitle),
		Body:      utils.Truncate(stringField(hit.Fields, models.FieldBody), ExcerptLength),
		Summary:   stringField(hit.Fields, models.FieldSummary),
		Type:      stringField(hit.Fields, models.FieldType),
		Slug:      stringField(hit.Fields, models.FieldSlug),
		ImageURL:  models.NormalizeImageURL(stringField(hit.Fields, models.FieldImageURL)),
		Score:     &score,
		Highlight: hit.Fragments,
		Source:    models.SourcePrimary,
	}
	if ts := stringField(hit.Fields, models.FieldPublishedAt); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("bad %s %q: %w", models.FieldPublishedAt, ts, err)
		}
		r.PublishedAt = t
	}
	return r, nil
}

func stringField(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}
