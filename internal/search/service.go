package search

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/furrow/internal/config"
	"github.com/hyperjump/furrow/internal/keyword"
	"github.com/hyperjump/furrow/internal/lexicon"
	"github.com/hyperjump/furrow/internal/metrics"
	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
	"github.com/hyperjump/furrow/pkg/utils"
)

// FallbackSource is the content source's own unweighted search, used when the engine fails.
type FallbackSource interface {
	Search(ctx context.Context, contentType, query string, limit int) ([]*models.Entry, int, error)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = utils.OrNop(logger) }
}

// Service answers search requests: weighted engine search first, the content
// source's own search when the engine fails.
type Service struct {
	lexicon         *lexicon.Lexicon
	analyzer        *ranking.QueryAnalyzer
	compiler        *ranking.QueryCompiler
	executor        *Executor
	fallback        FallbackSource
	defaultLimit    int
	maxLimit        int
	fallbackTimeout time.Duration
	logger          *zap.Logger
}

// NewService wires the search pipeline. A nil cfg uses config.Default().
func NewService(lex *lexicon.Lexicon, engine keyword.Engine, fallback FallbackSource, cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{
		lexicon:         lex,
		analyzer:        ranking.NewQueryAnalyzer(lex),
		compiler:        ranking.NewQueryCompiler(lex, cfg.Search.Weights),
		fallback:        fallback,
		defaultLimit:    cfg.Search.DefaultLimit,
		maxLimit:        cfg.Search.MaxLimit,
		fallbackTimeout: cfg.Engine.FallbackTimeout,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.executor = NewExecutor(engine, cfg.Engine.IndexName, cfg.Engine.Timeout, s.logger)
	return s
}

// Analyze classifies a raw query without searching.
func (s *Service) Analyze(query string) *ranking.ParsedQuery {
	return s.analyzer.Analyze(query)
}

// outcome is the result of one request: exactly one of primaryHit, fallbackHit or totalFailure.
type outcome interface {
	source() string
}

type primaryHit struct {
	page *ResultPage
}

type fallbackHit struct {
	page  *ResultPage
	cause error
}

type totalFailure struct {
	primary error
	err     error
}

func (primaryHit) source() string   { return string(models.SourcePrimary) }
func (fallbackHit) source() string  { return string(models.SourceFallback) }
func (totalFailure) source() string { return string(models.SourceFallback) }

// Search runs req. Queries shorter than models.MinQueryLength get an empty response
// without touching either path. The only error returned is *FallbackError, paired with
// an empty zero-total response.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()
	if !req.Normalize(s.defaultLimit, s.maxLimit) {
		metrics.SearchRequestsTotal.WithLabelValues("none", metrics.OutcomeSkipped).Inc()
		return models.EmptyResponse(req.Type), nil
	}
	logger := s.logger.With(
		zap.String("request_id", uuid.NewString()),
		zap.String("query", req.Query),
		zap.String("type", req.Type),
	)

	parsed, compiled := s.prepare(logger, req)

	var out outcome
	page, err := s.executor.Execute(ctx, compiled, req.Limit)
	if err == nil {
		out = primaryHit{page: page}
	} else {
		kind := KindLabel(err)
		metrics.EngineErrorsTotal.WithLabelValues(kind).Inc()
		logger.Warn("primary search failed, using fallback", zap.String("kind", kind), zap.Error(err))
		out = s.runFallback(ctx, req, err)
	}

	elapsed := time.Since(start)
	metrics.SearchDuration.WithLabelValues(out.source()).Observe(elapsed.Seconds())

	var (
		resp   *models.SearchResponse
		source models.Source
	)
	switch o := out.(type) {
	case primaryHit:
		metrics.SearchRequestsTotal.WithLabelValues(o.source(), metrics.OutcomeOK).Inc()
		resp, source = pageResponse(o.page), models.SourcePrimary
	case fallbackHit:
		metrics.SearchRequestsTotal.WithLabelValues(o.source(), metrics.OutcomeFallback).Inc()
		resp, source = pageResponse(o.page), models.SourceFallback
	case totalFailure:
		metrics.SearchRequestsTotal.WithLabelValues(o.source(), metrics.OutcomeFailure).Inc()
		logger.Error("search failed on both paths", zap.NamedError("primary", o.primary), zap.Error(o.err))
		return models.EmptyResponse(req.Type), &FallbackError{Primary: o.primary, Err: o.err}
	}

	resp.Query = req.Query
	resp.Type = req.Type
	resp.Source = source
	resp.Suggestions = ranking.Suggestions(parsed)
	if resp.Total == 0 {
		resp.DidYouMean, _ = s.lexicon.Correct(req.Query)
	}
	resp.QueryTime = elapsed.Milliseconds()
	logger.Debug("search complete",
		zap.String("source", string(source)),
		zap.Int("results", len(resp.Results)),
		zap.Int("total", resp.Total),
		zap.Duration("took", elapsed),
	)
	return resp, nil
}

// prepare analyzes and compiles the query. Both steps are pure; a panic there is a
// programming error and is logged before it propagates.
func (s *Service) prepare(logger *zap.Logger, req models.SearchRequest) (*ranking.ParsedQuery, *ranking.CompiledQuery) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("query preparation panicked", zap.Any("panic", r))
			panic(r)
		}
	}()
	parsed := s.analyzer.Analyze(req.Query)
	return parsed, s.compiler.Compile(parsed, req.Type)
}

// runFallback issues the equivalent request against the fallback source. For every
// content type, each concrete type is queried concurrently with half the limit and the
// results are merged newest-updated first.
func (s *Service) runFallback(ctx context.Context, req models.SearchRequest, primary error) outcome {
	if s.fallback == nil {
		return totalFailure{primary: primary, err: errors.New("no fallback source configured")}
	}
	if err := ctx.Err(); err != nil {
		return totalFailure{primary: primary, err: err}
	}
	if s.fallbackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fallbackTimeout)
		defer cancel()
	}

	types := []string{req.Type}
	perType := req.Limit
	if req.Type == models.TypeAll {
		types = models.ContentTypes
		perType = req.Limit / 2
		if perType < 1 {
			perType = 1
		}
	}

	entries := make([][]*models.Entry, len(types))
	totals := make([]int, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		i, t := i, t
		g.Go(func() error {
			items, total, err := s.fallback.Search(gctx, t, req.Query, perType)
			if err != nil {
				return err
			}
			entries[i], totals[i] = items, total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return totalFailure{primary: primary, err: err}
	}

	var merged []*models.Entry
	page := &ResultPage{}
	for i := range types {
		for _, e := range entries[i] {
			if e != nil {
				merged = append(merged, e)
			}
		}
		page.Total += totals[i]
	}
	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].UpdatedAt.After(merged[b].UpdatedAt)
	})
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}
	page.Results = make([]*models.SearchResult, 0, len(merged))
	for _, e := range merged {
		page.Results = append(page.Results, resultFromEntry(e))
	}
	return fallbackHit{page: page, cause: primary}
}

func pageResponse(page *ResultPage) *models.SearchResponse {
	return &models.SearchResponse{Results: page.Results, Total: page.Total}
}

func resultFromEntry(e *models.Entry) *models.SearchResult {
	return &models.SearchResult{
		ID:          e.ID,
		Title:       e.Title,
		Body:        utils.Truncate(e.SearchText(), ExcerptLength),
		Summary:     e.Summary,
		Type:        e.ContentType,
		Slug:        e.EffectiveSlug(),
		PublishedAt: e.PublishedOrCreated(),
		ImageURL:    models.NormalizeImageURL(e.ImageURL),
		Source:      models.SourceFallback,
	}
}
