package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/furrow/internal/config"
	"github.com/hyperjump/furrow/internal/keyword"
	"github.com/hyperjump/furrow/internal/lexicon"
	"github.com/hyperjump/furrow/internal/metrics"
	"github.com/hyperjump/furrow/internal/models"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Engine.Timeout = 50 * time.Millisecond
	cfg.Engine.FallbackTimeout = time.Second
	return cfg
}

func day(n int) time.Time {
	return time.Date(2024, 3, n, 9, 0, 0, 0, time.UTC)
}

func primaryResult() *keyword.RawResult {
	return &keyword.RawResult{
		Total: 1,
		Hits: []*keyword.Hit{{
			ID:    "a1",
			Score: 2,
			Fields: map[string]interface{}{
				models.FieldTitle: "Growing Tomatoes",
				models.FieldType:  models.TypeArticle,
				models.FieldSlug:  "growing-tomatoes",
			},
		}},
	}
}

func gardenFallback() *fakeFallback {
	return &fakeFallback{
		entries: map[string][]*models.Entry{
			models.TypeArticle: {
				{ID: "a1", ContentType: models.TypeArticle, Title: "Tomato Staking", Slug: "staking", NewSlug: "tomato-staking",
					Summary: "Keep vines upright", UpdatedAt: day(3), CreatedAt: day(1)},
				{ID: "a2", ContentType: models.TypeArticle, Title: "Tomato Blight", Slug: "blight", UpdatedAt: day(1), PublishedAt: day(1)},
			},
			models.TypeRecipe: {
				{ID: "r1", ContentType: models.TypeRecipe, Title: "Tomato Soup", Slug: "soup", UpdatedAt: day(5),
					ImageURL: "//images.example.com/soup.jpg", Ingredients: []models.Ingredient{{Name: "tomatoes"}}},
				{ID: "r2", ContentType: models.TypeRecipe, Title: "Tomato Salsa", Slug: "salsa", UpdatedAt: day(2)},
			},
		},
		totals: map[string]int{models.TypeArticle: 9, models.TypeRecipe: 4},
	}
}

func resultIDs(results []*models.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestService_PrimaryPath(t *testing.T) {
	engine := &fakeEngine{result: primaryResult()}
	fallback := gardenFallback()
	svc := NewService(lexicon.Default(), engine, fallback, testConfig())

	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "  Tomato  "})
	require.NoError(t, err)

	assert.Equal(t, models.SourcePrimary, resp.Source)
	assert.Equal(t, "Tomato", resp.Query)
	assert.Equal(t, models.TypeAll, resp.Type)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, []string{"a1"}, resultIDs(resp.Results))
	assert.Contains(t, resp.Suggestions, "How to grow tomato")
	assert.Empty(t, fallback.recorded())
	assert.Equal(t, config.DefaultSearchLimit, engine.lastLimit)
}

func TestService_TypeAndLimit(t *testing.T) {
	engine := &fakeEngine{result: primaryResult()}
	svc := NewService(lexicon.Default(), engine, gardenFallback(), testConfig())

	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "tomato", Type: "Recipe", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, models.TypeRecipe, resp.Type)
	assert.Equal(t, models.TypeRecipe, engine.lastQuery.TypeFilter)
	assert.Equal(t, config.DefaultMaxLimit, engine.lastLimit)

	_, err = svc.Search(context.Background(), models.SearchRequest{Query: "tomato", Type: "podcast"})
	require.NoError(t, err)
	assert.Empty(t, engine.lastQuery.TypeFilter)
}

func TestService_ShortQueryTouchesNothing(t *testing.T) {
	engine := &fakeEngine{result: primaryResult()}
	fallback := gardenFallback()
	svc := NewService(lexicon.Default(), engine, fallback, testConfig())

	for _, q := range []string{"", " ", "a", "  b  "} {
		resp, err := svc.Search(context.Background(), models.SearchRequest{Query: q, Type: models.TypeRecipe})
		require.NoError(t, err)
		assert.Equal(t, &models.SearchResponse{Results: []*models.SearchResult{}, Type: models.TypeRecipe}, resp, "query %q", q)
	}
	assert.Zero(t, engine.callCount())
	assert.Empty(t, fallback.recorded())
}

func TestService_UnknownTypeSearchesNothing(t *testing.T) {
	engine := &fakeEngine{result: primaryResult()}
	fallback := gardenFallback()
	svc := NewService(lexicon.Default(), engine, fallback, testConfig())

	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "tomato", Type: "Product"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Total)
	assert.Equal(t, "product", resp.Type)
	assert.Zero(t, engine.callCount())
	assert.Empty(t, fallback.recorded())
}

func TestService_FallbackSkipsNilEntries(t *testing.T) {
	fallback := gardenFallback()
	fallback.entries[models.TypeArticle] = append([]*models.Entry{nil}, fallback.entries[models.TypeArticle]...)
	svc := NewService(lexicon.Default(), &fakeEngine{err: keyword.ErrEngineClosed}, fallback, testConfig())

	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "tomato", Type: models.TypeArticle, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, models.SourceFallback, resp.Source)
	assert.Equal(t, []string{"a1", "a2"}, resultIDs(resp.Results))
}

func TestService_FallbackOnEngineTimeout(t *testing.T) {
	engine := &fakeEngine{delay: time.Second, result: primaryResult()}
	fallback := gardenFallback()
	svc := NewService(lexicon.Default(), engine, fallback, testConfig())

	before := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues("fallback", metrics.OutcomeFallback))
	timeouts := testutil.ToFloat64(metrics.EngineErrorsTotal.WithLabelValues("timeout"))

	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "tomato", Type: models.TypeArticle, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, models.SourceFallback, resp.Source)
	assert.Equal(t, []string{"a1", "a2"}, resultIDs(resp.Results))
	assert.Equal(t, 9, resp.Total)
	assert.Equal(t, []fallbackCall{{models.TypeArticle, "tomato", 10}}, fallback.recorded())

	first := resp.Results[0]
	assert.Equal(t, models.SourceFallback, first.Source)
	assert.Nil(t, first.Score)
	assert.Nil(t, first.Highlight)
	assert.Equal(t, "tomato-staking", first.Slug)
	assert.Equal(t, day(1), first.PublishedAt)
	assert.Equal(t, "Keep vines upright", first.Body)

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues("fallback", metrics.OutcomeFallback)))
	assert.Equal(t, timeouts+1, testutil.ToFloat64(metrics.EngineErrorsTotal.WithLabelValues("timeout")))
}

func TestService_FallbackForEveryEngineFailureKind(t *testing.T) {
	failures := []error{
		keyword.ErrEngineClosed,
		fmt.Errorf("%w: garden-content", keyword.ErrIndexNotFound),
		errors.New("malformed response"),
	}
	for _, failure := range failures {
		t.Run(failure.Error(), func(t *testing.T) {
			svc := NewService(lexicon.Default(), &fakeEngine{err: failure}, gardenFallback(), testConfig())
			resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "tomato"})
			require.NoError(t, err)
			assert.Equal(t, models.SourceFallback, resp.Source)
			assert.NotEmpty(t, resp.Results)
		})
	}
}

func TestService_FallbackAllTypesSplitsLimit(t *testing.T) {
	fallback := gardenFallback()
	svc := NewService(lexicon.Default(), &fakeEngine{err: keyword.ErrEngineClosed}, fallback, testConfig())

	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "tomato", Limit: 4})
	require.NoError(t, err)

	assert.ElementsMatch(t, []fallbackCall{
		{models.TypeArticle, "tomato", 2},
		{models.TypeRecipe, "tomato", 2},
	}, fallback.recorded())
	assert.Equal(t, []string{"r1", "a1", "r2", "a2"}, resultIDs(resp.Results))
	assert.Equal(t, 13, resp.Total)
	assert.Equal(t, "https://images.example.com/soup.jpg", resp.Results[0].ImageURL)
	assert.Equal(t, "Ingredients: tomatoes.", resp.Results[0].Body)
}

func TestService_FallbackAllTypesLimitOne(t *testing.T) {
	fallback := gardenFallback()
	svc := NewService(lexicon.Default(), &fakeEngine{err: keyword.ErrEngineClosed}, fallback, testConfig())

	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "tomato", Limit: 1})
	require.NoError(t, err)

	for _, call := range fallback.recorded() {
		assert.Equal(t, 1, call.limit)
	}
	assert.Equal(t, []string{"r1"}, resultIDs(resp.Results))
}

func TestService_TotalFailure(t *testing.T) {
	fallback := &fakeFallback{err: errors.New("database is locked")}
	svc := NewService(lexicon.Default(), &fakeEngine{err: context.DeadlineExceeded}, fallback, testConfig())

	before := testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues("fallback", metrics.OutcomeFailure))

	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "tomato", Type: models.TypeRecipe})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFallbackFailure)

	var fe *FallbackError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, fe.Primary, ErrEngineTimeout)

	require.NotNil(t, resp)
	assert.Equal(t, []*models.SearchResult{}, resp.Results)
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Query)
	assert.Equal(t, models.TypeRecipe, resp.Type)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SearchRequestsTotal.WithLabelValues("fallback", metrics.OutcomeFailure)))
}

func TestService_NoFallbackSource(t *testing.T) {
	svc := NewService(lexicon.Default(), nil, nil, testConfig())
	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "tomato"})
	assert.ErrorIs(t, err, ErrFallbackFailure)
	assert.Empty(t, resp.Results)
}

func TestService_CanceledCallerSkipsFallback(t *testing.T) {
	fallback := gardenFallback()
	svc := NewService(lexicon.Default(), &fakeEngine{delay: time.Second}, fallback, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Search(ctx, models.SearchRequest{Query: "tomato"})
	assert.ErrorIs(t, err, ErrFallbackFailure)
	assert.Empty(t, fallback.recorded())
}

func TestService_ConcurrentRequests(t *testing.T) {
	svc := NewService(lexicon.Default(), &fakeEngine{result: primaryResult()}, gardenFallback(), testConfig())
	queries := []string{"tomato", "how to grow basil", "cherry tomato", "xyz123", "pruning tips"}

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			resp, err := svc.Search(context.Background(), models.SearchRequest{Query: q})
			if err != nil {
				errs <- err
				return
			}
			if resp.Source != models.SourcePrimary {
				errs <- fmt.Errorf("query %q answered by %s", q, resp.Source)
			}
		}(queries[i%len(queries)])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestService_Analyze(t *testing.T) {
	svc := NewService(lexicon.Default(), nil, nil, nil)
	pq := svc.Analyze("how to grow tomatoes")
	assert.Equal(t, []string{"tomatoes"}, pq.SubjectTerms)
	assert.Equal(t, "action-focused", pq.QueryType.String())
}

func TestService_DidYouMeanOnEmptyResults(t *testing.T) {
	engine := &fakeEngine{result: &keyword.RawResult{}}
	svc := NewService(lexicon.Default(), engine, gardenFallback(), testConfig())

	resp, err := svc.Search(context.Background(), models.SearchRequest{Query: "grow tomtao"})
	require.NoError(t, err)
	assert.Zero(t, resp.Total)
	assert.Equal(t, "grow tomato", resp.DidYouMean)

	engine.result = primaryResult()
	resp, err = svc.Search(context.Background(), models.SearchRequest{Query: "grow tomtao"})
	require.NoError(t, err)
	assert.Empty(t, resp.DidYouMean, "only offered when nothing matched")
}
