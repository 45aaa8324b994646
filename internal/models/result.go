package models

import "time"

// Source records which search path produced a response.
type Source string

const (
	// SourcePrimary is the weighted inverted-index search.
	SourcePrimary Source = "primary"
	// SourceFallback is the content source's own unweighted search.
	SourceFallback Source = "fallback"
)

// SearchResult is a single hit. Primary and fallback results have the same shape;
// Score and Highlight are only set by the primary path.
type SearchResult struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Body        string              `json:"body"`
	Summary     string              `json:"summary,omitempty"`
	Type        string              `json:"type"`
	Slug        string              `json:"slug"`
	PublishedAt time.Time           `json:"published_at"`
	ImageURL    string              `json:"image_url,omitempty"`
	Score       *float64            `json:"score,omitempty"`
	Highlight   map[string][]string `json:"highlight,omitempty"`
	Source      Source              `json:"source"`
}

// SearchResponse is the produced search interface.
type SearchResponse struct {
	Results     []*SearchResult `json:"results"`
	Total       int             `json:"total"`
	Query       string          `json:"query"`
	Type        string          `json:"type"`
	Source      Source          `json:"source,omitempty"`
	Suggestions []string        `json:"suggestions,omitempty"`
	DidYouMean  string          `json:"did_you_mean,omitempty"`
	QueryTime   int64           `json:"query_time_ms"`
}

// EmptyResponse is the zero-result shape returned for unsearchable input and total failure.
func EmptyResponse(contentType string) *SearchResponse {
	if contentType == "" {
		contentType = TypeAll
	}
	return &SearchResponse{
		Results: []*SearchResult{},
		Total:   0,
		Query:   "",
		Type:    contentType,
	}
}
