package models

import "strings"

// MinQueryLength is the shortest trimmed query that is searched at all.
const MinQueryLength = 2

// SearchRequest is a search call from an outer surface (HTTP, CLI).
type SearchRequest struct {
	Query string `json:"query"`
	Type  string `json:"type,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Normalize trims the query, defaults the type to TypeAll and clamps the limit.
// It returns false when the query is too short to search or the type is unknown;
// an unknown type matches no content.
func (r *SearchRequest) Normalize(defaultLimit, maxLimit int) bool {
	r.Query = strings.TrimSpace(r.Query)
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	if r.Type == "" {
		r.Type = TypeAll
	}
	if r.Limit <= 0 {
		r.Limit = defaultLimit
	}
	if maxLimit > 0 && r.Limit > maxLimit {
		r.Limit = maxLimit
	}
	return len([]rune(r.Query)) >= MinQueryLength && ValidSearchType(r.Type)
}
