// Package keyword provides the inverted-index search engine that serves weighted queries.
package keyword

import (
	"context"
	"errors"

	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
)

var (
	// ErrEngineClosed is returned by every call after Close, and when an index cannot be opened.
	ErrEngineClosed = errors.New("search engine closed")
	// ErrIndexNotFound is returned when the named index does not exist.
	ErrIndexNotFound = errors.New("index not found")
	// ErrIndexExists is returned by CreateIndex when the named index already exists.
	ErrIndexExists = errors.New("index already exists")
	// ErrInvalidIndexName is returned for names that are empty or not filesystem-safe.
	ErrInvalidIndexName = errors.New("invalid index name")
)

// Engine is a named-index search engine.
type Engine interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, name string, fields []FieldMapping) error
	BulkIndex(ctx context.Context, name string, docs []*models.SearchDocument) error
	Delete(ctx context.Context, name, id string) error
	DeleteAll(ctx context.Context, name string) error
	DocCount(ctx context.Context, name string) (uint64, error)
	Search(ctx context.Context, name string, q *ranking.CompiledQuery, limit int) (*RawResult, error)
	Close() error
}

// FieldKind is how a document field is indexed.
type FieldKind int

const (
	// FieldText is analyzed full text.
	FieldText FieldKind = iota
	// FieldKeyword is indexed as a single exact token.
	FieldKeyword
	// FieldDate is a timestamp usable for sorting.
	FieldDate
)

// FieldMapping declares one indexed field.
type FieldMapping struct {
	Name string
	Kind FieldKind
}

// DefaultFieldMappings returns the mapping for SearchDocuments.
func DefaultFieldMappings() []FieldMapping {
	return []FieldMapping{
		{Name: models.FieldID, Kind: FieldKeyword},
		{Name: models.FieldType, Kind: FieldKeyword},
		{Name: models.FieldSlug, Kind: FieldKeyword},
		{Name: models.FieldImageURL, Kind: FieldKeyword},
		{Name: models.FieldTitle, Kind: FieldText},
		{Name: models.FieldBody, Kind: FieldText},
		{Name: models.FieldSummary, Kind: FieldText},
		{Name: models.FieldPublishedAt, Kind: FieldDate},
	}
}

// Hit is one raw engine match. Fields holds stored values keyed by field name;
// Fragments holds highlighted snippets keyed by field name.
type Hit struct {
	ID        string
	Score     float64
	Fields    map[string]interface{}
	Fragments map[string][]string
}

// RawResult is the engine's answer before normalization into SearchResults.
type RawResult struct {
	Hits  []*Hit
	Total uint64
}
