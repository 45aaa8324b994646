// Package storage defines the content source: the store of published entries that
// backs listing pages, entry lookups and the fallback search.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/furrow/internal/models"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("storage: entry not found")

// Sort orders entry listings.
type Sort string

const (
	// SortPublishedDesc lists newest published first.
	SortPublishedDesc Sort = "published_desc"
	// SortUpdatedDesc lists most recently updated first.
	SortUpdatedDesc Sort = "updated_desc"
)

// ParseSort returns the sort named s, defaulting to SortPublishedDesc.
func ParseSort(s string) Sort {
	if Sort(s) == SortUpdatedDesc {
		return SortUpdatedDesc
	}
	return SortPublishedDesc
}

// ContentSource defines entry persistence and the source's own unweighted search.
// A content type of "" or "all" means every type.
type ContentSource interface {
	ListByType(ctx context.Context, contentType string, limit, offset int, sort Sort) ([]*models.Entry, int, error)
	GetByIdentifier(ctx context.Context, contentType, slugOrID string) (*models.Entry, error)
	// Search matches entries containing every query word in title, summary or body,
	// most recently updated first. The int is the total number of matches.
	Search(ctx context.Context, contentType, query string, limit int) ([]*models.Entry, int, error)
	Upsert(ctx context.Context, entry *models.Entry) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, contentType string) (int, error)
	Close() error
}
