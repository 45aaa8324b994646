package indexer

import (
	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/pkg/utils"
)

// Preprocess normalizes text for indexing (trim, collapse whitespace).
func Preprocess(text string) string {
	return utils.CollapseSpace(text)
}

// ToSearchDocument flattens an entry into its search index form. The body is the
// entry's searchable content (summary, body text, and recipe ingredients/instructions).
func ToSearchDocument(e *models.Entry) *models.SearchDocument {
	return &models.SearchDocument{
		ID:          e.ID,
		Title:       Preprocess(e.Title),
		Body:        e.SearchText(),
		Summary:     Preprocess(e.Summary),
		Type:        e.ContentType,
		Slug:        e.EffectiveSlug(),
		PublishedAt: e.PublishedOrCreated(),
		ImageURL:    models.NormalizeImageURL(e.ImageURL),
	}
}
