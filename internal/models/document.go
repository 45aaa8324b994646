// Package models defines the content entries, index documents, queries and search results.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Content types.
const (
	TypeArticle = "article"
	TypeRecipe  = "recipe"
	// TypeAll is the search-time wildcard meaning "every content type".
	TypeAll = "all"
)

// ContentTypes lists the concrete content types in display order.
var ContentTypes = []string{TypeArticle, TypeRecipe}

// ValidContentType reports whether t is a concrete content type.
func ValidContentType(t string) bool {
	return t == TypeArticle || t == TypeRecipe
}

// ValidSearchType reports whether t can scope a search: a content type or TypeAll.
func ValidSearchType(t string) bool {
	return t == TypeAll || ValidContentType(t)
}

// Search index field names.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldBody        = "body"
	FieldSummary     = "summary"
	FieldType        = "type"
	FieldSlug        = "slug"
	FieldPublishedAt = "published_at"
	FieldImageURL    = "image_url"
	// FieldScore is the pseudo-field for relevance in sort specs.
	FieldScore = "_score"
)

// RichText is a node of a structured rich-text document as delivered by the CMS.
// Text nodes carry Value; container nodes carry Content.
type RichText struct {
	NodeType string      `json:"nodeType" yaml:"node_type"`
	Value    string      `json:"value,omitempty" yaml:"value,omitempty"`
	Content  []*RichText `json:"content,omitempty" yaml:"content,omitempty"`
}

// inlineNodes are rich-text containers that do not start a new block of text.
var inlineNodes = map[string]bool{
	"text":            true,
	"hyperlink":       true,
	"entry-hyperlink": true,
	"asset-hyperlink": true,
}

// PlainText flattens the node tree into a single line of text. Text inside one block
// is concatenated as-is; blocks are separated by a space.
func (n *RichText) PlainText() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.writeText(&b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func (n *RichText) writeText(b *strings.Builder) {
	if n == nil {
		return
	}
	b.WriteString(n.Value)
	for _, c := range n.Content {
		c.writeText(b)
	}
	if !inlineNodes[n.NodeType] {
		b.WriteByte(' ')
	}
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Amount string `json:"amount,omitempty" yaml:"amount,omitempty"`
	Name   string `json:"name" yaml:"name"`
}

// Entry is a piece of published content (article or recipe) held by the content source.
type Entry struct {
	ID           string       `json:"id" yaml:"id" db:"id"`
	ContentType  string       `json:"type" yaml:"type" db:"content_type"`
	Title        string       `json:"title" yaml:"title" db:"title"`
	Slug         string       `json:"slug" yaml:"slug" db:"slug"`
	NewSlug      string       `json:"new_slug,omitempty" yaml:"new_slug,omitempty" db:"new_slug"`
	Summary      string       `json:"summary,omitempty" yaml:"summary,omitempty" db:"summary"`
	Body         *RichText    `json:"body,omitempty" yaml:"body,omitempty" db:"body"`
	Ingredients  []Ingredient `json:"ingredients,omitempty" yaml:"ingredients,omitempty" db:"ingredients"`
	Instructions []string     `json:"instructions,omitempty" yaml:"instructions,omitempty" db:"instructions"`
	ImageURL     string       `json:"image_url,omitempty" yaml:"image_url,omitempty" db:"image_url"`
	PublishedAt  time.Time    `json:"published_at" yaml:"published_at" db:"published_at"`
	CreatedAt    time.Time    `json:"created_at" yaml:"-" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"-" db:"updated_at"`
}

// EffectiveSlug returns NewSlug when set, otherwise Slug.
func (e *Entry) EffectiveSlug() string {
	if e.NewSlug != "" {
		return e.NewSlug
	}
	return e.Slug
}

// SearchText is the searchable content of an entry: summary and body text, and for
// recipes the ingredient list and instructions.
func (e *Entry) SearchText() string {
	content := e.Body.PlainText()
	if e.ContentType == TypeRecipe {
		if len(e.Ingredients) > 0 {
			names := make([]string, 0, len(e.Ingredients))
			for _, ing := range e.Ingredients {
				if line := strings.TrimSpace(ing.Amount + " " + ing.Name); line != "" {
					names = append(names, line)
				}
			}
			content = fmt.Sprintf("Ingredients: %s. %s", strings.Join(names, ", "), content)
		}
		if len(e.Instructions) > 0 {
			content = content + " Instructions: " + strings.Join(e.Instructions, " ")
		}
	}
	if e.Summary != "" {
		content = e.Summary + " " + content
	}
	return strings.Join(strings.Fields(content), " ")
}

// PublishedOrCreated returns PublishedAt, or CreatedAt when the entry has no publish date.
func (e *Entry) PublishedOrCreated() time.Time {
	if e.PublishedAt.IsZero() {
		return e.CreatedAt
	}
	return e.PublishedAt
}

// SearchDocument is the flattened form of an Entry stored in the search index.
type SearchDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Summary     string    `json:"summary,omitempty"`
	Type        string    `json:"type"`
	Slug        string    `json:"slug"`
	PublishedAt time.Time `json:"published_at"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// NormalizeImageURL adds an https scheme to protocol-relative asset URLs.
func NormalizeImageURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
