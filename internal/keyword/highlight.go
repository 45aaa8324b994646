package keyword

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight/format/html"
	"github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	simplehl "github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"

	"github.com/hyperjump/furrow/internal/ranking"
)

// fieldHighlighter produces up to n fragments for one field.
type fieldHighlighter struct {
	field string
	n     int
	hl    *simplehl.Highlighter
}

// newHighlighters builds one bleve highlighter per requested field, each with its own
// fragment size and the spec's emphasis markers.
func newHighlighters(spec ranking.HighlightSpec) []fieldHighlighter {
	formatter := html.NewFragmentFormatter(spec.PreTag, spec.PostTag)
	out := make([]fieldHighlighter, 0, len(spec.Fields))
	for _, hf := range spec.Fields {
		if hf.Fragments <= 0 || hf.FragmentSize <= 0 {
			continue
		}
		out = append(out, fieldHighlighter{
			field: hf.Field,
			n:     hf.Fragments,
			hl:    simplehl.NewHighlighter(simple.NewFragmenter(hf.FragmentSize), formatter, simplehl.DefaultSeparator),
		})
	}
	return out
}

// highlightHit fills hit.Fragments for every highlighted field that matched.
func highlightHit(idx bleve.Index, hit *Hit, dm *search.DocumentMatch, highlighters []fieldHighlighter) error {
	if len(highlighters) == 0 || len(dm.Locations) == 0 {
		return nil
	}
	doc, err := idx.Document(dm.ID)
	if err != nil {
		return fmt.Errorf("load %s for highlighting: %w", dm.ID, err)
	}
	if doc == nil {
		return nil
	}
	for _, fh := range highlighters {
		if len(dm.Locations[fh.field]) == 0 {
			continue
		}
		frags := fh.hl.BestFragmentsInField(dm, doc, fh.field, fh.n)
		if len(frags) == 0 {
			continue
		}
		if hit.Fragments == nil {
			hit.Fragments = make(map[string][]string)
		}
		hit.Fragments[fh.field] = frags
	}
	return nil
}
