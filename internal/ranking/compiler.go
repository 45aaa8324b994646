package ranking

import (
	"strings"

	"github.com/hyperjump/furrow/internal/lexicon"
	"github.com/hyperjump/furrow/internal/models"
)

// Emphasis markers wrapped around highlighted terms.
const (
	HighlightPreTag  = "<mark>"
	HighlightPostTag = "</mark>"
)

// QueryCompiler builds tiered boolean queries from parsed queries.
type QueryCompiler struct {
	lex     *lexicon.Lexicon
	weights Weights
}

// NewQueryCompiler creates a compiler. Zero weights fall back to DefaultWeights.
func NewQueryCompiler(lex *lexicon.Lexicon, weights Weights) *QueryCompiler {
	return &QueryCompiler{lex: lex, weights: weights.WithDefaults()}
}

// Weights returns the boosts in effect.
func (qc *QueryCompiler) Weights() Weights {
	return qc.weights
}

// Compile turns pq into a weighted should-group. contentType restricts results to one
// content type; "" or "all" means no restriction.
func (qc *QueryCompiler) Compile(pq *ParsedQuery, contentType string) *CompiledQuery {
	w := qc.weights
	q := &CompiledQuery{
		Should:    make([]Clause, 0, 4*len(pq.SubjectTerms)+3),
		MinShould: 1,
		Highlight: DefaultHighlight(),
		Sort: []SortField{
			{Field: models.FieldScore, Desc: true},
			{Field: models.FieldPublishedAt, Desc: true},
		},
		Original: strings.TrimSpace(pq.OriginalQuery),
	}
	if contentType != "" && contentType != models.TypeAll {
		q.TypeFilter = contentType
	}

	for _, subject := range pq.SubjectTerms {
		q.Should = append(q.Should, Clause{
			Tier:   TierSubjectTitlePhrase,
			Kind:   ClausePhrase,
			Text:   subject,
			Fields: []FieldBoost{{Field: models.FieldTitle, Boost: w.TitlePhrase}},
		})
	}
	for _, subject := range pq.SubjectTerms {
		q.Should = append(q.Should, Clause{
			Tier:   TierSubjectTitle,
			Kind:   ClauseAnyPhrase,
			Text:   subject,
			Terms:  qc.lex.Synonyms(subject),
			Fields: []FieldBoost{{Field: models.FieldTitle, Boost: w.TitleSynonyms}},
		})
	}
	for _, subject := range pq.SubjectTerms {
		q.Should = append(q.Should,
			Clause{
				Tier:  TierSubjectBody,
				Kind:  ClauseAnyPhrase,
				Text:  subject,
				Terms: qc.lex.Synonyms(subject),
				Fields: []FieldBoost{
					{Field: models.FieldSummary, Boost: w.SummarySynonyms},
					{Field: models.FieldBody, Boost: w.BodySynonyms},
				},
			},
			Clause{
				Tier:   TierSubjectBody,
				Kind:   ClausePhrase,
				Text:   subject,
				Fields: []FieldBoost{{Field: models.FieldBody, Boost: w.BodyPhrase}},
			},
		)
	}

	if len(pq.ActionTerms) > 0 {
		q.Should = append(q.Should, Clause{
			Tier: TierAction,
			Kind: ClauseMatch,
			Text: strings.Join(pq.ActionTerms, " "),
			Fields: []FieldBoost{
				{Field: models.FieldTitle, Boost: w.ActionTitle},
				{Field: models.FieldBody, Boost: w.ActionBody},
				{Field: models.FieldSummary, Boost: w.ActionSummary},
			},
			Fuzziness: w.Fuzziness,
		})
	}
	if len(pq.OtherTerms) > 0 {
		q.Should = append(q.Should, Clause{
			Tier: TierOther,
			Kind: ClauseMatch,
			Text: strings.Join(pq.OtherTerms, " "),
			Fields: []FieldBoost{
				{Field: models.FieldTitle, Boost: w.OtherTitle},
				{Field: models.FieldBody, Boost: w.OtherBody},
				{Field: models.FieldSummary, Boost: w.OtherSummary},
			},
			Fuzziness: w.Fuzziness,
		})
	}

	// Tier F is unconditional so recall is never worse than a plain match.
	q.Should = append(q.Should, Clause{
		Tier: TierFallback,
		Kind: ClauseMatch,
		Text: q.Original,
		Fields: []FieldBoost{
			{Field: models.FieldTitle, Boost: w.FallbackTitle},
			{Field: models.FieldBody, Boost: w.FallbackBody},
			{Field: models.FieldSummary, Boost: w.FallbackSummary},
		},
		Fuzziness: w.Fuzziness,
	})

	if pq.QueryType == QueryTypeSubject && len(pq.SubjectTerms) > 0 {
		q.MinShould = w.SubjectMinShould
	}
	return q
}

// DefaultHighlight returns the highlight request used for every search.
func DefaultHighlight() HighlightSpec {
	return HighlightSpec{
		Fields: []HighlightField{
			{Field: models.FieldTitle, Fragments: 1, FragmentSize: 150},
			{Field: models.FieldBody, Fragments: 2, FragmentSize: 150},
			{Field: models.FieldSummary, Fragments: 1, FragmentSize: 100},
		},
		PreTag:  HighlightPreTag,
		PostTag: HighlightPostTag,
	}
}
