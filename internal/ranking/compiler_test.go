package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/furrow/internal/lexicon"
	"github.com/hyperjump/furrow/internal/models"
)

func compile(t *testing.T, query, contentType string) (*ParsedQuery, *CompiledQuery) {
	t.Helper()
	lex := lexicon.Default()
	pq := NewQueryAnalyzer(lex).Analyze(query)
	q := NewQueryCompiler(lex, Weights{}).Compile(pq, contentType)
	require.NotNil(t, q)
	return pq, q
}

func TestCompile_SubjectQuery(t *testing.T) {
	_, q := compile(t, "tomato", "")

	tierA := q.ClausesInTier(TierSubjectTitlePhrase)
	require.Len(t, tierA, 1)
	assert.Equal(t, ClausePhrase, tierA[0].Kind)
	assert.Equal(t, "tomato", tierA[0].Text)
	assert.Equal(t, []FieldBoost{{Field: models.FieldTitle, Boost: 15}}, tierA[0].Fields)

	tierB := q.ClausesInTier(TierSubjectTitle)
	require.Len(t, tierB, 1)
	assert.Equal(t, ClauseAnyPhrase, tierB[0].Kind)
	assert.Equal(t, "tomato", tierB[0].Text)
	assert.Equal(t, []string{"tomato", "tomatos", "tomatoes", "cherry tomato", "beefsteak tomato", "heirloom tomato"}, tierB[0].Terms)
	assert.Equal(t, []FieldBoost{{Field: models.FieldTitle, Boost: 10}}, tierB[0].Fields)

	tierC := q.ClausesInTier(TierSubjectBody)
	require.Len(t, tierC, 2)
	assert.Equal(t, ClauseAnyPhrase, tierC[0].Kind)
	assert.Equal(t, tierB[0].Terms, tierC[0].Terms)
	assert.Equal(t, []FieldBoost{
		{Field: models.FieldSummary, Boost: 8},
		{Field: models.FieldBody, Boost: 6},
	}, tierC[0].Fields)
	assert.Equal(t, ClausePhrase, tierC[1].Kind)
	assert.Equal(t, "tomato", tierC[1].Text)
	assert.Equal(t, []FieldBoost{{Field: models.FieldBody, Boost: 8}}, tierC[1].Fields)

	assert.Empty(t, q.ClausesInTier(TierAction))
	assert.Empty(t, q.ClausesInTier(TierOther))

	tierF := q.ClausesInTier(TierFallback)
	require.Len(t, tierF, 1)
	assert.Equal(t, "tomato", tierF[0].Text)
	assert.Equal(t, 1, tierF[0].Fuzziness)

	assert.Equal(t, 2, q.MinShould, "subject-focused queries need two matching clauses")
	assert.Empty(t, q.TypeFilter)
}

func TestCompile_ActionQuery(t *testing.T) {
	pq, q := compile(t, "how to grow tomatoes", models.TypeArticle)
	require.Equal(t, QueryTypeAction, pq.QueryType)

	assert.Len(t, q.ClausesInTier(TierSubjectTitlePhrase), 1)
	assert.Len(t, q.ClausesInTier(TierSubjectTitle), 1)
	assert.Len(t, q.ClausesInTier(TierSubjectBody), 2)

	tierD := q.ClausesInTier(TierAction)
	require.Len(t, tierD, 1)
	assert.Equal(t, "how grow", tierD[0].Text)
	assert.Equal(t, 1, tierD[0].Fuzziness)
	assert.Equal(t, []FieldBoost{
		{Field: models.FieldTitle, Boost: 4},
		{Field: models.FieldBody, Boost: 2},
		{Field: models.FieldSummary, Boost: 3},
	}, tierD[0].Fields)

	tierF := q.ClausesInTier(TierFallback)
	require.Len(t, tierF, 1)
	assert.Equal(t, "how to grow tomatoes", tierF[0].Text)

	assert.Equal(t, 1, q.MinShould)
	assert.Equal(t, models.TypeArticle, q.TypeFilter)
}

func TestCompile_UnknownWordKeepsFallbackTier(t *testing.T) {
	_, q := compile(t, "xyz123", models.TypeAll)

	assert.Empty(t, q.ClausesInTier(TierSubjectTitlePhrase))
	assert.Empty(t, q.ClausesInTier(TierSubjectTitle))
	assert.Empty(t, q.ClausesInTier(TierSubjectBody))
	assert.Empty(t, q.ClausesInTier(TierAction))

	tierE := q.ClausesInTier(TierOther)
	require.Len(t, tierE, 1)
	assert.Equal(t, "xyz123", tierE[0].Text)
	assert.Equal(t, []FieldBoost{
		{Field: models.FieldTitle, Boost: 2},
		{Field: models.FieldBody, Boost: 1},
		{Field: models.FieldSummary, Boost: 1.5},
	}, tierE[0].Fields)

	tierF := q.ClausesInTier(TierFallback)
	require.Len(t, tierF, 1)
	assert.Equal(t, []FieldBoost{
		{Field: models.FieldTitle, Boost: 3},
		{Field: models.FieldBody, Boost: 1},
		{Field: models.FieldSummary, Boost: 2},
	}, tierF[0].Fields)

	assert.Equal(t, 1, q.MinShould)
	assert.Empty(t, q.TypeFilter)
}

func TestCompile_PhraseSubject(t *testing.T) {
	_, q := compile(t, "cherry tomato", models.TypeRecipe)

	tierA := q.ClausesInTier(TierSubjectTitlePhrase)
	require.Len(t, tierA, 1)
	assert.Equal(t, "cherry tomato", tierA[0].Text)

	tierB := q.ClausesInTier(TierSubjectTitle)
	require.Len(t, tierB, 1)
	assert.Equal(t, []string{"cherry tomato", "cherry tomatos"}, tierB[0].Terms)

	assert.Equal(t, models.TypeRecipe, q.TypeFilter)
	assert.Equal(t, 2, q.MinShould)
}

func TestCompile_TierOrderAndFallbackAlwaysLast(t *testing.T) {
	for _, query := range []string{"tomato", "best compost for tomatoes", "xyz123", "pruning tips", "growing basil indoors"} {
		_, q := compile(t, query, "")
		require.NotEmpty(t, q.Should, query)
		assert.Equal(t, TierFallback, q.Should[len(q.Should)-1].Tier, query)
		for i := 1; i < len(q.Should); i++ {
			assert.LessOrEqual(t, string(q.Should[i-1].Tier), string(q.Should[i].Tier), query)
		}
		for _, c := range q.Should {
			assert.NotEmpty(t, c.Fields, query)
			for _, f := range c.Fields {
				assert.Greater(t, f.Boost, 0.0, query)
			}
		}
	}
}

func TestCompile_SortAndHighlight(t *testing.T) {
	_, q := compile(t, "basil", "")

	assert.Equal(t, []SortField{
		{Field: models.FieldScore, Desc: true},
		{Field: models.FieldPublishedAt, Desc: true},
	}, q.Sort)

	assert.Equal(t, HighlightPreTag, q.Highlight.PreTag)
	assert.Equal(t, HighlightPostTag, q.Highlight.PostTag)
	assert.Equal(t, []HighlightField{
		{Field: models.FieldTitle, Fragments: 1, FragmentSize: 150},
		{Field: models.FieldBody, Fragments: 2, FragmentSize: 150},
		{Field: models.FieldSummary, Fragments: 1, FragmentSize: 100},
	}, q.Highlight.Fields)
}

func TestCompile_FreshPerCall(t *testing.T) {
	lex := lexicon.Default()
	pq := NewQueryAnalyzer(lex).Analyze("tomato")
	qc := NewQueryCompiler(lex, DefaultWeights())

	a := qc.Compile(pq, "")
	b := qc.Compile(pq, "")
	assert.Equal(t, a, b)
	a.Should[0].Text = "mutated"
	a.Should[1].Terms[0] = "mutated"
	assert.Equal(t, "tomato", b.Should[0].Text)
	assert.Equal(t, "tomato", b.Should[1].Terms[0])
}

func TestCompile_CustomWeights(t *testing.T) {
	lex := lexicon.Default()
	pq := NewQueryAnalyzer(lex).Analyze("tomato")
	qc := NewQueryCompiler(lex, Weights{TitlePhrase: 20, SubjectMinShould: 1})

	q := qc.Compile(pq, "")
	assert.Equal(t, 20.0, q.ClausesInTier(TierSubjectTitlePhrase)[0].Fields[0].Boost)
	assert.Equal(t, 10.0, q.ClausesInTier(TierSubjectTitle)[0].Fields[0].Boost)
	assert.Equal(t, 1, q.MinShould)
	assert.Equal(t, 20.0, qc.Weights().TitlePhrase)
	assert.Equal(t, DefaultWeights().BodyPhrase, qc.Weights().BodyPhrase)
}

func TestSuggestions(t *testing.T) {
	qa := newTestAnalyzer()

	assert.Equal(t, []string{
		"How to grow tomato",
		"tomato care guide",
		"When to plant tomato",
		"tomato problems",
		"Harvesting tomato",
	}, Suggestions(qa.Analyze("tomato")))

	assert.Nil(t, Suggestions(qa.Analyze("xyz123")))
	assert.Nil(t, Suggestions(qa.Analyze("the")))
}
