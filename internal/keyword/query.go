package keyword

import (
	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
)

// buildQuery translates a compiled query into a bleve boolean query.
// The type restriction is a zero-boost must clause so it filters without scoring.
func buildQuery(q *ranking.CompiledQuery) blevequery.Query {
	bq := bleve.NewBooleanQuery()
	for _, c := range q.Should {
		bq.AddShould(clauseQuery(c))
	}
	bq.SetMinShould(float64(q.MinShould))

	if q.TypeFilter != "" {
		tq := bleve.NewTermQuery(q.TypeFilter)
		tq.SetField(models.FieldType)
		tq.SetBoost(0)
		bq.AddMust(tq)
	}
	return bq
}

// clauseQuery expands a multi-field clause into a disjunction of per-field queries.
func clauseQuery(c ranking.Clause) blevequery.Query {
	parts := make([]blevequery.Query, 0, len(c.Fields))
	for _, f := range c.Fields {
		switch c.Kind {
		case ranking.ClauseAnyPhrase:
			parts = append(parts, anyPhraseQuery(c.Terms, f))
		case ranking.ClausePhrase:
			pq := bleve.NewMatchPhraseQuery(c.Text)
			pq.SetField(f.Field)
			pq.SetBoost(f.Boost)
			parts = append(parts, pq)
		default:
			mq := bleve.NewMatchQuery(c.Text)
			mq.SetField(f.Field)
			mq.SetBoost(f.Boost)
			if c.Fuzziness > 0 {
				mq.SetFuzziness(c.Fuzziness)
			}
			parts = append(parts, mq)
		}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return bleve.NewDisjunctionQuery(parts...)
}

// anyPhraseQuery ORs one phrase query per alternative. Bleve scales a disjunction's
// score by the fraction of children that matched, so every child carries the field
// boost times the number of alternatives and a single matching alternative keeps the
// full field weight.
func anyPhraseQuery(terms []string, f ranking.FieldBoost) blevequery.Query {
	if len(terms) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	boost := f.Boost * float64(len(terms))
	alts := make([]blevequery.Query, 0, len(terms))
	for _, t := range terms {
		pq := bleve.NewMatchPhraseQuery(t)
		pq.SetField(f.Field)
		pq.SetBoost(boost)
		alts = append(alts, pq)
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return bleve.NewDisjunctionQuery(alts...)
}

// sortOrder converts sort fields into bleve's "-field" notation.
func sortOrder(fields []ranking.SortField) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Desc {
			out = append(out, "-"+f.Field)
		} else {
			out = append(out, f.Field)
		}
	}
	return out
}
