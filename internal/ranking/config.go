package ranking

// Weights holds the per-tier boosts used by the query compiler. Changing them changes
// result ordering; the ranking tests pin the defaults.
type Weights struct {
	// Tier A: exact subject phrase in the title.
	TitlePhrase float64 `yaml:"title_phrase"` // default: 15
	// Tier B: synonym-expanded subject in the title.
	TitleSynonyms float64 `yaml:"title_synonyms"` // default: 10
	// Tier C: synonym-expanded subject in summary/body, exact subject phrase in body.
	SummarySynonyms float64 `yaml:"summary_synonyms"` // default: 8
	BodySynonyms    float64 `yaml:"body_synonyms"`    // default: 6
	BodyPhrase      float64 `yaml:"body_phrase"`      // default: 8

	// Tier D: action terms.
	ActionTitle   float64 `yaml:"action_title"`   // default: 4
	ActionBody    float64 `yaml:"action_body"`    // default: 2
	ActionSummary float64 `yaml:"action_summary"` // default: 3

	// Tier E: residual terms.
	OtherTitle   float64 `yaml:"other_title"`   // default: 2
	OtherBody    float64 `yaml:"other_body"`    // default: 1
	OtherSummary float64 `yaml:"other_summary"` // default: 1.5

	// Tier F: the whole original query.
	FallbackTitle   float64 `yaml:"fallback_title"`   // default: 3
	FallbackBody    float64 `yaml:"fallback_body"`    // default: 1
	FallbackSummary float64 `yaml:"fallback_summary"` // default: 2

	// Fuzziness is the edit distance for typo-tolerant tiers (D, E, F).
	Fuzziness int `yaml:"fuzziness"` // default: 1
	// SubjectMinShould is the number of should-clauses a subject-focused query must match.
	SubjectMinShould int `yaml:"subject_min_should"` // default: 2
}

// DefaultWeights returns the default tier boosts.
func DefaultWeights() Weights {
	return Weights{
		TitlePhrase:      15,
		TitleSynonyms:    10,
		SummarySynonyms:  8,
		BodySynonyms:     6,
		BodyPhrase:       8,
		ActionTitle:      4,
		ActionBody:       2,
		ActionSummary:    3,
		OtherTitle:       2,
		OtherBody:        1,
		OtherSummary:     1.5,
		FallbackTitle:    3,
		FallbackBody:     1,
		FallbackSummary:  2,
		Fuzziness:        1,
		SubjectMinShould: 2,
	}
}

// WithDefaults returns w with every zero field replaced by its default.
func (w Weights) WithDefaults() Weights {
	d := DefaultWeights()
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&w.TitlePhrase, d.TitlePhrase)
	fill(&w.TitleSynonyms, d.TitleSynonyms)
	fill(&w.SummarySynonyms, d.SummarySynonyms)
	fill(&w.BodySynonyms, d.BodySynonyms)
	fill(&w.BodyPhrase, d.BodyPhrase)
	fill(&w.ActionTitle, d.ActionTitle)
	fill(&w.ActionBody, d.ActionBody)
	fill(&w.ActionSummary, d.ActionSummary)
	fill(&w.OtherTitle, d.OtherTitle)
	fill(&w.OtherBody, d.OtherBody)
	fill(&w.OtherSummary, d.OtherSummary)
	fill(&w.FallbackTitle, d.FallbackTitle)
	fill(&w.FallbackBody, d.FallbackBody)
	fill(&w.FallbackSummary, d.FallbackSummary)
	if w.Fuzziness == 0 {
		w.Fuzziness = d.Fuzziness
	}
	if w.SubjectMinShould == 0 {
		w.SubjectMinShould = d.SubjectMinShould
	}
	return w
}
