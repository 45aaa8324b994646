// Package ranking turns free-text queries into weighted search requests: the analyzer
// classifies query tokens against the domain lexicon and the compiler builds a tiered
// boolean query from the classification.
package ranking

// QueryType is the intent category of a parsed query.
type QueryType string

const (
	// QueryTypeSubject means the query is mostly about a plant, tool or other subject.
	QueryTypeSubject QueryType = "subject-focused"
	// QueryTypeAction means the query is mostly instructions ("how to grow", "when to prune").
	QueryTypeAction QueryType = "action-focused"
	// QueryTypeGeneral means neither subjects nor actions dominate.
	QueryTypeGeneral QueryType = "general"
)

// String returns the wire name of the query type.
func (t QueryType) String() string { return string(t) }

// ParsedQuery is the per-request classification of a raw query.
// Every surviving token lands in exactly one of the three term lists.
type ParsedQuery struct {
	SubjectTerms   []string  `json:"subjectTerms"`
	ActionTerms    []string  `json:"actionTerms"`
	OtherTerms     []string  `json:"otherTerms"`
	OriginalQuery  string    `json:"originalQuery"`
	HasSubjects    bool      `json:"hasSubjects"`
	PrimarySubject string    `json:"primarySubject,omitempty"`
	QueryType      QueryType `json:"queryType"`
	// SubjectTags maps each subject term to the tag of its lexicon class.
	SubjectTags map[string]string `json:"subjectTags,omitempty"`
}

// Primary returns the first subject term, if any.
func (p *ParsedQuery) Primary() (string, bool) {
	return p.PrimarySubject, p.PrimarySubject != ""
}

// Tier identifies the relevance tier a clause belongs to.
type Tier string

const (
	TierSubjectTitlePhrase Tier = "A"
	TierSubjectTitle       Tier = "B"
	TierSubjectBody        Tier = "C"
	TierAction             Tier = "D"
	TierOther              Tier = "E"
	TierFallback           Tier = "F"
)

// ClauseKind is how a clause's text is matched.
type ClauseKind int

const (
	// ClauseMatch matches when any analyzed term of Text is found.
	ClauseMatch ClauseKind = iota
	// ClausePhrase matches Text as an exact phrase.
	ClausePhrase
	// ClauseAnyPhrase matches when any of Terms is found as a phrase. Matching one
	// alternative earns the full field boost, however many alternatives there are.
	ClauseAnyPhrase
)

// String returns a readable name for the clause kind.
func (k ClauseKind) String() string {
	switch k {
	case ClauseMatch:
		return "match"
	case ClausePhrase:
		return "phrase"
	case ClauseAnyPhrase:
		return "any-phrase"
	default:
		return "unknown"
	}
}

// FieldBoost pairs a document field with a score multiplier.
type FieldBoost struct {
	Field string  `json:"field"`
	Boost float64 `json:"boost"`
}

// Clause is one should-clause of a compiled query. A clause with several fields
// matches when any field matches. Terms holds the alternatives of an any-phrase
// clause; Text is then the subject they were expanded from.
type Clause struct {
	Tier      Tier         `json:"tier"`
	Kind      ClauseKind   `json:"kind"`
	Text      string       `json:"text"`
	Terms     []string     `json:"terms,omitempty"`
	Fields    []FieldBoost `json:"fields"`
	Fuzziness int          `json:"fuzziness,omitempty"`
}

// HighlightField requests highlighted fragments for one field.
type HighlightField struct {
	Field        string `json:"field"`
	Fragments    int    `json:"fragments"`
	FragmentSize int    `json:"fragmentSize"`
}

// HighlightSpec describes which fields to highlight and the emphasis markers.
type HighlightSpec struct {
	Fields  []HighlightField `json:"fields"`
	PreTag  string           `json:"preTag"`
	PostTag string           `json:"postTag"`
}

// SortField orders results by a field; "_score" is the relevance score.
type SortField struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// CompiledQuery is an engine-agnostic weighted boolean query. It is built fresh for
// every request and never cached.
type CompiledQuery struct {
	Should     []Clause      `json:"should"`
	MinShould  int           `json:"minShould"`
	TypeFilter string        `json:"typeFilter,omitempty"`
	Highlight  HighlightSpec `json:"highlight"`
	Sort       []SortField   `json:"sort"`
	Original   string        `json:"original"`
}

// ClausesInTier returns the clauses belonging to tier, in order.
func (q *CompiledQuery) ClausesInTier(tier Tier) []Clause {
	var out []Clause
	for _, c := range q.Should {
		if c.Tier == tier {
			out = append(out, c)
		}
	}
	return out
}
