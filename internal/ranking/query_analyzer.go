package ranking

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/furrow/internal/lexicon"
)

// QueryAnalyzer classifies query tokens into subject, action and residual terms.
// It holds no per-request state and is safe for concurrent use.
type QueryAnalyzer struct {
	lex *lexicon.Lexicon
}

// NewQueryAnalyzer creates an analyzer over lex.
func NewQueryAnalyzer(lex *lexicon.Lexicon) *QueryAnalyzer {
	return &QueryAnalyzer{lex: lex}
}

// Analyze parses a query string and returns its classification.
func (qa *QueryAnalyzer) Analyze(query string) *ParsedQuery {
	clean := normalize(query)
	result := &ParsedQuery{
		SubjectTerms:  []string{},
		ActionTerms:   []string{},
		OtherTerms:    []string{},
		OriginalQuery: query,
	}

	// subject term -> tokens that resolved to it
	sources := make(map[string][]string)
	for _, token := range qa.tokenize(clean) {
		if term, ok := qa.lex.BestMatch(token); ok {
			if _, seen := sources[term]; !seen {
				result.SubjectTerms = append(result.SubjectTerms, term)
			}
			sources[term] = append(sources[term], token)
			continue
		}
		if qa.lex.IsActionTerm(token) {
			if !containsString(result.ActionTerms, token) {
				result.ActionTerms = append(result.ActionTerms, token)
			}
			continue
		}
		result.OtherTerms = append(result.OtherTerms, token)
	}

	result.SubjectTerms = qa.applyPhrases(clean, result.SubjectTerms, sources)

	result.HasSubjects = len(result.SubjectTerms) > 0
	if result.HasSubjects {
		result.PrimarySubject = result.SubjectTerms[0]
		result.SubjectTags = make(map[string]string, len(result.SubjectTerms))
		for _, term := range result.SubjectTerms {
			if tag, ok := qa.lex.TagOf(term); ok {
				result.SubjectTags[term] = tag
			}
		}
	}
	result.QueryType = classifyQuery(len(result.SubjectTerms), len(result.ActionTerms))
	return result
}

// tokenize splits on whitespace runs and drops one-character tokens and stop words.
func (qa *QueryAnalyzer) tokenize(clean string) []string {
	words := strings.Fields(clean)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 1 || qa.lex.IsStopWord(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// applyPhrases adds every lexicon phrase found literally in the query and drops the
// single-word subjects it supersedes: the phrase's own words, and any subject that was
// resolved only from those words (e.g. "sweet" -> "sweet corn" inside "sweet pea").
func (qa *QueryAnalyzer) applyPhrases(clean string, subjects []string, sources map[string][]string) []string {
	confirmed := make(map[string]struct{})
	for _, phrase := range qa.lex.Phrases() {
		if !strings.Contains(clean, phrase) {
			continue
		}
		confirmed[phrase] = struct{}{}
		if !containsString(subjects, phrase) {
			subjects = append(subjects, phrase)
		}
		words := strings.Fields(phrase)
		kept := subjects[:0]
		for _, s := range subjects {
			if _, ok := confirmed[s]; ok {
				kept = append(kept, s)
				continue
			}
			if containsString(words, s) || allWithin(sources[s], words) {
				continue
			}
			kept = append(kept, s)
		}
		subjects = kept
	}
	return subjects
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func classifyQuery(subjects, actions int) QueryType {
	switch {
	case subjects > 0 && subjects >= actions:
		return QueryTypeSubject
	case actions > subjects:
		return QueryTypeAction
	default:
		return QueryTypeGeneral
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// allWithin reports whether every token is one of words. Empty tokens yields false.
func allWithin(tokens, words []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if !containsString(words, t) {
			return false
		}
	}
	return true
}
