// Package lexicon holds the domain vocabulary used to classify search queries:
// subject terms grouped by class, action terms, stop words and synonyms.
//
// A Lexicon is immutable once built and safe for concurrent reads.
package lexicon

import (
	"strings"
)

// Class is an ordered group of subject terms sharing a tag (e.g. "vegetable").
type Class struct {
	Name  string
	Tag   string
	Terms []string
}

// entry is a single subject term with the tag of the class that declared it.
type entry struct {
	Term   string
	Tag    string
	Phrase bool
}

// Lexicon is the read-only classification data consumed by the query analyzer.
type Lexicon struct {
	classes   []Class
	entries   []entry
	terms     []string
	exact     map[string]int // lowercase term -> index into entries
	phrases   []string
	actions   map[string]struct{}
	stopWords map[string]struct{}
	synonyms  map[string][]string
	vocab     []string
	vocabSet  map[string]struct{}
}

// New builds a Lexicon. Classes are scanned in the given order by BestMatch.
// Terms are lowercased; the first class to declare a term owns it.
func New(classes []Class, actions, stopWords []string, synonyms map[string][]string) *Lexicon {
	l := &Lexicon{
		exact:     make(map[string]int),
		actions:   toSet(actions),
		stopWords: toSet(stopWords),
		synonyms:  make(map[string][]string, len(synonyms)),
	}
	for _, c := range classes {
		kept := Class{Name: c.Name, Tag: c.Tag, Terms: make([]string, 0, len(c.Terms))}
		for _, t := range c.Terms {
			term := strings.ToLower(strings.TrimSpace(t))
			if term == "" {
				continue
			}
			kept.Terms = append(kept.Terms, term)
			if _, dup := l.exact[term]; dup {
				continue
			}
			e := entry{Term: term, Tag: c.Tag, Phrase: strings.Contains(term, " ")}
			l.exact[term] = len(l.entries)
			l.entries = append(l.entries, e)
			l.terms = append(l.terms, term)
			if e.Phrase {
				l.phrases = append(l.phrases, term)
			}
		}
		l.classes = append(l.classes, kept)
	}
	for k, v := range synonyms {
		key := strings.ToLower(strings.TrimSpace(k))
		aliases := make([]string, 0, len(v))
		for _, a := range v {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				aliases = append(aliases, a)
			}
		}
		l.synonyms[key] = aliases
	}
	l.buildVocabulary()
	return l
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}

// AllTerms returns every subject term once, in class order.
func (l *Lexicon) AllTerms() []string {
	return append([]string(nil), l.terms...)
}

// Phrases returns the multi-word subject terms in class order.
func (l *Lexicon) Phrases() []string {
	return append([]string(nil), l.phrases...)
}

// TagOf returns the class tag of an exact subject term, as reported by query analysis.
func (l *Lexicon) TagOf(term string) (string, bool) {
	i, ok := l.exact[strings.ToLower(term)]
	if !ok {
		return "", false
	}
	return l.entries[i].Tag, true
}

// IsKnownSubject reports whether token resolves to a subject term via BestMatch.
func (l *Lexicon) IsKnownSubject(token string) bool {
	_, ok := l.BestMatch(token)
	return ok
}

// BestMatch resolves token to a canonical subject term. An exact match wins.
// Otherwise the first term, scanning classes and their terms in declared order,
// that contains the token or is contained by it is returned.
func (l *Lexicon) BestMatch(token string) (string, bool) {
	tok := strings.ToLower(strings.TrimSpace(token))
	if tok == "" {
		return "", false
	}
	if i, ok := l.exact[tok]; ok {
		return l.entries[i].Term, true
	}
	for _, c := range l.classes {
		for _, term := range c.Terms {
			if strings.Contains(tok, term) || strings.Contains(term, tok) {
				return term, true
			}
		}
	}
	return "", false
}

// Synonyms returns term, its plural/singular toggle and any declared aliases,
// deduplicated in that order. Lookup of aliases is by exact lowercase match.
func (l *Lexicon) Synonyms(term string) []string {
	lower := strings.ToLower(term)
	out := []string{term}
	seen := map[string]struct{}{term: {}}
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if strings.HasSuffix(lower, "s") && len(lower) > 3 {
		add(lower[:len(lower)-1])
	} else {
		add(lower + "s")
	}
	for _, alias := range l.synonyms[lower] {
		add(alias)
	}
	return out
}

// IsActionTerm reports membership in the action/instruction vocabulary.
func (l *Lexicon) IsActionTerm(token string) bool {
	_, ok := l.actions[strings.ToLower(token)]
	return ok
}

// IsStopWord reports membership in the stop-word set.
func (l *Lexicon) IsStopWord(token string) bool {
	_, ok := l.stopWords[strings.ToLower(token)]
	return ok
}
