package lexicon

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minCorrectableLength is the shortest word Correct will try to fix.
const minCorrectableLength = 4

// buildVocabulary collects every single word the lexicon knows: words of subject terms
// in class order, then action words and synonym words in sorted order.
func (l *Lexicon) buildVocabulary() {
	l.vocabSet = make(map[string]struct{})
	add := func(w string) {
		if _, ok := l.vocabSet[w]; ok || w == "" {
			return
		}
		l.vocabSet[w] = struct{}{}
		l.vocab = append(l.vocab, w)
	}
	for _, term := range l.terms {
		for _, w := range strings.Fields(term) {
			add(w)
		}
	}
	var extra []string
	for w := range l.actions {
		extra = append(extra, w)
	}
	for k, aliases := range l.synonyms {
		extra = append(extra, strings.Fields(k)...)
		for _, a := range aliases {
			extra = append(extra, strings.Fields(a)...)
		}
	}
	sort.Strings(extra)
	for _, w := range extra {
		add(w)
	}
}

// Correct replaces words the lexicon does not know with the closest vocabulary word
// and reports whether anything changed. Stop words, short words and words containing
// digits are kept as typed. Ties go to the word found first in vocabulary order.
func (l *Lexicon) Correct(query string) (string, bool) {
	words := strings.Fields(strings.ToLower(query))
	changed := false
	for i, w := range words {
		if fixed, ok := l.correctWord(w); ok {
			words[i] = fixed
			changed = true
		}
	}
	if !changed {
		return "", false
	}
	return strings.Join(words, " "), true
}

func (l *Lexicon) correctWord(w string) (string, bool) {
	n := utf8.RuneCountInString(w)
	if n < minCorrectableLength || l.IsStopWord(w) || strings.IndexFunc(w, unicode.IsDigit) >= 0 {
		return "", false
	}
	if _, ok := l.vocabSet[w]; ok {
		return "", false
	}
	if _, ok := l.BestMatch(w); ok {
		return "", false
	}
	maxDistance := 1
	if n >= 7 {
		maxDistance = 2
	}
	best, bestDistance := "", maxDistance+1
	for _, candidate := range l.vocab {
		if abs(utf8.RuneCountInString(candidate)-n) > maxDistance {
			continue
		}
		if d := editDistance(w, candidate); d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best, best != ""
}

// editDistance is the Damerau-Levenshtein distance: insertions, deletions,
// substitutions and adjacent transpositions each cost one.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	d := make([][]int, len(ra)+1)
	for i := range d {
		d[i] = make([]int, len(rb)+1)
		d[i][0] = i
	}
	for j := range d[0] {
		d[0][j] = j
	}
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+cost)
			}
		}
	}
	return d[len(ra)][len(rb)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
