// Package cli formats search output for the furrow command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
	"github.com/hyperjump/furrow/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (SearchOutputFormat, error) {
	switch f := SearchOutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes a search response to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Type, r.Slug, r.Title, scoreLabel(r))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

// WriteAnalysis writes the analyzer's view of a query.
func WriteAnalysis(w io.Writer, parsed *ranking.ParsedQuery, format SearchOutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, parsed)
	}
	fmt.Fprintf(w, "query:    %q\n", parsed.OriginalQuery)
	fmt.Fprintf(w, "type:     %s\n", parsed.QueryType)
	fmt.Fprintf(w, "subjects: %s\n", strings.Join(parsed.SubjectTerms, ", "))
	if len(parsed.SubjectTags) > 0 {
		tags := make([]string, 0, len(parsed.SubjectTerms))
		for _, term := range parsed.SubjectTerms {
			if tag, ok := parsed.SubjectTags[term]; ok {
				tags = append(tags, term+"="+tag)
			}
		}
		fmt.Fprintf(w, "tags:     %s\n", strings.Join(tags, ", "))
	}
	fmt.Fprintf(w, "actions:  %s\n", strings.Join(parsed.ActionTerms, ", "))
	fmt.Fprintf(w, "other:    %s\n", strings.Join(parsed.OtherTerms, ", "))
	if parsed.PrimarySubject != "" {
		fmt.Fprintf(w, "primary:  %s\n", parsed.PrimarySubject)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms", response.Total, response.QueryTime)
	if response.Source != "" {
		fmt.Fprintf(w, " (%s)", response.Source)
	}
	fmt.Fprint(w, "\n\n")
	for i, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. [%s] %s  %s\n", i+1, r.Type, r.Title, scoreLabel(r))
		fmt.Fprintf(w, "Slug: %s\n", r.Slug)
		if !r.PublishedAt.IsZero() {
			fmt.Fprintf(w, "Published: %s\n", r.PublishedAt.Format("2006-01-02"))
		}
		if excerpt := excerptOf(r); excerpt != "" {
			fmt.Fprintf(w, "\n%s\n", excerpt)
		}
		fmt.Fprintln(w)
	}
	if len(response.Suggestions) > 0 {
		fmt.Fprintln(w, "Try also:")
		for _, s := range response.Suggestions {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
}

func scoreLabel(r *models.SearchResult) string {
	if r.Score == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *r.Score)
}

// excerptOf prefers a highlighted body fragment over the plain excerpt.
func excerptOf(r *models.SearchResult) string {
	for _, field := range []string{models.FieldBody, models.FieldSummary, models.FieldTitle} {
		if frags := r.Highlight[field]; len(frags) > 0 {
			return strings.Join(frags, " … ")
		}
	}
	return utils.Truncate(r.Body, 200)
}
