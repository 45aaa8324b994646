package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/furrow/internal/models"
	"github.com/hyperjump/furrow/internal/ranking"
)

func sampleResponse() *models.SearchResponse {
	score := 3.25
	return &models.SearchResponse{
		Query:     "tomato",
		Type:      models.TypeAll,
		Source:    models.SourcePrimary,
		Total:     2,
		QueryTime: 12,
		Results: []*models.SearchResult{
			{
				ID:          "a1",
				Title:       "Growing Tomatoes",
				Type:        models.TypeArticle,
				Slug:        "growing-tomatoes",
				Body:        "Plain excerpt",
				PublishedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				Score:       &score,
				Highlight:   map[string][]string{models.FieldBody: {"grow <mark>tomatoes</mark> in pots"}},
				Source:      models.SourcePrimary,
			},
			{
				ID:     "r1",
				Title:  "Tomato Soup",
				Type:   models.TypeRecipe,
				Slug:   "tomato-soup",
				Body:   "Roast the tomatoes",
				Source: models.SourceFallback,
			},
		},
		Suggestions: []string{"How to grow tomato"},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != "tomato" || decoded.Total != 2 || len(decoded.Results) != 2 {
		t.Errorf("decoded: %+v", decoded)
	}
	if decoded.Results[1].Score != nil {
		t.Error("fallback result should have no score")
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{
		"Found 2 results in 12ms (primary)",
		"1. [article] Growing Tomatoes  3.2500",
		"Published: 2024-03-01",
		"grow <mark>tomatoes</mark> in pots",
		"2. [recipe] Tomato Soup  -",
		"Roast the tomatoes",
		"How to grow tomato",
	} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Contains(out, "Plain excerpt") {
		t.Error("highlight should replace the plain excerpt")
	}
}

func TestWriteSearchResults_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputCompact); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "article\tgrowing-tomatoes\tGrowing Tomatoes\t3.2500" {
		t.Errorf("line 0: %q", lines[0])
	}
}

func TestWriteSearchResults_EmptyText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, models.EmptyResponse(""), OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Found 0 results") {
		t.Errorf("got %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    SearchOutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{" compact ", OutputCompact, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteAnalysis(t *testing.T) {
	parsed := &ranking.ParsedQuery{
		OriginalQuery:  "prune roses",
		SubjectTerms:   []string{"rose"},
		ActionTerms:    []string{"prune"},
		HasSubjects:    true,
		PrimarySubject: "rose",
		SubjectTags:    map[string]string{"rose": "flower"},
	}
	var buf bytes.Buffer
	if err := WriteAnalysis(&buf, parsed, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{`query:    "prune roses"`, "subjects: rose", "actions:  prune", "primary:  rose", "tags:     rose=flower"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("missing %q:\n%s", sub, buf.String())
		}
	}

	buf.Reset()
	if err := WriteAnalysis(&buf, parsed, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"primarySubject": "rose"`) {
		t.Errorf("json analysis: %s", buf.String())
	}
}
