package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_lexicon.yaml
var defaultLexiconYAML []byte

// File is the on-disk (YAML) shape of a lexicon.
type File struct {
	Classes []struct {
		Name  string   `yaml:"name"`
		Tag   string   `yaml:"tag"`
		Terms []string `yaml:"terms"`
	} `yaml:"classes"`
	Actions   []string            `yaml:"actions"`
	StopWords []string            `yaml:"stop_words"`
	Synonyms  map[string][]string `yaml:"synonyms"`
}

// Default builds the built-in garden lexicon. Callers construct it once at startup
// and pass it to the components that need it.
func Default() *Lexicon {
	l, err := Parse(defaultLexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded default is invalid: %v", err))
	}
	return l
}

// Load reads a lexicon from a YAML file. An empty path yields Default().
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return Parse(data)
}

// Parse builds a lexicon from YAML bytes.
func Parse(data []byte) (*Lexicon, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if len(f.Classes) == 0 {
		return nil, fmt.Errorf("lexicon has no classes")
	}
	seen := make(map[string]struct{}, len(f.Classes))
	classes := make([]Class, 0, len(f.Classes))
	for i, c := range f.Classes {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("lexicon class %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("lexicon class %q declared twice", name)
		}
		seen[name] = struct{}{}
		tag := c.Tag
		if tag == "" {
			tag = name
		}
		classes = append(classes, Class{Name: name, Tag: tag, Terms: c.Terms})
	}
	return New(classes, f.Actions, f.StopWords, f.Synonyms), nil
}
