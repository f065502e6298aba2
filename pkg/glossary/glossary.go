// Package glossary loads the business-term dictionary and few-shot
// examples from YAML and answers deterministic alias lookups. It is
// entirely independent of embedding retrieval.
package glossary

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nlquery/nlq-engine/pkg/models"
)

// Glossary holds the loaded term dictionary and worked examples.
type Glossary struct {
	terms    map[string]*models.GlossaryTerm
	examples []models.QueryExample

	// aliases is sorted so lookups walk in a fixed order.
	aliases []aliasEntry

	logger *zap.Logger
}

type aliasEntry struct {
	alias   string // lowercase
	termKey string
}

// Load reads glossary.yml and examples.yml from dir. Missing files are
// not an error; the glossary is simply inert without them.
func Load(dir string, logger *zap.Logger) (*Glossary, error) {
	g := &Glossary{
		terms:  map[string]*models.GlossaryTerm{},
		logger: logger.Named("glossary"),
	}

	if err := g.loadTerms(filepath.Join(dir, "glossary.yml")); err != nil {
		return nil, err
	}
	if err := g.loadExamples(filepath.Join(dir, "examples.yml")); err != nil {
		return nil, err
	}
	g.buildAliasIndex()

	g.logger.Info("semantic config loaded",
		zap.String("dir", dir),
		zap.Int("terms", len(g.terms)),
		zap.Int("examples", len(g.examples)))

	return g, nil
}

func (g *Glossary) loadTerms(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read glossary: %w", err)
	}

	raw := map[string]*models.GlossaryTerm{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse glossary: %w", err)
	}

	for key, term := range raw {
		if term == nil {
			continue
		}
		term.Key = key
		if term.FilterOperator == "" {
			term.FilterOperator = "equals"
		}
		g.terms[key] = term
	}
	return nil
}

func (g *Glossary) loadExamples(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read examples: %w", err)
	}

	var examples []models.QueryExample
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return fmt.Errorf("parse examples: %w", err)
	}

	for i := range examples {
		if examples[i].Intent == "" {
			examples[i].Intent = string(models.IntentAnalytics)
		}
	}
	g.examples = examples
	return nil
}

func (g *Glossary) buildAliasIndex() {
	g.aliases = g.aliases[:0]
	for key, term := range g.terms {
		g.aliases = append(g.aliases, aliasEntry{alias: strings.ToLower(key), termKey: key})
		for _, alias := range term.Aliases {
			g.aliases = append(g.aliases, aliasEntry{alias: strings.ToLower(alias), termKey: key})
		}
	}
	sort.Slice(g.aliases, func(i, j int) bool {
		if g.aliases[i].alias != g.aliases[j].alias {
			return g.aliases[i].alias < g.aliases[j].alias
		}
		return g.aliases[i].termKey < g.aliases[j].termKey
	})
}

// TermCount returns the number of loaded terms.
func (g *Glossary) TermCount() int {
	return len(g.terms)
}

// ExampleCount returns the number of loaded examples.
func (g *Glossary) ExampleCount() int {
	return len(g.examples)
}

// FindTerms returns every glossary term whose key or alias appears as a
// case-insensitive substring of the text. Each term appears at most once,
// in alias order, so results are stable across calls.
func (g *Glossary) FindTerms(text string) []models.GlossaryTerm {
	lower := strings.ToLower(text)

	var found []models.GlossaryTerm
	seen := map[string]bool{}
	for _, entry := range g.aliases {
		if seen[entry.termKey] {
			continue
		}
		if strings.Contains(lower, entry.alias) {
			seen[entry.termKey] = true
			found = append(found, *g.terms[entry.termKey])
		}
	}
	return found
}

// RelevantExamples scores the worked examples against the question and
// returns the top limit matches for the given intent. Tag overlap with
// matched glossary terms counts double; plain word overlap counts half.
func (g *Glossary) RelevantExamples(question string, intentName models.Intent, limit int) []models.QueryExample {
	questionLower := strings.ToLower(question)
	questionWords := wordSet(questionLower)

	termKeys := map[string]bool{}
	for _, term := range g.FindTerms(question) {
		termKeys[term.Key] = true
	}

	type scored struct {
		score   float64
		example models.QueryExample
	}
	var candidates []scored
	for _, example := range g.examples {
		if example.Intent != string(intentName) {
			continue
		}

		score := 0.0
		for _, tag := range example.Tags {
			if termKeys[tag] {
				score += 2
			}
		}

		exampleWords := wordSet(strings.ToLower(example.Question))
		for word := range exampleWords {
			if questionWords[word] {
				score += 0.5
			}
		}

		if score > 0 {
			candidates = append(candidates, scored{score: score, example: example})
		}
	}

	// Stable sort keeps YAML order for ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	result := make([]models.QueryExample, len(candidates))
	for i, c := range candidates {
		result[i] = c.example
	}
	return result
}

// FilterField resolves the best concrete field for filtering by a term.
// Patterns are tried in order; "*.suffix" matches any available field
// ending in the suffix. Falls back to the term's group field.
func FilterField(term *models.GlossaryTerm, available []string) string {
	if field := resolvePatterns(term.Fields, available); field != "" {
		return field
	}
	return term.GroupField
}

// MeasureField resolves the best concrete measure for a term.
func MeasureField(term *models.GlossaryTerm, available []string) string {
	return resolvePatterns(term.Measures, available)
}

func resolvePatterns(patterns, available []string) string {
	for _, pattern := range patterns {
		if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
			for _, name := range available {
				if strings.HasSuffix(name, suffix) {
					return name
				}
			}
			continue
		}
		for _, name := range available {
			if name == pattern {
				return name
			}
		}
	}
	return ""
}

func wordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, word := range strings.Fields(s) {
		set[word] = true
	}
	return set
}
