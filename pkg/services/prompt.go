package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nlquery/nlq-engine/pkg/glossary"
	"github.com/nlquery/nlq-engine/pkg/models"
)

const maxDescriptionLength = 120

const fewShotLimit = 5

// systemMessage frames the generation task. The schema-specific content
// all lives in the synthesized prompt.
const systemMessage = "You are a structured query generator for an analytics service. " +
	"Convert natural language questions into valid JSON queries. " +
	"Return only valid JSON, no explanations."

// PromptSynthesizer assembles the schema-grounded instruction for the
// generator. Only retrieved candidate fields appear in the prompt; the
// validator later holds the generated query to exactly this set.
type PromptSynthesizer struct {
	glossary *glossary.Glossary
}

// NewPromptSynthesizer creates a synthesizer over the loaded glossary.
func NewPromptSynthesizer(g *glossary.Glossary) *PromptSynthesizer {
	return &PromptSynthesizer{glossary: g}
}

// SystemMessage returns the fixed system framing for the generator.
func (s *PromptSynthesizer) SystemMessage() string {
	return systemMessage
}

// Synthesize builds the full prompt for one question.
func (s *PromptSynthesizer) Synthesize(question string, candidates []models.CandidateField, terms []models.GlossaryTerm) string {
	var b strings.Builder

	b.WriteString("## Available measures (for aggregations):\n")
	b.WriteString(formatCandidates(candidates, models.FieldKindMeasure))

	b.WriteString("\n\n## Available dimensions (for grouping/filtering):\n")
	b.WriteString(formatCandidates(candidates, models.FieldKindDimension))

	b.WriteString("\n\n## Business terms (use for filters):\n")
	b.WriteString(s.formatTerms(terms, candidates))

	b.WriteString("\n\n## Query format:\n")
	b.WriteString(queryFormatBlock)

	b.WriteString("\n\n## Filter operators:\n")
	b.WriteString(operatorBlock)

	examples := s.glossary.RelevantExamples(question, models.IntentAnalytics, fewShotLimit)
	b.WriteString("\n\n## Examples:\n")
	b.WriteString(formatExamples(examples))

	b.WriteString("\n\n## Rules:\n")
	b.WriteString(ruleBlock)

	b.WriteString("\n\n## Question:\n")
	b.WriteString(question)
	b.WriteString("\n\n## JSON Query:")

	return b.String()
}

const queryFormatBlock = `{
  "measures": ["group.measure_name"],
  "dimensions": ["group.dimension_name"],
  "filters": [
    {"member": "group.field", "operator": "equals|contains|gt|lt|set|notSet", "values": ["value"]}
  ],
  "timeDimensions": [
    {"dimension": "group.time_field", "granularity": "day|week|month", "dateRange": "last 7 days"}
  ],
  "order": {"group.measure": "desc"},
  "limit": 100
}`

const operatorBlock = `- "equals": exact match (project, status, priority)
- "contains": partial match (person names)
- "gt", "lt", "gte", "lte": number/date comparison
- "set": field is NOT empty (IS NOT NULL), no "values" needed
- "notSet": field is empty (IS NULL), no "values" needed`

const ruleBlock = `1. Use EXACT field names from the measures and dimensions listed above
2. Use "contains" when filtering by a person's name, "equals" for exact values
3. Always include at least one measure
4. For "how many" questions use the plain count measure, not the open or completed variants
5. To filter on open/closed state use the resolution time dimension with set/notSet, not a count measure
6. Always add the dimensions you filter by to "dimensions" so they appear in the result
7. Add a reasonable limit (default 100)
8. Return ONLY valid JSON, no explanations`

func formatCandidates(candidates []models.CandidateField, kind models.FieldKind) string {
	var lines []string
	for _, c := range candidates {
		if c.Kind != kind {
			continue
		}

		line := fmt.Sprintf("- %s: %s", c.Name, c.Title)
		if kind == models.FieldKindMeasure && c.Aggregation != "" {
			line = fmt.Sprintf("- %s: %s (%s)", c.Name, c.Title, c.Aggregation)
		}
		if desc := shortDescription(c.Description); desc != "" {
			line += " - " + desc
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return fmt.Sprintf("No available %ss", kind)
	}
	return strings.Join(lines, "\n")
}

func (s *PromptSynthesizer) formatTerms(terms []models.GlossaryTerm, candidates []models.CandidateField) string {
	if len(terms) == 0 {
		return "No specific terms detected"
	}

	available := make([]string, len(candidates))
	for i, c := range candidates {
		available[i] = c.Name
	}

	var lines []string
	for i := range terms {
		term := &terms[i]
		field := glossary.FilterField(term, available)
		if field == "" {
			continue
		}

		aliases := term.Aliases
		if len(aliases) > 3 {
			aliases = aliases[:3]
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): filter by %q with operator %q",
			term.Key, strings.Join(aliases, ", "), field, term.FilterOperator))
	}
	if len(lines) == 0 {
		return "No specific terms detected"
	}
	return strings.Join(lines, "\n")
}

func formatExamples(examples []models.QueryExample) string {
	if len(examples) == 0 {
		return "No examples available"
	}

	var lines []string
	for i, ex := range examples {
		if ex.Query == nil {
			continue
		}
		encoded, err := json.Marshal(ex.Query)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("Q%d: %s", i+1, ex.Question))
		lines = append(lines, fmt.Sprintf("A%d: %s", i+1, encoded))
		lines = append(lines, "")
	}
	if len(lines) == 0 {
		return "No examples available"
	}
	return strings.Join(lines, "\n")
}

func shortDescription(desc string) string {
	desc = strings.ReplaceAll(strings.TrimSpace(desc), "\n", " ")
	return clip(desc, maxDescriptionLength)
}
