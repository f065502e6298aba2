// Package services contains the pipeline stages of the query compiler:
// confidence gating, prompt synthesis, query generation, validation,
// execution and formatting, plus the orchestrating pipeline.
package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/config"
	"github.com/nlquery/nlq-engine/pkg/models"
)

// Gate reasons, used as metric labels and trace data.
const (
	GateReasonNoCandidates = "no_candidates"
	GateReasonWeakMatch    = "weak_match"
	GateReasonNoMeasure    = "no_measure"
	GateReasonAmbiguous    = "ambiguous"
)

// GateDecision is the outcome of the confidence check.
type GateDecision struct {
	Proceed bool
	// Reason and Message are set only when Proceed is false.
	Reason  string
	Message string
}

// ConfidenceGate decides whether retrieval grounded the question well
// enough to attempt generation. Thresholds are distances: lower scores
// mean stronger matches.
type ConfidenceGate struct {
	cfg    config.GateConfig
	logger *zap.Logger
}

// NewConfidenceGate creates a gate with the configured thresholds.
func NewConfidenceGate(cfg config.GateConfig, logger *zap.Logger) *ConfidenceGate {
	return &ConfidenceGate{cfg: cfg, logger: logger.Named("gate")}
}

// Check evaluates the decision policy top to bottom; the first matching
// rule wins. groups is the full catalog group list used in
// clarification messages.
func (g *ConfidenceGate) Check(candidates []models.CandidateField, terms []models.GlossaryTerm, groups []string) GateDecision {
	if len(candidates) == 0 {
		return GateDecision{
			Reason:  GateReasonNoCandidates,
			Message: g.noCandidatesMessage(groups),
		}
	}

	topScore := candidates[0].Score
	top := candidates
	if len(top) > g.cfg.TopN {
		top = top[:g.cfg.TopN]
	}

	hasMeasure := false
	groupSet := map[string]bool{}
	for _, c := range top {
		if c.IsMeasure() {
			hasMeasure = true
		}
		groupSet[c.Group] = true
	}

	if topScore > g.cfg.WeakScore {
		g.logger.Debug("gate: weak match", zap.Float64("top_score", topScore))
		return GateDecision{
			Reason:  GateReasonWeakMatch,
			Message: g.weakMatchMessage(groups),
		}
	}

	if !hasMeasure && topScore > g.cfg.MediumScore {
		g.logger.Debug("gate: no measure in top candidates", zap.Float64("top_score", topScore))
		return GateDecision{
			Reason:  GateReasonNoMeasure,
			Message: g.noMeasureMessage(),
		}
	}

	if len(groupSet) >= g.cfg.GroupCutoff && len(terms) == 0 && topScore > g.cfg.AmbiguityScore {
		g.logger.Debug("gate: ambiguous groups",
			zap.Int("distinct_groups", len(groupSet)),
			zap.Float64("top_score", topScore))
		return GateDecision{
			Reason:  GateReasonAmbiguous,
			Message: g.ambiguousMessage(top),
		}
	}

	return GateDecision{Proceed: true}
}

func (g *ConfidenceGate) noCandidatesMessage(groups []string) string {
	var b strings.Builder
	b.WriteString("I could not match your question to any known data. Available areas:\n")
	writeGroupList(&b, groups)
	b.WriteString("\nPlease rephrase with one of these areas in mind.")
	return b.String()
}

func (g *ConfidenceGate) weakMatchMessage(groups []string) string {
	var b strings.Builder
	b.WriteString("This question does not clearly match any known metric. Available areas:\n")
	writeGroupList(&b, groups)
	b.WriteString("\nPlease clarify what you would like to know.")
	return b.String()
}

func (g *ConfidenceGate) noMeasureMessage() string {
	return strings.Join([]string{
		"I could not tell which quantity you want. Example questions:",
		`- "How many issues per project?" (a count)`,
		`- "Total story points by sprint" (a sum)`,
		`- "Average resolution time by assignee" (an average)`,
		`- "Top assignees by time spent" (a ranking)`,
		"Which metric do you need?",
	}, "\n")
}

func (g *ConfidenceGate) ambiguousMessage(top []models.CandidateField) string {
	byGroup := map[string][]string{}
	var order []string
	for _, c := range top {
		if !c.IsMeasure() {
			continue
		}
		if _, seen := byGroup[c.Group]; !seen {
			order = append(order, c.Group)
		}
		if len(byGroup[c.Group]) < 2 {
			byGroup[c.Group] = append(byGroup[c.Group], c.Title)
		}
	}

	var b strings.Builder
	b.WriteString("Your question could refer to several data areas:\n")
	for _, group := range order {
		fmt.Fprintf(&b, "- %s: %s\n", group, strings.Join(byGroup[group], ", "))
	}
	b.WriteString("\nPlease specify which area you are interested in.")
	return b.String()
}

func writeGroupList(b *strings.Builder, groups []string) {
	for _, group := range groups {
		fmt.Fprintf(b, "- %s\n", group)
	}
}
