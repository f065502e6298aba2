// Package intent classifies a free-text question into one of the
// pipeline's routing intents using deterministic keyword and pattern
// matching. No model calls happen here.
package intent

import (
	"regexp"
	"strings"

	"github.com/nlquery/nlq-engine/pkg/models"
)

// recordKeyPattern matches operational record keys such as "PROJ-123".
var recordKeyPattern = regexp.MustCompile(`\b[A-Z]+-\d+\b`)

// detailPatterns match phrasings that ask for a single record or its
// sub-resources. Checked against the lowercased question.
var detailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`show (issue|record|ticket)\s+[a-z]+-\d+`),
	regexp.MustCompile(`(issue|record|ticket) details`),
	regexp.MustCompile(`details (of|for)\s+[a-z]+-\d+`),
	regexp.MustCompile(`comments (on|for|to)`),
	regexp.MustCompile(`links (on|for|of)`),
	regexp.MustCompile(`worklog`),
}

// aggregationKeywords signal that the user wants computed analytics
// rather than raw records.
var aggregationKeywords = []string{
	"how many", "count", "total", "average", "avg",
	"top", "trend", "statistics", "metrics", "distribution",
	"by assignee", "by project", "by status", "group by",
	"per project", "per assignee",
}

// listKeywords signal that the user wants a plain list of records.
var listKeywords = []string{
	"list issues", "show issues", "issues in project", "issues for project",
	"what issues", "which issues", "list records", "show records",
	"show all", "list all",
}

// Classify routes a question to an intent. Detail patterns win over
// aggregation keywords, which win over list keywords; everything else
// is treated as an analytics question.
func Classify(question string) models.Intent {
	lower := strings.ToLower(question)

	if recordKeyPattern.MatchString(question) {
		return models.IntentDetail
	}
	for _, p := range detailPatterns {
		if p.MatchString(lower) {
			return models.IntentDetail
		}
	}

	for _, kw := range aggregationKeywords {
		if strings.Contains(lower, kw) {
			return models.IntentAnalytics
		}
	}

	for _, kw := range listKeywords {
		if strings.Contains(lower, kw) {
			return models.IntentList
		}
	}

	return models.IntentAnalytics
}

// RecordKey extracts the first operational record key from the question,
// or returns an empty string when none is present.
func RecordKey(question string) string {
	return recordKeyPattern.FindString(question)
}
