package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jinzhu/inflection"

	"github.com/nlquery/nlq-engine/pkg/models"
)

const (
	maxTabularRows  = 15
	maxListRows     = 20
	maxSummaryWidth = 55
)

// Formatter renders execution results as answer text. It never
// re-enters validation; whatever rows arrive are rendered as-is.
type Formatter struct{}

// NewFormatter creates a formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatRows renders metrics service rows as numbered lines, mapping
// field names to their catalog titles.
func (f *Formatter) FormatRows(rows []map[string]any, fields []models.SchemaField) string {
	if len(rows) == 0 {
		return "No data found"
	}

	titles := titleMap(fields)

	noun := inflection.Plural("row")
	if len(rows) == 1 {
		noun = "row"
	}
	lines := []string{fmt.Sprintf("Results (%d %s):", len(rows), noun)}

	shown := rows
	if len(shown) > maxTabularRows {
		shown = shown[:maxTabularRows]
	}
	for i, row := range shown {
		var parts []string
		for _, key := range sortedKeys(row) {
			parts = append(parts, fmt.Sprintf("%s: %s", columnTitle(key, titles), renderValue(row[key])))
		}
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, strings.Join(parts, ", ")))
	}
	if len(rows) > maxTabularRows {
		lines = append(lines, fmt.Sprintf("  ... and %d more rows", len(rows)-maxTabularRows))
	}

	return strings.Join(lines, "\n")
}

// FormatList renders an operational record list.
func (f *Formatter) FormatList(records []map[string]any) string {
	if len(records) == 0 {
		return "No issues found"
	}

	noun := inflection.Plural("issue")
	if len(records) == 1 {
		noun = "issue"
	}
	lines := []string{fmt.Sprintf("Found %d %s:", len(records), noun)}

	shown := records
	if len(shown) > maxListRows {
		shown = shown[:maxListRows]
	}
	for i, record := range shown {
		key := stringField(record, "key", "?")
		summary := clip(stringField(record, "summary", ""), maxSummaryWidth)
		status := stringField(record, "status_name", stringField(record, "status", ""))
		assignee := stringField(record, "assignee_name", stringField(record, "assignee_display_name", "Unassigned"))

		lines = append(lines, fmt.Sprintf("  %d. [%s] %s", i+1, key, summary))
		lines = append(lines, fmt.Sprintf("      Status: %s | Assignee: %s", status, assignee))
	}
	if len(records) > maxListRows {
		lines = append(lines, fmt.Sprintf("  ... and %d more issues", len(records)-maxListRows))
	}

	return strings.Join(lines, "\n")
}

// FormatDetail renders a single record.
func (f *Formatter) FormatDetail(record map[string]any) string {
	if record == nil {
		return "Record not found"
	}

	lines := []string{
		fmt.Sprintf("[%s] %s", stringField(record, "key", "?"), stringField(record, "summary", "")),
		fmt.Sprintf("Status: %s", stringField(record, "status", "N/A")),
		fmt.Sprintf("Assignee: %s", stringField(record, "assignee", "Unassigned")),
	}
	if project := stringField(record, "project_name", ""); project != "" {
		lines = append(lines, fmt.Sprintf("Project: %s", project))
	}
	if desc := stringField(record, "description", ""); desc != "" {
		lines = append(lines, clip(desc, 200))
	}
	return strings.Join(lines, "\n")
}

// FormatComments renders record comments or links.
func (f *Formatter) FormatComments(key string, comments []map[string]any) string {
	if len(comments) == 0 {
		return fmt.Sprintf("No entries found for %s", key)
	}

	noun := inflection.Plural("entry")
	if len(comments) == 1 {
		noun = "entry"
	}
	lines := []string{fmt.Sprintf("%s: %d %s", key, len(comments), noun)}
	for i, comment := range comments {
		body := stringField(comment, "body", "")
		if body == "" {
			body = renderValue(comment)
		}
		author := stringField(comment, "author", "")
		if author != "" {
			lines = append(lines, fmt.Sprintf("  %d. %s: %s", i+1, author, clip(body, 80)))
		} else {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, clip(body, 80)))
		}
	}
	return strings.Join(lines, "\n")
}

// titleMap maps both fully-qualified and short field names to titles.
// Qualified names win on collisions.
func titleMap(fields []models.SchemaField) map[string]string {
	titles := map[string]string{}
	for _, f := range fields {
		titles[f.Name] = f.Title
	}
	for _, f := range fields {
		short := shortKey(f.Name)
		if _, exists := titles[short]; !exists {
			titles[short] = f.Title
		}
	}
	return titles
}

func columnTitle(key string, titles map[string]string) string {
	if title, ok := titles[key]; ok {
		return title
	}
	short := shortKey(key)
	if title, ok := titles[short]; ok {
		return title
	}
	return short
}

func shortKey(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func renderValue(v any) string {
	switch value := v.(type) {
	case nil:
		return "-"
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%.2f", value)
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}

func stringField(record map[string]any, key, fallback string) string {
	if v, ok := record[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// clip truncates to at most n bytes without splitting a UTF-8 rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func sortedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	// Deterministic column order for stable answers.
	sort.Strings(keys)
	return keys
}
