package services

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/nlquery/nlq-engine/pkg/models"
)

func formatterFields() []models.SchemaField {
	return []models.SchemaField{
		{Name: "issues.count", Title: "Issue Count", Kind: models.FieldKindMeasure},
		{Name: "issues.project_key", Title: "Project Key", Kind: models.FieldKindDimension},
	}
}

func TestFormatRows(t *testing.T) {
	f := NewFormatter()
	rows := []map[string]any{
		{"issues.count": float64(42), "issues.project_key": "ALPHA"},
		{"issues.count": float64(17), "issues.project_key": "BETA"},
	}

	text := f.FormatRows(rows, formatterFields())
	assert.Contains(t, text, "Results (2 rows):")
	assert.Contains(t, text, "Issue Count: 42")
	assert.Contains(t, text, "Project Key: ALPHA")
	assert.Contains(t, text, "2. ")
}

func TestFormatRows_Empty(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "No data found", f.FormatRows(nil, formatterFields()))
}

func TestFormatRows_SingularNoun(t *testing.T) {
	f := NewFormatter()
	rows := []map[string]any{{"issues.count": float64(1)}}
	assert.Contains(t, f.FormatRows(rows, formatterFields()), "Results (1 row):")
}

func TestFormatRows_NilAndFloatRendering(t *testing.T) {
	f := NewFormatter()
	rows := []map[string]any{
		{"issues.count": nil, "issues.avg_points": float64(3.14159)},
	}

	text := f.FormatRows(rows, formatterFields())
	assert.Contains(t, text, "avg_points: 3.14")
	assert.Contains(t, text, "Issue Count: -")
}

func TestFormatRows_TruncatesLongResults(t *testing.T) {
	f := NewFormatter()
	var rows []map[string]any
	for i := 0; i < 25; i++ {
		rows = append(rows, map[string]any{"issues.project_key": fmt.Sprintf("P%d", i)})
	}

	text := f.FormatRows(rows, formatterFields())
	assert.Contains(t, text, "... and 10 more rows")
	assert.NotContains(t, text, "P20")
}

func TestFormatRows_UnknownColumnFallsBackToShortKey(t *testing.T) {
	f := NewFormatter()
	rows := []map[string]any{{"sprints.velocity": float64(21)}}

	text := f.FormatRows(rows, formatterFields())
	assert.Contains(t, text, "velocity: 21")
}

func TestFormatList(t *testing.T) {
	f := NewFormatter()
	records := []map[string]any{
		{"key": "PROJ-1", "summary": "Fix login flow", "status": "Open", "assignee_name": "alice"},
		{"key": "PROJ-2", "summary": "Slow dashboard", "status_name": "In Progress"},
	}

	text := f.FormatList(records)
	assert.Contains(t, text, "Found 2 issues:")
	assert.Contains(t, text, "[PROJ-1] Fix login flow")
	assert.Contains(t, text, "Status: Open | Assignee: alice")
	assert.Contains(t, text, "Status: In Progress | Assignee: Unassigned")
}

func TestFormatList_Empty(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "No issues found", f.FormatList(nil))
}

func TestFormatList_ClipsSummary(t *testing.T) {
	f := NewFormatter()
	records := []map[string]any{
		{"key": "PROJ-1", "summary": strings.Repeat("a", 100)},
	}

	text := f.FormatList(records)
	assert.Contains(t, text, strings.Repeat("a", 55))
	assert.NotContains(t, text, strings.Repeat("a", 56))
}

func TestFormatList_ClipKeepsRunesIntact(t *testing.T) {
	f := NewFormatter()
	records := []map[string]any{
		{"key": "PROJ-1", "summary": strings.Repeat("ы", 40)},
	}

	text := f.FormatList(records)
	assert.True(t, utf8.ValidString(text))
	assert.Contains(t, text, strings.Repeat("ы", 27))
	assert.NotContains(t, text, strings.Repeat("ы", 28))
}

func TestFormatDetail(t *testing.T) {
	f := NewFormatter()
	record := map[string]any{
		"key":          "PROJ-9",
		"summary":      "Crash on save",
		"status":       "Open",
		"assignee":     "bob",
		"project_name": "Alpha",
		"description":  "Steps to reproduce: save twice.",
	}

	text := f.FormatDetail(record)
	assert.Contains(t, text, "[PROJ-9] Crash on save")
	assert.Contains(t, text, "Status: Open")
	assert.Contains(t, text, "Assignee: bob")
	assert.Contains(t, text, "Project: Alpha")
	assert.Contains(t, text, "Steps to reproduce")
}

func TestFormatDetail_Missing(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "Record not found", f.FormatDetail(nil))
}

func TestFormatComments(t *testing.T) {
	f := NewFormatter()
	comments := []map[string]any{
		{"author": "alice", "body": "looks good"},
		{"author": "bob", "body": "needs a test"},
	}

	text := f.FormatComments("PROJ-1", comments)
	assert.Contains(t, text, "PROJ-1: 2 entries")
	assert.Contains(t, text, "alice: looks good")
}

func TestFormatComments_Empty(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "No entries found for PROJ-1", f.FormatComments("PROJ-1", nil))
}
