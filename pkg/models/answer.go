package models

import (
	"time"

	"github.com/google/uuid"
)

// Intent is the classified shape of a question.
type Intent string

const (
	IntentAnalytics     Intent = "analytics"
	IntentList          Intent = "list"
	IntentDetail        Intent = "detail"
	IntentClarification Intent = "clarification"
)

// Answer is the result of processing one question. Trace carries the
// full stage log; Prompt and RawResponse are set when the generator was
// invoked, for offline prompt tuning.
type Answer struct {
	RequestID      uuid.UUID        `json:"request_id"`
	Question       string           `json:"question"`
	Intent         Intent           `json:"intent"`
	Text           string           `json:"answer"`
	Candidates     []string         `json:"relevant_fields,omitempty"`
	GeneratedQuery *StructuredQuery `json:"generated_query,omitempty"`
	CompiledSQL    string           `json:"compiled_sql,omitempty"`
	Prompt         string           `json:"-"`
	RawResponse    string           `json:"-"`
	Error          string           `json:"error,omitempty"`
	Trace          []TraceEvent     `json:"trace,omitempty"`
	Duration       time.Duration    `json:"duration_ms"`
}
