package models

import "time"

// TraceCategory classifies a trace event for display and filtering.
type TraceCategory string

const (
	TraceInfo    TraceCategory = "info"
	TraceLLM     TraceCategory = "llm"
	TraceExecute TraceCategory = "execute"
	TraceSQL     TraceCategory = "sql"
	TraceError   TraceCategory = "error"
	TraceSuccess TraceCategory = "success"
)

// TraceEvent is one stage event recorded during a request.
type TraceEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Stage     string         `json:"stage"`
	Category  TraceCategory  `json:"category"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Duration  time.Duration  `json:"duration_ms,omitempty"`
}

// Trace is the ordered, append-only event log of one request. It is
// created at request start, attached to the response, and never read
// back by earlier pipeline stages.
type Trace struct {
	events []TraceEvent
}

// Add appends an event with the current timestamp.
func (t *Trace) Add(stage string, category TraceCategory, message string) {
	t.events = append(t.events, TraceEvent{
		Timestamp: time.Now(),
		Stage:     stage,
		Category:  category,
		Message:   message,
	})
}

// AddData appends an event carrying a structured payload.
func (t *Trace) AddData(stage string, category TraceCategory, message string, data map[string]any) {
	t.events = append(t.events, TraceEvent{
		Timestamp: time.Now(),
		Stage:     stage,
		Category:  category,
		Message:   message,
		Data:      data,
	})
}

// AddTimed appends an event with a measured duration.
func (t *Trace) AddTimed(stage string, category TraceCategory, message string, data map[string]any, d time.Duration) {
	t.events = append(t.events, TraceEvent{
		Timestamp: time.Now(),
		Stage:     stage,
		Category:  category,
		Message:   message,
		Data:      data,
		Duration:  d,
	})
}

// Events returns the recorded events in order.
func (t *Trace) Events() []TraceEvent {
	return t.events
}

// Stages returns the stage names in recorded order. Used by tests to
// assert which pipeline stages ran.
func (t *Trace) Stages() []string {
	stages := make([]string, len(t.events))
	for i, e := range t.events {
		stages[i] = e.Stage
	}
	return stages
}

// Has reports whether any event was recorded for the stage.
func (t *Trace) Has(stage string) bool {
	for _, e := range t.events {
		if e.Stage == stage {
			return true
		}
	}
	return false
}
