// Package models defines the shared data types of the query compiler.
package models

// FieldKind distinguishes measures from dimensions.
type FieldKind string

const (
	FieldKindMeasure   FieldKind = "measure"
	FieldKindDimension FieldKind = "dimension"
)

// ValueType is the value type of a schema field.
type ValueType string

const (
	ValueTypeNumber  ValueType = "number"
	ValueTypeString  ValueType = "string"
	ValueTypeTime    ValueType = "time"
	ValueTypeBoolean ValueType = "boolean"
)

// SchemaField is one queryable measure or dimension from the metrics
// service catalog. Name is fully qualified ("group.field") and unique
// within one snapshot.
type SchemaField struct {
	Name        string    `json:"name"`
	Group       string    `json:"group"`
	Kind        FieldKind `json:"kind"`
	ValueType   ValueType `json:"value_type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	// Aggregation is set only for measures (count, sum, avg, ...).
	Aggregation string `json:"aggregation,omitempty"`
}

// IsMeasure reports whether the field is a measure.
func (f SchemaField) IsMeasure() bool { return f.Kind == FieldKindMeasure }

// CandidateField is a SchemaField scored by similarity to one question.
// Score is an L2 distance: lower means more relevant. Injected marks
// fields added by deterministic enrichment rather than embedding search.
type CandidateField struct {
	SchemaField
	Score    float64 `json:"score"`
	Injected bool    `json:"injected,omitempty"`
}
