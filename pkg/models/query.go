package models

// Filter is one filter clause of a structured query.
// Values is empty for the set/notSet operators.
type Filter struct {
	Member   string   `json:"member" yaml:"member"`
	Operator string   `json:"operator" yaml:"operator"`
	Values   []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// TimeDimension is an optional time-window clause.
type TimeDimension struct {
	Dimension   string `json:"dimension" yaml:"dimension"`
	Granularity string `json:"granularity,omitempty" yaml:"granularity,omitempty"`
	DateRange   string `json:"dateRange,omitempty" yaml:"date_range,omitempty"`
}

// StructuredQuery is the compiler's output contract, accepted by the
// metrics query service. It is mutable during synthesis, repair and
// validation, and treated as immutable once handed to the executor.
type StructuredQuery struct {
	Measures       []string          `json:"measures,omitempty" yaml:"measures,omitempty"`
	Dimensions     []string          `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Filters        []Filter          `json:"filters,omitempty" yaml:"filters,omitempty"`
	TimeDimensions []TimeDimension   `json:"timeDimensions,omitempty" yaml:"time_dimensions,omitempty"`
	Order          map[string]string `json:"order,omitempty" yaml:"order,omitempty"`
	Limit          int               `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Fields returns every measure and dimension name the query references.
func (q *StructuredQuery) Fields() []string {
	fields := make([]string, 0, len(q.Measures)+len(q.Dimensions))
	fields = append(fields, q.Measures...)
	fields = append(fields, q.Dimensions...)
	return fields
}
