package models

// GlossaryTerm is a business-language alias cluster loaded from the
// semantic configuration. Aliases are matched case-insensitively as
// substrings of the question.
type GlossaryTerm struct {
	Key          string   `yaml:"-"`
	Aliases      []string `yaml:"aliases"`
	SemanticType string   `yaml:"semantic_type"`
	// Fields are name patterns the term may bind to: either exact
	// fully-qualified names or "*.suffix" group wildcards, in
	// preference order.
	Fields         []string `yaml:"fields"`
	FilterOperator string   `yaml:"filter_operator"`
	GroupField     string   `yaml:"group_field"`
	Measures       []string `yaml:"measures"`
	Description    string   `yaml:"description"`
}

// QueryExample is one worked question-to-query example used for few-shot
// prompt synthesis.
type QueryExample struct {
	Question string           `yaml:"question"`
	Intent   string           `yaml:"intent"`
	Query    *StructuredQuery `yaml:"query"`
	Tags     []string         `yaml:"tags"`
}
