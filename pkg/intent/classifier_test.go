package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nlquery/nlq-engine/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     models.Intent
	}{
		{"record key", "show me PROJ-123", models.IntentDetail},
		{"bare record key", "ABC-42", models.IntentDetail},
		{"comments phrase", "comments on the login bug", models.IntentDetail},
		{"worklog phrase", "worklog entries for last week", models.IntentDetail},
		{"record key beats count", "count of comments on PROJ-7", models.IntentDetail},
		{"how many", "how many issues were closed last month", models.IntentAnalytics},
		{"grouped count", "count of records grouped by project", models.IntentAnalytics},
		{"top", "top assignees this sprint", models.IntentAnalytics},
		{"distribution", "status distribution across projects", models.IntentAnalytics},
		{"list issues", "list issues in project alpha", models.IntentList},
		{"show all", "show all open records", models.IntentList},
		{"default analytics", "what happened with delivery speed", models.IntentAnalytics},
		{"lowercase key not detail", "the abc-123 naming scheme", models.IntentAnalytics},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.question))
		})
	}
}

func TestRecordKey(t *testing.T) {
	assert.Equal(t, "PROJ-123", RecordKey("show me PROJ-123 please"))
	assert.Equal(t, "", RecordKey("no key here"))
}
