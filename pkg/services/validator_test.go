package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
	"github.com/nlquery/nlq-engine/pkg/config"
	"github.com/nlquery/nlq-engine/pkg/models"
)

func testValidator() *Validator {
	return NewValidator(config.ValidatorConfig{
		MaxLimit:     10000,
		DefaultLimit: 100,
	}, zap.NewNop())
}

func testCandidates() []models.CandidateField {
	return []models.CandidateField{
		measure("issues.count", "issues", 5.0),
		dimension("issues.project_key", "issues", 6.0),
		dimension("issues.created_at", "issues", 7.0),
		dimension("issues.status", "issues", 8.0),
	}
}

func TestValidate_AcceptsGroundedQuery(t *testing.T) {
	query := &models.StructuredQuery{
		Measures:   []string{"issues.count"},
		Dimensions: []string{"issues.project_key"},
		Filters: []models.Filter{
			{Member: "issues.status", Operator: "equals", Values: []string{"Open"}},
		},
		TimeDimensions: []models.TimeDimension{
			{Dimension: "issues.created_at", Granularity: "month"},
		},
		Order: map[string]string{"issues.count": "desc"},
		Limit: 50,
	}

	require.NoError(t, testValidator().Validate(query, testCandidates()))
	assert.Equal(t, 50, query.Limit)
}

func TestValidate_RejectsFieldOutsideCandidateSet(t *testing.T) {
	// issues.assignee exists in no candidate; even a real catalog field
	// is rejected when it was not part of the prompt's grounding set.
	query := &models.StructuredQuery{
		Measures:   []string{"issues.count"},
		Dimensions: []string{"issues.assignee"},
	}

	err := testValidator().Validate(query, testCandidates())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
	assert.Contains(t, err.Error(), "issues.assignee")
}

func TestValidate_RejectsUnknownMeasure(t *testing.T) {
	query := &models.StructuredQuery{Measures: []string{"issues.total_points"}}

	err := testValidator().Validate(query, testCandidates())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issues.total_points")
}

func TestValidate_RequiresMeasure(t *testing.T) {
	query := &models.StructuredQuery{Dimensions: []string{"issues.project_key"}}

	err := testValidator().Validate(query, testCandidates())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
	assert.Contains(t, err.Error(), "at least one measure")
}

func TestValidate_RejectsUnknownFilterMember(t *testing.T) {
	query := &models.StructuredQuery{
		Measures: []string{"issues.count"},
		Filters:  []models.Filter{{Member: "issues.priority", Operator: "equals", Values: []string{"High"}}},
	}

	err := testValidator().Validate(query, testCandidates())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issues.priority")
}

func TestValidate_RejectsUnknownOrderMember(t *testing.T) {
	query := &models.StructuredQuery{
		Measures: []string{"issues.count"},
		Order:    map[string]string{"issues.total_hours": "desc"},
	}

	err := testValidator().Validate(query, testCandidates())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issues.total_hours")
}

func TestValidate_AppliesDefaultLimit(t *testing.T) {
	query := &models.StructuredQuery{Measures: []string{"issues.count"}}

	require.NoError(t, testValidator().Validate(query, testCandidates()))
	assert.Equal(t, 100, query.Limit)
}

func TestValidate_ClampsLimit(t *testing.T) {
	query := &models.StructuredQuery{
		Measures: []string{"issues.count"},
		Limit:    999999,
	}

	require.NoError(t, testValidator().Validate(query, testCandidates()))
	assert.Equal(t, 10000, query.Limit)
}
