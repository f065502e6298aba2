package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
	"github.com/nlquery/nlq-engine/pkg/jsonutil"
	"github.com/nlquery/nlq-engine/pkg/llm"
)

func generatorReturning(content string) (*QueryGenerator, *llm.MockLLMClient) {
	client := llm.NewMockLLMClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: content}, nil
	}
	return NewQueryGenerator(client, "system", 0, zap.NewNop()), client
}

func TestGenerate_ValidJSON(t *testing.T) {
	gen, client := generatorReturning(`{"measures":["issues.count"],"dimensions":["issues.project_key"],"limit":100}`)

	result, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, 1, client.GenerateResponseCalls)
	assert.Equal(t, jsonutil.StageValid, result.RepairStage)
	assert.Equal(t, []string{"issues.count"}, result.Query.Measures)
	assert.Equal(t, []string{"issues.project_key"}, result.Query.Dimensions)
	assert.Equal(t, 100, result.Query.Limit)
}

func TestGenerate_RepairsMissingComma(t *testing.T) {
	gen, _ := generatorReturning(`{"measures": ["x.count"] "dimensions": ["x.project_key"]}`)

	result, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, jsonutil.StageCommas, result.RepairStage)
	assert.Equal(t, []string{"x.count"}, result.Query.Measures)
	assert.Equal(t, []string{"x.project_key"}, result.Query.Dimensions)
}

func TestGenerate_RepairsFencedOutput(t *testing.T) {
	gen, _ := generatorReturning("```json\n{\"measures\":[\"issues.count\"],\"limit\":100,}\n```")

	result, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, []string{"issues.count"}, result.Query.Measures)
}

func TestGenerate_UnrepairableResponse(t *testing.T) {
	gen, client := generatorReturning("I am sorry, I cannot answer that question.")

	result, err := gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnparseableResponse)
	assert.Equal(t, 1, client.GenerateResponseCalls) // no retry
	require.NotNil(t, result)
	assert.Equal(t, jsonutil.StageFailed, result.RepairStage)
	assert.Nil(t, result.Query)
}

func TestGenerate_ClientError(t *testing.T) {
	client := llm.NewMockLLMClient()
	client.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (*llm.GenerateResponseResult, error) {
		return nil, errors.New("connection refused")
	}
	gen := NewQueryGenerator(client, "system", 0, zap.NewNop())

	_, err := gen.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrUnparseableResponse)
}

func TestParseQuery_OrderByListFolding(t *testing.T) {
	query, err := parseQuery(`{
		"measures": ["issues.count"],
		"orderBy": [
			{"measure": "issues.count", "direction": "desc"},
			{"dimension": "issues.project_key", "direction": "asc"},
			{"member": "issues.status"}
		]
	}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"issues.count":       "desc",
		"issues.project_key": "asc",
		"issues.status":      "asc",
	}, query.Order)
}

func TestParseQuery_OrderMapAndListEquivalent(t *testing.T) {
	fromMap, err := parseQuery(`{"measures":["x.count"],"order":{"x.count":"desc"}}`)
	require.NoError(t, err)

	fromList, err := parseQuery(`{"measures":["x.count"],"orderBy":[{"measure":"x.count","direction":"desc"}]}`)
	require.NoError(t, err)

	assert.Equal(t, fromMap.Order, fromList.Order)
}

func TestParseQuery_FilterKeySynonyms(t *testing.T) {
	query, err := parseQuery(`{
		"measures": ["issues.count"],
		"filters": [
			{"field": "issues.status", "operator": "equals", "values": ["Open"]},
			{"dimension": "issues.priority", "operator": "equals", "values": "High"}
		]
	}`)
	require.NoError(t, err)
	require.Len(t, query.Filters, 2)
	assert.Equal(t, "issues.status", query.Filters[0].Member)
	assert.Equal(t, "issues.priority", query.Filters[1].Member)
	// Scalar values become one-element lists.
	assert.Equal(t, []string{"High"}, query.Filters[1].Values)
}

func TestParseQuery_ScalarMeasure(t *testing.T) {
	query, err := parseQuery(`{"measures": "issues.count", "limit": "50"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"issues.count"}, query.Measures)
	assert.Equal(t, 50, query.Limit)
}

func TestParseQuery_TimeDimensions(t *testing.T) {
	query, err := parseQuery(`{
		"measures": ["issues.count"],
		"timeDimensions": [
			{"dimension": "issues.created_at", "granularity": "month", "dateRange": "last 90 days"}
		]
	}`)
	require.NoError(t, err)
	require.Len(t, query.TimeDimensions, 1)
	assert.Equal(t, "issues.created_at", query.TimeDimensions[0].Dimension)
	assert.Equal(t, "last 90 days", query.TimeDimensions[0].DateRange)
}
