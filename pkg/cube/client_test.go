package cube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
	"github.com/nlquery/nlq-engine/pkg/config"
	"github.com/nlquery/nlq-engine/pkg/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(&config.MetricsServiceConfig{
		BaseURL:        server.URL,
		TimeoutSeconds: 5,
	}, zap.NewNop())
}

func TestFetchCatalog(t *testing.T) {
	hidden := false
	meta := map[string]any{
		"cubes": []map[string]any{
			{
				"name":  "issues",
				"title": "Issues",
				"measures": []map[string]any{
					{"name": "issues.count", "title": "Issue Count", "type": "number", "aggType": "count"},
					{"name": "issues.hidden", "title": "Hidden", "type": "number", "isVisible": hidden},
				},
				"dimensions": []map[string]any{
					{"name": "issues.project_key", "title": "Project Key", "type": "string"},
					{"name": "issues.created_at", "type": "time"},
				},
			},
		},
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meta", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(meta))
	}))

	fields, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Equal(t, "issues.count", fields[0].Name)
	assert.Equal(t, "issues", fields[0].Group)
	assert.Equal(t, models.FieldKindMeasure, fields[0].Kind)
	assert.Equal(t, "count", fields[0].Aggregation)

	assert.Equal(t, "issues.project_key", fields[1].Name)
	assert.Equal(t, models.FieldKindDimension, fields[1].Kind)

	// Untitled members fall back to their name.
	assert.Equal(t, "issues.created_at", fields[2].Title)
	assert.Equal(t, models.ValueTypeTime, fields[2].ValueType)
}

func TestLoad(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/load", r.URL.Path)

		var body struct {
			Query models.StructuredQuery `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"issues.count"}, body.Query.Measures)

		resp := map[string]any{
			"data": []map[string]any{
				{"issues.count": 42, "issues.project_key": "ALPHA"},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))

	rows, err := client.Load(context.Background(), &models.StructuredQuery{
		Measures: []string{"issues.count"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ALPHA", rows[0]["issues.project_key"])
}

func TestLoad_ServiceError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"error": "unknown member issues.nope"}))
	}))

	_, err := client.Load(context.Background(), &models.StructuredQuery{Measures: []string{"issues.nope"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	assert.Contains(t, err.Error(), "unknown member")
}

func TestLoad_ServerDown(t *testing.T) {
	client := NewClient(&config.MetricsServiceConfig{
		BaseURL:        "http://127.0.0.1:1",
		TimeoutSeconds: 1,
	}, zap.NewNop())

	_, err := client.Load(context.Background(), &models.StructuredQuery{Measures: []string{"issues.count"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
}

func TestLoad_Status500(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Load(context.Background(), &models.StructuredQuery{Measures: []string{"issues.count"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
}

func TestSQL(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sql", r.URL.Path)
		resp := map[string]any{
			"sql": map[string]any{
				"sql": []any{"SELECT count(*) FROM issues", []any{}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))

	stmt, err := client.SQL(context.Background(), &models.StructuredQuery{Measures: []string{"issues.count"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) FROM issues", stmt)
}

func TestSQL_EmptyResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{}))
	}))

	_, err := client.SQL(context.Background(), &models.StructuredQuery{Measures: []string{"issues.count"}})
	require.Error(t, err)
}
