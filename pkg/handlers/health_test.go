package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/config"
)

func newHealthServer(index *stubSchemaIndex) *http.ServeMux {
	cfg := &config.Config{Version: "1.2.3", Env: "test"}
	mux := http.NewServeMux()
	NewHealthHandler(cfg, index, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestHealth(t *testing.T) {
	mux := newHealthServer(loadedSchemaIndex())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealth_EmptyCatalogNotReady(t *testing.T) {
	mux := newHealthServer(&stubSchemaIndex{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeNotReady, body.Code)
}

func TestPing(t *testing.T) {
	mux := newHealthServer(loadedSchemaIndex())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body PingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, "nlq-engine", body.Service)
	assert.Equal(t, "test", body.Environment)
	assert.NotEmpty(t, body.GoVersion)
	assert.Equal(t, 2, body.SchemaFields)
	assert.Equal(t, 1, body.SchemaGroups)
}
