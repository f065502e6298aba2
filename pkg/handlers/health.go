package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/config"
)

// PingResponse reports service identity and the state of the loaded
// schema catalog.
type PingResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Service      string `json:"service"`
	GoVersion    string `json:"go_version"`
	Hostname     string `json:"hostname"`
	Environment  string `json:"environment"`
	SchemaFields int    `json:"schema_fields"`
	SchemaGroups int    `json:"schema_groups"`
}

// HealthHandler handles health check and ping endpoints. Readiness is
// tied to the schema catalog: a pipeline with no fields cannot answer
// anything.
type HealthHandler struct {
	cfg    *config.Config
	index  SchemaIndex
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config, index SchemaIndex, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, index: index, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health handles GET /health requests.
// Returns "ok" while a schema snapshot is in service, 503 otherwise so
// load balancers stop routing questions here.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if len(h.index.Fields()) == 0 {
		if err := ErrorResponse(w, http.StatusServiceUnavailable, CodeNotReady, "Schema catalog is not loaded"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns service information plus the size of the current catalog.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:       "ok",
		Version:      h.cfg.Version,
		Service:      "nlq-engine",
		GoVersion:    runtime.Version(),
		Hostname:     hostname,
		Environment:  h.cfg.Env,
		SchemaFields: len(h.index.Fields()),
		SchemaGroups: len(h.index.Groups()),
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
