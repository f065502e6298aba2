package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/metrics"
	"github.com/nlquery/nlq-engine/pkg/models"
)

// SchemaIndex is the read and reload surface of the schema index.
type SchemaIndex interface {
	Reload(ctx context.Context) error
	Fields() []models.SchemaField
	Groups() []string
}

// SchemaResponse for GET /schema.
type SchemaResponse struct {
	Groups []string             `json:"groups"`
	Fields []models.SchemaField `json:"fields"`
}

// SchemaHandler handles schema inspection and reload requests.
type SchemaHandler struct {
	index  SchemaIndex
	logger *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(index SchemaIndex, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{
		index:  index,
		logger: logger,
	}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /schema", h.Get)
	mux.HandleFunc("POST /schema/reload", h.Reload)
}

// Get handles GET /schema requests.
// Returns the current catalog snapshot.
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	response := SchemaResponse{
		Groups: h.index.Groups(),
		Fields: h.index.Fields(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode schema response", zap.Error(err))
	}
}

// Reload handles POST /schema/reload requests.
// Re-fetches the catalog and re-embeds it. On failure the previous
// snapshot stays in service.
func (h *SchemaHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if reloadErr := h.index.Reload(r.Context()); reloadErr != nil {
		metrics.SchemaReloadsTotal.WithLabelValues("error").Inc()
		h.logger.Error("Schema reload failed", zap.Error(reloadErr))
		if err := ErrorResponse(w, http.StatusBadGateway, ErrorCode(reloadErr), "Could not reload the schema catalog"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	metrics.SchemaReloadsTotal.WithLabelValues("ok").Inc()

	if err := WriteJSON(w, http.StatusOK, map[string]int{"fields": len(h.index.Fields())}); err != nil {
		h.logger.Error("Failed to encode reload response", zap.Error(err))
	}
}
