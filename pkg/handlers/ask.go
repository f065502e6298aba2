package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/nlquery/nlq-engine/pkg/models"
)

// maxQuestionLength caps request size before the question reaches the
// pipeline.
const maxQuestionLength = 2000

// QuestionService answers one free-text question.
type QuestionService interface {
	Process(ctx context.Context, question string) *models.Answer
}

// AskRequest for POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskHandler handles question answering HTTP requests.
type AskHandler struct {
	service QuestionService
	logger  *zap.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(service QuestionService, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /ask", h.Ask)
}

// Ask handles POST /ask requests.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, CodeInvalidRequest, "Request body must be JSON with a question field"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, CodeEmptyQuestion, "Question must not be empty"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if len(question) > maxQuestionLength {
		if err := ErrorResponse(w, http.StatusBadRequest, CodeQuestionTooLong, "Question exceeds the maximum length"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	answer := h.service.Process(r.Context(), question)

	// Pipeline failures are carried inside the answer; the HTTP exchange
	// itself succeeded.
	if err := WriteJSON(w, http.StatusOK, answer); err != nil {
		h.logger.Error("Failed to encode answer", zap.Error(err))
	}
}
