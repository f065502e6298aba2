package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nlquery/nlq-engine/pkg/apperrors"
)

// Error codes carried on the wire in the "error" field.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeEmptyQuestion       = "empty_question"
	CodeQuestionTooLong     = "question_too_long"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeEmptyCatalog        = "empty_catalog"
	CodeNotReady            = "not_ready"
	CodeInternal            = "internal_error"
)

// ErrorBody is the JSON shape of every failure response.
type ErrorBody struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

// ErrorCode maps an internal error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrServiceUnavailable):
		return CodeUpstreamUnavailable
	case errors.Is(err, apperrors.ErrEmptyCatalog):
		return CodeEmptyCatalog
	default:
		return CodeInternal
	}
}

// ErrorResponse writes a failure body and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ErrorBody{Code: errorCode, Message: message})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
