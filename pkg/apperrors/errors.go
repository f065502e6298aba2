package apperrors

import "errors"

var (
	// ErrNoConfidence marks a question the confidence gate declined to
	// compile. Surfaced as a clarification, never logged as an error.
	ErrNoConfidence = errors.New("retrieval evidence too weak to compile a query")

	// ErrUnparseableResponse marks generator output that survived none of
	// the repair stages.
	ErrUnparseableResponse = errors.New("could not parse generator output as a query")

	// ErrInvalidQuery marks a parsed query that failed validation against
	// the candidate set.
	ErrInvalidQuery = errors.New("generated query references unknown fields")

	// ErrServiceUnavailable marks a downstream metrics or record service
	// failure. Full detail stays in the trace.
	ErrServiceUnavailable = errors.New("downstream service unavailable")

	// ErrEmptyCatalog is fatal at startup: there is nothing to compile
	// against.
	ErrEmptyCatalog = errors.New("metadata catalog is empty")
)
