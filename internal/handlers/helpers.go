package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benvon/taskboard/internal/board"
	logpkg "github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/reset"
	"github.com/benvon/taskboard/internal/services/suggest"
	"github.com/benvon/taskboard/internal/validation"
)

const maxResponseMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError sends an error JSON response. The message is truncated and stripped of
// control characters before it leaves the process.
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   logpkg.SanitizeString(message, maxResponseMessageLength),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// decodeJSON reads a JSON body into dst and validates it. It writes the error response
// itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
		case errors.Is(err, io.EOF):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Request body is required")
		default:
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		}
		return false
	}
	if err := validation.Struct(dst); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
		return false
	}
	return true
}

// respondError maps a domain error to its status code. Unknown errors become a generic 500.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrEmptyTitle),
		errors.Is(err, board.ErrInvalidColumn),
		errors.Is(err, board.ErrSelfMerge),
		errors.Is(err, reset.ErrConfirmationMismatch):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, board.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, board.ErrNothingToUndo),
		errors.Is(err, board.ErrAlreadyExists),
		errors.Is(err, reset.ErrInvalidTransition):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, board.ErrAIDisabled):
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	case suggest.IsBackendError(err), suggest.IsNetworkError(err):
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "AI backend request failed")
	default:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}
