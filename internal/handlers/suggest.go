package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/taskboard/internal/services/ai"
	"github.com/benvon/taskboard/internal/services/suggest"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Answerer produces the text for a suggestion request
type Answerer interface {
	Answer(ctx context.Context, t suggest.Type, prompt string) (string, error)
}

// SuggestionHandler hosts the AI backend at POST /api/openai. It speaks the wire
// format the suggestion client expects: a chat-completion body on success and
// {"error": "..."} on failure, without the usual API envelope.
type SuggestionHandler struct {
	answerer Answerer
	logger   *zap.Logger
	now      func() time.Time
}

// NewSuggestionHandler creates the backend handler
func NewSuggestionHandler(answerer Answerer, logger *zap.Logger) *SuggestionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionHandler{answerer: answerer, logger: logger, now: time.Now}
}

// RegisterRoutes registers the backend route. The router should already carry the
// suggest.EndpointPath prefix.
func (h *SuggestionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Suggest).Methods("POST")
}

// CompletionResponse is the chat-completion shape returned on success
type CompletionResponse struct {
	Object  string           `json:"object"`
	Created int64            `json:"created"`
	Choices []suggest.Choice `json:"choices"`
}

// Suggest answers one {type, prompt} request
func (h *SuggestionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	content, err := h.answerer.Answer(r.Context(), req.Type, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrUnknownType):
			h.fail(w, http.StatusBadRequest, "Unknown request type")
		case errors.Is(err, ai.ErrEmptyPrompt):
			h.fail(w, http.StatusBadRequest, "Prompt is required")
		case errors.Is(err, ai.ErrPromptTooLong):
			h.fail(w, http.StatusBadRequest, "Prompt is too long")
		default:
			h.logger.Warn("ai_backend_failed", zap.String("type", string(req.Type)), zap.Error(err))
			h.fail(w, ai.StatusFor(err), "AI provider request failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp := CompletionResponse{
		Object:  "chat.completion",
		Created: h.now().Unix(),
		Choices: []suggest.Choice{{Message: suggest.Message{Role: "assistant", Content: content}}},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed_to_encode_completion", zap.Error(err))
	}
}

func (h *SuggestionHandler) fail(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(suggest.ErrorBody{Error: message})
}
