package handlers

import (
	"net/http"

	"github.com/benvon/taskboard/internal/reset"
	"github.com/gorilla/mux"
)

// ResetHandler drives the guarded reset flow
type ResetHandler struct {
	flow *reset.Flow
}

// NewResetHandler creates a reset handler
func NewResetHandler(flow *reset.Flow) *ResetHandler {
	return &ResetHandler{flow: flow}
}

// RegisterRoutes registers the routes. The router should already carry the /reset prefix.
func (h *ResetHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Status).Methods("GET")
	r.HandleFunc("", h.Request).Methods("POST")
	r.HandleFunc("/confirmation", h.TypeConfirmation).Methods("PUT")
	r.HandleFunc("/confirm", h.Confirm).Methods("POST")
	r.HandleFunc("/cancel", h.Cancel).Methods("POST")
}

// ConfirmationRequest carries the text typed into the confirmation box
type ConfirmationRequest struct {
	Text string `json:"text"`
}

// Status returns the flow state
func (h *ResetHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.flow.Status())
}

// Request opens the confirmation step
func (h *ResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.flow.Request(), http.StatusAccepted)
}

// TypeConfirmation records the typed text; canConfirm in the response says whether it matches
func (h *ResetHandler) TypeConfirmation(w http.ResponseWriter, r *http.Request) {
	var req ConfirmationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w, h.flow.Type(req.Text), http.StatusOK)
}

// Confirm starts the countdown
func (h *ResetHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.flow.Confirm(), http.StatusAccepted)
}

// Cancel aborts the confirmation step or the countdown
func (h *ResetHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.flow.Cancel(), http.StatusOK)
}

func (h *ResetHandler) respond(w http.ResponseWriter, err error, status int) {
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, status, h.flow.Status())
}
