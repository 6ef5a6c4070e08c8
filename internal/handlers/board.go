package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/benvon/taskboard/internal/board"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/notify"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	// DefaultNotificationLimit is how many notifications are returned without ?limit=
	DefaultNotificationLimit = 20
	defaultTheme             = models.ThemeDark
)

// ThemeStore persists the colour scheme
type ThemeStore interface {
	LoadTheme(ctx context.Context) (models.Theme, bool, error)
	SaveTheme(ctx context.Context, theme models.Theme) error
}

// BoardHandler serves the board overview, metrics, theme and notification feed
type BoardHandler struct {
	store  *board.Store
	themes ThemeStore
	feed   *notify.Feed
	logger *zap.Logger
}

// NewBoardHandler creates a board handler
func NewBoardHandler(store *board.Store, themes ThemeStore, feed *notify.Feed, logger *zap.Logger) *BoardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoardHandler{store: store, themes: themes, feed: feed, logger: logger}
}

// RegisterRoutes registers the routes on the /api/v1 router
func (h *BoardHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/board", h.GetBoard).Methods("GET")
	r.HandleFunc("/metrics", h.GetMetrics).Methods("GET")
	r.HandleFunc("/theme", h.GetTheme).Methods("GET")
	r.HandleFunc("/theme", h.PutTheme).Methods("PUT")
	r.HandleFunc("/theme/toggle", h.ToggleTheme).Methods("POST")
	r.HandleFunc("/notifications", h.ListNotifications).Methods("GET")
	r.HandleFunc("/notifications", h.ClearNotifications).Methods("DELETE")
}

// ColumnView is one rendered column
type ColumnView struct {
	Column models.Column  `json:"column"`
	Count  int            `json:"count"`
	Tasks  []*models.Task `json:"tasks"`
}

// BoardResponse is everything a client needs to draw the board
type BoardResponse struct {
	Columns       []ColumnView            `json:"columns"`
	Metrics       models.Metrics          `json:"metrics"`
	CategoryStats map[models.Category]int `json:"categoryStats"`
	CanUndo       bool                    `json:"canUndo"`
	Query         string                  `json:"query,omitempty"`
}

// ThemeRequest sets the theme
type ThemeRequest struct {
	Theme string `json:"theme" validate:"required,board_theme"`
}

// ThemeResponse carries the current theme
type ThemeResponse struct {
	Theme models.Theme `json:"theme"`
}

// GetBoard returns the columns in display order. ?q= filters the tasks shown; counts
// always reflect the filtered view, as the search box does.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	byColumn := h.store.ByColumn(q)

	columns := make([]ColumnView, 0, len(models.Columns))
	for _, c := range models.Columns {
		tasks := byColumn[c]
		if tasks == nil {
			tasks = []*models.Task{}
		}
		columns = append(columns, ColumnView{Column: c, Count: len(tasks), Tasks: tasks})
	}

	respondJSON(w, http.StatusOK, BoardResponse{
		Columns:       columns,
		Metrics:       h.store.Metrics(),
		CategoryStats: h.store.CategoryStats(),
		CanUndo:       h.store.CanUndo(),
		Query:         q,
	})
}

// GetMetrics returns the derived metrics
func (h *BoardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Metrics())
}

// GetTheme returns the persisted theme, dark when none is stored
func (h *BoardHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ThemeResponse{Theme: h.currentTheme(r.Context())})
}

// PutTheme stores the theme
func (h *BoardHandler) PutTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.saveTheme(w, r, models.Theme(req.Theme))
}

// ToggleTheme flips between dark and light
func (h *BoardHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	h.saveTheme(w, r, h.currentTheme(r.Context()).Toggle())
}

func (h *BoardHandler) currentTheme(ctx context.Context) models.Theme {
	theme, ok, err := h.themes.LoadTheme(ctx)
	if err != nil {
		h.logger.Warn("theme_load_failed", zap.Error(err))
	}
	if !ok {
		return defaultTheme
	}
	return theme
}

func (h *BoardHandler) saveTheme(w http.ResponseWriter, r *http.Request, theme models.Theme) {
	if err := h.themes.SaveTheme(r.Context(), theme); err != nil {
		h.logger.Error("theme_save_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save theme")
		return
	}
	respondJSON(w, http.StatusOK, ThemeResponse{Theme: theme})
}

// ListNotifications returns the newest notifications first
func (h *BoardHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := DefaultNotificationLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	respondJSON(w, http.StatusOK, h.feed.Recent(limit))
}

// ClearNotifications empties the feed
func (h *BoardHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.feed.Clear()
	w.WriteHeader(http.StatusNoContent)
}
