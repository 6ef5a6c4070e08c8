package handlers

import (
	"net/http"
	"strings"

	"github.com/benvon/taskboard/internal/board"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/validation"
	"github.com/gorilla/mux"
)

// MaxTitleLength is the longest title accepted over the API
const MaxTitleLength = 200

// TaskHandler serves the task endpoints
type TaskHandler struct {
	store *board.Store
}

// NewTaskHandler creates a task handler
func NewTaskHandler(store *board.Store) *TaskHandler {
	return &TaskHandler{store: store}
}

// RegisterRoutes registers task routes. The router should already carry the /tasks prefix.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	// Fixed paths go before /{id} so they are not captured as ids.
	r.HandleFunc("/undo", h.Undo).Methods("POST")
	r.HandleFunc("/categorize", h.Categorize).Methods("POST")
	r.HandleFunc("/prioritize", h.Prioritize).Methods("POST")
	r.HandleFunc("/subtasks", h.GenerateForLatest).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/move", h.MoveTask).Methods("POST")
	r.HandleFunc("/{id}/merge", h.MergeTask).Methods("POST")
	r.HandleFunc("/{id}/subtasks", h.GenerateSubtasks).Methods("POST")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title    string  `json:"title" validate:"required,not_blank,max=200"`
	Category *string `json:"category,omitempty" validate:"omitempty,task_category"`
	Priority *string `json:"priority,omitempty" validate:"omitempty,task_priority"`
	Column   string  `json:"column,omitempty" validate:"omitempty,board_column"`
}

// UpdateTaskRequest represents an edit of the title
type UpdateTaskRequest struct {
	Title string `json:"title" validate:"required,not_blank,max=200"`
}

// MoveTaskRequest represents a column change
type MoveTaskRequest struct {
	Column string `json:"column" validate:"required,board_column"`
}

// MergeTaskRequest names the task the path task is merged into
type MergeTaskRequest struct {
	TargetID string `json:"targetId" validate:"required,not_blank"`
}

// ListTasksResponse is the filtered task list
type ListTasksResponse struct {
	Tasks []*models.Task `json:"tasks"`
	Query string         `json:"query,omitempty"`
	Total int            `json:"total"`
}

// DeleteTaskResponse reports the removed task and where it sat, so a client can offer undo
type DeleteTaskResponse struct {
	Task    *models.Task `json:"task"`
	Index   int          `json:"index"`
	CanUndo bool         `json:"canUndo"`
}

// CountResponse reports how many tasks an action changed
type CountResponse struct {
	Updated int `json:"updated"`
}

// ListTasks lists tasks in board order, filtered by ?q= when given
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	tasks := h.store.Filter(q)
	respondJSON(w, http.StatusOK, ListTasksResponse{Tasks: tasks, Query: q, Total: len(tasks)})
}

// CreateTask adds a task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := board.AddInput{Title: validation.SanitizeText(req.Title)}
	if req.Category != nil {
		if c, ok := models.ParseCategory(*req.Category); ok {
			in.Category = &c
		}
	}
	if req.Priority != nil {
		if p, ok := models.ParsePriority(*req.Priority); ok {
			in.Priority = &p
		}
	}
	if req.Column != "" {
		col, err := models.ParseColumn(req.Column)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		in.Column = col
	}

	task, err := h.store.Add(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// GetTask returns one task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask edits the title
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.store.Edit(r.Context(), mux.Vars(r)["id"], validation.SanitizeText(req.Title))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task and keeps it in the undo slot
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, index, err := h.store.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DeleteTaskResponse{Task: task, Index: index, CanUndo: true})
}

// Undo restores the last deleted task
func (h *TaskHandler) Undo(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.Undo(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// MoveTask moves a task to another column
func (h *TaskHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	var req MoveTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	col, err := models.ParseColumn(req.Column)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	task, err := h.store.Move(r.Context(), mux.Vars(r)["id"], col)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// MergeTask folds the path task into the target as a subtask
func (h *TaskHandler) MergeTask(w http.ResponseWriter, r *http.Request) {
	var req MergeTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.store.MergeAsSubtask(r.Context(), mux.Vars(r)["id"], strings.TrimSpace(req.TargetID))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// GenerateSubtasks asks the AI backend for subtasks of one task
func (h *TaskHandler) GenerateSubtasks(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.GenerateSubtasks(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// GenerateForLatest generates subtasks for the most recent task not yet done
func (h *TaskHandler) GenerateForLatest(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.GenerateForLatestActive(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Categorize asks the AI backend to categorise uncategorised active tasks
func (h *TaskHandler) Categorize(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.CategorizePending(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CountResponse{Updated: n})
}

// Prioritize applies the keyword heuristic to active tasks without a priority
func (h *TaskHandler) Prioritize(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CountResponse{Updated: h.store.SuggestPriorities(r.Context())})
}
