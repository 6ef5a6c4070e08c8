// Package board holds the task list and every operation that changes it.
//
// All mutations are serialised behind one mutex. Calls to the AI backend are made
// without holding it, so a slow suggestion never blocks other requests; its result is
// applied to whatever the task looks like when the answer arrives.
package board

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benvon/taskboard/internal/clock"
	"github.com/benvon/taskboard/internal/events"
	"github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/notify"
	"github.com/benvon/taskboard/internal/priority"
	"github.com/benvon/taskboard/internal/services/suggest"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// publishTimeout bounds event delivery so a slow broker cannot stall a request
const publishTimeout = 2 * time.Second

// AddInput describes a new task. Nil category or priority are filled in by suggestion.
type AddInput struct {
	Title    string
	Category *models.Category
	Priority *models.Priority
	Column   models.Column
}

type undoSlot struct {
	task  *models.Task
	index int
}

// Store owns the ordered task list
type Store struct {
	mu      sync.Mutex
	tasks   []*models.Task
	metrics models.Metrics
	undo    *undoSlot

	suggester suggest.Suggester
	heuristic *priority.Heuristic
	clock     clock.Clock
	logger    *zap.Logger
	notifier  notify.Notifier
	publisher events.Publisher
	onChange  func()
	newID     func() string
}

// Option configures a Store
type Option func(*Store)

// WithSuggester enables AI categorisation and subtask generation
func WithSuggester(s suggest.Suggester) Option {
	return func(st *Store) { st.suggester = s }
}

// WithHeuristic replaces the default priority keywords
func WithHeuristic(h *priority.Heuristic) Option {
	return func(st *Store) {
		if h != nil {
			st.heuristic = h
		}
	}
}

// WithClock injects the time source
func WithClock(c clock.Clock) Option {
	return func(st *Store) {
		if c != nil {
			st.clock = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(st *Store) {
		if l != nil {
			st.logger = l
		}
	}
}

// WithNotifier sets where user-facing messages go
func WithNotifier(n notify.Notifier) Option {
	return func(st *Store) {
		if n != nil {
			st.notifier = n
		}
	}
}

// WithPublisher sets the change-event publisher
func WithPublisher(p events.Publisher) Option {
	return func(st *Store) {
		if p != nil {
			st.publisher = p
		}
	}
}

// WithChangeHook registers fn to run after every mutation (the persist request)
func WithChangeHook(fn func()) Option {
	return func(st *Store) { st.onChange = fn }
}

// WithIDGenerator overrides task id generation
func WithIDGenerator(fn func() string) Option {
	return func(st *Store) {
		if fn != nil {
			st.newID = fn
		}
	}
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		tasks:     []*models.Task{},
		heuristic: priority.New(priority.DefaultKeywords()),
		clock:     clock.Real(),
		logger:    zap.NewNop(),
		notifier:  notify.Discard{},
		publisher: events.NopPublisher{},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add creates a task. A missing category is asked of the AI backend; failure there is
// reported but never fails the add. A missing priority comes from the keyword heuristic.
func (s *Store) Add(ctx context.Context, in AddInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	column := in.Column
	if column == "" {
		column = models.ColumnTodo
	}
	if !column.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, column)
	}

	category := in.Category
	if category == nil && s.suggester != nil {
		category = s.suggestCategory(ctx, title)
	}

	prio := in.Priority
	if prio == nil {
		p := s.heuristic.Suggest(title)
		prio = &p
	}

	now := s.clock.Now()
	task := &models.Task{
		ID:        s.newID(),
		Title:     title,
		Category:  category,
		Priority:  prio,
		Column:    models.ColumnTodo,
		CreatedAt: now,
		Subtasks:  []string{},
	}
	task.SetColumn(column, now)

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.undo = nil
	s.recomputeLocked()
	out := task.Clone()
	s.mu.Unlock()

	s.logger.Info("task_added",
		zap.String("task_id", out.ID),
		zap.String("title", logger.SanitizeUserContent(out.Title)),
		zap.String("category", out.CategoryString()),
		zap.String("priority", out.PriorityString()),
		zap.String("column", string(out.Column)),
	)
	s.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Task %q added", out.Title))
	s.changed(ctx, events.TypeTaskAdded, out.ID)
	return out, nil
}

// Move places a task in column. Moving to the current column is a no-op.
func (s *Store) Move(ctx context.Context, id string, column models.Column) (*models.Task, error) {
	if !column.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, column)
	}

	s.mu.Lock()
	task, _ := s.findLocked(id)
	if task == nil {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	old := task.Column
	if !task.SetColumn(column, s.clock.Now()) {
		out := task.Clone()
		s.mu.Unlock()
		return out, nil
	}
	s.undo = nil
	s.recomputeLocked()
	out := task.Clone()
	s.mu.Unlock()

	s.logger.Info("task_moved",
		zap.String("task_id", id),
		zap.String("from", string(old)),
		zap.String("to", string(column)),
	)
	if column == models.ColumnDone {
		s.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Task %q completed", out.Title))
	}
	s.changed(ctx, events.TypeTaskMoved, id)
	return out, nil
}

// Edit replaces a task's title
func (s *Store) Edit(ctx context.Context, id, title string) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	s.mu.Lock()
	task, _ := s.findLocked(id)
	if task == nil {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	task.Title = title
	s.undo = nil
	s.recomputeLocked()
	out := task.Clone()
	s.mu.Unlock()

	s.logger.Info("task_edited", zap.String("task_id", id))
	s.changed(ctx, events.TypeTaskEdited, id)
	return out, nil
}

// Delete removes a task and keeps it, with its position, in the undo slot
func (s *Store) Delete(ctx context.Context, id string) (*models.Task, int, error) {
	s.mu.Lock()
	task, index := s.findLocked(id)
	if task == nil {
		s.mu.Unlock()
		return nil, -1, ErrNotFound
	}
	s.tasks = append(s.tasks[:index], s.tasks[index+1:]...)
	s.undo = &undoSlot{task: task.Clone(), index: index}
	s.recomputeLocked()
	out := task.Clone()
	s.mu.Unlock()

	s.logger.Info("task_deleted", zap.String("task_id", id), zap.Int("index", index))
	s.notifier.NotifyAction(notify.LevelWarning, fmt.Sprintf("Task %q deleted", out.Title), "undo")
	s.changed(ctx, events.TypeTaskDeleted, id)
	return out, index, nil
}

// Restore inserts task at index, clamped to the list bounds. A task whose id is still
// on the board is rejected with ErrAlreadyExists.
func (s *Store) Restore(ctx context.Context, task *models.Task, index int) (*models.Task, error) {
	if task == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(task.Title) == "" {
		return nil, ErrEmptyTitle
	}

	restored := task.Clone()
	if restored.ID == "" {
		restored.ID = s.newID()
	}
	if !restored.Column.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, restored.Column)
	}
	switch {
	case restored.Column == models.ColumnDone && restored.CompletedAt == nil:
		now := s.clock.Now()
		restored.CompletedAt = &now
	case restored.Column != models.ColumnDone:
		restored.CompletedAt = nil
	}

	s.mu.Lock()
	if existing, _ := s.findLocked(restored.ID); existing != nil {
		s.mu.Unlock()
		return nil, ErrAlreadyExists
	}
	index = s.insertLocked(restored, index)
	s.undo = nil
	s.recomputeLocked()
	out := restored.Clone()
	s.mu.Unlock()

	s.logger.Info("task_restored", zap.String("task_id", out.ID), zap.Int("index", index))
	s.notifier.Notify(notify.LevelSuccess, "Task restored")
	s.changed(ctx, events.TypeTaskRestored, out.ID)
	return out, nil
}

// Undo restores the most recently deleted task and empties the undo slot
func (s *Store) Undo(ctx context.Context) (*models.Task, error) {
	s.mu.Lock()
	slot := s.undo
	s.undo = nil
	s.mu.Unlock()

	if slot == nil {
		return nil, ErrNothingToUndo
	}
	return s.Restore(ctx, slot.task, slot.index)
}

// CanUndo reports whether the undo slot holds a task
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undo != nil
}

// MergeAsSubtask appends the source title to the target's subtasks and removes the
// source. The source's category, priority and id are not carried over.
func (s *Store) MergeAsSubtask(ctx context.Context, sourceID, targetID string) (*models.Task, error) {
	if sourceID == targetID {
		return nil, ErrSelfMerge
	}

	s.mu.Lock()
	source, sourceIndex := s.findLocked(sourceID)
	target, _ := s.findLocked(targetID)
	if source == nil || target == nil {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	target.Subtasks = append(target.Subtasks, source.Title)
	s.tasks = append(s.tasks[:sourceIndex], s.tasks[sourceIndex+1:]...)
	s.undo = nil
	s.recomputeLocked()
	out := target.Clone()
	s.mu.Unlock()

	s.logger.Info("task_merged",
		zap.String("source_id", sourceID),
		zap.String("target_id", targetID),
	)
	s.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Subtask added to %q", out.Title))
	s.changed(ctx, events.TypeTaskMerged, targetID)
	return out, nil
}

// Replace installs a loaded snapshot's tasks, discarding the current list
func (s *Store) Replace(ctx context.Context, tasks []*models.Task) {
	cloned := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t != nil {
			cloned = append(cloned, t.Clone())
		}
	}

	s.mu.Lock()
	s.tasks = cloned
	s.undo = nil
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Info("board_replaced", zap.Int("task_count", len(cloned)))
	s.publish(ctx, events.TypeBoardReplaced, "")
}

// Wipe empties the board; metrics return to zero
func (s *Store) Wipe(ctx context.Context) {
	s.mu.Lock()
	s.tasks = []*models.Task{}
	s.undo = nil
	s.recomputeLocked()
	s.mu.Unlock()

	s.logger.Info("board_wiped")
	s.publish(ctx, events.TypeBoardWiped, "")
}

// Snapshot returns a deep copy of the persisted state
func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Snapshot{Tasks: s.cloneTasksLocked(), Metrics: s.metrics}
}

func (s *Store) findLocked(id string) (*models.Task, int) {
	for i, t := range s.tasks {
		if t.ID == id {
			return t, i
		}
	}
	return nil, -1
}

func (s *Store) insertLocked(task *models.Task, index int) int {
	if index < 0 {
		index = 0
	}
	if index > len(s.tasks) {
		index = len(s.tasks)
	}
	s.tasks = append(s.tasks, nil)
	copy(s.tasks[index+1:], s.tasks[index:])
	s.tasks[index] = task
	return index
}

func (s *Store) recomputeLocked() {
	s.metrics = models.ComputeMetrics(s.tasks, s.clock.Now())
}

func (s *Store) cloneTasksLocked() []*models.Task {
	out := make([]*models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

// changed runs the persist hook and publishes the change event
func (s *Store) changed(ctx context.Context, t events.Type, taskID string) {
	if s.onChange != nil {
		s.onChange()
	}
	s.publish(ctx, t, taskID)
}

func (s *Store) publish(ctx context.Context, t events.Type, taskID string) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, events.New(t, taskID, s.clock.Now())); err != nil {
		s.logger.Warn("event_publish_failed",
			zap.String("event_type", string(t)),
			zap.String("task_id", taskID),
			zap.Error(err),
		)
	}
}
