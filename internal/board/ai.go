package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/taskboard/internal/events"
	"github.com/benvon/taskboard/internal/logger"
	"github.com/benvon/taskboard/internal/models"
	"github.com/benvon/taskboard/internal/notify"
	"github.com/benvon/taskboard/internal/services/suggest"
	"go.uber.org/zap"
)

const (
	// MaxGeneratedSubtasks caps how many AI lines become subtasks
	MaxGeneratedSubtasks = 5
	// MaxCategorizePerRun caps AI calls made by one CategorizePending
	MaxCategorizePerRun = 3
)

// suggestCategory asks the backend for a category. Anything that is not a known
// category, including an error, yields nil.
func (s *Store) suggestCategory(ctx context.Context, title string) *models.Category {
	answer, err := s.suggester.Suggest(ctx, suggest.TypeCategorizeTask, title)
	if err != nil {
		s.logger.Warn("ai_categorize_failed",
			zap.String("title", logger.SanitizeUserContent(title)),
			zap.Error(err),
		)
		s.notifier.Notify(notify.LevelError, "AI categorisation failed: "+err.Error())
		return nil
	}
	category, ok := models.ParseCategory(answer)
	if !ok {
		s.logger.Debug("ai_category_rejected", zap.String("answer", logger.SanitizeUserContent(answer)))
		return nil
	}
	return &category
}

// ParseSubtasks splits an AI answer into at most MaxGeneratedSubtasks non-blank lines
func ParseSubtasks(content string) []string {
	out := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == MaxGeneratedSubtasks {
			break
		}
	}
	return out
}

// GenerateSubtasks replaces a task's subtasks with AI-generated ones. On failure the
// task is left unchanged. An answer with no usable lines also leaves it unchanged.
func (s *Store) GenerateSubtasks(ctx context.Context, id string) (*models.Task, error) {
	if s.suggester == nil {
		return nil, ErrAIDisabled
	}

	s.mu.Lock()
	task, _ := s.findLocked(id)
	if task == nil {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	title := task.Title
	s.mu.Unlock()

	answer, err := s.suggester.Suggest(ctx, suggest.TypeGenerateSubtasks, title)
	if err != nil {
		s.logger.Warn("ai_subtasks_failed", zap.String("task_id", id), zap.Error(err))
		s.notifier.Notify(notify.LevelError, "AI subtask generation failed: "+err.Error())
		return nil, fmt.Errorf("failed to generate subtasks: %w", err)
	}
	subtasks := ParseSubtasks(answer)

	s.mu.Lock()
	// The task may have been deleted while the backend was thinking.
	task, _ = s.findLocked(id)
	if task == nil {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if len(subtasks) == 0 {
		out := task.Clone()
		s.mu.Unlock()
		return out, nil
	}
	task.Subtasks = subtasks
	task.AIGenerated = true
	s.undo = nil
	s.recomputeLocked()
	out := task.Clone()
	s.mu.Unlock()

	s.logger.Info("subtasks_generated", zap.String("task_id", id), zap.Int("count", len(subtasks)))
	s.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("%d subtasks generated with AI", len(subtasks)))
	s.changed(ctx, events.TypeSubtasksGenerated, id)
	return out, nil
}

// GenerateForLatestActive generates subtasks for the last task not yet done
func (s *Store) GenerateForLatestActive(ctx context.Context) (*models.Task, error) {
	s.mu.Lock()
	var id string
	for i := len(s.tasks) - 1; i >= 0; i-- {
		if !s.tasks[i].IsDone() {
			id = s.tasks[i].ID
			break
		}
	}
	s.mu.Unlock()

	if id == "" {
		s.notifier.Notify(notify.LevelWarning, "No active task to improve")
		return nil, ErrNotFound
	}
	return s.GenerateSubtasks(ctx, id)
}

// CategorizePending asks the backend to categorise up to MaxCategorizePerRun active tasks
// that have no category. It returns how many tasks received one.
func (s *Store) CategorizePending(ctx context.Context) (int, error) {
	if s.suggester == nil {
		return 0, ErrAIDisabled
	}

	type pending struct{ id, title string }
	s.mu.Lock()
	var todo []pending
	for _, t := range s.tasks {
		if t.Category == nil && !t.IsDone() {
			todo = append(todo, pending{id: t.ID, title: t.Title})
			if len(todo) == MaxCategorizePerRun {
				break
			}
		}
	}
	s.mu.Unlock()

	if len(todo) == 0 {
		s.notifier.Notify(notify.LevelInfo, "All active tasks already have a category")
		return 0, nil
	}

	count := 0
	for _, p := range todo {
		category := s.suggestCategory(ctx, p.title)
		if category == nil {
			continue
		}
		s.mu.Lock()
		task, _ := s.findLocked(p.id)
		applied := task != nil && task.Category == nil
		if applied {
			task.Category = category
			s.undo = nil
			s.recomputeLocked()
		}
		s.mu.Unlock()
		if applied {
			count++
			s.changed(ctx, events.TypeTaskCategorized, p.id)
		}
	}

	if count > 0 {
		s.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("%d task(s) categorised automatically", count))
	} else {
		s.notifier.Notify(notify.LevelInfo, "The AI found no new category for the active tasks")
	}
	s.logger.Info("tasks_categorized", zap.Int("candidates", len(todo)), zap.Int("count", count))
	return count, nil
}

// SuggestPriorities applies the keyword heuristic to every active task without a
// priority and returns how many were updated.
func (s *Store) SuggestPriorities(ctx context.Context) int {
	s.mu.Lock()
	var updated []string
	for _, t := range s.tasks {
		if t.Priority == nil && !t.IsDone() {
			p := s.heuristic.Suggest(t.Title)
			t.Priority = &p
			updated = append(updated, t.ID)
		}
	}
	if len(updated) > 0 {
		s.undo = nil
		s.recomputeLocked()
	}
	s.mu.Unlock()

	if len(updated) == 0 {
		s.notifier.Notify(notify.LevelInfo, "All active tasks already have a priority")
		return 0
	}
	for _, id := range updated {
		s.publish(ctx, events.TypeTaskPrioritized, id)
	}
	if s.onChange != nil {
		s.onChange()
	}
	s.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("%d priority(ies) suggested automatically", len(updated)))
	s.logger.Info("priorities_suggested", zap.Int("count", len(updated)))
	return len(updated)
}
