package models

import (
	"errors"
	"fmt"
	"strings"
)

// Normalize checks that t satisfies the task invariants and rewrites its enumerations
// to their canonical spelling. Null subtasks become an empty list.
func (t *Task) Normalize() error {
	if t.ID == "" {
		return errors.New("task has no id")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task %q has a blank title", t.ID)
	}
	col, err := ParseColumn(string(t.Column))
	if err != nil {
		return fmt.Errorf("task %q: %w", t.ID, err)
	}
	t.Column = col
	if (t.CompletedAt != nil) != (col == ColumnDone) {
		return fmt.Errorf("task %q: completedAt must be set exactly when the task is done", t.ID)
	}
	if t.Category != nil {
		c, ok := ParseCategory(string(*t.Category))
		if !ok {
			return fmt.Errorf("task %q: unknown category %q", t.ID, string(*t.Category))
		}
		t.Category = &c
	}
	if t.Priority != nil {
		p, ok := ParsePriority(string(*t.Priority))
		if !ok {
			return fmt.Errorf("task %q: unknown priority %q", t.ID, string(*t.Priority))
		}
		t.Priority = &p
	}
	if t.Subtasks == nil {
		t.Subtasks = []string{}
	}
	return nil
}

// NormalizeTasks applies Normalize to every task and rejects null entries and
// duplicate ids. It is used on everything read back from storage or a backup file.
func NormalizeTasks(tasks []*Task) error {
	seen := make(map[string]struct{}, len(tasks))
	for i, t := range tasks {
		if t == nil {
			return fmt.Errorf("task %d is null", i)
		}
		if err := t.Normalize(); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate task id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}
