package models

import (
	"testing"
	"time"
)

func TestTask_Normalize(t *testing.T) {
	t.Parallel()

	done := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	cat := func(s string) *Category { c := Category(s); return &c }
	prio := func(s string) *Priority { p := Priority(s); return &p }

	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{"valid todo", Task{ID: "a", Title: "x", Column: ColumnTodo}, false},
		{"valid done", Task{ID: "a", Title: "x", Column: ColumnDone, CompletedAt: &done}, false},
		{"missing id", Task{Title: "x", Column: ColumnTodo}, true},
		{"blank title", Task{ID: "a", Title: " \t", Column: ColumnTodo}, true},
		{"bad column", Task{ID: "a", Title: "x", Column: "archive"}, true},
		{"done without completedAt", Task{ID: "a", Title: "x", Column: ColumnDone}, true},
		{"completedAt while active", Task{ID: "a", Title: "x", Column: ColumnInProgress, CompletedAt: &done}, true},
		{"unknown category", Task{ID: "a", Title: "x", Column: ColumnTodo, Category: cat("Travail")}, true},
		{"unknown priority", Task{ID: "a", Title: "x", Column: ColumnTodo, Priority: prio("Haute")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			task := tt.task
			err := task.Normalize()
			if tt.wantErr && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestTask_NormalizeCanonicalises(t *testing.T) {
	t.Parallel()

	c, p := Category("work"), Priority("HIGH")
	task := Task{ID: "a", Title: "x", Column: "inprogress", Category: &c, Priority: &p}
	if err := task.Normalize(); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if task.Column != ColumnInProgress {
		t.Errorf("Expected column %q, got %q", ColumnInProgress, task.Column)
	}
	if task.CategoryString() != "Work" || task.PriorityString() != "High" {
		t.Errorf("Expected canonical Work/High, got %s/%s", task.CategoryString(), task.PriorityString())
	}
	if task.Subtasks == nil {
		t.Error("Expected null subtasks to become an empty slice")
	}
}

func TestNormalizeTasks(t *testing.T) {
	t.Parallel()

	if err := NormalizeTasks([]*Task{{ID: "a", Title: "x", Column: ColumnTodo}, nil}); err == nil {
		t.Error("Expected error for a null task")
	}
	dup := []*Task{
		{ID: "a", Title: "x", Column: ColumnTodo},
		{ID: "a", Title: "y", Column: ColumnTodo},
	}
	if err := NormalizeTasks(dup); err == nil {
		t.Error("Expected error for duplicate ids")
	}
	if err := NormalizeTasks(nil); err != nil {
		t.Errorf("Expected an empty list to be valid, got %v", err)
	}
}
