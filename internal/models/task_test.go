package models

import (
	"testing"
	"time"
)

func TestParseColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    Column
		wantErr bool
	}{
		{"todo", "todo", ColumnTodo, false},
		{"in-progress", "in-progress", ColumnInProgress, false},
		{"legacy spelling", "inprogress", ColumnInProgress, false},
		{"done upper", "DONE", ColumnDone, false},
		{"invalid", "archived", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseColumn(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColumn(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColumn(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  Category
		ok    bool
	}{
		{"Work", CategoryWork, true},
		{"  shopping \n", CategoryShopping, true},
		{"HEALTH", CategoryHealth, true},
		{"Groceries", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseCategory(tt.value)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseCategory(%q) = (%q, %v), want (%q, %v)", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTask_SetColumn(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	task := &Task{ID: "a", Title: "Write report", Column: ColumnTodo}

	if changed := task.SetColumn(ColumnTodo, now); changed {
		t.Error("Expected no change when moving to the same column")
	}

	task.SetColumn(ColumnDone, now)
	if task.CompletedAt == nil || !task.CompletedAt.Equal(now) {
		t.Fatalf("Expected CompletedAt to be %v, got %v", now, task.CompletedAt)
	}

	later := now.Add(time.Hour)
	task.SetColumn(ColumnDone, later)
	if !task.CompletedAt.Equal(now) {
		t.Error("Expected CompletedAt to be unchanged for a no-op move")
	}

	task.SetColumn(ColumnInProgress, later)
	if task.CompletedAt != nil {
		t.Errorf("Expected CompletedAt to be cleared, got %v", task.CompletedAt)
	}
}

func TestTask_Clone(t *testing.T) {
	t.Parallel()

	original := &Task{
		ID:       "a",
		Title:    "Plan trip",
		Category: CategoryPtr(CategoryPersonal),
		Priority: PriorityPtr(PriorityHigh),
		Subtasks: []string{"book flights"},
	}
	clone := original.Clone()
	clone.Subtasks[0] = "changed"
	*clone.Category = CategoryWork

	if original.Subtasks[0] != "book flights" {
		t.Error("Expected subtasks to be copied")
	}
	if *original.Category != CategoryPersonal {
		t.Error("Expected category to be copied")
	}
}

func TestComputeMetrics(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 18, 0, 0, 0, time.UTC)
	today := now.Add(-2 * time.Hour)
	yesterday := now.Add(-30 * time.Hour)

	tests := []struct {
		name  string
		tasks []*Task
		want  Metrics
	}{
		{
			name:  "empty list",
			tasks: nil,
			want:  Metrics{},
		},
		{
			name: "one of three done today",
			tasks: []*Task{
				{ID: "1", Column: ColumnTodo},
				{ID: "2", Column: ColumnInProgress},
				{ID: "3", Column: ColumnDone, CompletedAt: &today},
			},
			want: Metrics{TotalTasks: 3, CompletedToday: 1, ProductivityScore: 33},
		},
		{
			name: "done yesterday counts for score but not today",
			tasks: []*Task{
				{ID: "1", Column: ColumnDone, CompletedAt: &yesterday},
				{ID: "2", Column: ColumnTodo},
			},
			want: Metrics{TotalTasks: 2, CompletedToday: 0, ProductivityScore: 50},
		},
		{
			name: "all done",
			tasks: []*Task{
				{ID: "1", Column: ColumnDone, CompletedAt: &today},
				{ID: "2", Column: ColumnDone, CompletedAt: &today},
			},
			want: Metrics{TotalTasks: 2, CompletedToday: 2, ProductivityScore: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputeMetrics(tt.tasks, now)
			if got != tt.want {
				t.Errorf("ComputeMetrics() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTheme_Toggle(t *testing.T) {
	t.Parallel()

	if ThemeDark.Toggle() != ThemeLight {
		t.Error("Expected dark to toggle to light")
	}
	if ThemeLight.Toggle() != ThemeDark {
		t.Error("Expected light to toggle to dark")
	}
}
