package models

import (
	"fmt"
	"strings"
	"time"
)

// Column is the board column a task sits in
type Column string

const (
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "in-progress"
	ColumnDone       Column = "done"
)

// Columns lists the board columns in display order
var Columns = []Column{ColumnTodo, ColumnInProgress, ColumnDone}

// ParseColumn converts a string into a Column. The legacy "inprogress" spelling is accepted.
func ParseColumn(value string) (Column, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(ColumnTodo):
		return ColumnTodo, nil
	case string(ColumnInProgress), "inprogress", "in_progress":
		return ColumnInProgress, nil
	case string(ColumnDone):
		return ColumnDone, nil
	default:
		return "", fmt.Errorf("invalid column: %q (must be 'todo', 'in-progress', or 'done')", value)
	}
}

// Valid reports whether c is one of the board columns
func (c Column) Valid() bool {
	switch c {
	case ColumnTodo, ColumnInProgress, ColumnDone:
		return true
	default:
		return false
	}
}

// Category is one of the fixed task categories
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryUrgent   Category = "Urgent"
	CategoryShopping Category = "Shopping"
	CategoryHealth   Category = "Health"
	CategoryProjects Category = "Projects"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryUrgent,
	CategoryShopping,
	CategoryHealth,
	CategoryProjects,
}

// ParseCategory matches value against the category set, ignoring case and surrounding
// whitespace, and returns the canonical spelling.
func ParseCategory(value string) (Category, bool) {
	v := strings.TrimSpace(value)
	for _, c := range Categories {
		if strings.EqualFold(v, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Priority is one of the fixed priority levels
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityNormal   Priority = "Normal"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every priority from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical}

// ParsePriority matches value against the priority set, ignoring case.
func ParsePriority(value string) (Priority, bool) {
	v := strings.TrimSpace(value)
	for _, p := range Priorities {
		if strings.EqualFold(v, string(p)) {
			return p, true
		}
	}
	return "", false
}

// Task represents one unit of work on the board
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Category    *Category  `json:"category,omitempty" yaml:"category,omitempty"`
	Priority    *Priority  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Column      Column     `json:"column" yaml:"column"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
	CompletedAt *time.Time `json:"completedAt" yaml:"completedAt"`
	Subtasks    []string   `json:"subtasks" yaml:"subtasks"`
	AIGenerated bool       `json:"aiGenerated" yaml:"aiGenerated"`
}

// Clone returns a deep copy so callers can hand tasks out without sharing state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Category != nil {
		v := *t.Category
		c.Category = &v
	}
	if t.Priority != nil {
		v := *t.Priority
		c.Priority = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	c.Subtasks = append([]string(nil), t.Subtasks...)
	if c.Subtasks == nil {
		c.Subtasks = []string{}
	}
	return &c
}

// SetColumn moves the task, keeping CompletedAt set exactly while the task is done.
// It reports whether the column changed.
func (t *Task) SetColumn(column Column, now time.Time) bool {
	if t.Column == column {
		return false
	}
	old := t.Column
	t.Column = column
	switch {
	case column == ColumnDone && old != ColumnDone:
		completed := now
		t.CompletedAt = &completed
	case old == ColumnDone && column != ColumnDone:
		t.CompletedAt = nil
	}
	return true
}

// IsDone reports whether the task is in the done column
func (t *Task) IsDone() bool {
	return t.Column == ColumnDone
}

// CategoryString returns the category or "" when unset
func (t *Task) CategoryString() string {
	if t.Category == nil {
		return ""
	}
	return string(*t.Category)
}

// PriorityString returns the priority or "" when unset
func (t *Task) PriorityString() string {
	if t.Priority == nil {
		return ""
	}
	return string(*t.Priority)
}

// CategoryPtr is a convenience for building optional categories
func CategoryPtr(c Category) *Category {
	return &c
}

// PriorityPtr is a convenience for building optional priorities
func PriorityPtr(p Priority) *Priority {
	return &p
}
