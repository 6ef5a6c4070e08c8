package models

import (
	"math"
	"time"
)

// Metrics is the aggregate derived from the task list after every mutation
type Metrics struct {
	TotalTasks        int `json:"totalTasks" yaml:"totalTasks"`
	CompletedToday    int `json:"completedToday" yaml:"completedToday"`
	ProductivityScore int `json:"productivityScore" yaml:"productivityScore"`
}

// ComputeMetrics derives metrics from tasks. "Today" is the calendar day of now in now's location.
func ComputeMetrics(tasks []*Task, now time.Time) Metrics {
	m := Metrics{TotalTasks: len(tasks)}
	if len(tasks) == 0 {
		return m
	}

	y, mo, d := now.Date()
	completed := 0
	for _, t := range tasks {
		if !t.IsDone() {
			continue
		}
		completed++
		if t.CompletedAt != nil {
			cy, cm, cd := t.CompletedAt.In(now.Location()).Date()
			if cy == y && cm == mo && cd == d {
				m.CompletedToday++
			}
		}
	}

	active := len(tasks) - completed
	score := 100 * float64(completed) / float64(completed+active)
	m.ProductivityScore = int(math.Round(math.Min(100, score)))
	return m
}

// Theme is the persisted colour scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Toggle returns the opposite theme
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Snapshot is everything the storage adapter persists for the board
type Snapshot struct {
	Tasks   []*Task `json:"tasks" yaml:"tasks"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
}

// EmptySnapshot returns the default snapshot used when nothing has been persisted
func EmptySnapshot() Snapshot {
	return Snapshot{Tasks: []*Task{}}
}
