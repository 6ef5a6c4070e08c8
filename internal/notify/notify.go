// Package notify keeps the short feed of user-facing messages (save failures, AI errors,
// undo offers) that a front end shows as toasts.
package notify

import (
	"sync"
	"time"

	"github.com/benvon/taskboard/internal/clock"
	"github.com/google/uuid"
)

// Level is the severity of a notification
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// DefaultCapacity is how many notifications the feed retains
const DefaultCapacity = 50

// Notification is one feed entry. Action, when set, names the API operation the
// front end can offer alongside the message (for example "undo").
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Action  string    `json:"action,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier receives user-facing messages
type Notifier interface {
	Notify(level Level, message string)
	NotifyAction(level Level, message, action string)
}

// Feed is a bounded, newest-last list of notifications
type Feed struct {
	mu       sync.Mutex
	items    []Notification
	capacity int
	clock    clock.Clock
}

// NewFeed creates a feed; capacity <= 0 uses DefaultCapacity and a nil clock uses real time
func NewFeed(capacity int, c clock.Clock) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if c == nil {
		c = clock.Real()
	}
	return &Feed{capacity: capacity, clock: c}
}

func (f *Feed) Notify(level Level, message string) {
	f.NotifyAction(level, message, "")
}

func (f *Feed) NotifyAction(level Level, message, action string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		Action:  action,
		At:      f.clock.Now(),
	})
	if over := len(f.items) - f.capacity; over > 0 {
		f.items = append([]Notification(nil), f.items[over:]...)
	}
}

// Recent returns up to limit notifications, newest first. limit <= 0 returns all.
func (f *Feed) Recent(limit int) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.items)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Notification, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, f.items[i])
	}
	return out
}

// Clear empties the feed
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
}

// Discard is a Notifier that drops everything
type Discard struct{}

func (Discard) Notify(Level, string)               {}
func (Discard) NotifyAction(Level, string, string) {}
