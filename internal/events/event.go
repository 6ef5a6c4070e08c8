// Package events publishes board change notifications to interested consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names the mutation that produced an event
type Type string

const (
	TypeTaskAdded         Type = "task_added"
	TypeTaskMoved         Type = "task_moved"
	TypeTaskEdited        Type = "task_edited"
	TypeTaskDeleted       Type = "task_deleted"
	TypeTaskRestored      Type = "task_restored"
	TypeTaskMerged        Type = "task_merged"
	TypeSubtasksGenerated Type = "subtasks_generated"
	TypeTaskCategorized   Type = "task_categorized"
	TypeTaskPrioritized   Type = "task_prioritized"
	TypeBoardReplaced     Type = "board_replaced"
	TypeBoardWiped        Type = "board_wiped"
)

// Event describes one change to the board
type Event struct {
	ID     uuid.UUID `json:"id"`
	Type   Type      `json:"type"`
	TaskID string    `json:"task_id,omitempty"`
	At     time.Time `json:"at"`
}

// New creates an event stamped with at
func New(t Type, taskID string, at time.Time) Event {
	return Event{
		ID:     uuid.New(),
		Type:   t,
		TaskID: taskID,
		At:     at,
	}
}

// Decode parses an event body
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event %s has no type", e.ID)
	}
	return e, nil
}

// Publisher delivers events. Publish must not block the caller for long; failures are
// reported but never undo the mutation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) HealthCheck(context.Context) error    { return nil }
func (NopPublisher) Close() error                         { return nil }
