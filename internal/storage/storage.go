// Package storage persists board snapshots to a key-value backend.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/taskboard/internal/models"
)

const (
	// DefaultKeyPrefix namespaces every key the adapter writes
	DefaultKeyPrefix = "taskboard_"

	keyTasks   = "tasks"
	keyMetrics = "metrics"
	keyTheme   = "theme"
)

// ErrNotFound is returned by backends when a key does not exist
var ErrNotFound = errors.New("key not found")

// Backend is a persistent key-value store
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
	Close() error
}

// LoadError reports persisted data that could not be read. The snapshot returned
// alongside it holds defaults and is safe to use.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// WriteError reports a write the backend rejected
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Adapter reads and writes board snapshots
type Adapter struct {
	backend Backend
	prefix  string
}

// NewAdapter creates an adapter over backend. An empty prefix uses DefaultKeyPrefix.
func NewAdapter(backend Backend, prefix string) *Adapter {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Adapter{backend: backend, prefix: prefix}
}

// Backend returns the underlying backend
func (a *Adapter) Backend() Backend {
	return a.backend
}

func (a *Adapter) key(name string) string {
	return a.prefix + name
}

// Load reads the persisted snapshot. Missing keys yield defaults; malformed data yields
// the empty snapshot together with a *LoadError.
func (a *Adapter) Load(ctx context.Context) (models.Snapshot, error) {
	snap := models.EmptySnapshot()

	raw, err := a.backend.Get(ctx, a.key(keyTasks))
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return models.EmptySnapshot(), &LoadError{Key: a.key(keyTasks), Err: err}
	default:
		var tasks []*models.Task
		if err := json.Unmarshal(raw, &tasks); err != nil {
			return models.EmptySnapshot(), &LoadError{Key: a.key(keyTasks), Err: err}
		}
		if err := models.NormalizeTasks(tasks); err != nil {
			return models.EmptySnapshot(), &LoadError{Key: a.key(keyTasks), Err: err}
		}
		if tasks != nil {
			snap.Tasks = tasks
		}
	}

	raw, err = a.backend.Get(ctx, a.key(keyMetrics))
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return models.EmptySnapshot(), &LoadError{Key: a.key(keyMetrics), Err: err}
	default:
		if err := json.Unmarshal(raw, &snap.Metrics); err != nil {
			return models.EmptySnapshot(), &LoadError{Key: a.key(keyMetrics), Err: err}
		}
	}

	return snap, nil
}

// Save writes the snapshot's tasks and metrics
func (a *Adapter) Save(ctx context.Context, snap models.Snapshot) error {
	tasks := snap.Tasks
	if tasks == nil {
		tasks = []*models.Task{}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return &WriteError{Key: a.key(keyTasks), Err: err}
	}
	metricsJSON, err := json.Marshal(snap.Metrics)
	if err != nil {
		return &WriteError{Key: a.key(keyMetrics), Err: err}
	}

	if err := a.backend.Set(ctx, a.key(keyTasks), tasksJSON); err != nil {
		return &WriteError{Key: a.key(keyTasks), Err: err}
	}
	if err := a.backend.Set(ctx, a.key(keyMetrics), metricsJSON); err != nil {
		return &WriteError{Key: a.key(keyMetrics), Err: err}
	}
	return nil
}

// LoadTheme returns the persisted theme, or ok=false when none is stored
func (a *Adapter) LoadTheme(ctx context.Context) (theme models.Theme, ok bool, err error) {
	raw, err := a.backend.Get(ctx, a.key(keyTheme))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &LoadError{Key: a.key(keyTheme), Err: err}
	}
	switch t := models.Theme(raw); t {
	case models.ThemeDark, models.ThemeLight:
		return t, true, nil
	default:
		return "", false, &LoadError{Key: a.key(keyTheme), Err: fmt.Errorf("unknown theme %q", string(raw))}
	}
}

// SaveTheme persists the theme
func (a *Adapter) SaveTheme(ctx context.Context, theme models.Theme) error {
	if err := a.backend.Set(ctx, a.key(keyTheme), []byte(theme)); err != nil {
		return &WriteError{Key: a.key(keyTheme), Err: err}
	}
	return nil
}

// Clear removes every key written by this adapter
func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.backend.DeletePrefix(ctx, a.prefix); err != nil {
		return fmt.Errorf("failed to clear storage: %w", err)
	}
	return nil
}
