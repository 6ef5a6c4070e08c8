package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/benvon/taskboard/internal/models"
)

func sampleSnapshot() models.Snapshot {
	created := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	completed := created.Add(2 * time.Hour)
	return models.Snapshot{
		Tasks: []*models.Task{
			{
				ID:        "a1",
				Title:     "Finish report",
				Category:  models.CategoryPtr(models.CategoryWork),
				Priority:  models.PriorityPtr(models.PriorityHigh),
				Column:    models.ColumnTodo,
				CreatedAt: created,
				Subtasks:  []string{"outline", "draft"},
			},
			{
				ID:          "b2",
				Title:       "Buy milk",
				Column:      models.ColumnDone,
				CreatedAt:   created,
				CompletedAt: &completed,
				Subtasks:    []string{},
				AIGenerated: true,
			},
		},
		Metrics: models.Metrics{TotalTasks: 2, CompletedToday: 1, ProductivityScore: 50},
	}
}

func TestAdapter_RoundTrip(t *testing.T) {
	t.Parallel()

	backends := map[string]func(t *testing.T) Backend{
		"memory": func(t *testing.T) Backend { return NewMemoryBackend() },
		"sqlite": func(t *testing.T) Backend {
			b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "board.db"))
			if err != nil {
				t.Fatalf("NewSQLiteBackend() error = %v", err)
			}
			t.Cleanup(func() { _ = b.Close() })
			return b
		},
	}

	for name, newBackend := range backends {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			adapter := NewAdapter(newBackend(t), "")

			want := sampleSnapshot()
			if err := adapter.Save(ctx, want); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			got, err := adapter.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Load() = %+v, want %+v", got, want)
			}

			if err := adapter.Save(ctx, got); err != nil {
				t.Fatalf("second Save() error = %v", err)
			}
			again, err := adapter.Load(ctx)
			if err != nil {
				t.Fatalf("second Load() error = %v", err)
			}
			if !reflect.DeepEqual(again, want) {
				t.Errorf("save(load()) changed the snapshot: %+v", again)
			}
		})
	}
}

func TestAdapter_LoadDefaults(t *testing.T) {
	t.Parallel()

	adapter := NewAdapter(NewMemoryBackend(), "")
	snap, err := adapter.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() on empty backend error = %v", err)
	}
	if len(snap.Tasks) != 0 || snap.Metrics != (models.Metrics{}) {
		t.Errorf("Expected empty snapshot, got %+v", snap)
	}
	if snap.Tasks == nil {
		t.Error("Expected non-nil task slice")
	}
}

func TestAdapter_LoadMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"tasks not json", "taskboard_tasks", "{not json"},
		{"metrics not json", "taskboard_metrics", "[]"},
		{"duplicate ids", "taskboard_tasks", `[{"id":"a","title":"x","column":"todo"},{"id":"a","title":"y","column":"todo"}]`},
		{"bad column", "taskboard_tasks", `[{"id":"a","title":"x","column":"archive"}]`},
		{"null task", "taskboard_tasks", `[null]`},
		{"blank title", "taskboard_tasks", `[{"id":"a","title":"  ","column":"todo"}]`},
		{"done without completedAt", "taskboard_tasks", `[{"id":"a","title":"x","column":"done","completedAt":null}]`},
		{"completedAt outside done", "taskboard_tasks", `[{"id":"a","title":"x","column":"todo","completedAt":"2024-01-02T00:00:00Z"}]`},
		{"unknown category", "taskboard_tasks", `[{"id":"a","title":"x","column":"todo","category":"Travail"}]`},
		{"unknown priority", "taskboard_tasks", `[{"id":"a","title":"x","column":"todo","priority":"Haute"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			backend := NewMemoryBackend()
			_ = backend.Set(ctx, tt.key, []byte(tt.value))

			snap, err := NewAdapter(backend, "").Load(ctx)
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Expected *LoadError, got %v", err)
			}
			if loadErr.Key != tt.key {
				t.Errorf("Expected error for key %s, got %s", tt.key, loadErr.Key)
			}
			if len(snap.Tasks) != 0 {
				t.Errorf("Expected default snapshot alongside error, got %d tasks", len(snap.Tasks))
			}
		})
	}
}

func TestAdapter_LoadLegacyColumn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewMemoryBackend()
	_ = backend.Set(ctx, "taskboard_tasks", []byte(`[{"id":"a","title":"x","column":"inprogress","subtasks":null}]`))

	snap, err := NewAdapter(backend, "").Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Tasks[0].Column != models.ColumnInProgress {
		t.Errorf("Expected legacy column to be normalised, got %q", snap.Tasks[0].Column)
	}
	if snap.Tasks[0].Subtasks == nil {
		t.Error("Expected null subtasks to become an empty slice")
	}
}

func TestAdapter_SaveWriteError(t *testing.T) {
	t.Parallel()

	backend := NewMemoryBackend()
	backend.SetErr = errors.New("quota exceeded")

	err := NewAdapter(backend, "").Save(context.Background(), sampleSnapshot())
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("Expected *WriteError, got %v", err)
	}
	if !errors.Is(err, backend.SetErr) {
		t.Error("Expected WriteError to wrap the backend error")
	}
}

func TestAdapter_Theme(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	adapter := NewAdapter(NewMemoryBackend(), "")

	if _, ok, err := adapter.LoadTheme(ctx); ok || err != nil {
		t.Fatalf("Expected no theme, got ok=%v err=%v", ok, err)
	}
	if err := adapter.SaveTheme(ctx, models.ThemeLight); err != nil {
		t.Fatalf("SaveTheme() error = %v", err)
	}
	theme, ok, err := adapter.LoadTheme(ctx)
	if err != nil || !ok || theme != models.ThemeLight {
		t.Errorf("LoadTheme() = (%q, %v, %v), want (light, true, nil)", theme, ok, err)
	}
}

func TestAdapter_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backend := NewMemoryBackend()
	_ = backend.Set(ctx, "other_key", []byte("keep"))
	adapter := NewAdapter(backend, "")

	if err := adapter.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := adapter.SaveTheme(ctx, models.ThemeDark); err != nil {
		t.Fatalf("SaveTheme() error = %v", err)
	}
	if err := adapter.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if backend.Len() != 1 {
		t.Errorf("Expected only the foreign key to remain, got %d keys", backend.Len())
	}
}

func TestLikePrefix(t *testing.T) {
	t.Parallel()

	if got := likePrefix("task_board%"); got != `task\_board\%%` {
		t.Errorf("likePrefix() = %q", got)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open("cassandra", ""); err == nil {
		t.Error("Expected error for unknown driver")
	}
	b, err := Open("memory", "")
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := b.(*MemoryBackend); !ok {
		t.Errorf("Expected *MemoryBackend, got %T", b)
	}
}
