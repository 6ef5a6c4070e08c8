// Package persist schedules debounced snapshot writes.
package persist

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/taskboard/internal/clock"
	"github.com/benvon/taskboard/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultQuietPeriod is how long requests must stop before a write lands
	DefaultQuietPeriod = 1 * time.Second
	// DefaultFlushInterval is the period of the unconditional safety flush
	DefaultFlushInterval = 30 * time.Second
	// saveTimeout bounds a single write
	saveTimeout = 10 * time.Second
)

// Saver persists a snapshot
type Saver interface {
	Save(ctx context.Context, snap models.Snapshot) error
}

// SnapshotFunc returns the state to persist at the moment of writing
type SnapshotFunc func() models.Snapshot

// Scheduler coalesces save requests: each Request re-arms a single pending timer, and
// only the write after the quiet period lands.
type Scheduler struct {
	saver    Saver
	snapshot SnapshotFunc
	clock    clock.Clock
	logger   *zap.Logger
	quiet    time.Duration
	interval time.Duration
	onError  func(error)
	onSaved  func()

	mu      sync.Mutex
	pending clock.Timer
	// generation invalidates callbacks of timers that were replaced or cancelled
	generation uint64
	writeMu    sync.Mutex
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock injects the clock used for timers
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithQuietPeriod overrides the debounce window
func WithQuietPeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.quiet = d
		}
	}
}

// WithFlushInterval overrides the safety flush period
func WithFlushInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithErrorHandler receives every failed write
func WithErrorHandler(fn func(error)) Option {
	return func(s *Scheduler) { s.onError = fn }
}

// WithSavedHandler is called after every successful write
func WithSavedHandler(fn func()) Option {
	return func(s *Scheduler) { s.onSaved = fn }
}

// NewScheduler creates a scheduler writing snapshot() through saver
func NewScheduler(saver Saver, snapshot SnapshotFunc, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		saver:    saver,
		snapshot: snapshot,
		clock:    clock.Real(),
		logger:   logger,
		quiet:    DefaultQuietPeriod,
		interval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request asks for a write after the quiet period, replacing any pending one.
func (s *Scheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
	}
	s.generation++
	gen := s.generation
	s.pending = s.clock.AfterFunc(s.quiet, func() {
		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			return
		}
		s.pending = nil
		s.mu.Unlock()
		_ = s.write(context.Background(), "debounced")
	})
}

// Pending reports whether a debounced write is armed
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Cancel drops a pending write without saving. A write already in progress is not
// waited for; see Exclusive.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

// Exclusive cancels any pending write and runs fn while no write can be in progress.
// Writes requested or fired meanwhile wait until fn returns.
func (s *Scheduler) Exclusive(fn func()) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.Cancel()
	fn()
}

// Flush cancels any pending write and saves now
func (s *Scheduler) Flush(ctx context.Context) error {
	s.Cancel()
	return s.write(ctx, "flush")
}

// Run performs the periodic safety flush until ctx is cancelled, then flushes once more.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			_ = s.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C():
			_ = s.write(ctx, "periodic")
		}
	}
}

func (s *Scheduler) write(ctx context.Context, reason string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	snap := s.snapshot()
	if err := s.saver.Save(ctx, snap); err != nil {
		s.logger.Error("snapshot_save_failed",
			zap.String("reason", reason),
			zap.Int("task_count", len(snap.Tasks)),
			zap.Error(err),
		)
		if s.onError != nil {
			s.onError(err)
		}
		return err
	}
	s.logger.Debug("snapshot_saved",
		zap.String("reason", reason),
		zap.Int("task_count", len(snap.Tasks)),
	)
	if s.onSaved != nil {
		s.onSaved()
	}
	return nil
}
