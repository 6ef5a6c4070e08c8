// Package reset implements the guarded "erase everything" flow: the user asks for a
// reset, types the confirmation word, and a short countdown runs before anything is
// deleted. The countdown can be cancelled until it reaches zero.
package reset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benvon/taskboard/internal/clock"
	"github.com/benvon/taskboard/internal/notify"
	"go.uber.org/zap"
)

// ConfirmationWord must be typed exactly to enable confirmation
const ConfirmationWord = "RESET"

const (
	// DefaultCountdown is the number of ticks before the reset executes
	DefaultCountdown = 5
	// DefaultTickInterval is the time between ticks
	DefaultTickInterval = time.Second
	// actionTimeout bounds the wipe itself
	actionTimeout = 30 * time.Second
)

// State is a step of the flow
type State string

const (
	StateIdle           State = "idle"
	StateConfirmPending State = "confirm_pending"
	StateCountingDown   State = "counting_down"
	StateDone           State = "done"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current state
	ErrInvalidTransition = errors.New("operation not allowed in current reset state")
	// ErrConfirmationMismatch is returned by Confirm when the typed text is not the confirmation word
	ErrConfirmationMismatch = errors.New("confirmation text does not match")
)

// Action performs the actual wipe
type Action func(ctx context.Context) error

// Status is a read-only view of the flow
type Status struct {
	State      State  `json:"state"`
	Remaining  int    `json:"remaining"`
	CanConfirm bool   `json:"canConfirm"`
	LastError  string `json:"lastError,omitempty"`
}

// Flow is the reset state machine. It is safe for concurrent use.
type Flow struct {
	action    Action
	clock     clock.Clock
	logger    *zap.Logger
	notifier  notify.Notifier
	countdown int
	interval  time.Duration

	mu        sync.Mutex
	state     State
	typed     string
	remaining int
	lastErr   string
	timer     clock.Timer
	// generation invalidates timer callbacks from a cancelled countdown
	generation uint64
}

// Option configures a Flow
type Option func(*Flow)

// WithClock injects the clock driving the countdown
func WithClock(c clock.Clock) Option {
	return func(f *Flow) {
		if c != nil {
			f.clock = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithNotifier sets where the outcome is reported
func WithNotifier(n notify.Notifier) Option {
	return func(f *Flow) {
		if n != nil {
			f.notifier = n
		}
	}
}

// WithCountdown overrides the number of ticks and their interval
func WithCountdown(ticks int, interval time.Duration) Option {
	return func(f *Flow) {
		if ticks > 0 {
			f.countdown = ticks
		}
		if interval > 0 {
			f.interval = interval
		}
	}
}

// NewFlow creates an idle flow that runs action when the countdown ends
func NewFlow(action Action, opts ...Option) *Flow {
	f := &Flow{
		action:    action,
		clock:     clock.Real(),
		logger:    zap.NewNop(),
		notifier:  notify.Discard{},
		countdown: DefaultCountdown,
		interval:  DefaultTickInterval,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Request opens the confirmation step. Allowed from Idle and Done.
func (f *Flow) Request() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle && f.state != StateDone {
		return fmt.Errorf("%w: request from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateConfirmPending
	f.typed = ""
	f.remaining = 0
	f.lastErr = ""
	return nil
}

// Type records the confirmation text
func (f *Flow) Type(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateConfirmPending {
		return fmt.Errorf("%w: type from %s", ErrInvalidTransition, f.state)
	}
	f.typed = text
	return nil
}

// CanConfirm reports whether Confirm would start the countdown
func (f *Flow) CanConfirm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canConfirmLocked()
}

func (f *Flow) canConfirmLocked() bool {
	return f.state == StateConfirmPending && f.typed == ConfirmationWord
}

// Confirm starts the countdown
func (f *Flow) Confirm() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateConfirmPending {
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, f.state)
	}
	if f.typed != ConfirmationWord {
		return ErrConfirmationMismatch
	}
	f.state = StateCountingDown
	f.remaining = f.countdown
	f.generation++
	f.scheduleLocked(f.generation)
	f.logger.Info("reset_countdown_started", zap.Int("ticks", f.countdown))
	return nil
}

// Cancel returns to Idle from the confirmation step or during the countdown
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateConfirmPending && f.state != StateCountingDown {
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, f.state)
	}
	// At zero the wipe is already running.
	if f.state == StateCountingDown && f.remaining == 0 {
		return fmt.Errorf("%w: reset already executing", ErrInvalidTransition)
	}
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.generation++
	if f.state == StateCountingDown {
		f.logger.Info("reset_cancelled", zap.Int("remaining", f.remaining))
	}
	f.state = StateIdle
	f.typed = ""
	f.remaining = 0
	return nil
}

// Status returns the current state
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{
		State:      f.state,
		Remaining:  f.remaining,
		CanConfirm: f.canConfirmLocked(),
		LastError:  f.lastErr,
	}
}

func (f *Flow) scheduleLocked(gen uint64) {
	f.timer = f.clock.AfterFunc(f.interval, func() { f.tick(gen) })
}

func (f *Flow) tick(gen uint64) {
	f.mu.Lock()
	if gen != f.generation || f.state != StateCountingDown {
		f.mu.Unlock()
		return
	}
	f.remaining--
	if f.remaining > 0 {
		f.scheduleLocked(gen)
		f.mu.Unlock()
		return
	}
	f.timer = nil
	f.mu.Unlock()

	f.execute(gen)
}

func (f *Flow) execute(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	err := f.action(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		return
	}
	f.typed = ""
	if err != nil {
		f.state = StateIdle
		f.lastErr = err.Error()
		f.logger.Error("reset_failed", zap.Error(err))
		f.notifier.Notify(notify.LevelError, "Reset failed")
		return
	}
	f.state = StateDone
	f.logger.Info("reset_completed")
	f.notifier.Notify(notify.LevelSuccess, "Board reset successfully")
}
