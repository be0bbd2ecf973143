// Package toast is the notification sink every map component reports to.
package toast

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Sink displays transient status messages.
type Sink interface {
	Show(level Level, message string)
}

// Toast is a message as displayed to the user.
type Toast struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	ShownAt   time.Time `json:"shown_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Toaster keeps the single visible toast. A newer toast replaces the current
// one and restarts its display window.
type Toaster struct {
	log      zerolog.Logger
	duration time.Duration
	now      func() time.Time

	mu      sync.Mutex
	current *Toast
	history []Toast
}

const historyLimit = 50

func New(log zerolog.Logger, duration time.Duration) *Toaster {
	if duration <= 0 {
		duration = 4 * time.Second
	}
	return &Toaster{log: log, duration: duration, now: time.Now}
}

func (t *Toaster) Show(level Level, message string) {
	now := t.now()
	msg := Toast{Level: level, Message: message, ShownAt: now, ExpiresAt: now.Add(t.duration)}

	t.mu.Lock()
	t.current = &msg
	t.history = append(t.history, msg)
	if len(t.history) > historyLimit {
		t.history = t.history[len(t.history)-historyLimit:]
	}
	t.mu.Unlock()

	ev := t.log.Info()
	switch level {
	case LevelWarning:
		ev = t.log.Warn()
	case LevelError:
		ev = t.log.Error()
	}
	ev.Str("level", string(level)).Str("message", message).Msg("toast")
}

// Current returns the visible toast, if any.
func (t *Toaster) Current() (Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil || !t.now().Before(t.current.ExpiresAt) {
		return Toast{}, false
	}
	return *t.current, true
}

// Dismiss hides the visible toast immediately.
func (t *Toaster) Dismiss() {
	t.mu.Lock()
	t.current = nil
	t.mu.Unlock()
}

// History returns the most recent toasts, oldest first.
func (t *Toaster) History() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, len(t.history))
	copy(out, t.history)
	return out
}

// Last returns the most recently shown toast even if it already expired.
func (t *Toaster) Last() (Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.history) == 0 {
		return Toast{}, false
	}
	return t.history[len(t.history)-1], true
}
