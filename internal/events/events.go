// Package events routes page interactions to their handlers.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

type Kind string

const (
	ToggleFilters     Kind = "toggle_filters"
	ToggleStatistics  Kind = "toggle_statistics"
	ApplyFilters      Kind = "apply_filters"
	ResetFilters      Kind = "reset_filters"
	ClearSearch       Kind = "clear_search"
	SearchSubmit      Kind = "search_submit"
	Locate            Kind = "locate"
	ToggleFullscreen  Kind = "toggle_fullscreen"
	FullscreenExited  Kind = "fullscreen_exited"
	Refresh           Kind = "refresh"
	ActivateMarker    Kind = "activate_marker"
	CloseModal        Kind = "close_modal"
	ModalOverlayClick Kind = "modal_overlay_click"
	KeyDown           Kind = "key_down"
	DismissToast      Kind = "dismiss_toast"
	Unload            Kind = "unload"
)

var ErrNoHandler = errors.New("no handler registered")

type Event struct {
	Kind     Kind   `json:"kind"`
	PersonID int64  `json:"person_id,omitempty"`
	Key      string `json:"key,omitempty"`
}

type Handler func(ctx context.Context, ev Event) error

type Bus struct {
	log zerolog.Logger

	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log, handlers: make(map[Kind][]Handler)}
}

// On registers h for kind. Handlers run in registration order.
func (b *Bus) On(kind Kind, h Handler) {
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], h)
	b.mu.Unlock()
}

// Emit runs every handler of ev.Kind synchronously. A failing handler does
// not stop the others.
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	b.mu.RLock()
	hs := append([]Handler(nil), b.handlers[ev.Kind]...)
	b.mu.RUnlock()

	if len(hs) == 0 {
		return fmt.Errorf("%w for %q", ErrNoHandler, ev.Kind)
	}

	var errs []error
	for _, h := range hs {
		if err := h(ctx, ev); err != nil {
			b.log.Debug().Err(err).Str("event", string(ev.Kind)).Msg("event handler failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reset drops every handler.
func (b *Bus) Reset() {
	b.mu.Lock()
	b.handlers = make(map[Kind][]Handler)
	b.mu.Unlock()
}
