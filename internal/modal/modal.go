// Package modal drives the person details modal.
package modal

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"findme/map-core/internal/mapdata"
	"findme/map-core/internal/toast"
	"findme/map-core/internal/view"
)

const (
	MsgLoadFailed    = "Failed to load person details"
	MsgDisplayFailed = "Error displaying person details"

	KeyEscape = "Escape"
)

type Fetcher interface {
	FetchPersonDetail(ctx context.Context, id int64) (mapdata.PersonDetail, error)
}

type Renderer interface {
	PersonModal(p mapdata.PersonDetail) (view.PersonModal, string, error)
}

// Display is the modal container.
type Display interface {
	ShowModal(body string)
	HideModal()
	Modal() (visible bool, body string)
}

type Modal struct {
	log     zerolog.Logger
	fetch   Fetcher
	views   Renderer
	display Display
	toasts  toast.Sink

	mu      sync.Mutex
	current *view.PersonModal
}

func New(log zerolog.Logger, fetch Fetcher, views Renderer, display Display, toasts toast.Sink) *Modal {
	return &Modal{log: log, fetch: fetch, views: views, display: display, toasts: toasts}
}

// Open fetches the person and shows the modal. On failure the modal stays
// as it was and an error toast is shown.
func (m *Modal) Open(ctx context.Context, id int64) error {
	p, err := m.fetch.FetchPersonDetail(ctx, id)
	if err != nil {
		m.log.Error().Err(err).Int64("person_id", id).Msg("fetch person details")
		m.toasts.Show(toast.LevelError, MsgLoadFailed)
		return err
	}

	model, body, err := m.views.PersonModal(p)
	if err != nil {
		m.log.Error().Err(err).Int64("person_id", id).Msg("render person details")
		m.toasts.Show(toast.LevelError, MsgDisplayFailed)
		return err
	}

	m.mu.Lock()
	m.current = &model
	m.mu.Unlock()
	m.display.ShowModal(body)
	return nil
}

// Close hides the modal. The close button, the overlay and the Escape key
// all end up here.
func (m *Modal) Close() {
	m.display.HideModal()
}

// HandleKey closes the modal on Escape while it is open. It reports whether
// the key was consumed.
func (m *Modal) HandleKey(key string) bool {
	if key != KeyEscape || !m.Visible() {
		return false
	}
	m.Close()
	return true
}

func (m *Modal) Visible() bool {
	visible, _ := m.display.Modal()
	return visible
}

// Current returns the view-model of the last opened person.
func (m *Modal) Current() (view.PersonModal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return view.PersonModal{}, false
	}
	return *m.current, true
}
