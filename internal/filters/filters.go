// Package filters holds the filter state that drives the markers query.
package filters

import (
	"strings"
	"sync"

	"findme/map-core/internal/mapdata"
	"findme/map-core/internal/ui"
)

// Controls is the part of the element registry the store reads and writes.
type Controls interface {
	Controls() ui.Controls
	SetControls(ui.Controls)
	SetSearch(string)
}

type Store struct {
	controls Controls

	mu    sync.RWMutex
	state mapdata.FilterState
}

func New(controls Controls) *Store {
	return &Store{controls: controls, state: mapdata.DefaultFilters()}
}

// Defaults returns the values Reset restores.
func Defaults() mapdata.FilterState { return mapdata.DefaultFilters() }

func (s *Store) State() mapdata.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply reads the current control values into the store, replacing the
// previous state wholesale.
func (s *Store) Apply() mapdata.FilterState {
	c := s.controls.Controls()
	next := mapdata.FilterState{
		Status:         c.Status,
		Days:           c.Days,
		Search:         strings.TrimSpace(c.Search),
		ShowSightings:  c.ShowSightings,
		ShowMinorsOnly: c.ShowMinorsOnly,
		ShowClusters:   c.ShowClusters,
	}
	if next.Status == "" {
		next.Status = mapdata.StatusAll
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	return next
}

// Reset writes the defaults into the controls and applies them.
func (s *Store) Reset() mapdata.FilterState {
	s.controls.SetControls(ui.ControlsFor(Defaults()))
	return s.Apply()
}

// ClearSearch empties the search control and applies.
func (s *Store) ClearSearch() mapdata.FilterState {
	s.controls.SetSearch("")
	return s.Apply()
}
