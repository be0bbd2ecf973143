// Package ui is the element registry of the map page: the values of the
// filter controls and the state of every panel, indicator and container the
// pipeline writes to.
package ui

import (
	"fmt"
	"strings"
	"sync"

	"findme/map-core/internal/mapdata"
)

type Panel string

const (
	PanelFilters    Panel = "filters"
	PanelStatistics Panel = "statistics"
)

func ParsePanel(s string) (Panel, error) {
	switch p := Panel(strings.ToLower(strings.TrimSpace(s))); p {
	case PanelFilters, PanelStatistics:
		return p, nil
	default:
		return "", fmt.Errorf("unknown panel %q", s)
	}
}

const (
	IconExpand   = "expand"
	IconCompress = "compress"
)

// Controls are the filter widgets. The widgets only offer legal values, so
// Status and Days are already typed.
type Controls struct {
	Status         mapdata.Status `json:"status"`
	Days           mapdata.Days   `json:"days"`
	Search         string         `json:"search"`
	ShowSightings  bool           `json:"show_sightings"`
	ShowMinorsOnly bool           `json:"show_minors_only"`
	ShowClusters   bool           `json:"show_clusters"`
}

// ControlsFor returns the widget values that represent f.
func ControlsFor(f mapdata.FilterState) Controls {
	return Controls{
		Status:         f.Status,
		Days:           f.Days,
		Search:         f.Search,
		ShowSightings:  f.ShowSightings,
		ShowMinorsOnly: f.ShowMinorsOnly,
		ShowClusters:   f.ShowClusters,
	}
}

// State is a snapshot of the page.
type State struct {
	Controls       Controls            `json:"controls"`
	Panels         map[Panel]bool      `json:"panels"`
	ResultsCount   int                 `json:"results_count"`
	Loading        bool                `json:"loading"`
	Locating       bool                `json:"locating"`
	Refreshing     bool                `json:"refreshing"`
	FullscreenIcon string              `json:"fullscreen_icon"`
	ModalVisible   bool                `json:"modal_visible"`
	StatisticsHTML string              `json:"statistics_html,omitempty"`
	Statistics     *mapdata.Statistics `json:"statistics,omitempty"`
}

type Registry struct {
	mu             sync.RWMutex
	controls       Controls
	panels         map[Panel]bool
	resultsCount   int
	loading        bool
	locating       bool
	refreshing     bool
	fullscreenIcon string
	modalVisible   bool
	modalHTML      string
	statsHTML      string
	stats          *mapdata.Statistics
}

// New returns a registry whose controls hold the default filter values and
// whose panels are all closed.
func New() *Registry {
	return &Registry{
		controls:       ControlsFor(mapdata.DefaultFilters()),
		panels:         map[Panel]bool{PanelFilters: false, PanelStatistics: false},
		fullscreenIcon: IconExpand,
	}
}

func (r *Registry) Controls() Controls {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.controls
}

func (r *Registry) SetControls(c Controls) {
	r.mu.Lock()
	r.controls = c
	r.mu.Unlock()
}

func (r *Registry) SetSearch(q string) {
	r.mu.Lock()
	r.controls.Search = q
	r.mu.Unlock()
}

// TogglePanel flips the panel and returns whether it is now visible.
func (r *Registry) TogglePanel(p Panel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels[p] = !r.panels[p]
	return r.panels[p]
}

func (r *Registry) PanelVisible(p Panel) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.panels[p]
}

func (r *Registry) SetResultsCount(n int) {
	r.mu.Lock()
	r.resultsCount = n
	r.mu.Unlock()
}

func (r *Registry) ResultsCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resultsCount
}

// SetLoading matches the loading.Indicator change callback.
func (r *Registry) SetLoading(visible bool) {
	r.mu.Lock()
	r.loading = visible
	r.mu.Unlock()
}

func (r *Registry) SetLocating(on bool) {
	r.mu.Lock()
	r.locating = on
	r.mu.Unlock()
}

func (r *Registry) SetRefreshing(on bool) {
	r.mu.Lock()
	r.refreshing = on
	r.mu.Unlock()
}

func (r *Registry) SetFullscreenIcon(icon string) {
	r.mu.Lock()
	r.fullscreenIcon = icon
	r.mu.Unlock()
}

// ShowModal fills the modal body and makes it visible.
func (r *Registry) ShowModal(body string) {
	r.mu.Lock()
	r.modalHTML = body
	r.modalVisible = true
	r.mu.Unlock()
}

// HideModal hides the modal. The body is kept until the next ShowModal.
func (r *Registry) HideModal() {
	r.mu.Lock()
	r.modalVisible = false
	r.mu.Unlock()
}

func (r *Registry) Modal() (visible bool, body string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modalVisible, r.modalHTML
}

func (r *Registry) SetStatistics(s mapdata.Statistics, body string) {
	r.mu.Lock()
	r.stats = &s
	r.statsHTML = body
	r.mu.Unlock()
}

func (r *Registry) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	panels := make(map[Panel]bool, len(r.panels))
	for k, v := range r.panels {
		panels[k] = v
	}
	var stats *mapdata.Statistics
	if r.stats != nil {
		s := *r.stats
		stats = &s
	}
	return State{
		Controls:       r.controls,
		Panels:         panels,
		ResultsCount:   r.resultsCount,
		Loading:        r.loading,
		Locating:       r.locating,
		Refreshing:     r.refreshing,
		FullscreenIcon: r.fullscreenIcon,
		ModalVisible:   r.modalVisible,
		StatisticsHTML: r.statsHTML,
		Statistics:     stats,
	}
}
