// Package controller owns every component of the map page and wires the
// page events to them.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"findme/map-core/internal/config"
	"findme/map-core/internal/controls"
	"findme/map-core/internal/events"
	"findme/map-core/internal/filters"
	"findme/map-core/internal/mapclient"
	"findme/map-core/internal/mapdata"
	"findme/map-core/internal/metrics"
	"findme/map-core/internal/modal"
	"findme/map-core/internal/refresh"
	"findme/map-core/internal/render"
	"findme/map-core/internal/surface"
	"findme/map-core/internal/toast"
	"findme/map-core/internal/ui"
	"findme/map-core/internal/view"
)

const (
	MsgInitialized    = "Map initialized successfully"
	MsgInitFailed     = "Failed to initialize map"
	MsgLoadFailed     = "Failed to load map data. Please try again."
	MsgStatsFailed    = "Failed to load statistics"
	MsgFiltersApplied = "Filters applied"
	msgLoadedTemplate = "Loaded %d markers"
)

var (
	ErrNotInitialized = errors.New("map not initialized")
	ErrTornDown       = errors.New("map torn down")
)

// Client is the REST API surface the controller depends on.
type Client interface {
	FetchMarkers(ctx context.Context, f mapdata.FilterState) (mapclient.MarkersResult, error)
	FetchStatistics(ctx context.Context) (mapdata.Statistics, error)
	FetchPersonDetail(ctx context.Context, id int64) (mapdata.PersonDetail, error)
	SearchLocation(ctx context.Context, query string) (mapdata.GeocodedLocation, error)
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]mapdata.NearbyCase, error)
}

type Deps struct {
	Config  config.Config
	Client  Client
	Locator controls.Locator
	Toaster *toast.Toaster
	UI      *ui.Registry
	Metrics *metrics.Metrics
}

// Map is the context object of one map page.
type Map struct {
	log     zerolog.Logger
	cfg     config.Config
	client  Client
	locator controls.Locator
	toasts  *toast.Toaster
	ui      *ui.Registry
	metrics *metrics.Metrics
	views   *view.Views
	store   *filters.Store
	bus     *events.Bus

	surface    *surface.Surface
	renderer   *render.Renderer
	modal      *modal.Modal
	scheduler  *refresh.Scheduler
	geo        *controls.Geolocation
	fullscreen *controls.Fullscreen

	issued atomic.Uint64

	mu          sync.Mutex
	initialized bool
	tornDown    bool
	newest      uint64
	lastRender  render.Result
}

func New(log zerolog.Logger, deps Deps) (*Map, error) {
	if deps.Client == nil {
		return nil, errors.New("controller: client is required")
	}
	if deps.UI == nil {
		deps.UI = ui.New()
	}
	if deps.Toaster == nil {
		deps.Toaster = toast.New(log, deps.Config.Map.ToastDuration)
	}

	views, err := view.New(view.Options{
		PlaceholderImage: deps.Config.Map.PlaceholderImage,
		PhoneRegion:      deps.Config.Map.PhoneRegion,
	})
	if err != nil {
		return nil, err
	}

	return &Map{
		log:     log,
		cfg:     deps.Config,
		client:  deps.Client,
		locator: deps.Locator,
		toasts:  deps.Toaster,
		ui:      deps.UI,
		metrics: deps.Metrics,
		views:   views,
		store:   filters.New(deps.UI),
		bus:     events.NewBus(log),
	}, nil
}

func (m *Map) Bus() *events.Bus        { return m.bus }
func (m *Map) UI() *ui.Registry        { return m.ui }
func (m *Map) Toaster() *toast.Toaster { return m.toasts }
func (m *Map) Filters() *filters.Store { return m.store }

// Init builds the map surface, registers the event handlers, loads the first
// markers and starts auto-refresh. A surface failure is logged, reported with
// one error toast and returned.
func (m *Map) Init(ctx context.Context) error {
	mc := m.cfg.Map
	s, err := surface.New(surface.Options{
		Center:        surface.LatLng{Lat: mc.CenterLat, Lng: mc.CenterLng},
		Zoom:          mc.Zoom,
		MinZoom:       mc.MinZoom,
		MaxZoom:       mc.MaxZoom,
		TileURL:       mc.TileURL,
		Attribution:   mc.Attribution,
		ClusterRadius: mc.ClusterRadius,
	})
	if err != nil {
		m.log.Error().Err(err).Msg("map initialization failed")
		m.toasts.Show(toast.LevelError, MsgInitFailed)
		return fmt.Errorf("init map surface: %w", err)
	}

	m.mu.Lock()
	m.surface = s
	m.renderer = render.New(m.log, s, m.views, m.metrics, render.Options{
		FitPadding:    mc.FitPadding,
		PopupMaxWidth: mc.PopupMaxWidth,
	})
	m.modal = modal.New(m.log, m.client, m.views, m.ui, m.toasts)
	m.geo = controls.NewGeolocation(m.log, m.locator, s, m.toasts, m.ui, mc.LocateZoom)
	m.fullscreen = controls.NewFullscreen(m.ui)
	m.scheduler = refresh.New(m.log, refresh.Options{
		Interval: mc.RefreshInterval,
		Markers: func(ctx context.Context) {
			_ = m.LoadMarkers(ctx)
		},
		Statistics: func(ctx context.Context) {
			_ = m.LoadStatistics(ctx)
		},
		StatisticsVisible: func() bool { return m.ui.PanelVisible(ui.PanelStatistics) },
	}, m.metrics)
	m.initialized = true
	m.mu.Unlock()

	m.registerHandlers()
	m.toasts.Show(toast.LevelSuccess, MsgInitialized)
	m.log.Info().Msg("map initialized")

	_ = m.LoadMarkers(ctx)
	return m.scheduler.Start(ctx)
}

// Teardown stops auto-refresh and detaches the surface. Fetches that resolve
// afterwards are dropped.
func (m *Map) Teardown() {
	m.mu.Lock()
	if m.tornDown || !m.initialized {
		m.tornDown = true
		m.mu.Unlock()
		return
	}
	m.tornDown = true
	scheduler, s := m.scheduler, m.surface
	m.mu.Unlock()

	scheduler.Stop()
	s.Detach()
	m.log.Info().Msg("map torn down")
}

func (m *Map) ready() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.tornDown:
		return ErrTornDown
	case !m.initialized:
		return ErrNotInitialized
	default:
		return nil
	}
}

// LoadMarkers fetches markers for the current filters and renders them.
// Overlapping calls render in the order their responses resolve; with
// sequencing enabled a response older than the one already rendered is
// dropped instead.
func (m *Map) LoadMarkers(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	seq := m.issued.Add(1)
	res, err := m.client.FetchMarkers(ctx, m.store.State())

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tornDown {
		return ErrTornDown
	}
	if err != nil {
		m.log.Error().Err(err).Uint64("seq", seq).Msg("fetch markers")
		m.toasts.Show(toast.LevelError, mapclient.UserMessage(err, MsgLoadFailed))
		return err
	}
	if m.cfg.API.SequenceResponses && seq < m.newest {
		m.log.Debug().Uint64("seq", seq).Uint64("newest", m.newest).Msg("dropping stale markers response")
		return nil
	}
	m.newest = seq

	// Minors-only and clustering are read at render time.
	m.lastRender = m.renderer.Render(res.Markers, m.store.State())
	m.ui.SetResultsCount(res.Total)
	m.toasts.Show(toast.LevelSuccess, fmt.Sprintf(msgLoadedTemplate, res.Total))
	return nil
}

// LoadStatistics refreshes the statistics panel. On failure the panel keeps
// its previous content.
func (m *Map) LoadStatistics(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	stats, err := m.client.FetchStatistics(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("fetch statistics")
		m.toasts.Show(toast.LevelWarning, MsgStatsFailed)
		return err
	}
	_, body, err := m.views.Statistics(stats)
	if err != nil {
		m.log.Error().Err(err).Msg("render statistics")
		return err
	}
	m.ui.SetStatistics(stats, body)
	return nil
}

func (m *Map) ApplyFilters(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	m.store.Apply()
	m.toasts.Show(toast.LevelSuccess, MsgFiltersApplied)
	return m.LoadMarkers(ctx)
}

func (m *Map) ResetFilters(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	m.store.Reset()
	m.toasts.Show(toast.LevelSuccess, MsgFiltersApplied)
	return m.LoadMarkers(ctx)
}

func (m *Map) ClearSearch(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	m.store.ClearSearch()
	m.toasts.Show(toast.LevelSuccess, MsgFiltersApplied)
	return m.LoadMarkers(ctx)
}

// Refresh reloads markers and statistics concurrently.
func (m *Map) Refresh(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	m.ui.SetRefreshing(true)
	defer m.ui.SetRefreshing(false)

	var g errgroup.Group
	g.Go(func() error { return m.LoadMarkers(ctx) })
	g.Go(func() error { return m.LoadStatistics(ctx) })
	return g.Wait()
}

// TogglePanel flips a panel. Opening the statistics panel loads statistics.
func (m *Map) TogglePanel(ctx context.Context, p ui.Panel) (bool, error) {
	if err := m.ready(); err != nil {
		return false, err
	}
	visible := m.ui.TogglePanel(p)
	if p == ui.PanelStatistics && visible {
		return visible, m.LoadStatistics(ctx)
	}
	return visible, nil
}

func (m *Map) OpenPerson(ctx context.Context, id int64) error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.modal.Open(ctx, id)
}

func (m *Map) CloseModal() error {
	if err := m.ready(); err != nil {
		return err
	}
	m.modal.Close()
	return nil
}

// HandleKey reports whether the key was consumed.
func (m *Map) HandleKey(key string) (bool, error) {
	if err := m.ready(); err != nil {
		return false, err
	}
	return m.modal.HandleKey(key), nil
}

func (m *Map) Locate(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.geo.Locate(ctx)
}

func (m *Map) ToggleFullscreen() (bool, error) {
	if err := m.ready(); err != nil {
		return false, err
	}
	return m.fullscreen.Toggle(), nil
}

func (m *Map) FullscreenExited() error {
	if err := m.ready(); err != nil {
		return err
	}
	m.fullscreen.Exited()
	return nil
}

func (m *Map) DismissToast() {
	m.toasts.Dismiss()
}

func (m *Map) SearchLocation(ctx context.Context, query string) (mapdata.GeocodedLocation, error) {
	loc, err := m.client.SearchLocation(ctx, query)
	if err != nil {
		m.log.Error().Err(err).Str("query", query).Msg("search location")
	}
	return loc, err
}

func (m *Map) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]mapdata.NearbyCase, error) {
	cases, err := m.client.Nearby(ctx, lat, lng, radiusKm)
	if err != nil {
		m.log.Error().Err(err).Float64("radius_km", radiusKm).Msg("nearby cases")
	}
	return cases, err
}

// Snapshot is the observable state of the page.
type Snapshot struct {
	UI          ui.State            `json:"ui"`
	Filters     mapdata.FilterState `json:"filters"`
	Viewport    surface.Viewport    `json:"viewport"`
	TileURL     string              `json:"tile_url"`
	Attribution string              `json:"attribution"`
	Toast       *toast.Toast        `json:"toast,omitempty"`
	LastRender  render.Result       `json:"last_render"`
	Refresh     refresh.State       `json:"refresh"`
	Fullscreen  bool                `json:"fullscreen"`
	TornDown    bool                `json:"torn_down"`
	At          time.Time           `json:"at"`
}

// Snapshot remains available after teardown.
func (m *Map) Snapshot() (Snapshot, error) {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return Snapshot{}, ErrNotInitialized
	}
	snap := Snapshot{
		Filters:     m.store.State(),
		Viewport:    m.surface.View(),
		TileURL:     m.surface.TileURL(),
		Attribution: m.surface.Attribution(),
		LastRender:  m.lastRender,
		Refresh:     m.scheduler.State(),
		Fullscreen:  m.fullscreen.Active(),
		TornDown:    m.tornDown,
	}
	m.mu.Unlock()

	snap.UI = m.ui.Snapshot()
	if t, ok := m.toasts.Current(); ok {
		snap.Toast = &t
	}
	snap.At = time.Now().UTC()
	return snap, nil
}

func (m *Map) Overlays() ([]surface.Overlay, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.surface.Overlays(), nil
}

// Clusters groups the cluster layer at zoom, or at the current zoom when
// zoom is negative.
func (m *Map) Clusters(zoom int) ([]surface.Cluster, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if zoom < 0 {
		zoom = m.surface.View().Zoom
	}
	return m.surface.Clusters(zoom), nil
}

// Modal returns the details modal state.
func (m *Map) Modal() (visible bool, body string, model *view.PersonModal, err error) {
	if err := m.ready(); err != nil {
		return false, "", nil, err
	}
	visible, body = m.ui.Modal()
	if cur, ok := m.modal.Current(); ok {
		model = &cur
	}
	return visible, body, model, nil
}
