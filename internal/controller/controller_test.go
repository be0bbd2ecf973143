package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findme/map-core/internal/config"
	"findme/map-core/internal/controls"
	"findme/map-core/internal/events"
	"findme/map-core/internal/mapclient"
	"findme/map-core/internal/mapdata"
	"findme/map-core/internal/refresh"
	"findme/map-core/internal/surface"
	"findme/map-core/internal/toast"
	"findme/map-core/internal/ui"
)

type fakeClient struct {
	markersFn func(ctx context.Context, f mapdata.FilterState) (mapclient.MarkersResult, error)
	statsFn   func(ctx context.Context) (mapdata.Statistics, error)
	personFn  func(ctx context.Context, id int64) (mapdata.PersonDetail, error)
}

func (f *fakeClient) FetchMarkers(ctx context.Context, fs mapdata.FilterState) (mapclient.MarkersResult, error) {
	if f.markersFn == nil {
		return mapclient.MarkersResult{}, nil
	}
	return f.markersFn(ctx, fs)
}

func (f *fakeClient) FetchStatistics(ctx context.Context) (mapdata.Statistics, error) {
	if f.statsFn == nil {
		return mapdata.Statistics{}, nil
	}
	return f.statsFn(ctx)
}

func (f *fakeClient) FetchPersonDetail(ctx context.Context, id int64) (mapdata.PersonDetail, error) {
	if f.personFn == nil {
		return mapdata.PersonDetail{ID: id, FullName: "Unknown"}, nil
	}
	return f.personFn(ctx, id)
}

func (f *fakeClient) SearchLocation(context.Context, string) (mapdata.GeocodedLocation, error) {
	return mapdata.GeocodedLocation{Lat: -1.3, Lng: 36.8, DisplayName: "Nairobi"}, nil
}

func (f *fakeClient) Nearby(context.Context, float64, float64, float64) ([]mapdata.NearbyCase, error) {
	return nil, nil
}

func person(id int64, lat, lng float64, minor bool) mapdata.MarkerRecord {
	return mapdata.PersonRecord(mapdata.MissingPersonMarker{
		ID: id, Lat: lat, Lng: lng, Name: "p", Status: mapdata.StatusMissing, IsMinor: minor,
	})
}

func markers(recs ...mapdata.MarkerRecord) mapclient.MarkersResult {
	return mapclient.MarkersResult{Markers: recs, Total: len(recs)}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Map.RefreshInterval = time.Hour
	return cfg
}

func newMap(t *testing.T, cfg config.Config, client *fakeClient) *Map {
	t.Helper()
	m, err := New(zerolog.Nop(), Deps{
		Config:  cfg,
		Client:  client,
		Locator: controls.FixedLocator{Position: surface.LatLng{Lat: -1.29, Lng: 36.82}},
	})
	require.NoError(t, err)
	t.Cleanup(m.Teardown)
	return m
}

func lastToast(t *testing.T, m *Map) toast.Toast {
	t.Helper()
	last, ok := m.Toaster().Last()
	require.True(t, ok, "expected a toast")
	return last
}

func TestInit_SurfaceFailureToastsOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Map.TileURL = ""
	m := newMap(t, cfg, &fakeClient{})

	err := m.Init(context.Background())
	require.Error(t, err)

	hist := m.Toaster().History()
	require.Len(t, hist, 1)
	assert.Equal(t, toast.LevelError, hist[0].Level)
	assert.Equal(t, MsgInitFailed, hist[0].Message)

	assert.ErrorIs(t, m.LoadMarkers(context.Background()), ErrNotInitialized)
}

func TestInit_LoadsMarkersAndStartsRefresh(t *testing.T) {
	m := newMap(t, testConfig(), &fakeClient{
		markersFn: func(context.Context, mapdata.FilterState) (mapclient.MarkersResult, error) {
			return markers(person(1, -1.2, 36.8, false), person(2, -1.3, 36.9, false)), nil
		},
	})

	require.NoError(t, m.Init(context.Background()))

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.UI.ResultsCount)
	assert.Equal(t, 2, snap.LastRender.Rendered)
	assert.Equal(t, refresh.StateRunning, snap.Refresh)
	assert.Equal(t, "Loaded 2 markers", lastToast(t, m).Message)

	m.Teardown()
	snap, err = m.Snapshot()
	require.NoError(t, err)
	assert.True(t, snap.TornDown)
	assert.Equal(t, refresh.StateIdle, snap.Refresh)
	assert.ErrorIs(t, m.LoadMarkers(context.Background()), ErrTornDown)
}

func TestLoadMarkers_FailureKeepsRenderedSet(t *testing.T) {
	fail := false
	m := newMap(t, testConfig(), &fakeClient{
		markersFn: func(context.Context, mapdata.FilterState) (mapclient.MarkersResult, error) {
			if fail {
				return mapclient.MarkersResult{}, &mapclient.Error{Kind: mapclient.KindStatus, Status: 500}
			}
			return markers(person(1, -1.2, 36.8, false), person(2, -1.3, 36.9, false)), nil
		},
	})
	require.NoError(t, m.Init(context.Background()))

	fail = true
	assert.Error(t, m.LoadMarkers(context.Background()))

	overlays, err := m.Overlays()
	require.NoError(t, err)
	assert.Len(t, overlays, 2)
	assert.Equal(t, toast.Toast{Level: toast.LevelError, Message: MsgLoadFailed}, stripTimes(lastToast(t, m)))
}

func TestLoadMarkers_ApplicationFailureToastsServerMessage(t *testing.T) {
	fail := false
	m := newMap(t, testConfig(), &fakeClient{
		markersFn: func(context.Context, mapdata.FilterState) (mapclient.MarkersResult, error) {
			if fail {
				return mapclient.MarkersResult{}, &mapclient.Error{Kind: mapclient.KindApplication, Endpoint: mapclient.EndpointMarkers, Message: "database unavailable"}
			}
			return markers(person(1, -1.2, 36.8, false)), nil
		},
	})
	require.NoError(t, m.Init(context.Background()))

	fail = true
	require.Error(t, m.LoadMarkers(context.Background()))
	assert.Equal(t, toast.Toast{Level: toast.LevelError, Message: "database unavailable"}, stripTimes(lastToast(t, m)))
}

func TestLoadMarkers_UndecodableRecordIsSkipped(t *testing.T) {
	m := newMap(t, testConfig(), &fakeClient{
		markersFn: func(context.Context, mapdata.FilterState) (mapclient.MarkersResult, error) {
			return markers(person(1, -1.2, 36.8, false), mapdata.MarkerRecord{Kind: mapdata.KindSighting}), nil
		},
	})
	require.NoError(t, m.Init(context.Background()))

	snap, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.LastRender.Rendered)
	assert.Equal(t, 1, snap.LastRender.Skipped)
	assert.Equal(t, 2, snap.UI.ResultsCount)
	assert.Equal(t, "Loaded 2 markers", lastToast(t, m).Message)
}

func stripTimes(t toast.Toast) toast.Toast {
	return toast.Toast{Level: t.Level, Message: t.Message}
}

// orderedFetches hands out one gate per markers call after the first so a
// test can choose the order in which responses resolve.
type orderedFetches struct {
	mu      sync.Mutex
	calls   int
	started chan int
	gates   map[int]chan mapclient.MarkersResult
}

func newOrderedFetches() *orderedFetches {
	return &orderedFetches{
		started: make(chan int, 4),
		gates: map[int]chan mapclient.MarkersResult{
			2: make(chan mapclient.MarkersResult, 1),
			3: make(chan mapclient.MarkersResult, 1),
		},
	}
}

func (o *orderedFetches) fetch(ctx context.Context, _ mapdata.FilterState) (mapclient.MarkersResult, error) {
	o.mu.Lock()
	o.calls++
	n := o.calls
	o.mu.Unlock()

	gate, ok := o.gates[n]
	if !ok {
		return markers(), nil
	}
	o.started <- n
	select {
	case res := <-gate:
		return res, nil
	case <-ctx.Done():
		return mapclient.MarkersResult{}, ctx.Err()
	}
}

func runOutOfOrder(t *testing.T, sequence bool) []surface.Overlay {
	t.Helper()
	cfg := testConfig()
	cfg.API.SequenceResponses = sequence
	fetches := newOrderedFetches()
	m := newMap(t, cfg, &fakeClient{markersFn: fetches.fetch})
	require.NoError(t, m.Init(context.Background()))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = m.LoadMarkers(context.Background()) }()
	require.Equal(t, 2, <-fetches.started)
	go func() { defer wg.Done(); _ = m.LoadMarkers(context.Background()) }()
	require.Equal(t, 3, <-fetches.started)

	// The later request resolves first.
	fetches.gates[3] <- markers(person(30, -1.3, 36.9, false))
	require.Eventually(t, func() bool {
		o, _ := m.Overlays()
		return len(o) == 1 && o[0].PersonID == 30
	}, 2*time.Second, 10*time.Millisecond)

	fetches.gates[2] <- markers(person(20, -1.2, 36.8, false), person(21, -1.25, 36.85, false))
	wg.Wait()

	overlays, err := m.Overlays()
	require.NoError(t, err)
	return overlays
}

func TestLoadMarkers_LastResolvedWins(t *testing.T) {
	overlays := runOutOfOrder(t, false)
	require.Len(t, overlays, 2)
	ids := []int64{overlays[0].PersonID, overlays[1].PersonID}
	assert.ElementsMatch(t, []int64{20, 21}, ids)
}

func TestLoadMarkers_SequencingDropsStaleResponse(t *testing.T) {
	overlays := runOutOfOrder(t, true)
	require.Len(t, overlays, 1)
	assert.Equal(t, int64(30), overlays[0].PersonID)
}

func TestApplyFilters_MinorsOnly(t *testing.T) {
	var seen mapdata.FilterState
	m := newMap(t, testConfig(), &fakeClient{
		markersFn: func(_ context.Context, f mapdata.FilterState) (mapclient.MarkersResult, error) {
			seen = f
			return markers(person(1, -1.2, 36.8, true), person(2, -1.3, 36.9, false), person(3, -1.4, 36.7, true)), nil
		},
	})
	require.NoError(t, m.Init(context.Background()))

	c := m.UI().Controls()
	c.ShowMinorsOnly = true
	c.Search = "  kibera "
	m.UI().SetControls(c)
	require.NoError(t, m.Bus().Emit(context.Background(), events.Event{Kind: events.ApplyFilters}))

	assert.Equal(t, "kibera", seen.Search)
	overlays, err := m.Overlays()
	require.NoError(t, err)
	assert.Len(t, overlays, 2)

	var msgs []string
	for _, h := range m.Toaster().History() {
		msgs = append(msgs, h.Message)
	}
	assert.Contains(t, msgs, MsgFiltersApplied)
	// Results count reflects the API total, not the filtered overlay count.
	assert.Equal(t, 3, m.UI().ResultsCount())
}

func TestResetFilters_RestoresDefaults(t *testing.T) {
	m := newMap(t, testConfig(), &fakeClient{})
	require.NoError(t, m.Init(context.Background()))

	m.UI().SetControls(ui.Controls{Status: mapdata.StatusClosed, Days: 7, Search: "x", ShowClusters: false})
	require.NoError(t, m.ApplyFilters(context.Background()))
	require.NoError(t, m.ResetFilters(context.Background()))

	assert.Equal(t, mapdata.DefaultFilters(), m.Filters().State())
	assert.Equal(t, ui.ControlsFor(mapdata.DefaultFilters()), m.UI().Controls())
}

func TestStatisticsPanel(t *testing.T) {
	failStats := false
	m := newMap(t, testConfig(), &fakeClient{
		statsFn: func(context.Context) (mapdata.Statistics, error) {
			if failStats {
				return mapdata.Statistics{}, errors.New("down")
			}
			return mapdata.Statistics{ActiveCases: 7}, nil
		},
	})
	require.NoError(t, m.Init(context.Background()))

	visible, err := m.TogglePanel(context.Background(), ui.PanelStatistics)
	require.NoError(t, err)
	assert.True(t, visible)
	snap, _ := m.Snapshot()
	require.NotNil(t, snap.UI.Statistics)
	assert.Equal(t, 7, snap.UI.Statistics.ActiveCases)
	assert.Contains(t, snap.UI.StatisticsHTML, "No hotspot data available")

	failStats = true
	assert.Error(t, m.LoadStatistics(context.Background()))
	snap, _ = m.Snapshot()
	assert.Equal(t, 7, snap.UI.Statistics.ActiveCases, "failed refresh leaves the panel unchanged")
	assert.Equal(t, toast.LevelWarning, lastToast(t, m).Level)
	assert.Equal(t, MsgStatsFailed, lastToast(t, m).Message)
}

func TestRefresh_LoadsBoth(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	m := newMap(t, testConfig(), &fakeClient{
		markersFn: func(context.Context, mapdata.FilterState) (mapclient.MarkersResult, error) {
			mu.Lock()
			calls["markers"]++
			mu.Unlock()
			return markers(), nil
		},
		statsFn: func(context.Context) (mapdata.Statistics, error) {
			mu.Lock()
			calls["stats"]++
			mu.Unlock()
			return mapdata.Statistics{}, nil
		},
	})
	require.NoError(t, m.Init(context.Background()))

	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, 2, calls["markers"])
	assert.Equal(t, 1, calls["stats"])
	assert.False(t, m.UI().Snapshot().Refreshing)
}

func TestModalThroughEvents(t *testing.T) {
	m := newMap(t, testConfig(), &fakeClient{
		personFn: func(_ context.Context, id int64) (mapdata.PersonDetail, error) {
			if id == 404 {
				return mapdata.PersonDetail{}, errors.New("not found")
			}
			return mapdata.PersonDetail{ID: id, FullName: "Akinyi", Status: mapdata.StatusMissing}, nil
		},
	})
	require.NoError(t, m.Init(context.Background()))
	ctx := context.Background()

	require.NoError(t, m.Bus().Emit(ctx, events.Event{Kind: events.ActivateMarker, PersonID: 5}))
	visible, body, model, err := m.Modal()
	require.NoError(t, err)
	assert.True(t, visible)
	assert.Contains(t, body, "Akinyi")
	require.NotNil(t, model)
	assert.Equal(t, int64(5), model.PersonID)

	require.NoError(t, m.Bus().Emit(ctx, events.Event{Kind: events.KeyDown, Key: "Escape"}))
	visible, _, _, _ = m.Modal()
	assert.False(t, visible)

	require.NoError(t, m.Bus().Emit(ctx, events.Event{Kind: events.ActivateMarker, PersonID: 5}))
	require.NoError(t, m.Bus().Emit(ctx, events.Event{Kind: events.ModalOverlayClick}))
	visible, _, _, _ = m.Modal()
	assert.False(t, visible)

	assert.Error(t, m.Bus().Emit(ctx, events.Event{Kind: events.ActivateMarker, PersonID: 404}))
	visible, _, _, _ = m.Modal()
	assert.False(t, visible)
	assert.Equal(t, "Failed to load person details", lastToast(t, m).Message)
}

func TestLocateAndFullscreenThroughEvents(t *testing.T) {
	m := newMap(t, testConfig(), &fakeClient{
		markersFn: func(context.Context, mapdata.FilterState) (mapclient.MarkersResult, error) {
			return markers(person(1, -1.2, 36.8, false)), nil
		},
	})
	require.NoError(t, m.Init(context.Background()))
	ctx := context.Background()

	require.NoError(t, m.Bus().Emit(ctx, events.Event{Kind: events.Locate}))
	snap, _ := m.Snapshot()
	assert.Equal(t, testConfig().Map.LocateZoom, snap.Viewport.Zoom)

	// The location marker survives a re-render.
	require.NoError(t, m.LoadMarkers(ctx))
	overlays, _ := m.Overlays()
	assert.Len(t, overlays, 2)

	require.NoError(t, m.Bus().Emit(ctx, events.Event{Kind: events.ToggleFullscreen}))
	assert.Equal(t, ui.IconCompress, m.UI().Snapshot().FullscreenIcon)
	require.NoError(t, m.Bus().Emit(ctx, events.Event{Kind: events.FullscreenExited}))
	assert.Equal(t, ui.IconExpand, m.UI().Snapshot().FullscreenIcon)

	require.NoError(t, m.Bus().Emit(ctx, events.Event{Kind: events.DismissToast}))
	_, ok := m.Toaster().Current()
	assert.False(t, ok)

	require.NoError(t, m.Bus().Emit(ctx, events.Event{Kind: events.Unload}))
	assert.ErrorIs(t, m.Locate(ctx), ErrTornDown)
}
