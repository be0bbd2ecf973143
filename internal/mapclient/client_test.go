package mapclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findme/map-core/internal/loading"
	"findme/map-core/internal/mapdata"
	"findme/map-core/internal/metrics"
)

func newTestClient(t *testing.T, r chi.Router) (*Client, *loading.Indicator) {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	ind := loading.New(nil)
	c, err := New(zerolog.Nop(), Options{BaseURL: srv.URL, Timeout: 2 * time.Second}, ind, metrics.New())
	require.NoError(t, err)
	return c, ind
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchMarkers_SendsFiltersAndDecodesVariants(t *testing.T) {
	var gotQuery map[string]string
	var gotReqID string

	r := chi.NewRouter()
	r.Get("/api/maps/markers", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		gotQuery = map[string]string{
			"status":            q.Get("status"),
			"days":              q.Get("days"),
			"q":                 q.Get("q"),
			"include_sightings": q.Get("include_sightings"),
		}
		gotReqID = req.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"total":   2,
			"markers": []map[string]any{
				{"type": "missing_person", "id": 1, "lat": -1.28, "lng": 36.8, "name": "A", "status": "missing", "is_minor": true},
				{"type": "sighting", "id": 9, "lat": -1.3, "lng": 36.9, "missing_person_name": "A", "sighting_date": "2024-03-02T08:00:00"},
			},
		})
	})

	c, ind := newTestClient(t, r)
	f := mapdata.FilterState{Status: mapdata.StatusMissing, Days: 7, Search: "  grace ", ShowSightings: false}

	res, err := c.FetchMarkers(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"status": "missing", "days": "7", "q": "grace", "include_sightings": "false"}, gotQuery)
	assert.NotEmpty(t, gotReqID)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Markers, 2)
	assert.True(t, res.Markers[0].IsMinor())
	assert.Equal(t, mapdata.KindSighting, res.Markers[1].Kind)
	assert.False(t, ind.Visible())
}

func TestFetchMarkers_DaysAllSerializesAsAll(t *testing.T) {
	q := MarkerQuery(mapdata.FilterState{Status: mapdata.StatusAll, Days: mapdata.DaysAll, ShowSightings: true})
	assert.Equal(t, "all", q.Get("days"))
	assert.Equal(t, "all", q.Get("status"))
	assert.Equal(t, "true", q.Get("include_sightings"))
}

func TestFetchMarkers_BadRecordDoesNotFailBatch(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/maps/markers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"markers": []map[string]any{
				{"type": "missing_person", "id": 1, "lat": -1.28, "lng": 36.8, "name": "A", "status": "missing"},
				{"type": "sighting", "id": 2, "lat": -1.3, "lng": 36.9, "sighting_date": "2024-01-01 10:00:00"},
			},
		})
	})
	c, _ := newTestClient(t, r)

	res, err := c.FetchMarkers(context.Background(), mapdata.DefaultFilters())
	require.NoError(t, err)
	require.Len(t, res.Markers, 2)
	assert.Equal(t, 2, res.Total)
	require.NotNil(t, res.Markers[0].Person)
	assert.Equal(t, mapdata.KindSighting, res.Markers[1].Kind)
	assert.Nil(t, res.Markers[1].Sighting)
}

func TestFetchMarkers_ApplicationFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/maps/markers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "database unavailable"})
	})
	c, _ := newTestClient(t, r)

	_, err := c.FetchMarkers(context.Background(), mapdata.DefaultFilters())
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindApplication, apiErr.Kind)
	assert.Equal(t, "database unavailable", apiErr.UserMessage("fallback"))
}

func TestFetchMarkers_StatusFailureUsesFallback(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/maps/markers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "boom"})
	})
	c, ind := newTestClient(t, r)

	_, err := c.FetchMarkers(context.Background(), mapdata.DefaultFilters())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindStatus, apiErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))
	assert.False(t, ind.Visible())
}

func TestFetchStatistics_DecodeFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/maps/statistics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	})
	c, _ := newTestClient(t, r)

	_, err := c.FetchStatistics(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindDecode, apiErr.Kind)
}

func TestFetchStatistics_OK(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/maps/statistics", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"statistics": map[string]any{
				"active_cases": 12,
				"total_found":  3,
				"minors":       2,
				"hotspots":     []map[string]any{{"location": "Kibera", "count": 4}},
			},
		})
	})
	c, _ := newTestClient(t, r)

	s, err := c.FetchStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, s.ActiveCases)
	require.Len(t, s.Hotspots, 1)
	assert.Equal(t, "Kibera", s.Hotspots[0].Location)
}

func TestFetchPersonDetail(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/maps/person/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") != "42" {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Person not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"person":  map[string]any{"id": 42, "full_name": "Peter", "status": "missing", "last_seen_location": "Thika"},
		})
	})
	c, _ := newTestClient(t, r)

	p, err := c.FetchPersonDetail(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Peter", p.FullName)

	_, err = c.FetchPersonDetail(context.Background(), 7)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestSearchLocationAndNearby(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/maps/search-location", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"location": map[string]any{"lat": -0.09, "lng": 34.76, "display_name": body["query"] + ", Kenya"},
		})
	})
	r.Post("/api/maps/nearby", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]float64
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body["radius"] != 5 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "bad radius"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"count":   1,
			"results": []map[string]any{{"id": 3, "name": "Akinyi", "distance": 1.2}},
		})
	})
	c, _ := newTestClient(t, r)

	loc, err := c.SearchLocation(context.Background(), "Kisumu")
	require.NoError(t, err)
	assert.Equal(t, "Kisumu, Kenya", loc.DisplayName)

	near, err := c.Nearby(context.Background(), loc.Lat, loc.Lng, 5)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.InDelta(t, 1.2, near[0].DistanceKm, 1e-9)
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(zerolog.Nop(), Options{BaseURL: url, Timeout: time.Second}, nil, nil)
	require.NoError(t, err)

	_, err = c.FetchStatistics(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New(zerolog.Nop(), Options{BaseURL: "ftp://example.org"}, nil, nil)
	assert.Error(t, err)
}
