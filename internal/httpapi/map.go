package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"findme/map-core/internal/controller"
	"findme/map-core/internal/controls"
	"findme/map-core/internal/events"
	"findme/map-core/internal/mapclient"
	"findme/map-core/internal/mapdata"
	"findme/map-core/internal/modal"
	"findme/map-core/internal/ui"
)

const (
	defaultNearbyRadiusKm = 10.0
	maxNearbyRadiusKm     = 500.0
)

// filtersUpdate writes control values. Omitted fields keep their current
// value.
type filtersUpdate struct {
	Status         *string       `json:"status,omitempty"`
	Days           *mapdata.Days `json:"days,omitempty"`
	Search         *string       `json:"search,omitempty"`
	ShowSightings  *bool         `json:"show_sightings,omitempty"`
	ShowMinorsOnly *bool         `json:"show_minors_only,omitempty"`
	ShowClusters   *bool         `json:"show_clusters,omitempty"`
}

type statisticsResponse struct {
	Visible    bool                `json:"visible"`
	Statistics *mapdata.Statistics `json:"statistics,omitempty"`
	HTML       string              `json:"html,omitempty"`
}

type modalResponse struct {
	Visible bool   `json:"visible"`
	HTML    string `json:"html,omitempty"`
	Person  any    `json:"person,omitempty"`
}

func (h *Handler) ensureMap(w http.ResponseWriter) bool {
	if h.mapCtl == nil {
		h.writeError(w, http.StatusServiceUnavailable, "map_unavailable", "map not configured", nil)
		return false
	}
	return true
}

// writeMapError maps controller and upstream failures onto the error envelope.
func (h *Handler) writeMapError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *mapclient.Error
	switch {
	case errors.Is(err, controller.ErrNotInitialized),
		errors.Is(err, controller.ErrTornDown),
		errors.Is(err, events.ErrNoHandler):
		h.writeError(w, http.StatusServiceUnavailable, "map_unavailable", "map is not running", map[string]any{"error": err.Error()})
	case errors.Is(err, controls.ErrUnsupported):
		h.writeError(w, http.StatusNotImplemented, "geolocation_unsupported", controls.MsgLocateUnsupported, nil)
	case errors.As(err, &apiErr):
		details := map[string]any{"endpoint": apiErr.Endpoint, "kind": apiErr.Kind.String()}
		if apiErr.Status != 0 {
			details["status"] = apiErr.Status
		}
		h.writeError(w, http.StatusBadGateway, "upstream_error", apiErr.UserMessage(fallback), details)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.writeError(w, http.StatusGatewayTimeout, "timeout", fallback, nil)
	default:
		h.log.Error().Err(err).Msg("map operation failed")
		h.writeError(w, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func (h *Handler) writeState(w http.ResponseWriter) {
	snap, err := h.mapCtl.Snapshot()
	if err != nil {
		h.writeMapError(w, err, "failed to read map state")
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// emit sends ev through the page event bus and answers with the new state.
func (h *Handler) emit(w http.ResponseWriter, r *http.Request, ev events.Event, fallback string) {
	if !h.ensureMap(w) {
		return
	}
	if err := h.mapCtl.Bus().Emit(r.Context(), ev); err != nil {
		h.writeMapError(w, err, fallback)
		return
	}
	h.writeState(w)
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	if !h.ensureMap(w) {
		return
	}
	h.writeState(w)
}

func (h *Handler) handleGetOverlays(w http.ResponseWriter, r *http.Request) {
	if !h.ensureMap(w) {
		return
	}
	overlays, err := h.mapCtl.Overlays()
	if err != nil {
		h.writeMapError(w, err, "failed to list overlays")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"overlays": overlays, "count": len(overlays)})
}

func (h *Handler) handleGetClusters(w http.ResponseWriter, r *http.Request) {
	if !h.ensureMap(w) {
		return
	}
	zoom, err := parseZoomParam(r.URL.Query().Get("zoom"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid zoom", map[string]any{"error": err.Error()})
		return
	}
	clusters, err := h.mapCtl.Clusters(zoom)
	if err != nil {
		h.writeMapError(w, err, "failed to compute clusters")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

func (h *Handler) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	if !h.ensureMap(w) {
		return
	}
	state := h.mapCtl.UI().Snapshot()
	h.writeJSON(w, http.StatusOK, statisticsResponse{
		Visible:    state.Panels[ui.PanelStatistics],
		Statistics: state.Statistics,
		HTML:       state.StatisticsHTML,
	})
}

func (h *Handler) handleGetModal(w http.ResponseWriter, r *http.Request) {
	if !h.ensureMap(w) {
		return
	}
	visible, body, model, err := h.mapCtl.Modal()
	if err != nil {
		h.writeMapError(w, err, "failed to read modal")
		return
	}
	resp := modalResponse{Visible: visible, HTML: body}
	if model != nil {
		resp.Person = model
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutFilters(w http.ResponseWriter, r *http.Request) {
	if !h.ensureMap(w) {
		return
	}
	var req filtersUpdate
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	c := h.mapCtl.UI().Controls()
	if req.Status != nil {
		st, err := mapdata.ParseStatus(*req.Status)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid status", map[string]any{"status": *req.Status})
			return
		}
		c.Status = st
	}
	if req.Days != nil {
		c.Days = *req.Days
	}
	if req.Search != nil {
		c.Search = *req.Search
	}
	if req.ShowSightings != nil {
		c.ShowSightings = *req.ShowSightings
	}
	if req.ShowMinorsOnly != nil {
		c.ShowMinorsOnly = *req.ShowMinorsOnly
	}
	if req.ShowClusters != nil {
		c.ShowClusters = *req.ShowClusters
	}
	h.mapCtl.UI().SetControls(c)

	h.emit(w, r, events.Event{Kind: events.ApplyFilters}, controller.MsgLoadFailed)
}

func (h *Handler) handleResetFilters(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, events.Event{Kind: events.ResetFilters}, controller.MsgLoadFailed)
}

func (h *Handler) handleClearSearch(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, events.Event{Kind: events.ClearSearch}, controller.MsgLoadFailed)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, events.Event{Kind: events.Refresh}, controller.MsgLoadFailed)
}

func (h *Handler) handleTogglePanel(w http.ResponseWriter, r *http.Request) {
	panel, err := ui.ParsePanel(chi.URLParam(r, "panel"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "not_found", "unknown panel", map[string]any{"panel": chi.URLParam(r, "panel")})
		return
	}
	kind := events.ToggleFilters
	if panel == ui.PanelStatistics {
		kind = events.ToggleStatistics
	}
	h.emit(w, r, events.Event{Kind: kind}, controller.MsgStatsFailed)
}

func (h *Handler) handleActivateMarker(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid_id", "person id must be a positive integer", map[string]any{"id": raw})
		return
	}
	h.emit(w, r, events.Event{Kind: events.ActivateMarker, PersonID: id}, modal.MsgLoadFailed)
}

func (h *Handler) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, events.Event{Kind: events.CloseModal}, "failed to close modal")
}

func (h *Handler) handleModalOverlay(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, events.Event{Kind: events.ModalOverlayClick}, "failed to close modal")
}

// handleKey delivers a key press. Enter submits the search box; everything
// else goes to the page-wide key handler.
func (h *Handler) handleKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "key is required", nil)
		return
	}
	if key == "Enter" {
		h.emit(w, r, events.Event{Kind: events.SearchSubmit}, controller.MsgLoadFailed)
		return
	}
	h.emit(w, r, events.Event{Kind: events.KeyDown, Key: key}, "failed to handle key")
}

func (h *Handler) handleLocate(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, events.Event{Kind: events.Locate}, controls.MsgLocateFailed)
}

func (h *Handler) handleToggleFullscreen(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, events.Event{Kind: events.ToggleFullscreen}, "failed to toggle fullscreen")
}

func (h *Handler) handleFullscreenExited(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, events.Event{Kind: events.FullscreenExited}, "failed to exit fullscreen")
}

func (h *Handler) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	h.emit(w, r, events.Event{Kind: events.DismissToast}, "failed to dismiss toast")
}

func (h *Handler) handleSearchLocation(w http.ResponseWriter, r *http.Request) {
	if !h.ensureMap(w) {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "Search query is required", nil)
		return
	}
	loc, err := h.mapCtl.SearchLocation(r.Context(), q)
	if err != nil {
		h.writeMapError(w, err, "Location not found")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"location": loc})
}

func (h *Handler) handleNearby(w http.ResponseWriter, r *http.Request) {
	if !h.ensureMap(w) {
		return
	}
	q := r.URL.Query()
	lat, err := parseCoordParam(q.Get("lat"), 90)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid lat", map[string]any{"error": err.Error()})
		return
	}
	lng, err := parseCoordParam(q.Get("lng"), 180)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid lng", map[string]any{"error": err.Error()})
		return
	}
	radius, err := parseRadiusParam(q.Get("radius"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid radius", map[string]any{"error": err.Error()})
		return
	}

	results, err := h.mapCtl.Nearby(r.Context(), lat, lng, radius)
	if err != nil {
		h.writeMapError(w, err, "Failed to search nearby")
		return
	}
	if results == nil {
		results = []mapdata.NearbyCase{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

// parseZoomParam returns -1 for "use the current zoom".
func parseZoomParam(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("zoom must be an integer")
	}
	if n < 0 || n > 24 {
		return 0, fmt.Errorf("zoom must be between 0 and 24")
	}
	return n, nil
}

func parseCoordParam(value string, limit float64) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("value is required")
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("value must be a number")
	}
	if f < -limit || f > limit {
		return 0, fmt.Errorf("value must be between %v and %v", -limit, limit)
	}
	return f, nil
}

func parseRadiusParam(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultNearbyRadiusKm, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("radius must be a number")
	}
	if f <= 0 || f > maxNearbyRadiusKm {
		return 0, fmt.Errorf("radius must be in (0, %v]", maxNearbyRadiusKm)
	}
	return f, nil
}
