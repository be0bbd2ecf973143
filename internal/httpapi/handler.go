package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"findme/map-core/internal/controller"
	"findme/map-core/internal/metrics"
)

type Handler struct {
	log     zerolog.Logger
	mapCtl  *controller.Map
	metrics *metrics.Metrics
}

func NewHandler(log zerolog.Logger, mapCtl *controller.Map, m *metrics.Metrics) *Handler {
	return &Handler{log: log, mapCtl: mapCtl, metrics: m}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/map", func(r chi.Router) {
				r.Get("/state", h.handleGetState)
				r.Get("/overlays", h.handleGetOverlays)
				r.Get("/clusters", h.handleGetClusters)
				r.Get("/statistics", h.handleGetStatistics)
				r.Get("/modal", h.handleGetModal)
				r.Get("/search-location", h.handleSearchLocation)
				r.Get("/nearby", h.handleNearby)

				r.Route("/filters", func(r chi.Router) {
					r.Put("/", h.handlePutFilters)
					r.Post("/reset", h.handleResetFilters)
					r.Post("/clear-search", h.handleClearSearch)
				})

				r.Post("/refresh", h.handleRefresh)
				r.Post("/panels/{panel}/toggle", h.handleTogglePanel)
				r.Post("/markers/{id}/activate", h.handleActivateMarker)
				r.Post("/modal/close", h.handleCloseModal)
				r.Post("/modal/overlay", h.handleModalOverlay)
				r.Post("/keys/{key}", h.handleKey)
				r.Post("/locate", h.handleLocate)
				r.Post("/fullscreen", h.handleToggleFullscreen)
				r.Post("/fullscreen/exit", h.handleFullscreenExited)
				r.Post("/toast/dismiss", h.handleDismissToast)
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		h.metrics.ObserveHTTPRequest(r.Method, path, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	if h.mapCtl == nil {
		h.writeError(w, http.StatusServiceUnavailable, "map_unavailable", "map not configured", nil)
		return
	}

	snap, err := h.mapCtl.Snapshot()
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "map_unavailable", "map not ready", map[string]any{"error": err.Error()})
		return
	}
	if snap.TornDown {
		h.writeError(w, http.StatusServiceUnavailable, "map_unavailable", "map torn down", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
