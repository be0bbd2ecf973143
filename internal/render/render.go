// Package render draws marker records onto the map surface.
package render

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"findme/map-core/internal/mapdata"
	"findme/map-core/internal/metrics"
	"findme/map-core/internal/surface"
)

const popupClass = "findme-custom-popup"

// Style is the icon treatment of one marker.
type Style struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Class string `json:"class"`
}

var (
	styleMinor         = Style{Color: "red", Icon: "child", Class: "findme-marker-minor"}
	styleFound         = Style{Color: "green", Icon: "check", Class: "findme-marker-found"}
	styleInvestigating = Style{Color: "orange", Icon: "search", Class: "findme-marker-investigating"}
	styleMissing       = Style{Color: "red", Icon: "user", Class: "findme-marker-missing"}
	styleSighting      = Style{Color: "blue", Icon: "eye", Class: "findme-marker-sighting"}
)

// StyleFor picks the marker style. For missing persons the minor flag wins
// over status; any status other than found or investigating is drawn as
// missing.
func StyleFor(rec mapdata.MarkerRecord) (Style, error) {
	switch rec.Kind {
	case mapdata.KindMissingPerson:
		if rec.Person == nil {
			return Style{}, errors.New("missing person record without payload")
		}
		if rec.Person.IsMinor {
			return styleMinor, nil
		}
		switch rec.Person.Status {
		case mapdata.StatusFound:
			return styleFound, nil
		case mapdata.StatusInvestigating:
			return styleInvestigating, nil
		default:
			return styleMissing, nil
		}
	case mapdata.KindSighting:
		if rec.Sighting == nil {
			return Style{}, errors.New("sighting record without payload")
		}
		return styleSighting, nil
	default:
		return Style{}, fmt.Errorf("unknown marker kind %q", rec.Kind)
	}
}

// Popups renders the popup body of a record.
type Popups interface {
	Popup(rec mapdata.MarkerRecord) (string, error)
}

type Options struct {
	FitPadding    float64
	PopupMaxWidth int
}

// Result summarises one render pass.
type Result struct {
	Rendered int `json:"rendered"`
	Skipped  int `json:"skipped"`
}

type Renderer struct {
	log     zerolog.Logger
	surface *surface.Surface
	popups  Popups
	metrics *metrics.Metrics
	opts    Options

	mu      sync.Mutex
	current []*surface.Overlay
}

func New(log zerolog.Logger, s *surface.Surface, popups Popups, m *metrics.Metrics, opts Options) *Renderer {
	if opts.FitPadding < 0 {
		opts.FitPadding = 0
	}
	if opts.PopupMaxWidth <= 0 {
		opts.PopupMaxWidth = 300
	}
	return &Renderer{log: log, surface: s, popups: popups, metrics: m, opts: opts}
}

// Render replaces every overlay from the previous pass with the given
// records. Records that cannot be drawn are logged and skipped. The viewport
// is fitted to the new overlays, or left alone when there are none.
func (r *Renderer) Render(records []mapdata.MarkerRecord, f mapdata.FilterState) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.current {
		r.surface.Remove(o)
	}
	r.surface.ClearCluster()
	r.current = r.current[:0]

	layer := surface.LayerDirect
	if f.ShowClusters {
		layer = surface.LayerCluster
	}

	var res Result
	var bounds surface.Bounds
	for i, rec := range records {
		if f.ShowMinorsOnly && !rec.IsMinor() {
			continue
		}
		o, err := r.overlay(i, rec)
		if err != nil {
			res.Skipped++
			r.log.Warn().Err(err).Int("index", i).Str("kind", string(rec.Kind)).Msg("skipping marker")
			continue
		}
		if err := r.surface.Add(layer, o); err != nil {
			if errors.Is(err, surface.ErrDetached) {
				r.log.Debug().Msg("surface detached; abandoning render")
				break
			}
			res.Skipped++
			r.log.Warn().Err(err).Int("index", i).Msg("skipping marker")
			continue
		}
		r.current = append(r.current, o)
		bounds = bounds.Extend(o.Position)
		res.Rendered++
	}

	if res.Rendered > 0 {
		r.surface.FitBounds(bounds.Pad(r.opts.FitPadding))
	}

	r.metrics.ObserveRender(res.Rendered, res.Skipped)
	r.log.Debug().Int("rendered", res.Rendered).Int("skipped", res.Skipped).Msg("rendered markers")
	return res
}

// Rendered returns the number of overlays from the last pass.
func (r *Renderer) Rendered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.current)
}

func (r *Renderer) overlay(i int, rec mapdata.MarkerRecord) (*surface.Overlay, error) {
	style, err := StyleFor(rec)
	if err != nil {
		return nil, err
	}
	lat, lng, err := rec.Position()
	if err != nil {
		return nil, err
	}
	pos := surface.LatLng{Lat: lat, Lng: lng}
	if !pos.Valid() {
		return nil, fmt.Errorf("invalid coordinates %v,%v", lat, lng)
	}
	popup, err := r.popups.Popup(rec)
	if err != nil {
		return nil, fmt.Errorf("render popup: %w", err)
	}

	o := &surface.Overlay{
		Kind:          string(rec.Kind),
		Position:      pos,
		Icon:          surface.Icon{Name: style.Icon, Color: style.Color, Class: style.Class},
		PopupHTML:     popup,
		PopupMaxWidth: r.opts.PopupMaxWidth,
		PopupClass:    popupClass,
	}
	switch rec.Kind {
	case mapdata.KindMissingPerson:
		o.PersonID = rec.Person.ID
		o.Key = "person-" + strconv.FormatInt(rec.Person.ID, 10)
	case mapdata.KindSighting:
		o.Key = "sighting-" + strconv.FormatInt(rec.Sighting.ID, 10) + "-" + strconv.Itoa(i)
	}
	return o, nil
}
