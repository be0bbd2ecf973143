// Package controls implements the locate and fullscreen map controls.
package controls

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"findme/map-core/internal/config"
	"findme/map-core/internal/surface"
	"findme/map-core/internal/toast"
)

const (
	MsgLocated           = "Location found"
	MsgLocateFailed      = "Could not get your location"
	MsgLocateUnsupported = "Geolocation not supported"
	locationOverlayKey   = "you-are-here"
	locationOverlayKind  = "location"
	locationOverlayPopup = "You are here"
)

var ErrUnsupported = errors.New("geolocation not supported")

// Locator reports the user's position.
type Locator interface {
	Locate(ctx context.Context) (surface.LatLng, error)
}

// FixedLocator always reports the same position.
type FixedLocator struct {
	Position surface.LatLng
}

func (l FixedLocator) Locate(ctx context.Context) (surface.LatLng, error) {
	if err := ctx.Err(); err != nil {
		return surface.LatLng{}, err
	}
	return l.Position, nil
}

// UnsupportedLocator is used when no position source is configured.
type UnsupportedLocator struct{}

func (UnsupportedLocator) Locate(context.Context) (surface.LatLng, error) {
	return surface.LatLng{}, ErrUnsupported
}

// NewLocator builds a locator from a "lat,lng" setting. An empty setting
// means geolocation is unsupported.
func NewLocator(setting string) (Locator, error) {
	if strings.TrimSpace(setting) == "" {
		return UnsupportedLocator{}, nil
	}
	lat, lng, err := config.ParseLatLng(setting)
	if err != nil {
		return nil, err
	}
	return FixedLocator{Position: surface.LatLng{Lat: lat, Lng: lng}}, nil
}

type LocatingIndicator interface {
	SetLocating(on bool)
}

type Geolocation struct {
	log       zerolog.Logger
	locator   Locator
	surface   *surface.Surface
	toasts    toast.Sink
	indicator LocatingIndicator
	zoom      int

	mu   sync.Mutex
	here *surface.Overlay
}

func NewGeolocation(log zerolog.Logger, locator Locator, s *surface.Surface, toasts toast.Sink, ind LocatingIndicator, zoom int) *Geolocation {
	if locator == nil {
		locator = UnsupportedLocator{}
	}
	return &Geolocation{log: log, locator: locator, surface: s, toasts: toasts, indicator: ind, zoom: zoom}
}

// Locate centres the map on the user's position and marks it. The marker
// lives outside the rendered marker set and survives re-renders.
func (g *Geolocation) Locate(ctx context.Context) error {
	if _, ok := g.locator.(UnsupportedLocator); ok {
		g.toasts.Show(toast.LevelError, MsgLocateUnsupported)
		return ErrUnsupported
	}

	g.indicator.SetLocating(true)
	defer g.indicator.SetLocating(false)

	pos, err := g.locator.Locate(ctx)
	if err != nil {
		g.log.Error().Err(err).Msg("geolocation failed")
		if errors.Is(err, ErrUnsupported) {
			g.toasts.Show(toast.LevelError, MsgLocateUnsupported)
		} else {
			g.toasts.Show(toast.LevelError, MsgLocateFailed)
		}
		return err
	}

	g.surface.SetView(pos, g.zoom)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.here != nil {
		g.surface.Remove(g.here)
	}
	here := &surface.Overlay{
		Key:       locationOverlayKey,
		Kind:      locationOverlayKind,
		Position:  pos,
		Icon:      surface.Icon{Name: "crosshairs", Color: "blue"},
		PopupHTML: locationOverlayPopup,
	}
	if err := g.surface.Add(surface.LayerDirect, here); err != nil {
		return err
	}
	g.here = here

	g.toasts.Show(toast.LevelSuccess, MsgLocated)
	return nil
}
