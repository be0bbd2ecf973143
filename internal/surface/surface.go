// Package surface is the in-memory map surface the renderer draws on: a
// direct overlay layer, a cluster layer and the current viewport.
package surface

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Layer selects where an overlay is attached.
type Layer int

const (
	LayerDirect Layer = iota
	LayerCluster
)

func (l Layer) String() string {
	if l == LayerCluster {
		return "cluster"
	}
	return "direct"
}

type Icon struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Class string `json:"class"`
}

// Overlay is one marker on the surface.
type Overlay struct {
	Key           string `json:"key"`
	Kind          string `json:"kind"`
	Position      LatLng `json:"position"`
	Icon          Icon   `json:"icon"`
	PopupHTML     string `json:"popup_html,omitempty"`
	PopupMaxWidth int    `json:"popup_max_width,omitempty"`
	PopupClass    string `json:"popup_class,omitempty"`
	PersonID      int64  `json:"person_id,omitempty"`
	Layer         Layer  `json:"-"`
	LayerName     string `json:"layer"`
}

type Viewport struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
}

type Options struct {
	Center        LatLng
	Zoom          int
	MinZoom       int
	MaxZoom       int
	TileURL       string
	Attribution   string
	ClusterRadius int
	// Pixel size of the viewport used when fitting bounds.
	WidthPx  int
	HeightPx int
}

var ErrDetached = errors.New("map surface detached")

type Surface struct {
	opts Options

	mu       sync.Mutex
	direct   []*Overlay
	cluster  []*Overlay
	view     Viewport
	fits     int
	detached bool
}

// New initialises the surface. It fails when the options cannot describe a
// usable map.
func New(opts Options) (*Surface, error) {
	if strings.TrimSpace(opts.TileURL) == "" {
		return nil, errors.New("tile url is required")
	}
	if opts.MinZoom < 0 || opts.MaxZoom < opts.MinZoom {
		return nil, fmt.Errorf("invalid zoom range %d..%d", opts.MinZoom, opts.MaxZoom)
	}
	if opts.Zoom < opts.MinZoom || opts.Zoom > opts.MaxZoom {
		return nil, fmt.Errorf("zoom %d outside %d..%d", opts.Zoom, opts.MinZoom, opts.MaxZoom)
	}
	if !opts.Center.Valid() {
		return nil, fmt.Errorf("invalid center %v", opts.Center)
	}
	if opts.ClusterRadius <= 0 {
		opts.ClusterRadius = 50
	}
	if opts.WidthPx <= 0 {
		opts.WidthPx = 1024
	}
	if opts.HeightPx <= 0 {
		opts.HeightPx = 768
	}
	return &Surface{
		opts: opts,
		view: Viewport{Center: opts.Center, Zoom: opts.Zoom},
	}, nil
}

func (s *Surface) TileURL() string     { return s.opts.TileURL }
func (s *Surface) Attribution() string { return s.opts.Attribution }

// Add attaches o to the given layer.
func (s *Surface) Add(layer Layer, o *Overlay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return ErrDetached
	}
	o.Layer = layer
	o.LayerName = layer.String()
	if layer == LayerCluster {
		s.cluster = append(s.cluster, o)
	} else {
		s.direct = append(s.direct, o)
	}
	return nil
}

// Remove detaches o from whichever layer holds it.
func (s *Surface) Remove(o *Overlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direct = removeOverlay(s.direct, o)
	s.cluster = removeOverlay(s.cluster, o)
}

func removeOverlay(list []*Overlay, o *Overlay) []*Overlay {
	for i, cur := range list {
		if cur == o {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// ClearCluster removes every overlay from the cluster layer.
func (s *Surface) ClearCluster() {
	s.mu.Lock()
	s.cluster = nil
	s.mu.Unlock()
}

// Overlays returns every attached overlay, direct layer first.
func (s *Surface) Overlays() []Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Overlay, 0, len(s.direct)+len(s.cluster))
	for _, o := range s.direct {
		out = append(out, *o)
	}
	for _, o := range s.cluster {
		out = append(out, *o)
	}
	return out
}

func (s *Surface) Count(layer Layer) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if layer == LayerCluster {
		return len(s.cluster)
	}
	return len(s.direct)
}

func (s *Surface) View() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// FitCount is the number of times FitBounds changed the viewport.
func (s *Surface) FitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fits
}

func (s *Surface) SetView(center LatLng, zoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.view = Viewport{Center: center, Zoom: s.clampZoom(zoom)}
}

// FitBounds centres the viewport on b at the largest zoom that shows all of it.
func (s *Surface) FitBounds(b Bounds) {
	if b.Empty() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	zoom := zoomForBounds(b, float64(s.opts.WidthPx), float64(s.opts.HeightPx), s.opts.MinZoom, s.opts.MaxZoom)
	s.view = Viewport{Center: b.Center(), Zoom: s.clampZoom(zoom)}
	s.fits++
}

func (s *Surface) clampZoom(z int) int {
	if z < s.opts.MinZoom {
		return s.opts.MinZoom
	}
	if z > s.opts.MaxZoom {
		return s.opts.MaxZoom
	}
	return z
}

// Detach tears the surface down. Later mutations are ignored.
func (s *Surface) Detach() {
	s.mu.Lock()
	s.detached = true
	s.direct = nil
	s.cluster = nil
	s.mu.Unlock()
}

func (s *Surface) Detached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

// Cluster is a group of cluster-layer overlays shown as one icon.
type Cluster struct {
	Center    LatLng   `json:"center"`
	Count     int      `json:"count"`
	SizeClass string   `json:"size_class,omitempty"`
	Bounds    *Bounds  `json:"bounds,omitempty"`
	Keys      []string `json:"keys"`
}

func clusterSizeClass(count int) string {
	switch {
	case count < 10:
		return "small"
	case count < 50:
		return "medium"
	default:
		return "large"
	}
}

// Clusters groups the cluster layer on a grid whose cell is the cluster
// radius at the given zoom. Single overlays come back with Count 1 and no
// size class.
func (s *Surface) Clusters(zoom int) []Cluster {
	s.mu.Lock()
	overlays := make([]*Overlay, len(s.cluster))
	copy(overlays, s.cluster)
	radius := s.opts.ClusterRadius
	zoom = s.clampZoom(zoom)
	s.mu.Unlock()

	cell := degreesPerPixel(zoom) * float64(radius)
	type cellKey struct{ x, y int64 }
	groups := make(map[cellKey][]*Overlay)
	var order []cellKey
	for _, o := range overlays {
		k := cellKey{
			x: int64(math.Floor(o.Position.Lng / cell)),
			y: int64(math.Floor(o.Position.Lat / cell)),
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], o)
	}

	out := make([]Cluster, 0, len(order))
	for _, k := range order {
		members := groups[k]
		var sumLat, sumLng float64
		var b Bounds
		keys := make([]string, 0, len(members))
		for _, o := range members {
			sumLat += o.Position.Lat
			sumLng += o.Position.Lng
			b = b.Extend(o.Position)
			keys = append(keys, o.Key)
		}
		sort.Strings(keys)
		c := Cluster{
			Center: LatLng{Lat: sumLat / float64(len(members)), Lng: sumLng / float64(len(members))},
			Count:  len(members),
			Keys:   keys,
		}
		if len(members) > 1 {
			c.SizeClass = clusterSizeClass(len(members))
			bb := b
			c.Bounds = &bb
		}
		out = append(out, c)
	}
	return out
}
