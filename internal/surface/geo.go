package surface

import (
	"math"
)

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p LatLng) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Bounds is a geographic rectangle. The zero value is empty.
type Bounds struct {
	South float64 `json:"s"`
	West  float64 `json:"w"`
	North float64 `json:"n"`
	East  float64 `json:"e"`
	set   bool
}

func BoundsOf(points ...LatLng) Bounds {
	var b Bounds
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

func (b Bounds) Empty() bool { return !b.set }

func (b Bounds) Extend(p LatLng) Bounds {
	if !b.set {
		return Bounds{South: p.Lat, North: p.Lat, West: p.Lng, East: p.Lng, set: true}
	}
	b.South = math.Min(b.South, p.Lat)
	b.North = math.Max(b.North, p.Lat)
	b.West = math.Min(b.West, p.Lng)
	b.East = math.Max(b.East, p.Lng)
	return b
}

// Pad grows each side by ratio times the span on that axis.
func (b Bounds) Pad(ratio float64) Bounds {
	if !b.set || ratio <= 0 {
		return b
	}
	dLat := (b.North - b.South) * ratio
	dLng := (b.East - b.West) * ratio
	return Bounds{
		South: math.Max(-90, b.South-dLat),
		North: math.Min(90, b.North+dLat),
		West:  math.Max(-180, b.West-dLng),
		East:  math.Min(180, b.East+dLng),
		set:   true,
	}
}

func (b Bounds) Center() LatLng {
	return LatLng{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

func (b Bounds) Contains(p LatLng) bool {
	return b.set && p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

const tileSize = 256.0

// mercatorY projects a latitude to the unit square used by web map tiles.
func mercatorY(lat float64) float64 {
	lat = math.Max(-85.05112878, math.Min(85.05112878, lat))
	rad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}

// zoomForBounds returns the largest zoom at which b fits in a viewport of the
// given pixel size.
func zoomForBounds(b Bounds, widthPx, heightPx float64, minZoom, maxZoom int) int {
	spanX := (b.East - b.West) / 360
	spanY := math.Abs(mercatorY(b.South) - mercatorY(b.North))
	if spanX <= 0 && spanY <= 0 {
		return maxZoom
	}

	zoom := maxZoom
	for z := maxZoom; z >= minZoom; z-- {
		world := tileSize * math.Pow(2, float64(z))
		if spanX*world <= widthPx && spanY*world <= heightPx {
			zoom = z
			break
		}
		zoom = z
	}
	return zoom
}

// degreesPerPixel is the longitude span of one pixel at zoom.
func degreesPerPixel(zoom int) float64 {
	return 360 / (tileSize * math.Pow(2, float64(zoom)))
}
