package surface

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Center:        LatLng{Lat: -1.286389, Lng: 36.817223},
		Zoom:          12,
		MinZoom:       6,
		MaxZoom:       18,
		TileURL:       "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		ClusterRadius: 50,
	}
}

func TestNew_RejectsBadOptions(t *testing.T) {
	opts := testOptions()
	opts.TileURL = ""
	_, err := New(opts)
	assert.Error(t, err)

	opts = testOptions()
	opts.Zoom = 3
	_, err = New(opts)
	assert.Error(t, err)

	opts = testOptions()
	opts.Center = LatLng{Lat: 200}
	_, err = New(opts)
	assert.Error(t, err)
}

func TestBounds_PadMatchesSpanRatio(t *testing.T) {
	b := BoundsOf(LatLng{Lat: 0, Lng: 10}, LatLng{Lat: 10, Lng: 30})
	p := b.Pad(0.1)
	assert.InDelta(t, -1.0, p.South, 1e-9)
	assert.InDelta(t, 11.0, p.North, 1e-9)
	assert.InDelta(t, 8.0, p.West, 1e-9)
	assert.InDelta(t, 32.0, p.East, 1e-9)
	assert.True(t, p.Contains(LatLng{Lat: 10.5, Lng: 31}))

	var empty Bounds
	assert.True(t, empty.Pad(0.1).Empty())
}

func TestFitBounds_ZoomsToContent(t *testing.T) {
	s, err := New(testOptions())
	require.NoError(t, err)

	// Two points a few kilometres apart around Nairobi.
	b := BoundsOf(LatLng{Lat: -1.30, Lng: 36.80}, LatLng{Lat: -1.25, Lng: 36.85}).Pad(0.1)
	s.FitBounds(b)

	v := s.View()
	assert.InDelta(t, -1.275, v.Center.Lat, 1e-9)
	assert.InDelta(t, 36.825, v.Center.Lng, 1e-9)
	assert.GreaterOrEqual(t, v.Zoom, 6)
	assert.LessOrEqual(t, v.Zoom, 18)
	assert.Equal(t, 1, s.FitCount())

	// A single point fits at the max zoom.
	s.FitBounds(BoundsOf(LatLng{Lat: 1, Lng: 1}))
	assert.Equal(t, 18, s.View().Zoom)

	// A continent-wide box is clamped to the min zoom.
	s.FitBounds(BoundsOf(LatLng{Lat: -60, Lng: -170}, LatLng{Lat: 70, Lng: 170}))
	assert.Equal(t, 6, s.View().Zoom)
}

func TestFitBounds_EmptyLeavesViewport(t *testing.T) {
	s, err := New(testOptions())
	require.NoError(t, err)
	before := s.View()
	s.FitBounds(Bounds{})
	assert.Equal(t, before, s.View())
	assert.Equal(t, 0, s.FitCount())
}

func TestAddRemoveAndDetach(t *testing.T) {
	s, err := New(testOptions())
	require.NoError(t, err)

	a := &Overlay{Key: "a", Position: LatLng{Lat: 1, Lng: 1}}
	b := &Overlay{Key: "b", Position: LatLng{Lat: 2, Lng: 2}}
	require.NoError(t, s.Add(LayerDirect, a))
	require.NoError(t, s.Add(LayerCluster, b))
	assert.Equal(t, 1, s.Count(LayerDirect))
	assert.Equal(t, 1, s.Count(LayerCluster))
	assert.Equal(t, "cluster", s.Overlays()[1].LayerName)

	s.Remove(a)
	s.Remove(b)
	assert.Empty(t, s.Overlays())

	s.Detach()
	assert.ErrorIs(t, s.Add(LayerDirect, a), ErrDetached)
	assert.True(t, s.Detached())
}

func TestClusters_GroupsNearbyOverlays(t *testing.T) {
	s, err := New(testOptions())
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		o := &Overlay{Key: fmt.Sprintf("n%02d", i), Position: LatLng{Lat: -1.2861 + float64(i)*0.00001, Lng: 36.8171}}
		require.NoError(t, s.Add(LayerCluster, o))
	}
	require.NoError(t, s.Add(LayerCluster, &Overlay{Key: "far", Position: LatLng{Lat: 3.5, Lng: 40.1}}))

	clusters := s.Clusters(8)
	require.Len(t, clusters, 2)
	assert.Equal(t, 12, clusters[0].Count)
	assert.Equal(t, "medium", clusters[0].SizeClass)
	require.NotNil(t, clusters[0].Bounds)
	assert.Equal(t, 1, clusters[1].Count)
	assert.Empty(t, clusters[1].SizeClass)
	assert.Equal(t, []string{"far"}, clusters[1].Keys)
}

func TestClusterSizeClass(t *testing.T) {
	assert.Equal(t, "small", clusterSizeClass(9))
	assert.Equal(t, "medium", clusterSizeClass(10))
	assert.Equal(t, "medium", clusterSizeClass(49))
	assert.Equal(t, "large", clusterSizeClass(50))
}
