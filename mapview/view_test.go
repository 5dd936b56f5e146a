package mapview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weberitsol/school-erp-sub010/livelocation"
)

type fakeMarker struct {
	surface *fakeSurface
	id      string
	at      LatLng
	style   MarkerStyle
	onClick func()
	removed bool
}

func (m *fakeMarker) SetPosition(at LatLng) {
	m.at = at
}

func (m *fakeMarker) SetStyle(style MarkerStyle) {
	m.style = style
}

func (m *fakeMarker) Remove() {
	if m.removed {
		return
	}
	m.removed = true
	delete(m.surface.markers, m.id)
}

type fakeSurface struct {
	markers map[string]*fakeMarker
	created int
	center  *LatLng
	zoom    int
	bounds  *Bounds
	padding int
}

func (s *fakeSurface) AddMarker(vehicleID string, at LatLng, style MarkerStyle, onClick func()) MarkerHandle {
	m := &fakeMarker{surface: s, id: vehicleID, at: at, style: style, onClick: onClick}
	s.markers[vehicleID] = m
	s.created++
	return m
}

func (s *fakeSurface) SetView(center LatLng, zoom int) {
	s.center = &center
	s.zoom = zoom
	s.bounds = nil
}

func (s *fakeSurface) FitBounds(b Bounds, padding int) {
	s.bounds = &b
	s.padding = padding
	s.center = nil
}

func newFakeView(t *testing.T, onSelect func(string)) (*View, *fakeSurface, *int) {
	t.Helper()
	surface := &fakeSurface{markers: make(map[string]*fakeMarker)}
	builds := 0
	view := NewView(func() Surface {
		builds++
		return surface
	}, onSelect)
	return view, surface, &builds
}

func TestView_SurfaceBuiltOnce(t *testing.T) {
	view, _, builds := newFakeView(t, nil)

	view.Render([]Vehicle{{ID: "V1", Location: at(1, 1)}}, "")
	view.Render([]Vehicle{{ID: "V2", Location: at(2, 2)}}, "V2")
	view.Render(nil, "")

	assert.Equal(t, 1, *builds)
}

func TestView_ActiveTripThenEmptyList(t *testing.T) {
	view, surface, _ := newFakeView(t, nil)

	view.Render([]Vehicle{{ID: "V1", Location: at(10, 20), Status: livelocation.StatusActive, ActiveTrip: &Trip{ID: "T1"}}}, "")

	require.Contains(t, surface.markers, "V1")
	assert.Equal(t, StyleActive, surface.markers["V1"].style)
	assert.Equal(t, []string{"V1"}, view.Markers())

	view.Render([]Vehicle{}, "")

	assert.Empty(t, surface.markers)
	assert.Empty(t, view.Markers())
}

func TestView_MoveKeepsMarkerIdentity(t *testing.T) {
	view, surface, _ := newFakeView(t, nil)

	view.Render([]Vehicle{{ID: "V1", Location: at(1, 1)}}, "")
	first := surface.markers["V1"]

	view.Render([]Vehicle{{ID: "V1", Location: at(2, 3)}}, "")

	assert.Same(t, first, surface.markers["V1"])
	assert.Equal(t, LatLng{2, 3}, first.at)
	assert.Equal(t, 1, surface.created)
}

func TestView_RestyleKeepsMarkerIdentity(t *testing.T) {
	view, surface, _ := newFakeView(t, nil)

	view.Render([]Vehicle{{ID: "V1", Location: at(1, 1), Status: livelocation.StatusActive}}, "")
	first := surface.markers["V1"]
	assert.Equal(t, StyleIdle, first.style)

	view.Render([]Vehicle{{ID: "V1", Location: at(1, 1), Status: livelocation.StatusActive, ActiveTrip: &Trip{ID: "T1"}}}, "")

	assert.Same(t, first, surface.markers["V1"])
	assert.Equal(t, StyleActive, first.style)
	assert.Equal(t, 1, surface.created)
}

func TestView_HandlesMatchSurfaceAfterChurn(t *testing.T) {
	view, surface, _ := newFakeView(t, nil)

	lists := [][]Vehicle{
		{{ID: "A", Location: at(1, 1)}, {ID: "B", Location: at(2, 2)}, {ID: "C", Location: at(3, 3)}},
		{{ID: "B", Location: at(2, 2)}, {ID: "D", Location: at(4, 4)}},
		{{ID: "B"}, {ID: "D", Location: at(4, 5)}, {ID: "E", Location: at(5, 5)}},
		{},
		{{ID: "A", Location: at(1, 1)}},
	}
	for _, list := range lists {
		view.Render(list, "")

		var want []string
		for _, v := range list {
			if v.Location != nil {
				want = append(want, v.ID)
			}
		}
		assert.ElementsMatch(t, want, view.Markers())
		assert.Len(t, surface.markers, len(want))
	}
}

func TestView_SelectionAndCamera(t *testing.T) {
	var clicked []string
	view, surface, _ := newFakeView(t, func(id string) { clicked = append(clicked, id) })

	vehicles := []Vehicle{
		{ID: "V1", Location: at(10, 20)},
		{ID: "V2", Location: at(11, 21)},
		{ID: "V3", Location: at(9, 22)},
	}
	view.Render(vehicles, "V1")

	require.NotNil(t, surface.center)
	assert.Equal(t, LatLng{10, 20}, *surface.center)
	assert.Equal(t, FocusZoom, surface.zoom)

	surface.markers["V2"].onClick()
	assert.Equal(t, []string{"V2"}, clicked)

	view.Render(vehicles, "")

	require.NotNil(t, surface.bounds)
	assert.Equal(t, FitPadding, surface.padding)
	assert.True(t, surface.bounds.Contains(LatLng{11, 21}))
	assert.True(t, surface.bounds.Contains(LatLng{9, 22}))
}

func TestView_Close(t *testing.T) {
	view, surface, builds := newFakeView(t, nil)
	view.Render([]Vehicle{{ID: "V1", Location: at(1, 1)}, {ID: "V2", Location: at(2, 2)}}, "")
	v1 := surface.markers["V1"]

	view.Close()

	assert.Empty(t, surface.markers)
	assert.Empty(t, view.Markers())
	assert.True(t, v1.removed)

	// Removing twice is harmless and nothing renders after close.
	v1.Remove()
	view.Close()
	assert.Nil(t, view.Render([]Vehicle{{ID: "V3", Location: at(3, 3)}}, ""))
	assert.Empty(t, surface.markers)
	assert.Equal(t, 1, *builds)
}
