package mapview

import (
	"maps"
	"slices"

	"github.com/rs/zerolog/log"
)

// MarkerHandle is a marker owned by a Surface. Remove must be safe to call on a
// handle that is already gone.
type MarkerHandle interface {
	SetPosition(at LatLng)
	SetStyle(style MarkerStyle)
	Remove()
}

// Surface is the map runtime the view draws on.
type Surface interface {
	AddMarker(vehicleID string, at LatLng, style MarkerStyle, onClick func()) MarkerHandle
	SetView(center LatLng, zoom int)
	FitBounds(b Bounds, padding int)
}

// View keeps a Surface's markers in step with the vehicle list. It is not safe
// for concurrent use; drive it from a single goroutine.
type View struct {
	newSurface func() Surface
	onSelect   func(vehicleID string)

	surface Surface
	handles map[string]MarkerHandle
	planner *Reconciler
	closed  bool
}

// NewView returns a view that builds its surface with newSurface on first
// render. onSelect is called with the vehicle id when a marker is clicked.
func NewView(newSurface func() Surface, onSelect func(vehicleID string)) *View {
	return &View{
		newSurface: newSurface,
		onSelect:   onSelect,
		handles:    make(map[string]MarkerHandle),
		planner:    NewReconciler(),
	}
}

// Render reconciles the surface against vehicles and returns the applied effects.
func (v *View) Render(vehicles []Vehicle, selectedID string) []Effect {
	if v.closed {
		return nil
	}
	if v.surface == nil {
		v.surface = v.newSurface()
		log.Debug().Msg("Map surface initialised")
	}

	effects := v.planner.Plan(vehicles, selectedID)
	v.apply(effects)
	return effects
}

// Close removes every marker. The view renders nothing afterwards.
func (v *View) Close() {
	if v.closed {
		return
	}
	v.apply(v.planner.Reset())
	for id, h := range v.handles {
		h.Remove()
		delete(v.handles, id)
	}
	v.closed = true
}

// Markers returns the ids with a live handle, sorted.
func (v *View) Markers() []string {
	return slices.Sorted(maps.Keys(v.handles))
}

func (v *View) apply(effects []Effect) {
	for _, e := range effects {
		switch e.Kind {
		case CreateMarker:
			id := e.VehicleID
			v.handles[id] = v.surface.AddMarker(id, e.Position, e.Style, func() {
				if v.onSelect != nil {
					v.onSelect(id)
				}
			})
		case MoveMarker:
			if h, ok := v.handles[e.VehicleID]; ok {
				h.SetPosition(e.Position)
			}
		case RestyleMarker:
			if h, ok := v.handles[e.VehicleID]; ok {
				h.SetStyle(e.Style)
			}
		case RemoveMarker:
			if h, ok := v.handles[e.VehicleID]; ok {
				h.Remove()
				delete(v.handles, e.VehicleID)
			}
		case FocusCamera:
			v.surface.SetView(e.Position, e.Zoom)
		case FitCamera:
			v.surface.FitBounds(e.Bounds, e.Padding)
		}
	}
}
