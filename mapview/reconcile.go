package mapview

import (
	"maps"
	"slices"
)

const (
	// FocusZoom is the zoom level used when following a selected vehicle.
	FocusZoom = 15
	// FitPadding is the margin, in pixels, kept around fitted bounds.
	FitPadding = 50
)

type EffectKind int

const (
	CreateMarker EffectKind = iota + 1
	MoveMarker
	RemoveMarker
	FocusCamera
	FitCamera
	RestyleMarker
)

func (k EffectKind) String() string {
	switch k {
	case CreateMarker:
		return "create"
	case MoveMarker:
		return "move"
	case RemoveMarker:
		return "remove"
	case FocusCamera:
		return "focus"
	case FitCamera:
		return "fit"
	case RestyleMarker:
		return "restyle"
	default:
		return "unknown"
	}
}

// Effect is one operation needed to bring the rendered map in line with the
// vehicle list. Fields not relevant to Kind are zero.
type Effect struct {
	Kind      EffectKind
	VehicleID string
	Position  LatLng
	Style     MarkerStyle
	Zoom      int
	Bounds    Bounds
	Padding   int
}

type marker struct {
	at    LatLng
	style MarkerStyle
}

type focusState struct {
	vehicleID string
	at        LatLng
}

// Reconciler tracks which vehicles have a marker, where and in which style, and
// plans the create, move, restyle and remove operations for each new vehicle
// list. It does not touch any rendering surface.
type Reconciler struct {
	markers map[string]marker
	focus   *focusState
}

func NewReconciler() *Reconciler {
	return &Reconciler{markers: make(map[string]marker)}
}

// Plan diffs vehicles against the current markers and records the result as
// the new current state. After Plan returns, the marker keys are exactly the
// ids of vehicles in the list that have a location. When an id appears more
// than once the first entry is used. An existing marker whose style changed
// (a trip started or ended, or the status moved) gets a restyle in place.
func (r *Reconciler) Plan(vehicles []Vehicle, selectedID string) []Effect {
	var effects []Effect

	seen := make(map[string]struct{}, len(vehicles))
	located := make(map[string]struct{}, len(vehicles))
	var points []LatLng
	var selected *LatLng

	for _, v := range vehicles {
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}

		if v.Location == nil {
			continue
		}
		at := *v.Location
		located[v.ID] = struct{}{}
		points = append(points, at)
		if selectedID != "" && v.ID == selectedID {
			selected = &at
		}

		style := StyleFor(v)
		prev, ok := r.markers[v.ID]
		if !ok {
			effects = append(effects, Effect{Kind: CreateMarker, VehicleID: v.ID, Position: at, Style: style})
			r.markers[v.ID] = marker{at: at, style: style}
			continue
		}
		if prev.at != at {
			effects = append(effects, Effect{Kind: MoveMarker, VehicleID: v.ID, Position: at})
		}
		if prev.style != style {
			effects = append(effects, Effect{Kind: RestyleMarker, VehicleID: v.ID, Style: style})
		}
		r.markers[v.ID] = marker{at: at, style: style}
	}

	var stale []string
	for id := range r.markers {
		if _, ok := located[id]; !ok {
			stale = append(stale, id)
		}
	}
	slices.Sort(stale)
	for _, id := range stale {
		effects = append(effects, Effect{Kind: RemoveMarker, VehicleID: id})
		delete(r.markers, id)
	}

	if selected != nil {
		if r.focus == nil || r.focus.vehicleID != selectedID || r.focus.at != *selected {
			effects = append(effects, Effect{Kind: FocusCamera, VehicleID: selectedID, Position: *selected, Zoom: FocusZoom})
			r.focus = &focusState{vehicleID: selectedID, at: *selected}
		}
		return effects
	}

	r.focus = nil
	if b, ok := boundsOf(points); ok {
		effects = append(effects, Effect{Kind: FitCamera, Bounds: b, Padding: FitPadding})
	}
	return effects
}

// Reset plans the removal of every marker and forgets all state.
func (r *Reconciler) Reset() []Effect {
	ids := slices.Sorted(maps.Keys(r.markers))
	effects := make([]Effect, 0, len(ids))
	for _, id := range ids {
		effects = append(effects, Effect{Kind: RemoveMarker, VehicleID: id})
	}
	clear(r.markers)
	r.focus = nil
	return effects
}

// Markers returns the ids that currently have a marker, sorted.
func (r *Reconciler) Markers() []string {
	return slices.Sorted(maps.Keys(r.markers))
}
