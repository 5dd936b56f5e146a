package mapview

import "github.com/weberitsol/school-erp-sub010/livelocation"

type LatLng struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

type Trip struct {
	ID        string `json:"id"`
	RouteName string `json:"routeName,omitempty"`
}

// Vehicle is one row of the list the view renders. Vehicles without a Location
// are not drawn.
type Vehicle struct {
	ID         string
	Label      string
	Status     livelocation.Status
	Location   *LatLng
	ActiveTrip *Trip
}

// Merge overlays live state onto the roster. A live location or status replaces
// whatever the roster carried for that vehicle; vehicles only known to the live
// state are not added.
func Merge(roster []Vehicle, state livelocation.State) []Vehicle {
	out := make([]Vehicle, 0, len(roster))
	for _, v := range roster {
		if status, ok := state.Statuses[v.ID]; ok {
			v.Status = status.Status
			if status.Location != nil {
				v.Location = &LatLng{Lat: status.Location.Latitude, Lng: status.Location.Longitude}
			}
		}
		if loc, ok := state.Locations[v.ID]; ok {
			v.Location = &LatLng{Lat: loc.Latitude, Lng: loc.Longitude}
		}
		out = append(out, v)
	}
	return out
}
