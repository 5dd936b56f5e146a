package mapview

import "github.com/weberitsol/school-erp-sub010/livelocation"

type MarkerStyle string

const (
	StyleIdle         MarkerStyle = "idle"
	StyleActive       MarkerStyle = "active"
	StyleMaintenance  MarkerStyle = "maintenance"
	StyleOutOfService MarkerStyle = "out-of-service"
	StyleDefault      MarkerStyle = "default"
)

// StyleFor picks the marker treatment. A vehicle running a trip is always
// active; otherwise the status decides.
func StyleFor(v Vehicle) MarkerStyle {
	if v.ActiveTrip != nil {
		return StyleActive
	}
	switch v.Status {
	case livelocation.StatusActive:
		return StyleIdle
	case livelocation.StatusMaintenance:
		return StyleMaintenance
	case livelocation.StatusOutOfService:
		return StyleOutOfService
	default:
		return StyleDefault
	}
}

// Bounds is the smallest box covering a set of points.
type Bounds struct {
	SouthWest LatLng
	NorthEast LatLng
}

func boundsOf(points []LatLng) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b := Bounds{SouthWest: points[0], NorthEast: points[0]}
	for _, p := range points[1:] {
		b.SouthWest.Lat = min(b.SouthWest.Lat, p.Lat)
		b.SouthWest.Lng = min(b.SouthWest.Lng, p.Lng)
		b.NorthEast.Lat = max(b.NorthEast.Lat, p.Lat)
		b.NorthEast.Lng = max(b.NorthEast.Lng, p.Lng)
	}
	return b, true
}

func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}
