package livelocation

import "time"

// LocationSample is the last reported position of a vehicle.
type LocationSample struct {
	VehicleID string    `json:"vehicleId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the operational state a vehicle reports.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusInactive     Status = "INACTIVE"
	StatusMaintenance  Status = "MAINTENANCE"
	StatusOutOfService Status = "OUT_OF_SERVICE"
)

type StatusSample struct {
	VehicleID string          `json:"vehicleId"`
	Status    Status          `json:"status"`
	Location  *LocationSample `json:"location,omitempty"`
}

// State is a point-in-time copy of what the client knows.
type State struct {
	Connected bool
	Locations map[string]LocationSample
	Statuses  map[string]StatusSample
}
