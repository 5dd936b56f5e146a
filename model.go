package main

import (
	"github.com/weberitsol/school-erp-sub010/livelocation"
	"github.com/weberitsol/school-erp-sub010/mapview"
)

// feedVehicle is one vehicle as read from an AVL feed.
type feedVehicle struct {
	Sample livelocation.LocationSample
	TripID string
}

// rosterVehicle is a row of the vehicle roster served at /api/vehicles.
type rosterVehicle struct {
	ID                 string              `json:"id"`
	RegistrationNumber string              `json:"registrationNumber"`
	Status             livelocation.Status `json:"status"`
	Location           *mapview.LatLng     `json:"location,omitempty"`
	ActiveTrip         *mapview.Trip       `json:"activeTrip,omitempty"`
}

func (r rosterVehicle) toView() mapview.Vehicle {
	label := r.RegistrationNumber
	if label == "" {
		label = r.ID
	}
	return mapview.Vehicle{
		ID:         r.ID,
		Label:      label,
		Status:     r.Status,
		Location:   r.Location,
		ActiveTrip: r.ActiveTrip,
	}
}
