package main

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/weberitsol/school-erp-sub010/livelocation"
	"github.com/weberitsol/school-erp-sub010/mapview"
)

type fleetEntry struct {
	sample   livelocation.LocationSample
	status   livelocation.Status
	tripID   string
	fromFeed bool
}

// fleet is the relay's last-known table, keyed by vehicle id.
type fleet struct {
	mu       sync.Mutex
	vehicles map[string]*fleetEntry
}

func newFleet() *fleet {
	return &fleet{vehicles: make(map[string]*fleetEntry)}
}

// applyFeed merges one feed fetch. It returns the samples that moved and the
// status changes: vehicles that appeared, started or finished a trip, or are
// missing from this fetch.
func (f *fleet) applyFeed(in []feedVehicle, now time.Time) ([]livelocation.LocationSample, []livelocation.StatusSample) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var moved []livelocation.LocationSample
	var updates []livelocation.StatusSample
	seen := make(map[string]struct{}, len(in))

	for _, v := range in {
		id := v.Sample.VehicleID
		seen[id] = struct{}{}

		prev, ok := f.vehicles[id]
		if ok && prev.sample.Latitude == v.Sample.Latitude && prev.sample.Longitude == v.Sample.Longitude {
			prev.fromFeed = true
			if prev.tripID != v.TripID {
				prev.tripID = v.TripID
				updates = append(updates, statusOf(id, prev))
			}
			continue
		}

		sample := v.Sample
		if sample.Timestamp.IsZero() {
			sample.Timestamp = now
		}
		entry := &fleetEntry{sample: sample, status: livelocation.StatusActive, tripID: v.TripID, fromFeed: true}
		f.vehicles[id] = entry
		moved = append(moved, sample)
		if !ok || prev.tripID != v.TripID || prev.status != livelocation.StatusActive {
			updates = append(updates, statusOf(id, entry))
		}
	}

	for id, entry := range f.vehicles {
		if _, ok := seen[id]; ok || !entry.fromFeed {
			continue
		}
		delete(f.vehicles, id)
		entry.status = livelocation.StatusInactive
		entry.tripID = ""
		updates = append(updates, statusOf(id, entry))
	}

	slices.SortFunc(moved, func(a, b livelocation.LocationSample) int {
		return strings.Compare(a.VehicleID, b.VehicleID)
	})
	slices.SortFunc(updates, func(a, b livelocation.StatusSample) int {
		return strings.Compare(a.VehicleID, b.VehicleID)
	})
	return moved, updates
}

// record stores a sample published by a client.
func (f *fleet) record(sample livelocation.LocationSample) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if entry, ok := f.vehicles[sample.VehicleID]; ok {
		entry.sample = sample
		return
	}
	f.vehicles[sample.VehicleID] = &fleetEntry{sample: sample, status: livelocation.StatusActive}
}

// locations returns every known sample ordered by vehicle id.
func (f *fleet) locations() []livelocation.LocationSample {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]livelocation.LocationSample, 0, len(f.vehicles))
	for _, entry := range f.vehicles {
		out = append(out, entry.sample)
	}
	slices.SortFunc(out, func(a, b livelocation.LocationSample) int {
		return strings.Compare(a.VehicleID, b.VehicleID)
	})
	return out
}

func (f *fleet) roster() []rosterVehicle {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]rosterVehicle, 0, len(f.vehicles))
	for id, entry := range f.vehicles {
		row := rosterVehicle{
			ID:                 id,
			RegistrationNumber: id,
			Status:             entry.status,
			Location:           &mapview.LatLng{Lat: entry.sample.Latitude, Lng: entry.sample.Longitude},
		}
		if entry.tripID != "" {
			row.ActiveTrip = &mapview.Trip{ID: entry.tripID}
		}
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b rosterVehicle) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func statusOf(id string, entry *fleetEntry) livelocation.StatusSample {
	sample := entry.sample
	return livelocation.StatusSample{VehicleID: id, Status: entry.status, Location: &sample}
}
