package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weberitsol/school-erp-sub010/livelocation"
)

func feedAt(id string, lat, lng float64, trip string) feedVehicle {
	return feedVehicle{
		Sample: livelocation.LocationSample{VehicleID: id, Latitude: lat, Longitude: lng},
		TripID: trip,
	}
}

func TestFleetApplyFeedNewVehicles(t *testing.T) {
	f := newFleet()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	moved, updates := f.applyFeed([]feedVehicle{
		feedAt("V2", 1, 1, ""),
		feedAt("V1", 2, 2, "T1"),
	}, now)

	require.Len(t, moved, 2)
	assert.Equal(t, "V1", moved[0].VehicleID)
	assert.Equal(t, "V2", moved[1].VehicleID)
	assert.Equal(t, now, moved[0].Timestamp)

	require.Len(t, updates, 2)
	assert.Equal(t, livelocation.StatusActive, updates[0].Status)
	require.NotNil(t, updates[0].Location)
	assert.Equal(t, 2.0, updates[0].Location.Latitude)
}

func TestFleetApplyFeedUnchangedIsQuiet(t *testing.T) {
	f := newFleet()
	in := []feedVehicle{feedAt("V1", 1, 1, "T1")}
	f.applyFeed(in, time.Now())

	moved, updates := f.applyFeed(in, time.Now())
	assert.Empty(t, moved)
	assert.Empty(t, updates)
}

func TestFleetApplyFeedTripChange(t *testing.T) {
	f := newFleet()
	f.applyFeed([]feedVehicle{feedAt("V1", 1, 1, "T1")}, time.Now())

	moved, updates := f.applyFeed([]feedVehicle{feedAt("V1", 1, 1, "T2")}, time.Now())
	assert.Empty(t, moved)
	require.Len(t, updates, 1)
	assert.Equal(t, "V1", updates[0].VehicleID)

	roster := f.roster()
	require.Len(t, roster, 1)
	require.NotNil(t, roster[0].ActiveTrip)
	assert.Equal(t, "T2", roster[0].ActiveTrip.ID)
}

func TestFleetApplyFeedMoveKeepsTripQuiet(t *testing.T) {
	f := newFleet()
	f.applyFeed([]feedVehicle{feedAt("V1", 1, 1, "T1")}, time.Now())

	moved, updates := f.applyFeed([]feedVehicle{feedAt("V1", 1.5, 1, "T1")}, time.Now())
	require.Len(t, moved, 1)
	assert.Equal(t, 1.5, moved[0].Latitude)
	assert.Empty(t, updates)
}

func TestFleetApplyFeedVanishedGoesInactive(t *testing.T) {
	f := newFleet()
	f.applyFeed([]feedVehicle{feedAt("V1", 1, 1, "T1"), feedAt("V2", 2, 2, "")}, time.Now())

	_, updates := f.applyFeed([]feedVehicle{feedAt("V2", 2, 2, "")}, time.Now())
	require.Len(t, updates, 1)
	assert.Equal(t, "V1", updates[0].VehicleID)
	assert.Equal(t, livelocation.StatusInactive, updates[0].Status)
	require.NotNil(t, updates[0].Location)
	assert.Equal(t, 1.0, updates[0].Location.Latitude)

	locations := f.locations()
	require.Len(t, locations, 1)
	assert.Equal(t, "V2", locations[0].VehicleID)
}

func TestFleetPublishedVehiclesSurviveFeed(t *testing.T) {
	f := newFleet()
	f.record(livelocation.LocationSample{VehicleID: "BUS-9", Latitude: 3, Longitude: 3})

	_, updates := f.applyFeed([]feedVehicle{feedAt("V1", 1, 1, "")}, time.Now())
	for _, u := range updates {
		assert.NotEqual(t, "BUS-9", u.VehicleID)
	}
	assert.Len(t, f.locations(), 2)
}

func TestFleetRecordOverwrites(t *testing.T) {
	f := newFleet()
	f.record(livelocation.LocationSample{VehicleID: "V1", Latitude: 1, Longitude: 1})
	f.record(livelocation.LocationSample{VehicleID: "V1", Latitude: 2, Longitude: 2, Speed: 7})

	locations := f.locations()
	require.Len(t, locations, 1)
	assert.Equal(t, 2.0, locations[0].Latitude)
	assert.Equal(t, 7.0, locations[0].Speed)

	roster := f.roster()
	require.Len(t, roster, 1)
	assert.Equal(t, livelocation.StatusActive, roster[0].Status)
	assert.Nil(t, roster[0].ActiveTrip)
	assert.Equal(t, 2.0, roster[0].Location.Lat)
}
