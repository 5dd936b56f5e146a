package main

import (
	"github.com/rs/zerolog/log"
	"github.com/weberitsol/school-erp-sub010/mapview"
)

// logSurface is a headless map surface that writes every marker and camera
// change to the log.
type logSurface struct{}

type logMarker struct {
	vehicleID string
	removed   bool
}

func (logSurface) AddMarker(vehicleID string, at mapview.LatLng, style mapview.MarkerStyle, _ func()) mapview.MarkerHandle {
	log.Info().
		Str("vehicle", vehicleID).
		Float64("lat", at.Lat).
		Float64("lng", at.Lng).
		Str("style", string(style)).
		Msg("Marker added")
	return &logMarker{vehicleID: vehicleID}
}

func (logSurface) SetView(center mapview.LatLng, zoom int) {
	log.Info().Float64("lat", center.Lat).Float64("lng", center.Lng).Int("zoom", zoom).Msg("Camera focused")
}

func (logSurface) FitBounds(b mapview.Bounds, padding int) {
	log.Debug().
		Float64("south", b.SouthWest.Lat).
		Float64("west", b.SouthWest.Lng).
		Float64("north", b.NorthEast.Lat).
		Float64("east", b.NorthEast.Lng).
		Int("padding", padding).
		Msg("Camera fitted")
}

func (m *logMarker) SetPosition(at mapview.LatLng) {
	log.Debug().Str("vehicle", m.vehicleID).Float64("lat", at.Lat).Float64("lng", at.Lng).Msg("Marker moved")
}

func (m *logMarker) SetStyle(style mapview.MarkerStyle) {
	log.Info().Str("vehicle", m.vehicleID).Str("style", string(style)).Msg("Marker restyled")
}

func (m *logMarker) Remove() {
	if m.removed {
		return
	}
	m.removed = true
	log.Info().Str("vehicle", m.vehicleID).Msg("Marker removed")
}
