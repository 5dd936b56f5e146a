package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/weberitsol/school-erp-sub010/livelocation"
)

type SiriJsonVehicleFeedSource struct {
	url        string
	httpClient *http.Client
}

func NewSiriJsonVehicleFeedSource(url string, timeout time.Duration) *SiriJsonVehicleFeedSource {
	return &SiriJsonVehicleFeedSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *SiriJsonVehicleFeedSource) Fetch(ctx context.Context) ([]feedVehicle, error) {
	b, err := fetchBody(ctx, s.httpClient, s.url)
	if err != nil {
		return nil, fmt.Errorf("siri json: %w", err)
	}

	// Minimal schema-walking: Siri?.ServiceDelivery.VehicleMonitoringDelivery[].VehicleActivity[]
	var root map[string]any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("siri json decode: %w", err)
	}
	// Handle optional top-level "Siri" wrapper
	if siri, ok := root["Siri"].(map[string]any); ok && siri != nil {
		root = siri
	}
	sd, _ := root["ServiceDelivery"].(map[string]any)
	vmdArr, _ := sd["VehicleMonitoringDelivery"].([]any)
	vehicles := make([]feedVehicle, 0, 256)
	for _, vmdAny := range vmdArr {
		vmd, _ := vmdAny.(map[string]any)
		vaArr, _ := vmd["VehicleActivity"].([]any)
		for _, vaAny := range vaArr {
			va, _ := vaAny.(map[string]any)
			mvj, _ := va["MonitoredVehicleJourney"].(map[string]any)
			if mvj == nil {
				continue
			}
			tripID := stringFromNested(mvj, "FramedVehicleJourneyRef", "DatedVehicleJourneyRef")
			id := stringFrom(mvj["VehicleRef"])
			if id == "" {
				id = tripID
			}
			lat, lon := floatFromNested(mvj, "VehicleLocation", "Latitude"), floatFromNested(mvj, "VehicleLocation", "Longitude")
			if id == "" || (lat == 0 && lon == 0) {
				continue
			}
			sample := livelocation.LocationSample{
				VehicleID: id,
				Latitude:  lat,
				Longitude: lon,
				Heading:   floatFrom(mvj["Bearing"]),
			}
			if recorded, err := time.Parse(time.RFC3339, stringFrom(va["RecordedAtTime"])); err == nil {
				sample.Timestamp = recorded.UTC()
			}
			vehicles = append(vehicles, feedVehicle{Sample: sample, TripID: tripID})
		}
	}
	return vehicles, nil
}

func stringFrom(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func stringFromNested(m map[string]any, k1, k2 string) string {
	m1, _ := m[k1].(map[string]any)
	return stringFrom(m1[k2])
}

func floatFromNested(m map[string]any, k1, k2 string) float64 {
	m1, _ := m[k1].(map[string]any)
	return floatFrom(m1[k2])
}

func floatFrom(v any) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}
