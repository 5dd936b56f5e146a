package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/weberitsol/school-erp-sub010/livelocation"
	"google.golang.org/protobuf/proto"
)

type VehicleFeedSource interface {
	Fetch(ctx context.Context) ([]feedVehicle, error)
}

type GtfsRtVehicleFeedSource struct {
	url        string
	httpClient *http.Client
}

func NewGtfsRtVehicleFeedSource(url string, timeout time.Duration) *GtfsRtVehicleFeedSource {
	return &GtfsRtVehicleFeedSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *GtfsRtVehicleFeedSource) Fetch(ctx context.Context) ([]feedVehicle, error) {
	body, err := fetchBody(ctx, s.httpClient, s.url)
	if err != nil {
		return nil, fmt.Errorf("gtfs-rt: %w", err)
	}
	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("gtfs-rt decode: %w", err)
	}
	vehicles := make([]feedVehicle, 0, len(feed.Entity))
	for _, ent := range feed.Entity {
		if ent == nil || ent.Vehicle == nil {
			continue
		}
		vp := ent.Vehicle
		if vp.Vehicle == nil || vp.Position == nil {
			continue
		}
		id := vp.Vehicle.Id
		if id == nil || *id == "" {
			continue
		}
		lat := vp.Position.Latitude
		lon := vp.Position.Longitude
		if lat == nil || lon == nil {
			continue
		}
		sample := livelocation.LocationSample{
			VehicleID: *id,
			Latitude:  float64(*lat),
			Longitude: float64(*lon),
			Speed:     float64(vp.Position.GetSpeed()),
			Heading:   float64(vp.Position.GetBearing()),
		}
		if ts := vp.GetTimestamp(); ts > 0 {
			sample.Timestamp = time.Unix(int64(ts), 0).UTC()
		}
		vehicles = append(vehicles, feedVehicle{Sample: sample, TripID: vp.GetTrip().GetTripId()})
	}
	return vehicles, nil
}

func fetchBody(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
