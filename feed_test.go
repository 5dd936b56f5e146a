package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func serveBody(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGtfsRtFetch(t *testing.T) {
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("e1"),
				Vehicle: &gtfs.VehiclePosition{
					Vehicle:   &gtfs.VehicleDescriptor{Id: proto.String("BUS-1")},
					Trip:      &gtfs.TripDescriptor{TripId: proto.String("T-7")},
					Position:  &gtfs.Position{Latitude: proto.Float32(51.5), Longitude: proto.Float32(-0.25), Bearing: proto.Float32(90), Speed: proto.Float32(12.5)},
					Timestamp: proto.Uint64(1714550400),
				},
			},
			{
				Id:      proto.String("e2"),
				Vehicle: &gtfs.VehiclePosition{Vehicle: &gtfs.VehicleDescriptor{Id: proto.String("BUS-2")}},
			},
			{
				Id: proto.String("e3"),
				Vehicle: &gtfs.VehiclePosition{
					Vehicle:  &gtfs.VehicleDescriptor{Id: proto.String("BUS-3")},
					Position: &gtfs.Position{Latitude: proto.Float32(1), Longitude: proto.Float32(2)},
				},
			},
		},
	}
	body, err := proto.Marshal(msg)
	require.NoError(t, err)
	srv := serveBody(t, "application/x-protobuf", body)

	vehicles, err := NewGtfsRtVehicleFeedSource(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)

	v := vehicles[0]
	assert.Equal(t, "BUS-1", v.Sample.VehicleID)
	assert.Equal(t, "T-7", v.TripID)
	assert.Equal(t, 51.5, v.Sample.Latitude)
	assert.Equal(t, -0.25, v.Sample.Longitude)
	assert.Equal(t, 90.0, v.Sample.Heading)
	assert.Equal(t, 12.5, v.Sample.Speed)
	assert.Equal(t, time.Unix(1714550400, 0).UTC(), v.Sample.Timestamp)

	assert.Equal(t, "BUS-3", vehicles[1].Sample.VehicleID)
	assert.Empty(t, vehicles[1].TripID)
	assert.True(t, vehicles[1].Sample.Timestamp.IsZero())
}

func TestGtfsRtFetchErrors(t *testing.T) {
	srv := serveBody(t, "application/x-protobuf", []byte("not a protobuf message"))
	_, err := NewGtfsRtVehicleFeedSource(srv.URL, time.Second).Fetch(context.Background())
	assert.Error(t, err)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer down.Close()
	_, err = NewGtfsRtVehicleFeedSource(down.URL, time.Second).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

const siriJSON = `{
  "Siri": {
    "ServiceDelivery": {
      "VehicleMonitoringDelivery": [{
        "VehicleActivity": [
          {
            "RecordedAtTime": "2024-05-01T08:00:00Z",
            "MonitoredVehicleJourney": {
              "VehicleRef": "BUS-1",
              "FramedVehicleJourneyRef": {"DatedVehicleJourneyRef": "T-7"},
              "Bearing": 180,
              "VehicleLocation": {"Latitude": 51.5, "Longitude": "-0.25"}
            }
          },
          {
            "MonitoredVehicleJourney": {
              "FramedVehicleJourneyRef": {"DatedVehicleJourneyRef": "T-8"},
              "VehicleLocation": {"Latitude": 1, "Longitude": 2}
            }
          },
          {
            "MonitoredVehicleJourney": {"VehicleRef": "BUS-3"}
          }
        ]
      }]
    }
  }
}`

func TestSiriJsonFetch(t *testing.T) {
	srv := serveBody(t, "application/json", []byte(siriJSON))

	vehicles, err := NewSiriJsonVehicleFeedSource(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)

	v := vehicles[0]
	assert.Equal(t, "BUS-1", v.Sample.VehicleID)
	assert.Equal(t, "T-7", v.TripID)
	assert.Equal(t, 51.5, v.Sample.Latitude)
	assert.Equal(t, -0.25, v.Sample.Longitude)
	assert.Equal(t, 180.0, v.Sample.Heading)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), v.Sample.Timestamp)

	// Without a VehicleRef the journey ref names the vehicle.
	assert.Equal(t, "T-8", vehicles[1].Sample.VehicleID)
}

func TestSiriJsonFetchMalformed(t *testing.T) {
	srv := serveBody(t, "application/json", []byte("{"))
	_, err := NewSiriJsonVehicleFeedSource(srv.URL, time.Second).Fetch(context.Background())
	assert.Error(t, err)
}

const siriXML = `<?xml version="1.0" encoding="UTF-8"?>
<Siri xmlns="http://www.siri.org.uk/siri" version="2.0">
  <ServiceDelivery>
    <VehicleMonitoringDelivery>
      <VehicleActivity>
        <RecordedAtTime>2024-05-01T08:00:00Z</RecordedAtTime>
        <MonitoredVehicleJourney>
          <FramedVehicleJourneyRef>
            <DatedVehicleJourneyRef>T-7</DatedVehicleJourneyRef>
          </FramedVehicleJourneyRef>
          <VehicleLocation>
            <Longitude>-0.25</Longitude>
            <Latitude>51.5</Latitude>
          </VehicleLocation>
          <Bearing>270</Bearing>
          <VehicleRef>BUS-1</VehicleRef>
        </MonitoredVehicleJourney>
      </VehicleActivity>
      <VehicleActivity>
        <MonitoredVehicleJourney>
          <VehicleLocation>
            <Longitude>x</Longitude>
            <Latitude>51.5</Latitude>
          </VehicleLocation>
          <VehicleRef>BUS-2</VehicleRef>
        </MonitoredVehicleJourney>
      </VehicleActivity>
    </VehicleMonitoringDelivery>
  </ServiceDelivery>
</Siri>`

func TestDecodeSiriXml(t *testing.T) {
	vehicles, err := decodeSiriXml(strings.NewReader(siriXML))
	require.NoError(t, err)
	require.Len(t, vehicles, 1)

	v := vehicles[0]
	assert.Equal(t, "BUS-1", v.Sample.VehicleID)
	assert.Equal(t, "T-7", v.TripID)
	assert.Equal(t, 51.5, v.Sample.Latitude)
	assert.Equal(t, -0.25, v.Sample.Longitude)
	assert.Equal(t, 270.0, v.Sample.Heading)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), v.Sample.Timestamp)
}

func TestSiriXmlFetch(t *testing.T) {
	srv := serveBody(t, "application/xml", []byte(siriXML))

	vehicles, err := NewSiriXmlVehicleFeedSource(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 1)

	_, err = decodeSiriXml(strings.NewReader("<Siri><ServiceDelivery>"))
	assert.Error(t, err)
}
