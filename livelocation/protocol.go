package livelocation

import "encoding/json"

// LocationsChannel is the only channel the client subscribes to.
const LocationsChannel = "vehicle:locations"

const (
	EventSubscribe      = "subscribe"
	EventUnsubscribe    = "unsubscribe"
	EventPublish        = "publish"
	EventLocationUpdate = "location-update"
	EventVehicleUpdate  = "vehicle-update"
	EventLocationsBatch = "locations-batch"
)

// Envelope is a single frame on the push connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChannelRequest is the payload of subscribe, unsubscribe and publish frames.
type ChannelRequest struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals payload into an Envelope for event.
func EncodeFrame(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}
