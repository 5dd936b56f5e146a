package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/weberitsol/school-erp-sub010/livelocation"
)

// relay speaks the push-channel protocol to websocket clients.
type relay struct {
	hub    *wsHub
	fleet  *fleet
	fanout fanout
	tokens map[string]struct{}
}

func newRelay(hub *wsHub, fleet *fleet, fanout fanout, tokens []string) *relay {
	r := &relay{
		hub:    hub,
		fleet:  fleet,
		fanout: fanout,
		tokens: make(map[string]struct{}, len(tokens)),
	}
	for _, token := range tokens {
		r.tokens[token] = struct{}{}
	}
	return r
}

// authorized accepts any configured token, or any non-empty token when none
// are configured.
func (rl *relay) authorized(r *http.Request) bool {
	var token string
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return false
	}
	if len(rl.tokens) == 0 {
		return true
	}
	_, ok := rl.tokens[token]
	return ok
}

func (rl *relay) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !rl.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	c := newWSClient(conn)
	rl.hub.add(c)
	log.Info().Str("conn", c.id.String()).Str("remote", r.RemoteAddr).Msg("Websocket client connected")
	go c.writePump()
	go rl.readPump(c)
}

func (rl *relay) readPump(c *wsClient) {
	defer func() {
		rl.hub.remove(c)
		log.Info().Str("conn", c.id.String()).Msg("Websocket client disconnected")
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		rl.handleFrame(c, data)
	}
}

func (rl *relay) handleFrame(c *wsClient, data []byte) {
	var env livelocation.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("conn", c.id.String()).Msg("Malformed frame")
		return
	}
	var req livelocation.ChannelRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		log.Warn().Err(err).Str("conn", c.id.String()).Str("event", env.Event).Msg("Malformed channel request")
		return
	}
	if req.Channel != livelocation.LocationsChannel {
		log.Debug().Str("conn", c.id.String()).Str("channel", req.Channel).Msg("Unknown channel")
		return
	}

	switch env.Event {
	case livelocation.EventSubscribe:
		rl.hub.subscribe(c, req.Channel, rl.initialBatch)
	case livelocation.EventUnsubscribe:
		rl.hub.unsubscribe(c, req.Channel)
	case livelocation.EventPublish:
		var sample livelocation.LocationSample
		if err := json.Unmarshal(req.Data, &sample); err != nil || sample.VehicleID == "" {
			log.Warn().Err(err).Str("conn", c.id.String()).Msg("Malformed published location")
			return
		}
		if sample.Timestamp.IsZero() {
			sample.Timestamp = time.Now().UTC()
		}
		rl.fleet.record(sample)
		rl.emit(context.Background(), livelocation.EventLocationUpdate, sample)
	default:
		log.Debug().Str("conn", c.id.String()).Str("event", env.Event).Msg("Unknown event")
	}
}

// initialBatch encodes the last-known location of every vehicle.
func (rl *relay) initialBatch() []byte {
	frame, err := livelocation.EncodeFrame(livelocation.EventLocationsBatch, rl.fleet.locations())
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode initial batch")
		return nil
	}
	return frame
}

func (rl *relay) emitBatch(ctx context.Context, samples []livelocation.LocationSample) {
	rl.emit(ctx, livelocation.EventLocationsBatch, samples)
}

func (rl *relay) emitStatus(ctx context.Context, sample livelocation.StatusSample) {
	rl.emit(ctx, livelocation.EventVehicleUpdate, sample)
}

func (rl *relay) emit(ctx context.Context, event string, payload any) {
	frame, err := livelocation.EncodeFrame(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to encode frame")
		return
	}
	if err := rl.fanout.Publish(ctx, frame); err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to fan out frame")
	}
}

func (rl *relay) handleRoster(w http.ResponseWriter, r *http.Request) {
	if !rl.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rl.fleet.roster()); err != nil {
		log.Warn().Err(err).Msg("Failed to write roster")
	}
}
