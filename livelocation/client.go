package livelocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait = 10 * time.Second

	// stableConnection is how long a silent connection must stay up before a
	// drop counts as a fresh failure instead of another retry.
	stableConnection = 30 * time.Second
)

var errConnectionLost = errors.New("connection lost")

// Client keeps one authenticated push connection per session and the latest
// known location and status of every vehicle seen on it.
//
// Connection errors never reach the caller. They are logged and retried with a
// bounded backoff; once the retries are exhausted the client stays disconnected
// until Connect is called again.
type Client struct {
	url    string
	dialer *websocket.Dialer

	reconnectDelay    time.Duration
	reconnectDelayMax time.Duration
	reconnectAttempts int

	state   *store
	updates chan struct{}

	// lifecycle serialises Connect and Close.
	lifecycle sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	conn   *websocket.Conn
	failed bool

	writeMu sync.Mutex
}

func New(url string, opts ...Option) *Client {
	c := &Client{
		url:               url,
		dialer:            websocket.DefaultDialer,
		reconnectDelay:    DefaultReconnectDelay,
		reconnectDelayMax: DefaultReconnectDelayMax,
		reconnectAttempts: DefaultReconnectAttempts,
		state:             newStore(),
		updates:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect starts the connection in the background. It does nothing when enabled
// is false or credential is empty. A connection or reconnect sequence already
// in progress is abandoned in favour of a fresh attempt; cached state is kept.
func (c *Client) Connect(credential string, enabled bool) {
	if !enabled || credential == "" {
		return
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.failed = false
	c.mu.Unlock()

	go c.supervise(ctx, credential, done)
}

// Close unsubscribes, closes the connection and discards all cached state.
func (c *Client) Close() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stop()
	c.state.reset()

	c.mu.Lock()
	c.failed = false
	c.mu.Unlock()

	c.notify()
}

func (c *Client) Connected() bool {
	return c.state.isConnected()
}

// Failed reports whether the last reconnect sequence ran out of attempts.
func (c *Client) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// VehicleLocation returns the last location received for vehicleID.
func (c *Client) VehicleLocation(vehicleID string) (LocationSample, bool) {
	return c.state.location(vehicleID)
}

// VehicleStatus returns the last status received for vehicleID.
func (c *Client) VehicleStatus(vehicleID string) (StatusSample, bool) {
	return c.state.status(vehicleID)
}

func (c *Client) Snapshot() State {
	return c.state.snapshot()
}

// Updates delivers a signal after every state change. Signals are coalesced, so
// a reader should take a Snapshot rather than count them.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

// PublishLocationUpdate sends sample to the server. The sample is dropped when
// the client is not connected.
func (c *Client) PublishLocationUpdate(sample LocationSample) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || !c.state.isConnected() {
		log.Debug().Str("vehicle", sample.VehicleID).Msg("Dropping location publish while disconnected")
		return
	}

	data, err := json.Marshal(sample)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode location sample")
		return
	}
	if err := c.write(conn, EventPublish, ChannelRequest{Channel: LocationsChannel, Data: data}); err != nil {
		log.Warn().Err(err).Str("vehicle", sample.VehicleID).Msg("Failed to publish location update")
	}
}

func (c *Client) stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// supervise owns one retry budget for the whole dial and serve cycle. The
// budget is refilled only after a connection proved healthy, so a server that
// accepts the handshake and hangs up straight away still exhausts it.
func (c *Client) supervise(ctx context.Context, credential string, done chan struct{}) {
	defer close(done)

	retry := backoff.WithContext(c.newBackOff(), ctx)
	for {
		conn, err := c.dial(ctx, credential)
		if err == nil {
			if c.serve(ctx, conn) {
				retry.Reset()
			}
			err = errConnectionLost
		}
		if ctx.Err() != nil {
			return
		}

		next := backoff.Stop
		var permanent *backoff.PermanentError
		if !errors.As(err, &permanent) {
			next = retry.NextBackOff()
		}
		if next == backoff.Stop {
			log.Error().Err(err).Str("url", c.url).Msg("Live location connection failed, giving up")
			c.mu.Lock()
			c.failed = true
			c.mu.Unlock()
			c.notify()
			return
		}
		log.Warn().Err(err).Dur("retry_in", next).Str("url", c.url).Msg("Live location connection error")

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Client) dial(ctx context.Context, credential string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+credential)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, backoff.Permanent(fmt.Errorf("credential rejected: %w", err))
		}
		return nil, err
	}
	return conn, nil
}

// serve runs one established connection until it drops or ctx is cancelled.
// Frames are read and applied on this goroutine only, so events are applied in
// arrival order. It reports whether the connection was healthy: at least one
// frame arrived or it stayed up for stableConnection.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) bool {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.state.setConnected(true)

	log.Info().Str("url", c.url).Msg("Live location connection established")
	if err := c.write(conn, EventSubscribe, ChannelRequest{Channel: LocationsChannel}); err != nil {
		log.Error().Err(err).Msg("Failed to subscribe to vehicle locations")
	}
	c.notify()

	established := time.Now()
	received := false
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := c.write(conn, EventUnsubscribe, ChannelRequest{Channel: LocationsChannel}); err != nil {
				log.Debug().Err(err).Msg("Failed to unsubscribe from vehicle locations")
			}
			c.writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.writeMu.Unlock()
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Str("url", c.url).Msg("Live location read failed")
			}
			break
		}
		received = true
		c.handle(data)
	}
	close(stop)

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	c.state.setConnected(false)
	_ = conn.Close()
	c.notify()
	return received || time.Since(established) >= stableConnection
}

func (c *Client) handle(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Msg("Dropping malformed frame")
		return
	}

	switch env.Event {
	case EventLocationUpdate:
		var sample LocationSample
		if err := json.Unmarshal(env.Data, &sample); err != nil || sample.VehicleID == "" {
			log.Warn().Err(err).Str("event", env.Event).Msg("Dropping malformed location update")
			return
		}
		c.state.upsertLocation(sample)
	case EventVehicleUpdate:
		var sample StatusSample
		if err := json.Unmarshal(env.Data, &sample); err != nil || sample.VehicleID == "" {
			log.Warn().Err(err).Str("event", env.Event).Msg("Dropping malformed vehicle update")
			return
		}
		c.state.upsertStatus(sample)
	case EventLocationsBatch:
		var batch []LocationSample
		if err := json.Unmarshal(env.Data, &batch); err != nil {
			log.Warn().Err(err).Str("event", env.Event).Msg("Dropping malformed locations batch")
			return
		}
		valid := batch[:0]
		for _, sample := range batch {
			if sample.VehicleID != "" {
				valid = append(valid, sample)
			}
		}
		c.state.applyBatch(valid)
	default:
		log.Debug().Str("event", env.Event).Msg("Ignoring unknown event")
		return
	}

	c.notify()
}

func (c *Client) write(conn *websocket.Conn, event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Client) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
