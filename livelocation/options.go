package livelocation

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

const (
	DefaultReconnectDelay    = time.Second
	DefaultReconnectDelayMax = 5 * time.Second
	DefaultReconnectAttempts = 5
)

type Option func(*Client)

// WithReconnect overrides the reconnection policy. attempts counts retries after
// a failed dial or a dropped connection; the count starts over once a
// connection has delivered a frame.
func WithReconnect(delay, delayMax time.Duration, attempts int) Option {
	return func(c *Client) {
		c.reconnectDelay = delay
		c.reconnectDelayMax = delayMax
		c.reconnectAttempts = attempts
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

func (c *Client) newBackOff() backoff.BackOff {
	if c.reconnectAttempts <= 0 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.reconnectDelay
	b.MaxInterval = c.reconnectDelayMax
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(c.reconnectAttempts))
}
