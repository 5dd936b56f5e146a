package main

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteWait  = 10 * time.Second
	wsSendBuffer = 64
)

var errSlowClient = errors.New("send buffer full")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one relay connection. Frames queued on send are written by its
// writePump, the only goroutine that writes to conn.
type wsClient struct {
	id       uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
	channels map[string]struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		id:       uuid.New(),
		conn:     conn,
		send:     make(chan []byte, wsSendBuffer),
		channels: make(map[string]struct{}),
	}
}

// writePump drains send until the hub closes it, then says goodbye.
func (c *wsClient) writePump() {
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Debug().Err(err).Str("conn", c.id.String()).Msg("Websocket write failed")
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
		time.Now().Add(time.Second))
	_ = c.conn.Close()
}

// wsHub owns every connection and its subscriptions. Nothing under mu blocks
// on the network: frames are queued on each client's send buffer.
type wsHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newHub() *wsHub {
	return &wsHub{clients: make(map[*wsClient]struct{})}
}

func (h *wsHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *wsHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// subscribe adds channel to c and queues the frame built by initial ahead of
// any later broadcast. initial runs under the hub lock, so no broadcast can
// fall between the snapshot it takes and the subscription.
func (h *wsHub) subscribe(c *wsClient, channel string, initial func() []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	c.channels[channel] = struct{}{}
	if initial == nil {
		return
	}
	if frame := initial(); frame != nil {
		h.enqueue(c, frame)
	}
}

func (h *wsHub) unsubscribe(c *wsClient, channel string) {
	h.mu.Lock()
	delete(c.channels, channel)
	h.mu.Unlock()
}

// broadcast queues frame for every subscriber of channel. A client whose buffer
// is full is dropped.
func (h *wsHub) broadcast(channel string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if _, ok := c.channels[channel]; ok {
			h.enqueue(c, frame)
		}
	}
}

func (h *wsHub) subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients {
		if _, ok := c.channels[channel]; ok {
			n++
		}
	}
	return n
}

// enqueue must be called with mu held.
func (h *wsHub) enqueue(c *wsClient, frame []byte) {
	select {
	case c.send <- frame:
	default:
		h.drop(c, errSlowClient)
	}
}

// drop must be called with mu held.
func (h *wsHub) drop(c *wsClient, err error) {
	log.Warn().Err(err).Str("conn", c.id.String()).Msg("Dropping websocket client")
	delete(h.clients, c)
	close(c.send)
	_ = c.conn.Close()
}

// closeAll ends every connection after its queued frames are written.
func (h *wsHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
