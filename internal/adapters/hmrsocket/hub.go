// Package hmrsocket carries hot update messages to browsers over websockets.
package hmrsocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
)

var _ ports.Broadcaster = (*Hub)(nil)

// AcceptRecorder learns which modules handle their own hot updates.
type AcceptRecorder interface {
	SetAccepted(url string, accepted bool)
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans messages out to every connected browser.
// Each client has its own writer goroutine, so Broadcast never blocks; a
// client that falls sendBuffer messages behind is disconnected.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader

	accepts AcceptRecorder
	logger  ports.Logger
	metrics ports.Metrics
}

// Option configures a Hub.
type Option func(*Hub)

// WithMetrics records every broadcast by message type.
func WithMetrics(m ports.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithAcceptRecorder forwards hotAccept messages from clients to r.
func WithAcceptRecorder(r AcceptRecorder) Option {
	return func(h *Hub) {
		h.accepts = r
	}
}

// NewHub creates a Hub with no clients.
func NewHub(logger ports.Logger, opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true // Dev server, any origin.
			},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if data, err := json.Marshal(domain.Message{Type: domain.MessageConnected}); err == nil {
		c.send <- data
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

// Broadcast implements ports.Broadcaster.
func (h *Hub) Broadcast(msg domain.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(zerr.With(zerr.Wrap(err, "failed to encode hot update message"), "type", string(msg.Type)))
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveBroadcast(string(msg.Type))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			c.close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close() //nolint:errcheck // Peer may already be gone

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	for {
		var msg domain.ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			// A malformed frame is skipped; anything else ends the connection.
			var syntax *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntax) || errors.As(err, &typeErr) {
				continue
			}
			return
		}
		h.handle(msg)
	}
}

func (h *Hub) handle(msg domain.ClientMessage) {
	if msg.Type != domain.MessageHotAccept || h.accepts == nil || msg.ID == "" {
		return
	}
	h.accepts.SetAccepted(modulePath(msg.ID), true)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// modulePath reduces an absolute module URL, as reported by import.meta.url,
// to the path the graph is keyed by.
func modulePath(id string) string {
	u, err := url.Parse(id)
	if err != nil || u.Path == "" {
		return id
	}
	return u.Path
}
