// ABOUTME: Accepts, authenticates and tracks event-stream WebSocket clients
// ABOUTME: Central registry that wires connections into the event bus and tears them down

package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/netbyu/pbx-gateway/internal/auth"
	"github.com/netbyu/pbx-gateway/internal/event"
	"github.com/netbyu/pbx-gateway/internal/metrics"
)

// defaultWriteTimeout bounds a single frame write to a client.
const defaultWriteTimeout = 10 * time.Second

// Hub owns every live WebSocket connection. It authenticates upgrades,
// registers connections on the bus, and drops clients that fail writes
// or fall too far behind.
type Hub struct {
	bus      *event.Bus
	verifier auth.TokenVerifier

	conns map[string]*Connection
	mu    sync.RWMutex

	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewHub creates a hub and installs itself as the bus's slow-subscriber
// handler, so a client whose queue overflows is disconnected.
func NewHub(bus *event.Bus, verifier auth.TokenVerifier, logger *slog.Logger) *Hub {
	h := &Hub{
		bus:          bus,
		verifier:     verifier,
		conns:        make(map[string]*Connection),
		writeTimeout: defaultWriteTimeout,
		logger:       logger.With("component", "ws"),
	}
	bus.SetSlowSubscriberHandler(h.Drop)
	return h
}

// ServeHTTP upgrades an authenticated request into an event-stream
// connection. Authentication happens before the upgrade so an invalid
// token gets a plain 401, not a WebSocket close.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		h.logger.Debug("ws auth rejected", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	sock, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("ws accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	conn := NewConnection(uuid.New().String(), identity, sock, h.bus, h.writeTimeout, h.logger)
	h.register(conn)

	go conn.writeLoop(h.Drop)
	conn.readLoop(r.Context(), h)
}

// bearerToken extracts the client token from the Authorization header
// or, for browser clients that cannot set headers on a WebSocket
// upgrade, the token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return after
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// register adds the connection and joins it to its identity topic. The
// identity subscription lasts for the connection's lifetime and cannot
// be dropped by a client request.
func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	h.conns[c.ID] = c
	total := len(h.conns)
	h.mu.Unlock()

	h.bus.Subscribe(c.ID, event.UserTopic(c.Identity.ID), c.queue)
	metrics.ClientsConnected.Inc()

	h.logger.Info("client connected",
		"conn_id", c.ID,
		"identity", c.Identity.ID,
		"total_clients", total,
	)
}

// Drop removes a connection: all its subscriptions go first, so no
// further event can be queued, then the socket is closed. Dropping an
// unknown ID is a no-op, which makes the write-failure and
// slow-subscriber paths safe to race.
func (h *Hub) Drop(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
	}
	total := len(h.conns)
	h.mu.Unlock()

	if !ok {
		return
	}

	h.bus.UnsubscribeAll(connID)
	c.close()

	metrics.ClientsConnected.Dec()
	metrics.ClientsDropped.Inc()

	h.logger.Info("client disconnected",
		"conn_id", connID,
		"identity", c.Identity.ID,
		"total_clients", total,
	)
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Drop(id)
	}
}
