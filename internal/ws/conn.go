// ABOUTME: Represents a single connected event-stream client and its outbound queue
// ABOUTME: One writer goroutine drains the queue so delivery order matches publish order

package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/netbyu/pbx-gateway/internal/auth"
	"github.com/netbyu/pbx-gateway/internal/event"
)

// queueSize is the outbound event buffer per connection. A client that
// falls this far behind is disconnected rather than waited on.
const queueSize = 64

// Connection represents one authenticated WebSocket client. All of its
// topic subscriptions share the one queue, so events it receives keep
// their per-topic publish order.
type Connection struct {
	ID       string
	Identity auth.Identity

	sock  *websocket.Conn
	queue chan event.Event
	bus   *event.Bus

	writeMu      sync.Mutex
	writeTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}

	logger *slog.Logger
}

// NewConnection wraps an accepted socket for the given identity.
func NewConnection(id string, identity auth.Identity, sock *websocket.Conn, bus *event.Bus, writeTimeout time.Duration, logger *slog.Logger) *Connection {
	return &Connection{
		ID:           id,
		Identity:     identity,
		sock:         sock,
		queue:        make(chan event.Event, queueSize),
		bus:          bus,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
		logger:       logger.With("conn_id", id, "identity", identity.ID),
	}
}

// writeFrame serializes one frame to the socket under the write lock.
// Both the event writer and the read loop's acks go through here.
func (c *Connection) writeFrame(f serverFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.sock, f)
}

// writeLoop drains the outbound queue until the connection is closed.
// A write failure reports the connection for removal via onFail.
func (c *Connection) writeLoop(onFail func(connID string)) {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.queue:
			frame := serverFrame{Type: ev.Kind(), Data: ev}
			if err := c.writeFrame(frame); err != nil {
				c.logger.Debug("event write failed", "kind", ev.Kind(), "error", err)
				onFail(c.ID)
				return
			}
		}
	}
}

// readLoop handles inbound subscribe/unsubscribe requests until the
// client goes away. Any read error ends the connection.
func (c *Connection) readLoop(ctx context.Context, hub *Hub) {
	defer hub.Drop(c.ID)

	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, c.sock, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				c.logger.Debug("read failed", "error", err)
			}
			return
		}
		c.handleMessage(msg)
	}
}

// handleMessage applies one client request and acknowledges it.
func (c *Connection) handleMessage(msg clientMessage) {
	topic := event.Topic(msg.Topic)

	switch msg.Action {
	case ActionSubscribe:
		if !event.GeneralTopic(topic) {
			c.sendError("unknown topic: " + msg.Topic)
			return
		}
		c.bus.Subscribe(c.ID, topic, c.queue)
		c.ack(frameSubscribed, msg.Topic)

	case ActionUnsubscribe:
		if !event.GeneralTopic(topic) {
			c.sendError("unknown topic: " + msg.Topic)
			return
		}
		c.bus.Unsubscribe(c.ID, topic)
		c.ack(frameUnsubscribed, msg.Topic)

	default:
		c.sendError("unknown action: " + msg.Action)
	}
}

func (c *Connection) ack(frameType, topic string) {
	if err := c.writeFrame(serverFrame{Type: frameType, Topic: topic}); err != nil {
		c.logger.Debug("ack write failed", "error", err)
	}
}

func (c *Connection) sendError(reason string) {
	if err := c.writeFrame(serverFrame{Type: frameError, Error: reason}); err != nil {
		c.logger.Debug("error frame write failed", "error", err)
	}
}

// close shuts the socket down once. Safe to call from multiple paths.
// Teardown must never wait on the peer: Drop runs on the publisher's
// goroutine, and a slow client is by definition not reading, so the
// close handshake would stall event delivery for everyone else.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.sock.CloseNow()
	})
}
