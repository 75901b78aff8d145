// ABOUTME: Wire frames exchanged over the event-stream WebSocket
// ABOUTME: Clients send subscribe/unsubscribe requests, the server sends typed event frames

package ws

// Client actions accepted over the socket.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// clientMessage is a request from a connected client.
type clientMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// serverFrame is one outbound message. For domain events Type carries
// the event kind and Data the full snapshot; control frames use Topic
// or Error instead.
type serverFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Control frame types.
const (
	frameSubscribed   = "subscribed"
	frameUnsubscribed = "unsubscribed"
	frameError        = "error"
)
