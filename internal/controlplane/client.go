// ABOUTME: Client and Dialer interfaces for the telephony control-plane session
// ABOUTME: Defines the command surface, event delivery contract and adapter errors

package controlplane

import (
	"context"
	"errors"
)

// Adapter errors. Callers match with errors.Is; the bridge translates
// these into its public taxonomy before they reach any API surface.
var (
	// ErrNotFound means the referenced channel or endpoint does not
	// exist on the control plane at the time of the call.
	ErrNotFound = errors.New("control plane: not found")

	// ErrRejected means the control plane refused the command
	// (bad endpoint reference, invalid extension, dial rejected).
	ErrRejected = errors.New("control plane: command rejected")

	// ErrConnection means the session could not be established or the
	// transport failed mid-session.
	ErrConnection = errors.New("control plane: connection failed")
)

// EventHandler receives raw control-plane events. The adapter invokes it
// from a single goroutine, one event at a time, in arrival order. The
// handler must not block: it runs on the session's only delivery path.
type EventHandler func(RawEvent)

// OriginateRequest describes an outbound dial.
type OriginateRequest struct {
	Endpoint  string // e.g. "PJSIP/1001"
	Extension string
	Context   string
	CallerID  string // optional
}

// Client is one authenticated control-plane session. Exactly one Client
// exists per managed application name; commands may be issued
// concurrently with event delivery.
type Client interface {
	// Originate starts an outbound call and returns the new channel.
	Originate(ctx context.Context, req OriginateRequest) (*Channel, error)

	// Hangup ends a channel. Returns ErrNotFound if the channel has
	// already left the system.
	Hangup(ctx context.Context, channelID string) error

	ListChannels(ctx context.Context) ([]Channel, error)
	GetChannel(ctx context.Context, id string) (*Channel, error)
	ListEndpoints(ctx context.Context) ([]Endpoint, error)
	GetEndpoint(ctx context.Context, tech, resource string) (*Endpoint, error)

	// Done is closed when the event transport fails. After Done the
	// session is dead and a new one must be dialed.
	Done() <-chan struct{}

	// Err reports why the session ended. Valid only after Done.
	Err() error

	// Close tears the session down. Safe to call more than once.
	Close() error
}

// Dialer creates control-plane sessions. The bridge owns reconnects, so
// it dials through this interface rather than holding a concrete client;
// tests inject a mock dialer.
type Dialer interface {
	Dial(ctx context.Context, handler EventHandler) (Client, error)
}
