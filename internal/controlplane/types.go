// ABOUTME: Snapshot types and raw events exchanged with the telephony control plane
// ABOUTME: Defines Channel, Endpoint and the wire shape of control-plane events

package controlplane

import "time"

// ChannelState is the control-plane defined state of a call leg.
// The set is open: unrecognized states pass through untouched.
type ChannelState string

const (
	ChannelStateDown    ChannelState = "Down"
	ChannelStateRing    ChannelState = "Ring"
	ChannelStateRinging ChannelState = "Ringing"
	ChannelStateUp      ChannelState = "Up"
	ChannelStateBusy    ChannelState = "Busy"
	ChannelStateDialing ChannelState = "Dialing"
	ChannelStateUnknown ChannelState = "Unknown"
)

// CallerID identifies the calling party. Number may be empty for
// anonymous callers.
type CallerID struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

// Channel is a point-in-time snapshot of one live call leg. The ID is
// assigned by the control plane and unique for the channel's lifetime.
type Channel struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	State     ChannelState `json:"state"`
	Caller    CallerID     `json:"caller"`
	CreatedAt time.Time    `json:"creationtime"`
}

// EndpointState is the aggregate registration state of an endpoint.
type EndpointState string

const (
	EndpointStateOnline  EndpointState = "online"
	EndpointStateOffline EndpointState = "offline"
	EndpointStateBusy    EndpointState = "busy"
	EndpointStateUnknown EndpointState = "unknown"
)

// Endpoint is a snapshot of a registration target (e.g. an extension)
// with the channel ids currently using it.
type Endpoint struct {
	Tech       string        `json:"technology"`
	Resource   string        `json:"resource"`
	State      EndpointState `json:"state"`
	ChannelIDs []string      `json:"channel_ids"`
}

// Raw event type names as sent by the control plane.
const (
	RawChannelEntered     = "StasisStart"
	RawChannelLeft        = "StasisEnd"
	RawChannelStateChange = "ChannelStateChange"
	RawDeviceStateChange  = "DeviceStateChanged"
)

// DeviceState is the device-state portion of a raw event.
type DeviceState struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

// RawEvent is one event as received from the control-plane event stream.
// Only the fields the bridge cares about are decoded; everything else is
// ignored on purpose so new upstream event types never break decoding.
type RawEvent struct {
	Type        string       `json:"type"`
	Timestamp   time.Time    `json:"timestamp"`
	Channel     *Channel     `json:"channel,omitempty"`
	DeviceState *DeviceState `json:"device_state,omitempty"`
}
