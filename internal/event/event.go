// ABOUTME: DomainEvent union republished on the internal bus after normalization
// ABOUTME: Each event embeds a full snapshot so clients never need a follow-up query

package event

import "github.com/netbyu/pbx-gateway/internal/controlplane"

// Topic is a named category of events a client can subscribe to.
type Topic string

const (
	// TopicChannels carries channel lifecycle and state events.
	TopicChannels Topic = "channels"

	// TopicExtensions carries endpoint device-state events.
	TopicExtensions Topic = "extensions"
)

// UserTopic is the identity-scoped topic every authenticated connection
// joins implicitly for its lifetime.
func UserTopic(identityID string) Topic {
	return Topic("user:" + identityID)
}

// GeneralTopic reports whether t is one of the explicitly subscribable
// topics (identity topics are joined at connect time only).
func GeneralTopic(t Topic) bool {
	return t == TopicChannels || t == TopicExtensions
}

// Event is one normalized domain event. The union is closed: the four
// implementations below are the only ones, and the normalizer maps
// everything else to no event at all.
type Event interface {
	// Kind is the wire message type sent to subscribers.
	Kind() string

	// EventTopic is the topic the event fans out on.
	EventTopic() Topic
}

// ChannelStarted is published when a channel enters the managed
// application.
type ChannelStarted struct {
	Channel controlplane.Channel `json:"channel"`
}

// ChannelEnded is published when a channel leaves the managed
// application.
type ChannelEnded struct {
	Channel controlplane.Channel `json:"channel"`
}

// ChannelStateChanged is published on every in-place channel state
// mutation.
type ChannelStateChanged struct {
	Channel controlplane.Channel `json:"channel"`
}

// DeviceStateChanged is published when an endpoint's aggregate device
// state changes.
type DeviceStateChanged struct {
	Device string `json:"device"`
	State  string `json:"state"`
}

func (ChannelStarted) Kind() string      { return "channel:start" }
func (ChannelEnded) Kind() string        { return "channel:end" }
func (ChannelStateChanged) Kind() string { return "channel:state" }
func (DeviceStateChanged) Kind() string  { return "extension:state" }

func (ChannelStarted) EventTopic() Topic      { return TopicChannels }
func (ChannelEnded) EventTopic() Topic        { return TopicChannels }
func (ChannelStateChanged) EventTopic() Topic { return TopicChannels }
func (DeviceStateChanged) EventTopic() Topic  { return TopicExtensions }
