// ABOUTME: Tests for raw-to-domain event normalization
// ABOUTME: Unknown and malformed raw events must map to no event at all

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbyu/pbx-gateway/internal/controlplane"
)

func testChannel() *controlplane.Channel {
	return &controlplane.Channel{
		ID:    "1700000000.42",
		Name:  "PJSIP/alice-00000001",
		State: controlplane.ChannelStateRinging,
		Caller: controlplane.CallerID{
			Name:   "Alice",
			Number: "1001",
		},
	}
}

func TestNormalize_ChannelEntered(t *testing.T) {
	ev := Normalize(controlplane.RawEvent{
		Type:    controlplane.RawChannelEntered,
		Channel: testChannel(),
	})
	require.NotNil(t, ev)

	started, ok := ev.(ChannelStarted)
	require.True(t, ok, "expected ChannelStarted, got %T", ev)
	assert.Equal(t, "1700000000.42", started.Channel.ID)
	assert.Equal(t, "channel:start", ev.Kind())
	assert.Equal(t, TopicChannels, ev.EventTopic())
}

func TestNormalize_ChannelLeft(t *testing.T) {
	ev := Normalize(controlplane.RawEvent{
		Type:    controlplane.RawChannelLeft,
		Channel: testChannel(),
	})
	require.NotNil(t, ev)

	_, ok := ev.(ChannelEnded)
	require.True(t, ok, "expected ChannelEnded, got %T", ev)
	assert.Equal(t, "channel:end", ev.Kind())
}

func TestNormalize_ChannelStateChange(t *testing.T) {
	ev := Normalize(controlplane.RawEvent{
		Type:    controlplane.RawChannelStateChange,
		Channel: testChannel(),
	})
	require.NotNil(t, ev)

	changed, ok := ev.(ChannelStateChanged)
	require.True(t, ok, "expected ChannelStateChanged, got %T", ev)
	assert.Equal(t, controlplane.ChannelStateRinging, changed.Channel.State)
	assert.Equal(t, "channel:state", ev.Kind())
}

func TestNormalize_DeviceStateChange(t *testing.T) {
	ev := Normalize(controlplane.RawEvent{
		Type: controlplane.RawDeviceStateChange,
		DeviceState: &controlplane.DeviceState{
			Name:  "PJSIP/alice",
			State: "INUSE",
		},
	})
	require.NotNil(t, ev)

	device, ok := ev.(DeviceStateChanged)
	require.True(t, ok, "expected DeviceStateChanged, got %T", ev)
	assert.Equal(t, "PJSIP/alice", device.Device)
	assert.Equal(t, "INUSE", device.State)
	assert.Equal(t, TopicExtensions, ev.EventTopic())
}

func TestNormalize_UnknownType(t *testing.T) {
	ev := Normalize(controlplane.RawEvent{Type: "ChannelDtmfReceived", Channel: testChannel()})
	assert.Nil(t, ev)
}

func TestNormalize_MissingPayload(t *testing.T) {
	for _, typ := range []string{
		controlplane.RawChannelEntered,
		controlplane.RawChannelLeft,
		controlplane.RawChannelStateChange,
		controlplane.RawDeviceStateChange,
	} {
		assert.Nil(t, Normalize(controlplane.RawEvent{Type: typ}), "type %s with no payload", typ)
	}
}

func TestGeneralTopic(t *testing.T) {
	assert.True(t, GeneralTopic(TopicChannels))
	assert.True(t, GeneralTopic(TopicExtensions))
	assert.False(t, GeneralTopic(UserTopic("alice")))
	assert.False(t, GeneralTopic(Topic("bogus")))
}
