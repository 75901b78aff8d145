// ABOUTME: Pure mapping from raw control-plane events to the DomainEvent union
// ABOUTME: Unknown raw types map to nil so new upstream events never break the bridge

package event

import "github.com/netbyu/pbx-gateway/internal/controlplane"

// Normalize maps one raw control-plane event to zero or one domain
// event. It never blocks, performs no I/O, and returns nil for every
// raw type it does not recognize: unknown events are ignored until
// support is added, not treated as errors.
func Normalize(raw controlplane.RawEvent) Event {
	switch raw.Type {
	case controlplane.RawChannelEntered:
		if raw.Channel == nil {
			return nil
		}
		return ChannelStarted{Channel: *raw.Channel}

	case controlplane.RawChannelLeft:
		if raw.Channel == nil {
			return nil
		}
		return ChannelEnded{Channel: *raw.Channel}

	case controlplane.RawChannelStateChange:
		if raw.Channel == nil {
			return nil
		}
		return ChannelStateChanged{Channel: *raw.Channel}

	case controlplane.RawDeviceStateChange:
		if raw.DeviceState == nil {
			return nil
		}
		return DeviceStateChanged{
			Device: raw.DeviceState.Name,
			State:  raw.DeviceState.State,
		}

	default:
		return nil
	}
}
