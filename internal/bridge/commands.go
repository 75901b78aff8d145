// ABOUTME: Call-control command façade over the control-plane session
// ABOUTME: Applies per-operation timeouts and translates adapter errors to the public taxonomy

package bridge

import (
	"context"
	"errors"

	"github.com/netbyu/pbx-gateway/internal/controlplane"
)

// OriginateCall starts an outbound call. It has no effect on the event
// bus itself: clients observe the dial through the channel events that
// follow. A timeout is reported as ErrTransient and never retried here,
// to avoid duplicate dials; a late response must be discarded by the
// caller.
func (s *Service) OriginateCall(ctx context.Context, req controlplane.OriginateRequest) (*controlplane.Channel, error) {
	client, err := s.session()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	ch, err := client.Originate(ctx, req)
	if err != nil {
		return nil, translate(err)
	}
	return ch, nil
}

// HangupChannel ends a channel. A channel that has already ended is an
// idempotent success, not an error: the race between a hangup request
// and the channel ending naturally is inherent.
func (s *Service) HangupChannel(ctx context.Context, channelID string) error {
	client, err := s.session()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := client.Hangup(ctx, channelID); err != nil {
		if errors.Is(err, controlplane.ErrNotFound) {
			return nil
		}
		return translate(err)
	}
	return nil
}

// ListChannels returns a snapshot of every channel currently inside the
// managed application.
func (s *Service) ListChannels(ctx context.Context) ([]controlplane.Channel, error) {
	client, err := s.session()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	chans, err := client.ListChannels(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return chans, nil
}

// GetChannel returns one channel snapshot.
func (s *Service) GetChannel(ctx context.Context, id string) (*controlplane.Channel, error) {
	client, err := s.session()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	ch, err := client.GetChannel(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return ch, nil
}

// ListEndpoints returns a snapshot of every known endpoint.
func (s *Service) ListEndpoints(ctx context.Context) ([]controlplane.Endpoint, error) {
	client, err := s.session()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	eps, err := client.ListEndpoints(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return eps, nil
}

// GetEndpoint returns one endpoint snapshot.
func (s *Service) GetEndpoint(ctx context.Context, tech, resource string) (*controlplane.Endpoint, error) {
	client, err := s.session()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	ep, err := client.GetEndpoint(ctx, tech, resource)
	if err != nil {
		return nil, translate(err)
	}
	return ep, nil
}

// EndpointExists reports whether the control plane currently knows the
// endpoint. Used by the queue model to validate memberships.
func (s *Service) EndpointExists(ctx context.Context, tech, resource string) (bool, error) {
	_, err := s.GetEndpoint(ctx, tech, resource)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
