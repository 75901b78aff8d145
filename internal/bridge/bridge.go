// ABOUTME: Gateway service owning the control-plane session lifecycle
// ABOUTME: Connect/reconnect state machine plus the normalize-and-publish event path

package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/netbyu/pbx-gateway/internal/controlplane"
	"github.com/netbyu/pbx-gateway/internal/event"
	"github.com/netbyu/pbx-gateway/internal/metrics"
)

// State is the bridge's connection state. There is one state machine
// per process lifetime.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateShutDown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Options configures a Service.
type Options struct {
	Dialer controlplane.Dialer
	Bus    *event.Bus
	Logger *slog.Logger

	// OperationTimeout bounds each call-control command. Zero means
	// a 3 second default.
	OperationTimeout time.Duration

	// Reconnect backoff shape. Defaults applied for zero values;
	// MaxElapsedTime zero retries forever.
	ReconnectInitialInterval time.Duration
	ReconnectMaxInterval     time.Duration
	ReconnectMaxElapsedTime  time.Duration
}

// Service bridges the control plane to the internal event bus and
// fronts all call-control commands. Commands run concurrently with each
// other and with event delivery; the only shared state is the session
// handle, guarded by mu, and the bus, which is safe for
// single-producer/multi-consumer use.
type Service struct {
	dialer controlplane.Dialer
	bus    *event.Bus
	logger *slog.Logger

	opTimeout        time.Duration
	reconnectInitial time.Duration
	reconnectMax     time.Duration
	reconnectElapsed time.Duration

	mu     sync.RWMutex
	state  State
	client controlplane.Client

	// live tracks channels currently inside the managed application,
	// keyed by channel id. Mutated only on the event path.
	live map[string]struct{}
}

// New creates a Service in the Disconnected state. Call Run to connect.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opTimeout := opts.OperationTimeout
	if opTimeout == 0 {
		opTimeout = 3 * time.Second
	}
	initial := opts.ReconnectInitialInterval
	if initial == 0 {
		initial = 500 * time.Millisecond
	}
	maxIvl := opts.ReconnectMaxInterval
	if maxIvl == 0 {
		maxIvl = 30 * time.Second
	}

	return &Service{
		dialer:           opts.Dialer,
		bus:              opts.Bus,
		logger:           logger.With("component", "bridge"),
		opTimeout:        opTimeout,
		reconnectInitial: initial,
		reconnectMax:     maxIvl,
		reconnectElapsed: opts.ReconnectMaxElapsedTime,
		state:            StateDisconnected,
		live:             make(map[string]struct{}),
	}
}

// State returns the current connection state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Run connects to the control plane and keeps the session alive until
// ctx is canceled, reconnecting with jittered exponential backoff on
// transport failure. It returns nil on graceful shutdown, or an error
// if the reconnect budget (when bounded) is exhausted.
func (s *Service) Run(ctx context.Context) error {
	for {
		client, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.shutdown(nil)
				return nil
			}
			s.shutdown(nil)
			return fmt.Errorf("%w: reconnect budget exhausted: %v", ErrConnection, err)
		}

		s.setConnected(client)

		select {
		case <-ctx.Done():
			s.shutdown(client)
			return nil

		case <-client.Done():
			s.setDisconnected(client.Err())
		}
	}
}

// connect dials until a session is established or the backoff gives up.
func (s *Service) connect(ctx context.Context) (controlplane.Client, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.reconnectInitial
	bo.MaxInterval = s.reconnectMax
	bo.MaxElapsedTime = s.reconnectElapsed

	dial := func() (controlplane.Client, error) {
		metrics.ControlPlaneReconnects.Inc()
		return s.dialer.Dial(ctx, s.handleRaw)
	}

	notify := func(err error, next time.Duration) {
		s.logger.Warn("control-plane connect failed, retrying",
			"error", err,
			"next_attempt_in", next,
		)
	}

	return backoff.RetryNotifyWithData(dial, backoff.WithContext(bo, ctx), notify)
}

// handleRaw is the adapter's event callback. It runs on the session's
// single delivery goroutine, so normalization and the bus push never
// race with themselves. The bus push is non-blocking, so a slow
// subscriber can never stall ingestion.
func (s *Service) handleRaw(raw controlplane.RawEvent) {
	ev := event.Normalize(raw)
	if ev == nil {
		metrics.EventsIgnored.Inc()
		return
	}

	s.trackChannel(ev)
	s.bus.Publish(ev)
}

// trackChannel maintains the live channel set and its gauge.
func (s *Service) trackChannel(ev event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case event.ChannelStarted:
		s.live[e.Channel.ID] = struct{}{}
	case event.ChannelEnded:
		delete(s.live, e.Channel.ID)
	}
	metrics.ActiveChannels.Set(float64(len(s.live)))
}

func (s *Service) setConnected(client controlplane.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateConnected
	s.client = client
	metrics.ControlPlaneConnected.Set(1)
	s.logger.Info("control plane connected")
}

func (s *Service) setDisconnected(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
	s.client = nil
	s.live = make(map[string]struct{})
	metrics.ControlPlaneConnected.Set(0)
	metrics.ActiveChannels.Set(0)
	s.logger.Error("control plane disconnected", "error", cause)
}

// shutdown enters the terminal state. No reconnect attempts follow.
func (s *Service) shutdown(client controlplane.Client) {
	if client != nil {
		_ = client.Close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateShutDown
	s.client = nil
	s.live = make(map[string]struct{})
	metrics.ControlPlaneConnected.Set(0)
	metrics.ActiveChannels.Set(0)
	s.logger.Info("bridge shut down")
}

// session returns the live client, or ErrNotConnected. Every command
// goes through here so Disconnected fails fast with no network I/O.
func (s *Service) session() (controlplane.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateConnected || s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}
