// ABOUTME: Mock Client and Dialer implementations for testing
// ABOUTME: Allows the bridge and API layers to run without a live PBX

package controlplane

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory Client implementation for testing.
// Deliver pushes raw events through the registered handler exactly the
// way a real session would: one at a time, from the calling goroutine.
type MockClient struct {
	mu        sync.RWMutex
	channels  map[string]*Channel
	endpoints map[string]*Endpoint // keyed by "tech/resource"
	handler   EventHandler
	err       error
	closed    bool

	done     chan struct{}
	doneOnce sync.Once

	// OriginateErr, when set, is returned by Originate unchanged.
	OriginateErr error
}

// NewMockClient creates a new MockClient with no registered handler.
func NewMockClient() *MockClient {
	return &MockClient{
		channels:  make(map[string]*Channel),
		endpoints: make(map[string]*Endpoint),
		done:      make(chan struct{}),
	}
}

// SetHandler registers the event handler, normally done by MockDialer.
func (m *MockClient) SetHandler(h EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Deliver invokes the handler with the given raw event synchronously.
func (m *MockClient) Deliver(ev RawEvent) {
	m.mu.RLock()
	h := m.handler
	m.mu.RUnlock()
	if h != nil {
		h(ev)
	}
}

// AddChannel seeds a live channel.
func (m *MockClient) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := ch
	m.channels[c.ID] = &c
}

// RemoveChannel drops a channel, as if it ended naturally.
func (m *MockClient) RemoveChannel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, id)
}

// AddEndpoint seeds an endpoint.
func (m *MockClient) AddEndpoint(ep Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := ep
	m.endpoints[e.Tech+"/"+e.Resource] = &e
}

// FailTransport simulates the event stream dropping.
func (m *MockClient) FailTransport(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
	m.doneOnce.Do(func() { close(m.done) })
}

func (m *MockClient) Originate(ctx context.Context, req OriginateRequest) (*Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OriginateErr != nil {
		return nil, m.OriginateErr
	}
	ch := &Channel{
		ID:     fmt.Sprintf("mock-%d", len(m.channels)+1),
		Name:   req.Endpoint,
		State:  ChannelStateDown,
		Caller: CallerID{Number: req.Extension},
	}
	m.channels[ch.ID] = ch
	return ch, nil
}

func (m *MockClient) Hangup(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[channelID]; !ok {
		return ErrNotFound
	}
	delete(m.channels, channelID)
	return nil
}

func (m *MockClient) ListChannels(ctx context.Context) ([]Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		out = append(out, *ch)
	}
	return out, nil
}

func (m *MockClient) GetChannel(ctx context.Context, id string) (*Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *ch
	return &c, nil
}

func (m *MockClient) ListEndpoints(ctx context.Context) ([]Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Endpoint, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		out = append(out, *ep)
	}
	return out, nil
}

func (m *MockClient) GetEndpoint(ctx context.Context, tech, resource string) (*Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ep, ok := m.endpoints[tech+"/"+resource]
	if !ok {
		return nil, ErrNotFound
	}
	e := *ep
	return &e, nil
}

func (m *MockClient) Done() <-chan struct{} { return m.done }

func (m *MockClient) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.doneOnce.Do(func() { close(m.done) })
	return nil
}

// Closed reports whether Close has been called.
func (m *MockClient) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// MockDialer hands out a fixed sequence of results. Each Dial consumes
// one entry; when the sequence is exhausted the last entry repeats.
type MockDialer struct {
	mu      sync.Mutex
	results []MockDialResult
	dials   int
}

// MockDialResult is one scripted Dial outcome.
type MockDialResult struct {
	Client *MockClient
	Err    error
}

// NewMockDialer creates a dialer that yields the given results in order.
func NewMockDialer(results ...MockDialResult) *MockDialer {
	return &MockDialer{results: results}
}

func (d *MockDialer) Dial(ctx context.Context, handler EventHandler) (Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.dials
	if idx >= len(d.results) {
		idx = len(d.results) - 1
	}
	d.dials++

	res := d.results[idx]
	if res.Err != nil {
		return nil, res.Err
	}
	res.Client.SetHandler(handler)
	return res.Client, nil
}

// Dials reports how many times Dial has been called.
func (d *MockDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
