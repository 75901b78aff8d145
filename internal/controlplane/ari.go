// ABOUTME: ARI-speaking control-plane client over REST plus a WebSocket event stream
// ABOUTME: Implements Client/Dialer with serialized event delivery and error mapping

package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
)

// Config holds the connection parameters for an ARI session.
type Config struct {
	// URL is the REST base, e.g. "http://pbx.example.com:8088/ari".
	URL      string
	Username string
	Password string
	// Application is the managed application name. Channels enter the
	// bridge's scope when they enter this application.
	Application string
}

// ARIDialer dials ARI sessions from a Config.
type ARIDialer struct {
	Config Config
	Logger *slog.Logger
}

// Dial establishes the event WebSocket and returns a live session.
// The handler starts receiving events before Dial returns.
func (d *ARIDialer) Dial(ctx context.Context, handler EventHandler) (Client, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "controlplane")

	wsURL, err := eventsURL(d.Config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	sock, resp, err := websocket.Dial(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dialing event stream: %v", ErrConnection, err)
	}
	// Event payloads can be large when many channels are up.
	sock.SetReadLimit(1 << 20)

	c := &ariClient{
		cfg:    d.Config,
		http:   &http.Client{},
		sock:   sock,
		logger: logger,
		done:   make(chan struct{}),
	}
	go c.readLoop(handler)

	logger.Info("control-plane session established", "application", d.Config.Application)
	return c, nil
}

// eventsURL builds the ws:// event-stream URL from the REST base.
func eventsURL(cfg Config) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parsing control-plane URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/events"
	q := u.Query()
	q.Set("app", cfg.Application)
	q.Set("api_key", cfg.Username+":"+cfg.Password)
	q.Set("subscribeAll", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ariClient is one live ARI session: REST commands plus the event socket.
type ariClient struct {
	cfg    Config
	http   *http.Client
	sock   *websocket.Conn
	logger *slog.Logger

	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

// readLoop delivers events to the handler one at a time, in arrival
// order. It is the session's only delivery goroutine.
func (c *ariClient) readLoop(handler EventHandler) {
	for {
		_, data, err := c.sock.Read(context.Background())
		if err != nil {
			c.fail(fmt.Errorf("%w: event stream read: %v", ErrConnection, err))
			return
		}

		var ev RawEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// A malformed frame is logged and skipped, never fatal.
			c.logger.Warn("discarding undecodable event", "error", err)
			continue
		}
		handler(ev)
	}
}

// fail records the terminal error and signals Done exactly once.
func (c *ariClient) fail(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *ariClient) Done() <-chan struct{} { return c.done }

func (c *ariClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *ariClient) Close() error {
	// fail(nil) wins the race against readLoop so an operator-initiated
	// close is not reported as a transport error.
	c.fail(nil)
	_ = c.sock.Close(websocket.StatusNormalClosure, "shutting down")
	return nil
}

func (c *ariClient) Originate(ctx context.Context, req OriginateRequest) (*Channel, error) {
	q := url.Values{}
	q.Set("endpoint", req.Endpoint)
	q.Set("extension", req.Extension)
	q.Set("context", req.Context)
	q.Set("app", c.cfg.Application)
	if req.CallerID != "" {
		q.Set("callerId", req.CallerID)
	}

	var ch Channel
	if err := c.do(ctx, http.MethodPost, "/channels", q, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *ariClient) Hangup(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+url.PathEscape(channelID), nil, nil)
}

func (c *ariClient) ListChannels(ctx context.Context) ([]Channel, error) {
	var chans []Channel
	if err := c.do(ctx, http.MethodGet, "/channels", nil, &chans); err != nil {
		return nil, err
	}
	return chans, nil
}

func (c *ariClient) GetChannel(ctx context.Context, id string) (*Channel, error) {
	var ch Channel
	if err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(id), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *ariClient) ListEndpoints(ctx context.Context) ([]Endpoint, error) {
	var eps []Endpoint
	if err := c.do(ctx, http.MethodGet, "/endpoints", nil, &eps); err != nil {
		return nil, err
	}
	return eps, nil
}

func (c *ariClient) GetEndpoint(ctx context.Context, tech, resource string) (*Endpoint, error) {
	path := "/endpoints/" + url.PathEscape(tech) + "/" + url.PathEscape(resource)
	var ep Endpoint
	if err := c.do(ctx, http.MethodGet, path, nil, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// do issues one REST request and decodes the response into out (if
// non-nil). Control-plane status codes are mapped onto the adapter
// errors here so callers never see raw HTTP details.
func (c *ariClient) do(ctx context.Context, method, path string, query url.Values, out any) error {
	reqURL := strings.TrimSuffix(c.cfg.URL, "/") + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: authentication rejected", ErrConnection)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: %s", ErrRejected, readErrorMessage(resp.Body))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrConnection, resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// readErrorMessage pulls the message out of an ARI error body, falling
// back to the raw text.
func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(body) == 0 {
		return "no detail"
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return strings.TrimSpace(string(body))
}
