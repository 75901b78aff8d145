// ABOUTME: Gateway orchestrator that wires the store, bridge, bus, hub and HTTP server
// ABOUTME: Owns startup order and graceful shutdown of all components

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/netbyu/pbx-gateway/internal/auth"
	"github.com/netbyu/pbx-gateway/internal/bridge"
	"github.com/netbyu/pbx-gateway/internal/config"
	"github.com/netbyu/pbx-gateway/internal/controlplane"
	"github.com/netbyu/pbx-gateway/internal/event"
	"github.com/netbyu/pbx-gateway/internal/httpapi"
	"github.com/netbyu/pbx-gateway/internal/queue"
	"github.com/netbyu/pbx-gateway/internal/store"
	"github.com/netbyu/pbx-gateway/internal/ws"
)

// Gateway orchestrates the pbx-gateway server components: the
// control-plane bridge, the event bus, the WebSocket hub, the queue
// model and the HTTP server fronting all of them.
type Gateway struct {
	config     *config.Config
	store      *store.SQLiteStore
	bus        *event.Bus
	bridge     *bridge.Service
	hub        *ws.Hub
	queues     *queue.Service
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the SQLite store from config and environment.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("PBXGW_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a Gateway instance with the given configuration. Nothing
// connects or listens until Run.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating JWT verifier: %w", err)
	}

	bus := event.NewBus(logger)

	dialer := &controlplane.ARIDialer{
		Config: controlplane.Config{
			URL:         cfg.ControlPlane.URL,
			Username:    cfg.ControlPlane.Username,
			Password:    cfg.ControlPlane.Password,
			Application: cfg.ControlPlane.Application,
		},
		Logger: logger,
	}

	br := bridge.New(bridge.Options{
		Dialer:                   dialer,
		Bus:                      bus,
		Logger:                   logger,
		OperationTimeout:         cfg.ControlPlane.OperationTimeout,
		ReconnectInitialInterval: cfg.ControlPlane.Reconnect.InitialInterval,
		ReconnectMaxInterval:     cfg.ControlPlane.Reconnect.MaxInterval,
		ReconnectMaxElapsedTime:  cfg.ControlPlane.Reconnect.MaxElapsedTime,
	})

	queues := queue.NewService(s, br, logger.With("component", "queue"))
	hub := ws.NewHub(bus, verifier, logger)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Bridge:         br,
		Queues:         queues,
		Stream:         hub,
		Verifier:       verifier,
		Logger:         logger,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	})

	return &Gateway{
		config: cfg,
		store:  s,
		bus:    bus,
		bridge: br,
		hub:    hub,
		queues: queues,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "gateway"),
	}, nil
}

// Run starts the HTTP server and the control-plane bridge and blocks
// until the context is canceled or a component fails. Returns nil on
// graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := g.startComponents(runCtx, httpLn)
	runErr := g.waitForShutdownSignal(ctx, errCh)

	// Stop the bridge before tearing the servers down so no event is
	// published into a closing hub.
	cancel()

	shutdownErr := g.gracefulShutdown()
	if runErr != nil {
		return runErr
	}
	return shutdownErr
}

// startComponents starts the HTTP server and bridge in goroutines,
// returning their error channel.
func (g *Gateway) startComponents(ctx context.Context, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	go func() {
		if err := g.bridge.Run(ctx); err != nil {
			errCh <- fmt.Errorf("bridge: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or a component
// error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("component error", "error", err)
		g.drainErrors(errCh)
		return err
	}
}

// drainErrors drains any remaining errors from the channel.
func (g *Gateway) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		g.logger.Error("additional component error", "error", additionalErr)
	default:
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is
// already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown gracefully stops all gateway components and releases
// resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	g.hub.Shutdown()
	g.bus.Close()
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}
