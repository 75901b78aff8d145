// ABOUTME: Assembles the HTTP surface: health, metrics, the event-stream socket and the REST API
// ABOUTME: Everything under /api requires a valid bearer token

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netbyu/pbx-gateway/internal/auth"
	"github.com/netbyu/pbx-gateway/internal/bridge"
	"github.com/netbyu/pbx-gateway/internal/queue"
)

// API holds the handler dependencies.
type API struct {
	bridge *bridge.Service
	queues *queue.Service
	logger *slog.Logger
}

// RouterConfig carries everything NewRouter needs to assemble the
// surface.
type RouterConfig struct {
	Bridge   *bridge.Service
	Queues   *queue.Service
	Stream   http.Handler // the WebSocket hub
	Verifier auth.TokenVerifier
	Logger   *slog.Logger

	MetricsEnabled bool
	MetricsPath    string
}

// NewRouter builds the full HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	api := &API{
		bridge: cfg.Bridge,
		queues: cfg.Queues,
		logger: cfg.Logger.With("component", "httpapi"),
	}

	r := chi.NewRouter()
	r.Use(LoggingMiddleware(api.logger))
	r.Use(RecoverMiddleware(api.logger))

	r.Get("/health", api.handleHealth)
	r.Get("/health/ready", api.handleReady)

	if cfg.MetricsEnabled {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	// The hub authenticates the upgrade itself so browser clients can
	// pass the token as a query parameter.
	r.Get("/ws", cfg.Stream.ServeHTTP)

	r.Route("/api", func(ar chi.Router) {
		ar.Use(BearerAuth(cfg.Verifier, api.logger))

		ar.Get("/channels", api.handleListChannels)
		ar.Post("/channels", api.handleOriginate)
		ar.Get("/channels/{id}", api.handleGetChannel)
		ar.Delete("/channels/{id}", api.handleHangup)

		ar.Get("/endpoints", api.handleListEndpoints)
		ar.Get("/endpoints/{tech}/{resource}", api.handleGetEndpoint)

		ar.Get("/queues", api.handleListQueues)
		ar.Post("/queues", api.handleCreateQueue)
		ar.Get("/queues/{name}", api.handleGetQueue)
		ar.Patch("/queues/{name}", api.handleUpdateQueue)
		ar.Delete("/queues/{name}", api.handleDeleteQueue)

		ar.Get("/queues/{name}/members", api.handleListMembers)
		ar.Post("/queues/{name}/members", api.handleAddMember)
		// Interface refs contain a slash ("PJSIP/alice"), hence the
		// two-segment member key.
		ar.Delete("/queues/{name}/members/{tech}/{resource}", api.handleRemoveMember)
		ar.Put("/queues/{name}/members/{tech}/{resource}/paused", api.handleSetPaused)

		ar.Get("/audit", api.handleListAudit)
	})

	return r
}

// actor builds the audit actor from the authenticated request.
func actorFrom(r *http.Request) queue.Actor {
	identity, _ := auth.FromContext(r.Context())
	return queue.Actor{ID: identity.ID, SourceAddr: r.RemoteAddr}
}
