// ABOUTME: Prometheus metrics for the event bridge and distribution gateway
// ABOUTME: Package-level collectors registered via promauto

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pbxgw_events_published_total",
		Help: "Domain events published on the internal bus, by topic",
	}, []string{"topic"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pbxgw_events_dropped_total",
		Help: "Events dropped because a subscriber queue was full",
	})

	EventsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pbxgw_events_ignored_total",
		Help: "Raw control-plane events with no domain mapping",
	})

	ClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pbxgw_ws_clients_connected",
		Help: "Currently connected WebSocket subscribers",
	})

	ClientsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pbxgw_ws_clients_dropped_total",
		Help: "Subscriber connections dropped for slow or failed writes",
	})

	ControlPlaneConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pbxgw_controlplane_connected",
		Help: "1 while the control-plane session is up, 0 otherwise",
	})

	ControlPlaneReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pbxgw_controlplane_reconnects_total",
		Help: "Reconnect attempts against the control plane",
	})

	ActiveChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pbxgw_active_channels",
		Help: "Channels currently inside the managed application",
	})
)
