// ABOUTME: Liveness and readiness endpoints
// ABOUTME: Readiness reflects the control-plane session state

package httpapi

import (
	"net/http"

	"github.com/netbyu/pbx-gateway/internal/bridge"
)

type healthResponse struct {
	Status       string `json:"status"`
	ControlPlane string `json:"control_plane"`
}

// handleHealth reports process liveness. Always 200 while serving.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		ControlPlane: a.bridge.State().String(),
	})
}

// handleReady reports 503 until the control-plane session is up, so
// load balancers hold traffic during (re)connects.
func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	state := a.bridge.State()
	status := http.StatusOK
	body := healthResponse{Status: "ready", ControlPlane: state.String()}
	if state != bridge.StateConnected {
		status = http.StatusServiceUnavailable
		body.Status = "not ready"
	}
	writeJSON(w, status, body)
}
