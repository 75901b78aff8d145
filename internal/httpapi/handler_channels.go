// ABOUTME: Channel command handlers: list, inspect, originate and hang up
// ABOUTME: Thin translation between HTTP and the bridge command surface

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netbyu/pbx-gateway/internal/controlplane"
)

type originateRequest struct {
	Endpoint  string `json:"endpoint"`
	Extension string `json:"extension"`
	Context   string `json:"context"`
	CallerID  string `json:"caller_id"`
}

func (a *API) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := a.bridge.ListChannels(r.Context())
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (a *API) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := a.bridge.GetChannel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (a *API) handleOriginate(w http.ResponseWriter, r *http.Request) {
	var req originateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Endpoint == "" || req.Extension == "" {
		writeBadRequest(w, "endpoint and extension are required")
		return
	}

	ch, err := a.bridge.OriginateCall(r.Context(), controlplane.OriginateRequest{
		Endpoint:  req.Endpoint,
		Extension: req.Extension,
		Context:   req.Context,
		CallerID:  req.CallerID,
	})
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

// handleHangup ends a channel. Hanging up a channel that is already
// gone succeeds, so retries are safe.
func (a *API) handleHangup(w http.ResponseWriter, r *http.Request) {
	if err := a.bridge.HangupChannel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
