// ABOUTME: Endpoint inventory handlers backed by the control-plane session

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *API) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints, err := a.bridge.ListEndpoints(r.Context())
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, endpoints)
}

func (a *API) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	tech := chi.URLParam(r, "tech")
	resource := chi.URLParam(r, "resource")

	ep, err := a.bridge.GetEndpoint(r.Context(), tech, resource)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ep)
}
