// ABOUTME: Queue and membership CRUD handlers
// ABOUTME: Mutations carry the authenticated actor so every change lands in the audit log

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netbyu/pbx-gateway/internal/queue"
)

func (a *API) handleListQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := a.queues.ListQueues(r.Context())
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, queues)
}

func (a *API) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	q, err := a.queues.GetQueue(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) handleCreateQueue(w http.ResponseWriter, r *http.Request) {
	var q queue.Queue
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	created, err := a.queues.CreateQueue(r.Context(), actorFrom(r), q)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// queueUpdateRequest mirrors queue.Update with JSON tags. Absent fields
// stay nil and leave the queue untouched.
type queueUpdateRequest struct {
	Strategy                 *queue.Strategy         `json:"strategy"`
	RingTimeoutSeconds       *int                    `json:"ring_timeout_seconds"`
	WrapUpSeconds            *int                    `json:"wrap_up_seconds"`
	MaxWaiting               *int                    `json:"max_waiting"`
	ServiceLevelSeconds      *int                    `json:"service_level_seconds"`
	MusicOnHoldClass         *string                 `json:"music_on_hold_class"`
	AnnounceFrequencySeconds *int                    `json:"announce_frequency_seconds"`
	AnnouncePosition         *queue.AnnouncePosition `json:"announce_position"`
}

func (a *API) handleUpdateQueue(w http.ResponseWriter, r *http.Request) {
	var req queueUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	upd := queue.Update{
		Strategy:                 req.Strategy,
		RingTimeoutSeconds:       req.RingTimeoutSeconds,
		WrapUpSeconds:            req.WrapUpSeconds,
		MaxWaiting:               req.MaxWaiting,
		ServiceLevelSeconds:      req.ServiceLevelSeconds,
		MusicOnHoldClass:         req.MusicOnHoldClass,
		AnnounceFrequencySeconds: req.AnnounceFrequencySeconds,
		AnnouncePosition:         req.AnnouncePosition,
	}

	updated, err := a.queues.UpdateQueue(r.Context(), actorFrom(r), chi.URLParam(r, "name"), upd)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteQueue(w http.ResponseWriter, r *http.Request) {
	if err := a.queues.DeleteQueue(r.Context(), actorFrom(r), chi.URLParam(r, "name")); err != nil {
		writeError(w, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := a.queues.ListMembers(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (a *API) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var m queue.Member
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	m.QueueName = chi.URLParam(r, "name")

	added, err := a.queues.AddMember(r.Context(), actorFrom(r), m)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (a *API) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ref := memberRef(r)

	if err := a.queues.RemoveMember(r.Context(), actorFrom(r), name, ref); err != nil {
		writeError(w, a.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

func (a *API) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	member, err := a.queues.SetPaused(r.Context(), actorFrom(r), chi.URLParam(r, "name"), memberRef(r), req.Paused)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// memberRef reassembles the interface reference from its two URL
// segments.
func memberRef(r *http.Request) string {
	return chi.URLParam(r, "tech") + "/" + chi.URLParam(r, "resource")
}
