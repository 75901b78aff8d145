// ABOUTME: Read-only audit log query endpoint

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/netbyu/pbx-gateway/internal/queue"
)

// handleListAudit returns audit entries newest first. All filters are
// optional query parameters; malformed timestamps are rejected.
func (a *API) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f queue.AuditFilter

	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeBadRequest(w, "since must be RFC 3339")
			return
		}
		f.Since = &t
	}
	if s := q.Get("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeBadRequest(w, "until must be RFC 3339")
			return
		}
		f.Until = &t
	}
	if s := q.Get("actor"); s != "" {
		f.ActorID = &s
	}
	if s := q.Get("action"); s != "" {
		action := queue.AuditAction(s)
		f.Action = &action
	}
	if s := q.Get("target_type"); s != "" {
		f.TargetType = &s
	}
	if s := q.Get("target_id"); s != "" {
		f.TargetID = &s
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	entries, err := a.queues.ListAuditLog(r.Context(), f)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
