// ABOUTME: Audit record types for queue-model mutations
// ABOUTME: Every mutating operation emits one entry with before/after snapshots

package queue

import "time"

// AuditAction represents an auditable action.
type AuditAction string

const (
	AuditCreateQueue  AuditAction = "create_queue"
	AuditUpdateQueue  AuditAction = "update_queue"
	AuditDeleteQueue  AuditAction = "delete_queue"
	AuditAddMember    AuditAction = "add_member"
	AuditRemoveMember AuditAction = "remove_member"
	AuditPauseMember  AuditAction = "pause_member"
)

// ValidAuditActions lists all valid audit actions.
var ValidAuditActions = []AuditAction{
	AuditCreateQueue,
	AuditUpdateQueue,
	AuditDeleteQueue,
	AuditAddMember,
	AuditRemoveMember,
	AuditPauseMember,
}

// Actor identifies who performed a mutation and from where.
type Actor struct {
	ID         string // authenticated identity id
	SourceAddr string // remote address of the request
}

// AuditEntry is a single append-only audit record.
type AuditEntry struct {
	ID         string      `json:"id"`          // UUID v4, generated by the sink if empty
	ActorID    string      `json:"actor_id"`    // who performed the action
	SourceAddr string      `json:"source_addr"` // where the request came from
	Action     AuditAction `json:"action"`      // what was done
	TargetType string      `json:"target_type"` // "queue" or "member"
	TargetID   string      `json:"target_id"`   // queue name, or "queue/interface" for members
	Timestamp  time.Time   `json:"timestamp"`   // when it happened, UTC
	OldValue   any         `json:"old_value"`   // snapshot before (update/delete/remove/pause)
	NewValue   any         `json:"new_value"`   // snapshot after (create/update/add/pause)
}

// AuditFilter specifies filtering options for listing audit entries.
type AuditFilter struct {
	Since      *time.Time   // entries after this time
	Until      *time.Time   // entries before this time
	ActorID    *string      // filter by actor
	Action     *AuditAction // filter by action type
	TargetType *string      // filter by target type
	TargetID   *string      // filter by target ID
	Limit      int          // max results (default 100, max 1000)
}
