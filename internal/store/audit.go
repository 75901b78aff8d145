// ABOUTME: Append-only audit log persistence for queue-model mutations
// ABOUTME: Records who did what to which resource, with before/after snapshots

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/netbyu/pbx-gateway/internal/queue"
)

// AppendAuditLog appends a new entry to the audit log.
// Generates ID and Timestamp if not set.
func (s *SQLiteStore) AppendAuditLog(ctx context.Context, e *queue.AuditEntry) error {
	// Generate ID if not set
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	// Generate timestamp if not set
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	oldJSON, err := marshalSnapshot(e.OldValue)
	if err != nil {
		return fmt.Errorf("marshaling old value: %w", err)
	}
	newJSON, err := marshalSnapshot(e.NewValue)
	if err != nil {
		return fmt.Errorf("marshaling new value: %w", err)
	}

	query := `
		INSERT INTO audit_log (audit_id, actor_id, source_addr, action, target_type, target_id, ts, old_json, new_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		e.ID,
		e.ActorID,
		e.SourceAddr,
		string(e.Action),
		e.TargetType,
		e.TargetID,
		e.Timestamp.UTC().Format(time.RFC3339),
		oldJSON,
		newJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("appended audit log",
		"id", e.ID,
		"actor", e.ActorID,
		"action", string(e.Action),
		"target", e.TargetType+"/"+e.TargetID,
	)
	return nil
}

// marshalSnapshot renders a snapshot value to JSON, nil staying NULL.
func marshalSnapshot(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	str := string(data)
	return &str, nil
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// auditQueryArgs builds the query arguments from an AuditFilter.
type auditQueryArgs struct {
	sinceStr  *string
	untilStr  *string
	actionStr *string
}

// buildAuditQueryArgs converts filter time/action fields to query args.
func buildAuditQueryArgs(f queue.AuditFilter) auditQueryArgs {
	var args auditQueryArgs
	if f.Since != nil {
		s := f.Since.UTC().Format(time.RFC3339)
		args.sinceStr = &s
	}
	if f.Until != nil {
		s := f.Until.UTC().Format(time.RFC3339)
		args.untilStr = &s
	}
	if f.Action != nil {
		a := string(*f.Action)
		args.actionStr = &a
	}
	return args
}

// scanAuditEntry scans a row into an AuditEntry. Snapshots come back as
// raw JSON maps.
func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (queue.AuditEntry, error) {
	var e queue.AuditEntry
	var actionStr, tsStr string
	var oldJSON, newJSON *string

	if err := scanner.Scan(
		&e.ID,
		&e.ActorID,
		&e.SourceAddr,
		&actionStr,
		&e.TargetType,
		&e.TargetID,
		&tsStr,
		&oldJSON,
		&newJSON,
	); err != nil {
		return e, fmt.Errorf("scanning audit entry: %w", err)
	}

	e.Action = queue.AuditAction(actionStr)
	var err error
	e.Timestamp, err = time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}

	if e.OldValue, err = unmarshalSnapshot(oldJSON); err != nil {
		return e, fmt.Errorf("unmarshaling old value: %w", err)
	}
	if e.NewValue, err = unmarshalSnapshot(newJSON); err != nil {
		return e, fmt.Errorf("unmarshaling new value: %w", err)
	}
	return e, nil
}

func unmarshalSnapshot(raw *string) (any, error) {
	if raw == nil {
		return nil, nil
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

const auditLogQuery = `
	SELECT audit_id, actor_id, source_addr, action, target_type, target_id, ts, old_json, new_json
	FROM audit_log
	WHERE (? IS NULL OR ts >= ?)
	  AND (? IS NULL OR ts <= ?)
	  AND (? IS NULL OR actor_id = ?)
	  AND (? IS NULL OR action = ?)
	  AND (? IS NULL OR target_type = ?)
	  AND (? IS NULL OR target_id = ?)
	ORDER BY ts DESC
	LIMIT ?
`

// ListAuditLog returns audit entries matching the filter criteria.
// Results are returned newest first (DESC by timestamp).
func (s *SQLiteStore) ListAuditLog(ctx context.Context, f queue.AuditFilter) ([]queue.AuditEntry, error) {
	limit := normalizeAuditLimit(f.Limit)
	args := buildAuditQueryArgs(f)

	rows, err := s.db.QueryContext(ctx, auditLogQuery,
		args.sinceStr, args.sinceStr,
		args.untilStr, args.untilStr,
		f.ActorID, f.ActorID,
		args.actionStr, args.actionStr,
		f.TargetType, f.TargetType,
		f.TargetID, f.TargetID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []queue.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	if entries == nil {
		entries = []queue.AuditEntry{}
	}
	return entries, nil
}
