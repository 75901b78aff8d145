// ABOUTME: Queue membership persistence methods for the SQLite store
// ABOUTME: Composite identity (queue_name, interface_ref) enforced by primary key

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/netbyu/pbx-gateway/internal/queue"
)

// AddMember inserts a membership. Returns queue.ErrConflict if the
// (queue, interface) pair exists, queue.ErrNotFound if the queue row is
// gone.
func (s *SQLiteStore) AddMember(ctx context.Context, m *queue.Member) error {
	query := `
		INSERT INTO queue_members (queue_name, interface_ref, display_name, penalty, paused,
			state_interface_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		m.QueueName,
		m.InterfaceRef,
		m.DisplayName,
		m.Penalty,
		boolToInt(m.Paused),
		m.StateInterfaceRef,
		m.CreatedAt.UTC().Format(time.RFC3339),
		m.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: member %s in queue %q", queue.ErrConflict, m.InterfaceRef, m.QueueName)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: queue %q", queue.ErrNotFound, m.QueueName)
	}
	if err != nil {
		return fmt.Errorf("inserting member: %w", err)
	}

	s.logger.Debug("member inserted", "queue", m.QueueName, "interface", m.InterfaceRef)
	return nil
}

const memberColumns = `queue_name, interface_ref, display_name, penalty, paused,
	state_interface_ref, created_at, updated_at`

// scanMember scans a row into a Member.
func scanMember(scanner interface{ Scan(dest ...any) error }) (queue.Member, error) {
	var m queue.Member
	var paused int
	var createdAt, updatedAt string

	if err := scanner.Scan(
		&m.QueueName,
		&m.InterfaceRef,
		&m.DisplayName,
		&m.Penalty,
		&paused,
		&m.StateInterfaceRef,
		&createdAt,
		&updatedAt,
	); err != nil {
		return m, err
	}

	m.Paused = paused != 0

	var err error
	if m.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return m, fmt.Errorf("parsing created_at: %w", err)
	}
	if m.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return m, fmt.Errorf("parsing updated_at: %w", err)
	}
	return m, nil
}

// GetMember returns one membership by its composite identity.
func (s *SQLiteStore) GetMember(ctx context.Context, queueName, interfaceRef string) (*queue.Member, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM queue_members WHERE queue_name = ? AND interface_ref = ?",
		queueName, interfaceRef,
	)

	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: member %s in queue %q", queue.ErrNotFound, interfaceRef, queueName)
	}
	if err != nil {
		return nil, fmt.Errorf("querying member: %w", err)
	}
	return &m, nil
}

// ListMembers returns the memberships of one queue ordered by penalty,
// then interface, matching ring preference order.
func (s *SQLiteStore) ListMembers(ctx context.Context, queueName string) ([]queue.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM queue_members WHERE queue_name = ? ORDER BY penalty, interface_ref",
		queueName,
	)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	members := []queue.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return members, nil
}

// SaveMember updates the mutable fields of an existing membership.
func (s *SQLiteStore) SaveMember(ctx context.Context, m *queue.Member) error {
	query := `
		UPDATE queue_members
		SET display_name = ?, penalty = ?, paused = ?, state_interface_ref = ?, updated_at = ?
		WHERE queue_name = ? AND interface_ref = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		m.DisplayName,
		m.Penalty,
		boolToInt(m.Paused),
		m.StateInterfaceRef,
		m.UpdatedAt.UTC().Format(time.RFC3339),
		m.QueueName,
		m.InterfaceRef,
	)
	if err != nil {
		return fmt.Errorf("updating member: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("member %s in queue %q", m.InterfaceRef, m.QueueName))
}

// RemoveMember deletes a membership.
func (s *SQLiteStore) RemoveMember(ctx context.Context, queueName, interfaceRef string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM queue_members WHERE queue_name = ? AND interface_ref = ?",
		queueName, interfaceRef,
	)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("member %s in queue %q", interfaceRef, queueName))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
