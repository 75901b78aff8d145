// ABOUTME: Queue and membership persistence methods for the SQLite store
// ABOUTME: Uniqueness maps to ErrConflict, missing rows to ErrNotFound

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/netbyu/pbx-gateway/internal/queue"
)

// CreateQueue inserts a new queue. Returns queue.ErrConflict if the
// name is taken.
func (s *SQLiteStore) CreateQueue(ctx context.Context, q *queue.Queue) error {
	query := `
		INSERT INTO queues (name, strategy, ring_timeout_seconds, wrap_up_seconds, max_waiting,
			service_level_seconds, music_on_hold_class, announce_frequency_seconds, announce_position,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		q.Name,
		string(q.Strategy),
		q.RingTimeoutSeconds,
		q.WrapUpSeconds,
		q.MaxWaiting,
		q.ServiceLevelSeconds,
		q.MusicOnHoldClass,
		q.AnnounceFrequencySeconds,
		string(q.AnnouncePosition),
		q.CreatedAt.UTC().Format(time.RFC3339),
		q.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: queue %q", queue.ErrConflict, q.Name)
	}
	if err != nil {
		return fmt.Errorf("inserting queue: %w", err)
	}

	s.logger.Debug("queue inserted", "queue", q.Name)
	return nil
}

const queueColumns = `name, strategy, ring_timeout_seconds, wrap_up_seconds, max_waiting,
	service_level_seconds, music_on_hold_class, announce_frequency_seconds, announce_position,
	created_at, updated_at`

// scanQueue scans a row into a Queue.
func scanQueue(scanner interface{ Scan(dest ...any) error }) (queue.Queue, error) {
	var q queue.Queue
	var strategy, announce, createdAt, updatedAt string

	if err := scanner.Scan(
		&q.Name,
		&strategy,
		&q.RingTimeoutSeconds,
		&q.WrapUpSeconds,
		&q.MaxWaiting,
		&q.ServiceLevelSeconds,
		&q.MusicOnHoldClass,
		&q.AnnounceFrequencySeconds,
		&announce,
		&createdAt,
		&updatedAt,
	); err != nil {
		return q, err
	}

	q.Strategy = queue.Strategy(strategy)
	q.AnnouncePosition = queue.AnnouncePosition(announce)

	var err error
	if q.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return q, fmt.Errorf("parsing created_at: %w", err)
	}
	if q.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return q, fmt.Errorf("parsing updated_at: %w", err)
	}
	return q, nil
}

// GetQueue returns one queue by name.
func (s *SQLiteStore) GetQueue(ctx context.Context, name string) (*queue.Queue, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+queueColumns+" FROM queues WHERE name = ?", name)

	q, err := scanQueue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: queue %q", queue.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying queue: %w", err)
	}
	return &q, nil
}

// ListQueues returns all queues ordered by name.
func (s *SQLiteStore) ListQueues(ctx context.Context) ([]queue.Queue, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+queueColumns+" FROM queues ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying queues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	queues := []queue.Queue{}
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning queue: %w", err)
		}
		queues = append(queues, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating queues: %w", err)
	}
	return queues, nil
}

// SaveQueue updates every mutable field of an existing queue.
func (s *SQLiteStore) SaveQueue(ctx context.Context, q *queue.Queue) error {
	query := `
		UPDATE queues
		SET strategy = ?, ring_timeout_seconds = ?, wrap_up_seconds = ?, max_waiting = ?,
			service_level_seconds = ?, music_on_hold_class = ?, announce_frequency_seconds = ?,
			announce_position = ?, updated_at = ?
		WHERE name = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		string(q.Strategy),
		q.RingTimeoutSeconds,
		q.WrapUpSeconds,
		q.MaxWaiting,
		q.ServiceLevelSeconds,
		q.MusicOnHoldClass,
		q.AnnounceFrequencySeconds,
		string(q.AnnouncePosition),
		q.UpdatedAt.UTC().Format(time.RFC3339),
		q.Name,
	)
	if err != nil {
		return fmt.Errorf("updating queue: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("queue %q", q.Name))
}

// DeleteQueue removes a queue; memberships cascade via foreign key.
func (s *SQLiteStore) DeleteQueue(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM queues WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting queue: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("queue %q", name))
}

// requireAffected converts a zero-row write into ErrNotFound.
func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", queue.ErrNotFound, what)
	}
	return nil
}
