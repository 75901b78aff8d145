// ABOUTME: Queue-model operations with uniqueness/existence invariants and audit emission
// ABOUTME: The management layer edits this model; the control plane executes the ringing

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Entity errors, shared by the service and its store implementations.
var (
	// ErrNotFound means the referenced queue or member does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means an entity with that unique identity already
	// exists (queue name, membership pair).
	ErrConflict = errors.New("already exists")
)

// Store persists queues, memberships and the audit log.
type Store interface {
	CreateQueue(ctx context.Context, q *Queue) error
	GetQueue(ctx context.Context, name string) (*Queue, error)
	ListQueues(ctx context.Context) ([]Queue, error)
	SaveQueue(ctx context.Context, q *Queue) error
	DeleteQueue(ctx context.Context, name string) error

	AddMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, queueName, interfaceRef string) (*Member, error)
	ListMembers(ctx context.Context, queueName string) ([]Member, error)
	SaveMember(ctx context.Context, m *Member) error
	RemoveMember(ctx context.Context, queueName, interfaceRef string) error

	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// EndpointDirectory answers whether an endpoint is currently known to
// the control plane. Memberships must reference live endpoints.
type EndpointDirectory interface {
	EndpointExists(ctx context.Context, tech, resource string) (bool, error)
}

// Service applies the membership invariants and writes one audit record
// per mutation.
type Service struct {
	store     Store
	endpoints EndpointDirectory
	logger    *slog.Logger
}

// NewService creates a queue service.
func NewService(store Store, endpoints EndpointDirectory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		endpoints: endpoints,
		logger:    logger.With("component", "queue"),
	}
}

// CreateQueue creates a new queue. Fails with ErrConflict if the name
// is taken; the name is immutable afterwards.
func (s *Service) CreateQueue(ctx context.Context, actor Actor, q Queue) (*Queue, error) {
	if q.AnnouncePosition == "" {
		q.AnnouncePosition = AnnouncePositionNo
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now

	if err := s.store.CreateQueue(ctx, &q); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, actor, AuditCreateQueue, "queue", q.Name, nil, q); err != nil {
		return nil, err
	}
	s.logger.Info("queue created", "queue", q.Name, "strategy", string(q.Strategy), "actor", actor.ID)
	return &q, nil
}

// UpdateQueue applies a partial update. The name itself cannot change.
func (s *Service) UpdateQueue(ctx context.Context, actor Actor, name string, upd Update) (*Queue, error) {
	existing, err := s.store.GetQueue(ctx, name)
	if err != nil {
		return nil, err
	}

	before := *existing
	upd.Apply(existing)
	existing.UpdatedAt = time.Now().UTC()
	if err := existing.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.SaveQueue(ctx, existing); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, actor, AuditUpdateQueue, "queue", name, before, *existing); err != nil {
		return nil, err
	}
	s.logger.Info("queue updated", "queue", name, "actor", actor.ID)
	return existing, nil
}

// DeleteQueue removes a queue and cascades to all of its memberships.
func (s *Service) DeleteQueue(ctx context.Context, actor Actor, name string) error {
	existing, err := s.store.GetQueue(ctx, name)
	if err != nil {
		return err
	}

	if err := s.store.DeleteQueue(ctx, name); err != nil {
		return err
	}

	if err := s.audit(ctx, actor, AuditDeleteQueue, "queue", name, *existing, nil); err != nil {
		return err
	}
	s.logger.Info("queue deleted", "queue", name, "actor", actor.ID)
	return nil
}

// GetQueue returns one queue.
func (s *Service) GetQueue(ctx context.Context, name string) (*Queue, error) {
	return s.store.GetQueue(ctx, name)
}

// ListQueues returns all queues.
func (s *Service) ListQueues(ctx context.Context) ([]Queue, error) {
	return s.store.ListQueues(ctx)
}

// AddMember adds an endpoint to a queue. The queue and the referenced
// endpoint must exist; the (queue, interface) pair must be new.
func (s *Service) AddMember(ctx context.Context, actor Actor, m Member) (*Member, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.StateInterfaceRef == "" {
		m.StateInterfaceRef = m.InterfaceRef
	}

	if _, err := s.store.GetQueue(ctx, m.QueueName); err != nil {
		return nil, err
	}

	tech, resource, err := ParseInterfaceRef(m.InterfaceRef)
	if err != nil {
		return nil, err
	}
	exists, err := s.endpoints.EndpointExists(ctx, tech, resource)
	if err != nil {
		return nil, fmt.Errorf("checking endpoint %s: %w", m.InterfaceRef, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: endpoint %s", ErrNotFound, m.InterfaceRef)
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.store.AddMember(ctx, &m); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, actor, AuditAddMember, "member", memberTarget(m.QueueName, m.InterfaceRef), nil, m); err != nil {
		return nil, err
	}
	s.logger.Info("member added", "queue", m.QueueName, "interface", m.InterfaceRef, "penalty", m.Penalty, "actor", actor.ID)
	return &m, nil
}

// RemoveMember removes a membership.
func (s *Service) RemoveMember(ctx context.Context, actor Actor, queueName, interfaceRef string) error {
	existing, err := s.store.GetMember(ctx, queueName, interfaceRef)
	if err != nil {
		return err
	}

	if err := s.store.RemoveMember(ctx, queueName, interfaceRef); err != nil {
		return err
	}

	if err := s.audit(ctx, actor, AuditRemoveMember, "member", memberTarget(queueName, interfaceRef), *existing, nil); err != nil {
		return err
	}
	s.logger.Info("member removed", "queue", queueName, "interface", interfaceRef, "actor", actor.ID)
	return nil
}

// SetPaused sets a member's paused flag. Setting the current value is
// an idempotent success, not an error.
func (s *Service) SetPaused(ctx context.Context, actor Actor, queueName, interfaceRef string, paused bool) (*Member, error) {
	existing, err := s.store.GetMember(ctx, queueName, interfaceRef)
	if err != nil {
		return nil, err
	}

	before := *existing
	if existing.Paused == paused {
		return existing, nil
	}

	existing.Paused = paused
	existing.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveMember(ctx, existing); err != nil {
		return nil, err
	}

	if err := s.audit(ctx, actor, AuditPauseMember, "member", memberTarget(queueName, interfaceRef), before, *existing); err != nil {
		return nil, err
	}
	s.logger.Info("member pause set", "queue", queueName, "interface", interfaceRef, "paused", paused, "actor", actor.ID)
	return existing, nil
}

// ListMembers returns the memberships of one queue.
func (s *Service) ListMembers(ctx context.Context, queueName string) ([]Member, error) {
	if _, err := s.store.GetQueue(ctx, queueName); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, queueName)
}

func (s *Service) audit(ctx context.Context, actor Actor, action AuditAction, targetType, targetID string, oldVal, newVal any) error {
	e := &AuditEntry{
		ActorID:    actor.ID,
		SourceAddr: actor.SourceAddr,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		OldValue:   oldVal,
		NewValue:   newVal,
	}
	if err := s.store.AppendAuditLog(ctx, e); err != nil {
		return fmt.Errorf("appending audit log: %w", err)
	}
	return nil
}

// ListAuditLog returns audit entries matching the filter, newest first.
func (s *Service) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	return s.store.ListAuditLog(ctx, f)
}

func memberTarget(queueName, interfaceRef string) string {
	return queueName + "/" + interfaceRef
}
