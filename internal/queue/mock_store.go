// ABOUTME: In-memory Store and EndpointDirectory implementations for testing
// ABOUTME: Mirror the persistence semantics without touching SQLite

package queue

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	queues  map[string]*Queue
	members map[string]map[string]*Member // queue name -> interface ref
	audit   []AuditEntry
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		queues:  make(map[string]*Queue),
		members: make(map[string]map[string]*Member),
	}
}

func (m *MockStore) CreateQueue(ctx context.Context, q *Queue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[q.Name]; ok {
		return ErrConflict
	}
	cp := *q
	m.queues[q.Name] = &cp
	m.members[q.Name] = make(map[string]*Member)
	return nil
}

func (m *MockStore) GetQueue(ctx context.Context, name string) (*Queue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.queues[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *MockStore) ListQueues(ctx context.Context) ([]Queue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Queue, 0, len(m.queues))
	for _, q := range m.queues {
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockStore) SaveQueue(ctx context.Context, q *Queue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[q.Name]; !ok {
		return ErrNotFound
	}
	cp := *q
	m.queues[q.Name] = &cp
	return nil
}

func (m *MockStore) DeleteQueue(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.queues[name]; !ok {
		return ErrNotFound
	}
	delete(m.queues, name)
	delete(m.members, name)
	return nil
}

func (m *MockStore) AddMember(ctx context.Context, member *Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs, ok := m.members[member.QueueName]
	if !ok {
		return ErrNotFound
	}
	if _, exists := refs[member.InterfaceRef]; exists {
		return ErrConflict
	}
	cp := *member
	refs[member.InterfaceRef] = &cp
	return nil
}

func (m *MockStore) GetMember(ctx context.Context, queueName, interfaceRef string) (*Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.members[queueName][interfaceRef]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *MockStore) ListMembers(ctx context.Context, queueName string) ([]Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	refs := m.members[queueName]
	out := make([]Member, 0, len(refs))
	for _, mem := range refs {
		out = append(out, *mem)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Penalty != out[j].Penalty {
			return out[i].Penalty < out[j].Penalty
		}
		return out[i].InterfaceRef < out[j].InterfaceRef
	})
	return out, nil
}

func (m *MockStore) SaveMember(ctx context.Context, member *Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs, ok := m.members[member.QueueName]
	if !ok {
		return ErrNotFound
	}
	if _, exists := refs[member.InterfaceRef]; !exists {
		return ErrNotFound
	}
	cp := *member
	refs[member.InterfaceRef] = &cp
	return nil
}

func (m *MockStore) RemoveMember(ctx context.Context, queueName, interfaceRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refs, ok := m.members[queueName]
	if !ok {
		return ErrNotFound
	}
	if _, exists := refs[interfaceRef]; !exists {
		return ErrNotFound
	}
	delete(refs, interfaceRef)
	return nil
}

func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, *e)
	return nil
}

func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuditEntry, 0, len(m.audit))
	for _, e := range m.audit {
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.ActorID != nil && e.ActorID != *f.ActorID {
			continue
		}
		if f.TargetType != nil && e.TargetType != *f.TargetType {
			continue
		}
		if f.TargetID != nil && e.TargetID != *f.TargetID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// AuditEntries returns a copy of the appended audit log, oldest first.
func (m *MockStore) AuditEntries() []AuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AuditEntry, len(m.audit))
	copy(out, m.audit)
	return out
}

var _ Store = (*MockStore)(nil)

// MockDirectory is an EndpointDirectory with a fixed endpoint set.
type MockDirectory struct {
	mu        sync.RWMutex
	endpoints map[string]bool // "tech/resource"
	err       error
}

// NewMockDirectory creates a directory containing the given refs.
func NewMockDirectory(refs ...string) *MockDirectory {
	d := &MockDirectory{endpoints: make(map[string]bool)}
	for _, ref := range refs {
		d.endpoints[ref] = true
	}
	return d
}

// SetErr makes every lookup fail with err.
func (d *MockDirectory) SetErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *MockDirectory) EndpointExists(ctx context.Context, tech, resource string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.err != nil {
		return false, d.err
	}
	return d.endpoints[tech+"/"+resource], nil
}

var _ EndpointDirectory = (*MockDirectory)(nil)
