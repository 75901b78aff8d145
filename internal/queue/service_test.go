// ABOUTME: Tests for the queue service invariants and audit emission
// ABOUTME: Covers CRUD, membership rules, pause idempotence and one audit record per mutation

package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testActor = Actor{ID: "admin-1", SourceAddr: "10.0.0.5:41000"}

func newTestService() (*Service, *MockStore, *MockDirectory) {
	store := NewMockStore()
	dir := NewMockDirectory("PJSIP/alice", "PJSIP/bob")
	return NewService(store, dir, nil), store, dir
}

func TestCreateQueue(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyLeastRecent})
	require.NoError(t, err)
	assert.Equal(t, "support", created.Name)
	assert.Equal(t, AnnouncePositionNo, created.AnnouncePosition, "announce position defaults to no")
	assert.False(t, created.CreatedAt.IsZero())

	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, AuditCreateQueue, entries[0].Action)
	assert.Equal(t, "queue", entries[0].TargetType)
	assert.Equal(t, "support", entries[0].TargetID)
	assert.Equal(t, "admin-1", entries[0].ActorID)
	assert.Nil(t, entries[0].OldValue)
	assert.NotNil(t, entries[0].NewValue)
}

func TestCreateQueue_DuplicateName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)

	_, err = svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRandom})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateQueue_Invalid(t *testing.T) {
	svc, store, _ := newTestService()

	_, err := svc.CreateQueue(context.Background(), testActor, Queue{Name: "support", Strategy: "bogus"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, store.AuditEntries(), "failed mutations emit no audit record")
}

func TestUpdateQueue(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)

	strategy := StrategyRRMemory
	updated, err := svc.UpdateQueue(ctx, testActor, "support", Update{Strategy: &strategy})
	require.NoError(t, err)
	assert.Equal(t, StrategyRRMemory, updated.Strategy)

	entries := store.AuditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, AuditUpdateQueue, entries[1].Action)
	assert.NotNil(t, entries[1].OldValue)
	assert.NotNil(t, entries[1].NewValue)
}

func TestUpdateQueue_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	strategy := StrategyRandom
	_, err := svc.UpdateQueue(context.Background(), testActor, "ghost", Update{Strategy: &strategy})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateQueue_InvalidResult(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)

	bad := Strategy("bogus")
	_, err = svc.UpdateQueue(ctx, testActor, "support", Update{Strategy: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	// The stored queue is untouched.
	q, err := svc.GetQueue(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, StrategyRingAll, q.Strategy)
}

func TestDeleteQueue_CascadesMembers(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteQueue(ctx, testActor, "support"))

	_, err = svc.GetQueue(ctx, "support")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ListMembers(ctx, "support")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddMember(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)

	added, err := svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice", Penalty: 2})
	require.NoError(t, err)
	assert.Equal(t, "PJSIP/alice", added.StateInterfaceRef, "state interface defaults to the interface ref")
	assert.False(t, added.Paused)

	entries := store.AuditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, AuditAddMember, entries[1].Action)
	assert.Equal(t, "member", entries[1].TargetType)
	assert.Equal(t, "support/PJSIP/alice", entries[1].TargetID)
}

func TestAddMember_QueueMissing(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AddMember(context.Background(), testActor, Member{QueueName: "ghost", InterfaceRef: "PJSIP/alice"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddMember_EndpointUnknown(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddMember_DirectoryError(t *testing.T) {
	svc, _, dir := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)

	dir.SetErr(errors.New("control plane unreachable"))
	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "directory failures are not membership 404s")
}

func TestAddMember_Duplicate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAddMember_AfterRemove(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice"})
	require.NoError(t, err)

	// Removal clears the uniqueness constraint for the interface.
	require.NoError(t, svc.RemoveMember(ctx, testActor, "support", "PJSIP/alice"))

	member, err := svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice"})
	require.NoError(t, err)
	assert.Equal(t, "PJSIP/alice", member.InterfaceRef)

	members, err := svc.ListMembers(ctx, "support")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRemoveMember(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMember(ctx, testActor, "support", "PJSIP/alice"))

	err = svc.RemoveMember(ctx, testActor, "support", "PJSIP/alice")
	assert.ErrorIs(t, err, ErrNotFound)

	entries := store.AuditEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, AuditRemoveMember, entries[2].Action)
	assert.NotNil(t, entries[2].OldValue)
	assert.Nil(t, entries[2].NewValue)
}

func TestSetPaused(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice"})
	require.NoError(t, err)

	member, err := svc.SetPaused(ctx, testActor, "support", "PJSIP/alice", true)
	require.NoError(t, err)
	assert.True(t, member.Paused)

	entries := store.AuditEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, AuditPauseMember, entries[2].Action)
}

func TestSetPaused_Idempotent(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice"})
	require.NoError(t, err)
	before := len(store.AuditEntries())

	// Already unpaused: success, no audit record.
	member, err := svc.SetPaused(ctx, testActor, "support", "PJSIP/alice", false)
	require.NoError(t, err)
	assert.False(t, member.Paused)
	assert.Len(t, store.AuditEntries(), before, "no-op pause emits no audit record")
}

func TestSetPaused_MemberMissing(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)

	_, err = svc.SetPaused(ctx, testActor, "support", "PJSIP/ghost", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMembers_OrderedByPenalty(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, testActor, Queue{Name: "support", Strategy: StrategyRingAll})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/bob", Penalty: 5})
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, testActor, Member{QueueName: "support", InterfaceRef: "PJSIP/alice", Penalty: 1})
	require.NoError(t, err)

	members, err := svc.ListMembers(ctx, "support")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "PJSIP/alice", members[0].InterfaceRef)
	assert.Equal(t, "PJSIP/bob", members[1].InterfaceRef)
}
