// ABOUTME: Tests for the SQLite store against an in-memory database
// ABOUTME: Covers queue/member round trips, constraint mapping and audit filtering

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netbyu/pbx-gateway/internal/queue"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testQueue(name string) *queue.Queue {
	now := time.Now().UTC().Truncate(time.Second)
	return &queue.Queue{
		Name:               name,
		Strategy:           queue.StrategyLeastRecent,
		RingTimeoutSeconds: 15,
		WrapUpSeconds:      5,
		MaxWaiting:         20,
		AnnouncePosition:   queue.AnnouncePositionNo,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func testMember(queueName, ref string) *queue.Member {
	now := time.Now().UTC().Truncate(time.Second)
	return &queue.Member{
		QueueName:         queueName,
		InterfaceRef:      ref,
		StateInterfaceRef: ref,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestQueueRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q := testQueue("support")
	q.MusicOnHoldClass = "default"
	require.NoError(t, s.CreateQueue(ctx, q))

	got, err := s.GetQueue(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, q.Name, got.Name)
	assert.Equal(t, q.Strategy, got.Strategy)
	assert.Equal(t, q.RingTimeoutSeconds, got.RingTimeoutSeconds)
	assert.Equal(t, q.MusicOnHoldClass, got.MusicOnHoldClass)
	assert.True(t, q.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateQueue_Conflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, testQueue("support")))
	err := s.CreateQueue(ctx, testQueue("support"))
	assert.ErrorIs(t, err, queue.ErrConflict)
}

func TestGetQueue_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetQueue(context.Background(), "ghost")
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestListQueues_OrderedByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, testQueue("sales")))
	require.NoError(t, s.CreateQueue(ctx, testQueue("billing")))

	queues, err := s.ListQueues(ctx)
	require.NoError(t, err)
	require.Len(t, queues, 2)
	assert.Equal(t, "billing", queues[0].Name)
	assert.Equal(t, "sales", queues[1].Name)
}

func TestListQueues_Empty(t *testing.T) {
	s := newTestStore(t)

	queues, err := s.ListQueues(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queues)
	assert.NotNil(t, queues)
}

func TestSaveQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q := testQueue("support")
	require.NoError(t, s.CreateQueue(ctx, q))

	q.Strategy = queue.StrategyRRMemory
	q.MaxWaiting = 50
	q.UpdatedAt = q.UpdatedAt.Add(time.Minute)
	require.NoError(t, s.SaveQueue(ctx, q))

	got, err := s.GetQueue(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, queue.StrategyRRMemory, got.Strategy)
	assert.Equal(t, 50, got.MaxWaiting)
}

func TestSaveQueue_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.SaveQueue(context.Background(), testQueue("ghost"))
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestDeleteQueue_CascadesMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, testQueue("support")))
	require.NoError(t, s.AddMember(ctx, testMember("support", "PJSIP/alice")))

	require.NoError(t, s.DeleteQueue(ctx, "support"))

	_, err := s.GetQueue(ctx, "support")
	assert.ErrorIs(t, err, queue.ErrNotFound)
	_, err = s.GetMember(ctx, "support", "PJSIP/alice")
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestDeleteQueue_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.DeleteQueue(context.Background(), "ghost")
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestMemberRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, testQueue("support")))

	m := testMember("support", "PJSIP/alice")
	m.DisplayName = "Alice"
	m.Penalty = 3
	m.Paused = true
	require.NoError(t, s.AddMember(ctx, m))

	got, err := s.GetMember(ctx, "support", "PJSIP/alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, 3, got.Penalty)
	assert.True(t, got.Paused)
	assert.Equal(t, "PJSIP/alice", got.StateInterfaceRef)
}

func TestAddMember_QueueMissing(t *testing.T) {
	s := newTestStore(t)

	err := s.AddMember(context.Background(), testMember("ghost", "PJSIP/alice"))
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestAddMember_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, testQueue("support")))
	require.NoError(t, s.AddMember(ctx, testMember("support", "PJSIP/alice")))

	err := s.AddMember(ctx, testMember("support", "PJSIP/alice"))
	assert.ErrorIs(t, err, queue.ErrConflict)
}

func TestListMembers_OrderedByPenaltyThenInterface(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, testQueue("support")))

	carol := testMember("support", "PJSIP/carol")
	carol.Penalty = 1
	alice := testMember("support", "PJSIP/alice")
	alice.Penalty = 1
	bob := testMember("support", "PJSIP/bob")
	bob.Penalty = 0
	for _, m := range []*queue.Member{carol, alice, bob} {
		require.NoError(t, s.AddMember(ctx, m))
	}

	members, err := s.ListMembers(ctx, "support")
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "PJSIP/bob", members[0].InterfaceRef)
	assert.Equal(t, "PJSIP/alice", members[1].InterfaceRef)
	assert.Equal(t, "PJSIP/carol", members[2].InterfaceRef)
}

func TestSaveMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, testQueue("support")))
	m := testMember("support", "PJSIP/alice")
	require.NoError(t, s.AddMember(ctx, m))

	m.Paused = true
	m.Penalty = 7
	m.UpdatedAt = m.UpdatedAt.Add(time.Minute)
	require.NoError(t, s.SaveMember(ctx, m))

	got, err := s.GetMember(ctx, "support", "PJSIP/alice")
	require.NoError(t, err)
	assert.True(t, got.Paused)
	assert.Equal(t, 7, got.Penalty)
}

func TestRemoveMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateQueue(ctx, testQueue("support")))
	require.NoError(t, s.AddMember(ctx, testMember("support", "PJSIP/alice")))

	require.NoError(t, s.RemoveMember(ctx, "support", "PJSIP/alice"))
	err := s.RemoveMember(ctx, "support", "PJSIP/alice")
	assert.ErrorIs(t, err, queue.ErrNotFound)

	// The primary key is freed; the same interface can join again.
	require.NoError(t, s.AddMember(ctx, testMember("support", "PJSIP/alice")))
}

func TestAppendAuditLog_GeneratesIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := &queue.AuditEntry{
		ActorID:    "admin-1",
		Action:     queue.AuditCreateQueue,
		TargetType: "queue",
		TargetID:   "support",
		NewValue:   map[string]any{"name": "support"},
	}
	require.NoError(t, s.AppendAuditLog(ctx, e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())

	entries, err := s.ListAuditLog(ctx, queue.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e.ID, entries[0].ID)
	assert.Equal(t, "admin-1", entries[0].ActorID)
	assert.Nil(t, entries[0].OldValue)
	require.NotNil(t, entries[0].NewValue)
	snapshot, ok := entries[0].NewValue.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "support", snapshot["name"])
}

func appendAudit(t *testing.T, s *SQLiteStore, actor string, action queue.AuditAction, targetType, targetID string, ts time.Time) {
	t.Helper()
	e := &queue.AuditEntry{
		ActorID:    actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Timestamp:  ts,
	}
	require.NoError(t, s.AppendAuditLog(context.Background(), e))
}

func TestListAuditLog_Filtering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	appendAudit(t, s, "admin-1", queue.AuditCreateQueue, "queue", "support", base)
	appendAudit(t, s, "admin-1", queue.AuditAddMember, "member", "support/PJSIP/alice", base.Add(time.Minute))
	appendAudit(t, s, "admin-2", queue.AuditDeleteQueue, "queue", "sales", base.Add(2*time.Minute))

	t.Run("newest first", func(t *testing.T) {
		entries, err := s.ListAuditLog(ctx, queue.AuditFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, queue.AuditDeleteQueue, entries[0].Action)
		assert.Equal(t, queue.AuditCreateQueue, entries[2].Action)
	})

	t.Run("by actor", func(t *testing.T) {
		actor := "admin-2"
		entries, err := s.ListAuditLog(ctx, queue.AuditFilter{ActorID: &actor})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "sales", entries[0].TargetID)
	})

	t.Run("by action", func(t *testing.T) {
		action := queue.AuditAddMember
		entries, err := s.ListAuditLog(ctx, queue.AuditFilter{Action: &action})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "support/PJSIP/alice", entries[0].TargetID)
	})

	t.Run("by target", func(t *testing.T) {
		targetType := "queue"
		targetID := "support"
		entries, err := s.ListAuditLog(ctx, queue.AuditFilter{TargetType: &targetType, TargetID: &targetID})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, queue.AuditCreateQueue, entries[0].Action)
	})

	t.Run("time window", func(t *testing.T) {
		since := base.Add(30 * time.Second)
		until := base.Add(90 * time.Second)
		entries, err := s.ListAuditLog(ctx, queue.AuditFilter{Since: &since, Until: &until})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, queue.AuditAddMember, entries[0].Action)
	})

	t.Run("limit", func(t *testing.T) {
		entries, err := s.ListAuditLog(ctx, queue.AuditFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("no matches is empty not nil", func(t *testing.T) {
		actor := "nobody"
		entries, err := s.ListAuditLog(ctx, queue.AuditFilter{ActorID: &actor})
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})
}

func TestNormalizeAuditLimit(t *testing.T) {
	assert.Equal(t, 100, normalizeAuditLimit(0))
	assert.Equal(t, 100, normalizeAuditLimit(-5))
	assert.Equal(t, 250, normalizeAuditLimit(250))
	assert.Equal(t, 1000, normalizeAuditLimit(5000))
}
