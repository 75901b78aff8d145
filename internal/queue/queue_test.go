// ABOUTME: Tests for queue and member validation rules
// ABOUTME: Covers strategy checks, interface reference parsing and partial updates

package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQueue() Queue {
	return Queue{
		Name:               "support",
		Strategy:           StrategyLeastRecent,
		RingTimeoutSeconds: 15,
		AnnouncePosition:   AnnouncePositionNo,
	}
}

func TestQueueValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		q := validQueue()
		assert.NoError(t, q.Validate())
	})

	t.Run("missing name", func(t *testing.T) {
		q := validQueue()
		q.Name = ""
		assert.ErrorIs(t, q.Validate(), ErrValidation)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		q := validQueue()
		q.Strategy = "round-robin-ish"
		assert.ErrorIs(t, q.Validate(), ErrValidation)
	})

	t.Run("unknown announce position", func(t *testing.T) {
		q := validQueue()
		q.AnnouncePosition = "sometimes"
		assert.ErrorIs(t, q.Validate(), ErrValidation)
	})

	t.Run("negative timers", func(t *testing.T) {
		q := validQueue()
		q.WrapUpSeconds = -1
		assert.ErrorIs(t, q.Validate(), ErrValidation)
	})
}

func TestValidStrategy(t *testing.T) {
	for _, s := range Strategies {
		assert.True(t, ValidStrategy(s), "strategy %s", s)
	}
	assert.False(t, ValidStrategy("bogus"))
}

func TestUpdateApply(t *testing.T) {
	q := validQueue()
	q.MaxWaiting = 10

	strategy := StrategyRandom
	ringTimeout := 30
	upd := Update{
		Strategy:           &strategy,
		RingTimeoutSeconds: &ringTimeout,
	}
	upd.Apply(&q)

	assert.Equal(t, StrategyRandom, q.Strategy)
	assert.Equal(t, 30, q.RingTimeoutSeconds)
	// Untouched fields keep their values.
	assert.Equal(t, 10, q.MaxWaiting)
	assert.Equal(t, "support", q.Name)
}

func TestMemberValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		m := Member{QueueName: "support", InterfaceRef: "PJSIP/alice"}
		assert.NoError(t, m.Validate())
	})

	t.Run("bad interface ref", func(t *testing.T) {
		m := Member{QueueName: "support", InterfaceRef: "alice"}
		assert.ErrorIs(t, m.Validate(), ErrValidation)
	})

	t.Run("bad state interface ref", func(t *testing.T) {
		m := Member{QueueName: "support", InterfaceRef: "PJSIP/alice", StateInterfaceRef: "nope"}
		assert.ErrorIs(t, m.Validate(), ErrValidation)
	})

	t.Run("negative penalty", func(t *testing.T) {
		m := Member{QueueName: "support", InterfaceRef: "PJSIP/alice", Penalty: -1}
		assert.ErrorIs(t, m.Validate(), ErrValidation)
	})
}

func TestParseInterfaceRef(t *testing.T) {
	tech, resource, err := ParseInterfaceRef("PJSIP/alice")
	require.NoError(t, err)
	assert.Equal(t, "PJSIP", tech)
	assert.Equal(t, "alice", resource)

	// Resource may itself contain a slash.
	tech, resource, err = ParseInterfaceRef("LOCAL/1001@queues")
	require.NoError(t, err)
	assert.Equal(t, "LOCAL", tech)
	assert.Equal(t, "1001@queues", resource)

	for _, bad := range []string{"", "alice", "/alice", "PJSIP/", "pjsip/alice", "PJ SIP/alice"} {
		_, _, err := ParseInterfaceRef(bad)
		assert.ErrorIs(t, err, ErrValidation, "ref %q", bad)
	}
}
