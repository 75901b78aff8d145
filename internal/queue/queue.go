// ABOUTME: Call-distribution domain model: queues, ring strategies, memberships
// ABOUTME: Validation rules live here; the ringing itself happens in the control plane

package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation marks malformed input: bad interface reference, out of
// range penalty, unknown strategy. Wrapped with detail; match with
// errors.Is.
var ErrValidation = errors.New("validation failed")

// Strategy selects how waiting calls are distributed to members.
type Strategy string

const (
	StrategyRingAll     Strategy = "ringall"
	StrategyLeastRecent Strategy = "leastrecent"
	StrategyFewestCalls Strategy = "fewestcalls"
	StrategyRandom      Strategy = "random"
	StrategyRRMemory    Strategy = "rrmemory"
	StrategyLinear      Strategy = "linear"
	StrategyWRandom     Strategy = "wrandom"
)

// Strategies lists every valid strategy.
var Strategies = []Strategy{
	StrategyRingAll,
	StrategyLeastRecent,
	StrategyFewestCalls,
	StrategyRandom,
	StrategyRRMemory,
	StrategyLinear,
	StrategyWRandom,
}

// ValidStrategy reports whether s is a known strategy.
func ValidStrategy(s Strategy) bool {
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}
	return false
}

// AnnouncePosition controls whether waiting callers hear their queue
// position.
type AnnouncePosition string

const (
	AnnouncePositionYes   AnnouncePosition = "yes"
	AnnouncePositionNo    AnnouncePosition = "no"
	AnnouncePositionLimit AnnouncePosition = "limit"
	AnnouncePositionMore  AnnouncePosition = "more"
)

// ValidAnnouncePosition reports whether p is a known announce mode.
func ValidAnnouncePosition(p AnnouncePosition) bool {
	switch p {
	case AnnouncePositionYes, AnnouncePositionNo, AnnouncePositionLimit, AnnouncePositionMore:
		return true
	}
	return false
}

// Queue is one call-distribution policy. Name is the unique, immutable
// identifier.
type Queue struct {
	Name                     string           `json:"name"`
	Strategy                 Strategy         `json:"strategy"`
	RingTimeoutSeconds       int              `json:"ring_timeout_seconds"`
	WrapUpSeconds            int              `json:"wrap_up_seconds"`
	MaxWaiting               int              `json:"max_waiting"` // 0 = unbounded
	ServiceLevelSeconds      int              `json:"service_level_seconds"`
	MusicOnHoldClass         string           `json:"music_on_hold_class"`
	AnnounceFrequencySeconds int              `json:"announce_frequency_seconds"`
	AnnouncePosition         AnnouncePosition `json:"announce_position"`
	CreatedAt                time.Time        `json:"created_at"`
	UpdatedAt                time.Time        `json:"updated_at"`
}

// Validate checks a full queue spec.
func (q *Queue) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("%w: queue name is required", ErrValidation)
	}
	if !ValidStrategy(q.Strategy) {
		return fmt.Errorf("%w: unknown strategy %q", ErrValidation, q.Strategy)
	}
	if q.AnnouncePosition != "" && !ValidAnnouncePosition(q.AnnouncePosition) {
		return fmt.Errorf("%w: unknown announce position %q", ErrValidation, q.AnnouncePosition)
	}
	for name, v := range map[string]int{
		"ring_timeout_seconds":       q.RingTimeoutSeconds,
		"wrap_up_seconds":            q.WrapUpSeconds,
		"max_waiting":                q.MaxWaiting,
		"service_level_seconds":      q.ServiceLevelSeconds,
		"announce_frequency_seconds": q.AnnounceFrequencySeconds,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrValidation, name)
		}
	}
	return nil
}

// Update is a partial queue mutation. Nil fields are left unchanged.
// Name itself is not updatable.
type Update struct {
	Strategy                 *Strategy
	RingTimeoutSeconds       *int
	WrapUpSeconds            *int
	MaxWaiting               *int
	ServiceLevelSeconds      *int
	MusicOnHoldClass         *string
	AnnounceFrequencySeconds *int
	AnnouncePosition         *AnnouncePosition
}

// Apply merges the update onto q.
func (u Update) Apply(q *Queue) {
	if u.Strategy != nil {
		q.Strategy = *u.Strategy
	}
	if u.RingTimeoutSeconds != nil {
		q.RingTimeoutSeconds = *u.RingTimeoutSeconds
	}
	if u.WrapUpSeconds != nil {
		q.WrapUpSeconds = *u.WrapUpSeconds
	}
	if u.MaxWaiting != nil {
		q.MaxWaiting = *u.MaxWaiting
	}
	if u.ServiceLevelSeconds != nil {
		q.ServiceLevelSeconds = *u.ServiceLevelSeconds
	}
	if u.MusicOnHoldClass != nil {
		q.MusicOnHoldClass = *u.MusicOnHoldClass
	}
	if u.AnnounceFrequencySeconds != nil {
		q.AnnounceFrequencySeconds = *u.AnnounceFrequencySeconds
	}
	if u.AnnouncePosition != nil {
		q.AnnouncePosition = *u.AnnouncePosition
	}
}

// Member is one endpoint's membership in one queue. Identity is the
// (QueueName, InterfaceRef) pair.
type Member struct {
	QueueName         string    `json:"queue_name"`
	InterfaceRef      string    `json:"interface_ref"` // "TECH/resource"
	DisplayName       string    `json:"display_name"`
	Penalty           int       `json:"penalty"` // lower is preferred
	Paused            bool      `json:"paused"`
	StateInterfaceRef string    `json:"state_interface_ref"` // defaults to InterfaceRef
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate checks a membership spec.
func (m *Member) Validate() error {
	if _, _, err := ParseInterfaceRef(m.InterfaceRef); err != nil {
		return err
	}
	if m.StateInterfaceRef != "" && m.StateInterfaceRef != m.InterfaceRef {
		if _, _, err := ParseInterfaceRef(m.StateInterfaceRef); err != nil {
			return err
		}
	}
	if m.Penalty < 0 {
		return fmt.Errorf("%w: penalty must not be negative", ErrValidation)
	}
	return nil
}

// ParseInterfaceRef splits an interface reference of the form
// "TECH/resource" into its technology and resource address.
func ParseInterfaceRef(ref string) (tech, resource string, err error) {
	tech, resource, ok := strings.Cut(ref, "/")
	if !ok || tech == "" || resource == "" {
		return "", "", fmt.Errorf("%w: interface reference %q must be TECH/resource", ErrValidation, ref)
	}
	for _, r := range tech {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", "", fmt.Errorf("%w: interface technology %q must be uppercase alphanumeric", ErrValidation, tech)
		}
	}
	return tech, resource, nil
}
