// ABOUTME: In-memory topic-keyed fan-out bus between the bridge and subscribers
// ABOUTME: Publish never blocks; a subscriber with a full queue is reported, not waited on

package event

import (
	"log/slog"
	"sync"

	"github.com/netbyu/pbx-gateway/internal/metrics"
)

// Bus provides single-producer/multi-consumer pub/sub for domain
// events. Subscribers register a channel they own per topic; one
// subscriber may register the same channel under several topics, giving
// it a single ordered queue for everything it watches.
//
// Publish is non-blocking by construction. A subscriber whose queue is
// full gets the event dropped and is reported through the slow-
// subscriber handler so the transport layer can disconnect it.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Topic]map[string]chan<- Event
	closed      bool

	onSlow func(subID string)
	logger *slog.Logger
}

// NewBus creates a bus. Pass nil logger for the default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[Topic]map[string]chan<- Event),
		logger:      logger.With("component", "bus"),
	}
}

// SetSlowSubscriberHandler registers the callback invoked (outside the
// bus lock) when a subscriber's queue is full at publish time. Must be
// set before the first Publish.
func (b *Bus) SetSlowSubscriberHandler(fn func(subID string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onSlow = fn
}

// Subscribe registers ch to receive events for topic. Subscribing the
// same (subID, topic) pair again is a no-op, which makes client-driven
// subscribe requests idempotent.
func (b *Bus) Subscribe(subID string, topic Topic, ch chan<- Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if _, ok := b.subscribers[topic]; !ok {
		b.subscribers[topic] = make(map[string]chan<- Event)
	}
	if _, ok := b.subscribers[topic][subID]; ok {
		return
	}
	b.subscribers[topic][subID] = ch

	b.logger.Debug("subscriber added", "topic", string(topic), "sub_id", subID)
}

// Unsubscribe removes subID from topic. Unsubscribing from a topic not
// held is a no-op.
func (b *Bus) Unsubscribe(subID string, topic Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(subID, topic)
}

// UnsubscribeAll removes subID from every topic it holds. Called when a
// connection closes; after it returns no further event is delivered to
// that subscriber.
func (b *Bus) UnsubscribeAll(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic := range b.subscribers {
		b.removeLocked(subID, topic)
	}
}

func (b *Bus) removeLocked(subID string, topic Topic) {
	subs, ok := b.subscribers[topic]
	if !ok {
		return
	}
	if _, exists := subs[subID]; !exists {
		return
	}
	delete(subs, subID)
	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}
	b.logger.Debug("subscriber removed", "topic", string(topic), "sub_id", subID)
}

// Publish fans ev out to every subscriber of its topic. Events for one
// topic keep their publish order for every subscriber because each
// subscriber has a single FIFO queue and Publish is called from the
// bridge's one delivery goroutine.
func (b *Bus) Publish(ev Event) {
	topic := ev.EventTopic()

	b.mu.RLock()
	subs := b.subscribers[topic]
	type target struct {
		id string
		ch chan<- Event
	}
	targets := make([]target, 0, len(subs))
	for id, ch := range subs {
		targets = append(targets, target{id: id, ch: ch})
	}
	b.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(string(topic)).Inc()

	var slow []string
	for _, t := range targets {
		select {
		case t.ch <- ev:
		default:
			metrics.EventsDropped.Inc()
			b.logger.Warn("subscriber queue full, dropping event",
				"topic", string(topic),
				"sub_id", t.id,
			)
			slow = append(slow, t.id)
		}
	}

	if b.onSlow != nil {
		for _, id := range slow {
			b.onSlow(id)
		}
	}
}

// PublishTo delivers ev to the subscribers of an explicit topic instead
// of the event's own. Used for identity-scoped notifications.
func (b *Bus) PublishTo(topic Topic, ev Event) {
	b.mu.RLock()
	subs := b.subscribers[topic]
	targets := make([]chan<- Event, 0, len(subs))
	for _, ch := range subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(string(topic)).Inc()

	for _, ch := range targets {
		select {
		case ch <- ev:
		default:
			metrics.EventsDropped.Inc()
		}
	}
}

// Close empties the subscription table. Subscriber channels are owned
// by their subscribers and are not closed here.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subscribers = make(map[Topic]map[string]chan<- Event)
	b.logger.Debug("bus closed")
}
