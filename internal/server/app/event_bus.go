package app

import (
	"sync"

	"kanban/internal/logging"
	"kanban/internal/metrics"
	"kanban/internal/server/ports"
)

// EventBus fans board events out to live subscribers. Each subscriber owns
// an unbounded FIFO inbox drained by its own pump goroutine, so a slow or
// never-draining consumer cannot block publishers or its peers. Events are
// never persisted and never replayed.
//
// The bus is an explicitly constructed dependency with its own lifecycle;
// there is no package-level instance.
type EventBus struct {
	mu          sync.Mutex
	subscribers []*Subscriber
	logger      logging.Logger
	metrics     *metrics.Metrics
}

// BusOption configures an EventBus.
type BusOption func(*EventBus)

// WithBusMetrics attaches prometheus metrics to the bus.
func WithBusMetrics(m *metrics.Metrics) BusOption {
	return func(b *EventBus) { b.metrics = m }
}

// WithBusLogger overrides the bus logger.
func WithBusLogger(logger logging.Logger) BusOption {
	return func(b *EventBus) { b.logger = logger }
}

// NewEventBus creates an empty bus.
func NewEventBus(opts ...BusOption) *EventBus {
	bus := &EventBus{logger: logging.NewComponentLogger("EventBus")}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Subscriber is one registered inbox. Read delivered events from Events();
// the channel closes after Unsubscribe.
type Subscriber struct {
	mu     sync.Mutex
	queue  []ports.Event
	notify chan struct{}
	done   chan struct{}
	out    chan ports.Event
	closed bool
}

// Events returns the delivery channel. Events arrive in publish order.
func (s *Subscriber) Events() <-chan ports.Event {
	return s.out
}

func (s *Subscriber) enqueue(event ports.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, event)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// pump moves events from the unbounded queue to the out channel, blocking
// on the consumer without ever blocking the publisher.
func (s *Subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		event := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- event:
		case <-s.done:
			return
		}
	}
}

// Subscribe registers a new inbox. Subscribers receive every event
// published after registration, in publish order.
func (b *EventBus) Subscribe() *Subscriber {
	sub := &Subscriber{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan ports.Event),
	}
	go sub.pump()

	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	count := len(b.subscribers)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.ActiveSubscribers.Set(float64(count))
	}
	b.logger.Debug("Subscriber registered (total: %d)", count)
	return sub
}

// Unsubscribe removes the inbox from the registry and closes its delivery
// channel. Idempotent: removing an unknown subscriber is a no-op.
func (b *EventBus) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	removed := false
	for i, candidate := range b.subscribers {
		if candidate == sub {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			removed = true
			break
		}
	}
	count := len(b.subscribers)
	b.mu.Unlock()

	if !removed {
		return
	}

	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.done)
	}
	sub.mu.Unlock()

	if b.metrics != nil {
		b.metrics.ActiveSubscribers.Set(float64(count))
	}
	b.logger.Debug("Subscriber removed (remaining: %d)", count)
}

// Publish delivers the event to every currently registered inbox in
// registration order. Publish calls are serialized, which gives every
// subscriber the same inter-publish ordering.
func (b *EventBus) Publish(event ports.Event) {
	b.mu.Lock()
	for _, sub := range b.subscribers {
		sub.enqueue(event)
	}
	delivered := len(b.subscribers)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()
		b.metrics.EventsDelivered.Add(float64(delivered))
	}
}

// SubscriberCount returns the number of registered inboxes.
func (b *EventBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// PublishTaskEvent publishes a task_* event carrying the full task snapshot.
func (b *EventBus) PublishTaskEvent(eventType ports.EventType, task *ports.Task) {
	b.Publish(ports.Event{Type: eventType, Data: ports.TaskEventData(task)})
}

// PublishAgentLog publishes one agent log entry tagged with its run and task.
func (b *EventBus) PublishAgentLog(taskID, runID string, entry ports.LogEntry) {
	b.Publish(ports.Event{
		Type: ports.EventAgentLog,
		Data: map[string]any{
			"task_id":   taskID,
			"run_id":    runID,
			"timestamp": entry.Timestamp,
			"type":      entry.Kind,
			"content":   entry.Content,
		},
	})
}
