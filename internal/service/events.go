package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventDomainStarted    EventType = "domain_started"
	EventDomainSkipped    EventType = "domain_skipped"
	EventNameServerLinked EventType = "nameserver_linked"
	EventVulnerable       EventType = "vulnerable"
	EventDomainFinished   EventType = "domain_finished"
)

// Event represents something that happened during a scan
type Event struct {
	Type       EventType   `json:"type"`
	Domain     string      `json:"domain"`
	NameServer string      `json:"nameserver,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events. Delivery is
// blocking so that no finding is dropped; subscribers must keep draining
// their channel until Close.
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	closed      bool
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Attach runs handler for every event on its own goroutine. The returned
// channel is closed once the bus is closed and all events were handled.
func (eb *EventBus) Attach(handler func(Event)) <-chan struct{} {
	ch := make(chan Event, 64)
	done := make(chan struct{})
	eb.Subscribe(ch)

	go func() {
		defer close(done)
		for event := range ch {
			handler(event)
		}
	}()
	return done
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	for _, ch := range eb.subscribers {
		ch <- event
	}
}

// Close closes every subscriber channel. Later publishes are dropped.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for _, ch := range eb.subscribers {
		close(ch)
	}
}
