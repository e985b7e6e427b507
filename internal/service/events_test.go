package service

import (
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	ch := make(chan Event, 4)
	bus.Subscribe(ch)

	var handled []Event
	done := bus.Attach(func(e Event) {
		handled = append(handled, e)
	})

	bus.Publish(Event{Type: EventDomainStarted, Domain: "example.com"})
	bus.Publish(Event{Type: EventVulnerable, Domain: "example.com", NameServer: "ns1.example.com", Payload: 3})
	bus.Close()
	<-done

	if len(handled) != 2 {
		t.Fatalf("expected 2 handled events, got %d", len(handled))
	}
	if handled[1].Payload.(int) != 3 {
		t.Errorf("expected payload 3, got %v", handled[1].Payload)
	}

	var received int
	for range ch {
		received++
	}
	if received != 2 {
		t.Errorf("expected 2 events on channel, got %d", received)
	}
}

func TestEventBusPublishAfterClose(t *testing.T) {
	bus := NewEventBus()
	done := bus.Attach(func(Event) {})
	bus.Close()
	bus.Close()

	// must not panic on a closed channel
	bus.Publish(Event{Type: EventDomainFinished})
	<-done
}
