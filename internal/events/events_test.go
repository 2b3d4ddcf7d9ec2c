package events

import (
	"testing"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	b := NewBus()
	a := b.Subscribe(4)
	c := b.Subscribe(4)

	b.Publish(DecisionMade, "payload")

	for _, sub := range []<-chan Event{a, c} {
		ev := <-sub
		if ev.Type != DecisionMade {
			t.Errorf("type = %s, want %s", ev.Type, DecisionMade)
		}
		if ev.Payload != "payload" {
			t.Errorf("payload = %v", ev.Payload)
		}
		if ev.At.IsZero() {
			t.Error("event timestamp not set")
		}
	}
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(1)

	// Second publish overflows the buffer; the call must return anyway.
	b.Publish(StateUpdated, 1)
	b.Publish(StateUpdated, 2)

	ev := <-sub
	if ev.Payload != 1 {
		t.Errorf("payload = %v, want 1", ev.Payload)
	}
	select {
	case ev := <-sub:
		t.Errorf("unexpected second event: %v", ev.Payload)
	default:
	}
}

func TestBus_CloseEndsSubscribers(t *testing.T) {
	b := NewBus()
	sub := b.Subscribe(1)
	b.Close()

	if _, ok := <-sub; ok {
		t.Error("expected closed channel")
	}

	// Publish after close is a no-op, not a panic.
	b.Publish(ErrorEvent, "late")
	b.Close()
}
