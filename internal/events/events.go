package events

import (
	"log"
	"sync"
	"time"
)

// #region event-types

// Type enumerates the outbound events the core exposes to UI and telemetry
// collaborators.
type Type string

const (
	StateUpdated       Type = "state-updated"
	PatternsDetected   Type = "patterns-detected"
	DecisionMade       Type = "decision-made"
	ExecutionCompleted Type = "execution-completed"
	OutcomeInferred    Type = "outcome-inferred"
	RuleAdapted        Type = "rule-adapted"
	ErrorEvent         Type = "error"
)

// Event carries one outbound notification with its subject entity.
type Event struct {
	Type    Type
	At      time.Time
	Payload any
}

// #endregion event-types

// #region bus

// Bus fans events out to subscribers. Publish never blocks the caller: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.Mutex
	subs   []chan Event
	closed bool
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a buffered subscriber channel.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, buffer)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers an event to every subscriber that has buffer space.
func (b *Bus) Publish(t Type, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	evt := Event{Type: t, At: time.Now(), Payload: payload}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[EVENTS] subscriber full, dropped %s", t)
		}
	}
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}

// #endregion bus
