package event

import (
	"log"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
)

// Handler consumes a published event.
type Handler func(Event)

// wildcard is the pseudo event type used by SubscribeAll.
const wildcard = "*"

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous in-process pub-sub dispatcher. Publishers and
// subscribers never see each other, which keeps the sdk and bridge
// packages unaware of who consumes their events.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription // keyed by event type
	nextID atomic.Uint64
}

// NewBus returns an empty Bus ready for use.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers handler for one event type and returns an ID
// accepted by Unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID.Add(1)
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})
	return strconv.FormatUint(id, 10)
}

// SubscribeAll registers handler for every event type. The returned ID
// works with Unsubscribe like any other.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes the subscription with the given ID, reporting
// whether it existed.
func (b *Bus) Unsubscribe(id string) bool {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		for i := range subs {
			if subs[i].id == n {
				b.subs[eventType] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish delivers event to every handler subscribed to its type, then
// to every SubscribeAll handler, each group in registration order. A
// panicking handler does not stop delivery to the rest.
func (b *Bus) Publish(event Event) {
	// Copy matching subscriptions under the read lock so handlers run
	// without holding it. Handlers may subscribe or publish themselves.
	b.mu.RLock()
	eventType := event.EventType()
	matched := make([]subscription, 0, len(b.subs[eventType])+len(b.subs[wildcard]))
	matched = append(matched, b.subs[eventType]...)
	matched = append(matched, b.subs[wildcard]...)
	b.mu.RUnlock()

	for _, sub := range matched {
		b.safeCall(sub.handler, event)
	}
}

// safeCall runs one handler, converting a panic into a logged error
// that names the event type and carries the stack.
func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: %s handler panicked: %v\n%s", event.EventType(), r, debug.Stack())
		}
	}()
	handler(event)
}

// Clear drops every subscription.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscription)
}

// SubscriptionCount returns the number of active subscriptions across
// all event types.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, subs := range b.subs {
		total += len(subs)
	}
	return total
}
