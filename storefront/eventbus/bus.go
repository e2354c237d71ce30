package eventbus

import (
	"sync"
)

// Handler receives a published event and its payload
type Handler func(event string, payload any)

// Bus is a small synchronous publish/subscribe hub. Handlers run on the
// publisher's goroutine in subscription order.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string][]subscription
}

type subscription struct {
	id      int
	handler Handler
}

// New creates an empty Bus
func New() *Bus {
	return &Bus{handlers: make(map[string][]subscription)}
}

// Subscribe registers handler for event and returns a function removing it
func (b *Bus) Subscribe(event string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(event, id) })
	}
}

func (b *Bus) unsubscribe(event string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[event]
	for i, s := range subs {
		if s.id == id {
			b.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.handlers[event]) == 0 {
		delete(b.handlers, event)
	}
}

// Publish calls every handler subscribed to event
func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[event]...)
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event, payload)
	}
}
