// Package eventbus is the in-process publish/subscribe bus every manager
// talks through. It has no dependencies and is always constructed first.
package eventbus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	ErrBusClosed = errors.New("event bus is closed")
	ErrNilFunc   = errors.New("handler must not be nil")
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// Handler receives events for a topic.
type Handler func(Event)

type subscriber struct {
	id uint64
	fn Handler
}

// Bus delivers events synchronously, in subscription order.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscriber
	nextID      uint64
	published   atomic.Uint64
	closed      bool
	onError     func(error)
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]subscriber)}
}

// OnError sets where handler panics are reported. Without it a panicking
// handler is silently dropped so one subscriber cannot break delivery.
func (b *Bus) OnError(fn func(error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers fn for topic and returns a function removing it.
func (b *Bus) Subscribe(topic string, fn Handler) (func(), error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	b.nextID++
	id := b.nextID
	b.subscribers[topic] = append(b.subscribers[topic], subscriber{id: id, fn: fn})
	return func() { b.unsubscribe(topic, id) }, nil
}

func (b *Bus) unsubscribe(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[topic]
	for i, s := range subs {
		if s.id == id {
			b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every subscriber of topic.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := append([]subscriber(nil), b.subscribers[topic]...)
	onError := b.onError
	b.mu.RUnlock()

	b.published.Add(1)
	ev := Event{Topic: topic, Payload: payload}
	for _, s := range subs {
		deliver(s.fn, ev, onError)
	}
}

func deliver(fn Handler, ev Event, onError func(error)) {
	defer func() {
		if r := recover(); r != nil && onError != nil {
			onError(fmt.Errorf("event handler for %q panicked: %v", ev.Topic, r))
		}
	}()
	fn(ev)
}

// Published returns the number of events published so far.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Close drops all subscribers; later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subscribers = make(map[string][]subscriber)
}
