package backplane

import (
	"fmt"
	"sync"
)

// DefaultDiscriminantKey is the field a field-keyed TopicBus routes on when no key is given.
const DefaultDiscriminantKey = "type"

// Discriminator extracts the routing value from an event. It returns false when
// the event has no discriminant.
type Discriminator[K comparable, T any] func(T) (K, bool)

// FieldReader is implemented by events that expose fields by name.
type FieldReader interface {
	Field(name string) (any, bool)
}

// FieldDiscriminator routes on the named field of events implementing
// FieldReader, or on the key of map[string]any events. The field value must be
// a string or a fmt.Stringer; anything else counts as missing.
func FieldDiscriminator[T any](key string) Discriminator[string, T] {
	if key == "" {
		key = DefaultDiscriminantKey
	}
	return func(ev T) (string, bool) {
		var (
			v  any
			ok bool
		)
		switch e := any(ev).(type) {
		case FieldReader:
			v, ok = e.Field(key)
		case map[string]any:
			v, ok = e[key]
		}
		if !ok {
			return "", false
		}
		switch s := v.(type) {
		case string:
			return s, true
		case fmt.Stringer:
			return s.String(), true
		}
		return "", false
	}
}

type route[T any] struct {
	sub *Subscription
	fn  func(T)
}

// TopicBus is a port whose events are dispatched only to the handlers routed
// under the event's discriminant value. Events with no matching value, or with
// no discriminant at all, are dropped.
type TopicBus[K comparable, T any] struct {
	port *Port[T]
	key  Discriminator[K, T]

	mu     sync.Mutex
	table  map[K][]*route[T] // entries replaced on change; empty entries are deleted
	nextID uint64
}

// NewTopicBus creates a bus that routes on key. The bus subscribes its
// dispatcher to its own port exactly once.
func NewTopicBus[K comparable, T any](key Discriminator[K, T], opts ...PortOption) *TopicBus[K, T] {
	cfg := newPortConfig(opts)
	b := &TopicBus[K, T]{
		port:  newPort[T](cfg),
		key:   key,
		table: make(map[K][]*route[T]),
	}
	b.port.Subscribe(b.dispatch)
	return b
}

// NewFieldTopicBus creates a bus that routes on a named event field, "type" by default.
func NewFieldTopicBus[T any](key string, opts ...PortOption) *TopicBus[string, T] {
	return NewTopicBus(FieldDiscriminator[T](key), opts...)
}

// Port returns the bus's inbound port.
func (b *TopicBus[K, T]) Port() *Port[T] { return b.port }

// Publish is shorthand for b.Port().Publish(ev).
func (b *TopicBus[K, T]) Publish(ev T) { b.port.Publish(ev) }

// Route registers fn for events whose discriminant equals value. Disposing the
// returned subscription is the same as calling Unroute.
func (b *TopicBus[K, T]) Route(value K, fn func(T)) *Subscription {
	if fn == nil {
		b.port.logger.Warn("ignoring nil route handler",
			b.port.logger.Field().String("port", b.port.name),
			b.port.logger.Field().Any("value", value))
		return disposedSubscription()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	r := &route[T]{fn: fn}
	r.sub = newSubscription(b.nextID, func() { b.remove(value, r.sub) })
	prev := b.table[value]
	next := make([]*route[T], len(prev), len(prev)+1)
	copy(next, prev)
	b.table[value] = append(next, r)
	return r.sub
}

// Unroute removes the handler registered by sub under value. It is a no-op if
// sub was not returned by this bus's Route, was routed under another value, or
// was already removed.
func (b *TopicBus[K, T]) Unroute(value K, sub *Subscription) {
	if sub == nil {
		return
	}
	if b.remove(value, sub) {
		sub.release()
	}
}

// remove matches routes by subscription identity; ids are only unique per bus.
func (b *TopicBus[K, T]) remove(value K, sub *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, ok := b.table[value]
	if !ok {
		return false
	}
	idx := -1
	for i, r := range prev {
		if r.sub == sub {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	if len(prev) == 1 {
		delete(b.table, value)
		return true
	}
	next := make([]*route[T], 0, len(prev)-1)
	next = append(next, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	b.table[value] = next
	return true
}

// Routes returns the number of discriminant values with at least one handler.
func (b *TopicBus[K, T]) Routes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.table)
}

// Handlers returns the number of handlers routed under value.
func (b *TopicBus[K, T]) Handlers(value K) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.table[value])
}

func (b *TopicBus[K, T]) dispatch(ev T) {
	value, ok := b.key(ev)
	if !ok {
		return
	}
	b.mu.Lock()
	handlers := b.table[value]
	b.mu.Unlock()

	for _, r := range handlers {
		b.port.deliver(r.sub.id, r.fn, ev)
	}
}
