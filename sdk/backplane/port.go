// Package backplane is a minimal synchronous event backplane for rack modules.
//
// A Port fans each published event out to every current subscriber. Links
// connect a Port to a callback or another Port, optionally filtering, mapping
// and observing events in transit; Tee builds several links at once; a
// TopicBus demultiplexes events to handlers keyed by a discriminant.
//
// Delivery is synchronous and iterates over a snapshot of the subscribers
// taken when Publish starts: callbacks may subscribe, unsubscribe or publish
// re-entrantly, and a subscriber removed mid-publish still receives the event
// in flight but nothing after it. A callback that panics is recovered and
// reported without affecting delivery to the others.
package backplane

import (
	"runtime/debug"
	"sync"

	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/leandrodaf/midirack/sdk/metrics"
)

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Port is a one-to-many publish/subscribe endpoint.
type Port[T any] struct {
	name    string
	logger  contracts.Logger
	metrics *metrics.Collector
	onPanic func(*PanicError)

	mu     sync.Mutex
	subs   []*subscriber[T] // replaced on every change, never mutated in place
	nextID uint64
}

// NewPort creates an empty port.
func NewPort[T any](opts ...PortOption) *Port[T] {
	cfg := newPortConfig(opts)
	return newPort[T](cfg)
}

func newPort[T any](cfg portConfig) *Port[T] {
	return &Port[T]{
		name:    cfg.name,
		logger:  cfg.logger,
		metrics: cfg.metrics,
		onPanic: cfg.onPanic,
	}
}

// Name returns the port's name.
func (p *Port[T]) Name() string { return p.name }

// Subscribe registers fn for every event published from now on. Subscribing the
// same function twice yields two independent subscriptions.
func (p *Port[T]) Subscribe(fn func(T)) *Subscription {
	if fn == nil {
		p.logger.Warn("ignoring nil subscriber", p.logger.Field().String("port", p.name))
		return disposedSubscription()
	}

	p.mu.Lock()
	p.nextID++
	s := &subscriber[T]{id: p.nextID, fn: fn}
	next := make([]*subscriber[T], len(p.subs), len(p.subs)+1)
	copy(next, p.subs)
	p.subs = append(next, s)
	n := len(p.subs)
	p.mu.Unlock()

	p.metrics.SetSubscribers(p.name, n)
	return newSubscription(s.id, func() { p.remove(s.id) })
}

func (p *Port[T]) remove(id uint64) {
	p.mu.Lock()
	idx := -1
	for i, s := range p.subs {
		if s.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.mu.Unlock()
		return
	}
	next := make([]*subscriber[T], 0, len(p.subs)-1)
	next = append(next, p.subs[:idx]...)
	next = append(next, p.subs[idx+1:]...)
	p.subs = next
	n := len(next)
	p.mu.Unlock()

	p.metrics.SetSubscribers(p.name, n)
}

// Publish delivers ev synchronously to every subscriber present when the call
// starts, in subscription order. Events are not buffered: subscribers that join
// later only see later events.
func (p *Port[T]) Publish(ev T) {
	p.mu.Lock()
	snapshot := p.subs
	p.mu.Unlock()

	p.metrics.Published(p.name)
	for _, s := range snapshot {
		p.deliver(s.id, s.fn, ev)
	}
}

// Len returns the number of current subscribers.
func (p *Port[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *Port[T]) deliver(id uint64, fn func(T), ev T) {
	defer func() {
		if r := recover(); r != nil {
			p.reportPanic(id, r, debug.Stack())
		}
	}()
	fn(ev)
	p.metrics.Delivered(p.name)
}

func (p *Port[T]) reportPanic(id uint64, value any, stack []byte) {
	perr := &PanicError{Port: p.name, Subscriber: id, Value: value, Stack: stack}
	p.metrics.Panicked(p.name)
	p.logger.Error("subscriber panicked",
		p.logger.Field().String("port", p.name),
		p.logger.Field().Uint64("subscriber", id),
		p.logger.Field().Any("panic", value),
		p.logger.Field().String("stack", string(stack)),
	)
	if p.onPanic != nil {
		p.onPanic(perr)
	}
}
