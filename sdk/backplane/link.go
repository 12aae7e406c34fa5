package backplane

import (
	"fmt"

	"go.uber.org/multierr"
)

// Sink is a link destination: either a callback or a port. The zero Sink is invalid.
type Sink[T any] struct {
	fn   func(T)
	port *Port[T]
}

// ToFunc makes a callback sink.
func ToFunc[T any](fn func(T)) Sink[T] {
	return Sink[T]{fn: fn}
}

// ToPort makes a sink that republishes on p.
func ToPort[T any](p *Port[T]) Sink[T] {
	return Sink[T]{port: p}
}

// resolve picks the forwarding function once, at connect time.
func (s Sink[T]) resolve() (func(T), error) {
	switch {
	case s.fn != nil:
		return s.fn, nil
	case s.port != nil:
		return s.port.Publish, nil
	}
	return nil, ErrInvalidSink
}

// Connect subscribes dst to src. For each event the link applies, in order,
// the filter, the map, the observer, and then forwards to dst.
//
// Disposing the returned subscription detaches the link from src only; neither
// port is affected otherwise. An invalid sink fails here rather than on the
// first publish.
func Connect[T any](src *Port[T], dst Sink[T], opts ...LinkOption[T]) (*Subscription, error) {
	if src == nil {
		return nil, ErrNilPort
	}
	forward, err := dst.resolve()
	if err != nil {
		return nil, err
	}

	var cfg linkConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}

	return src.Subscribe(func(ev T) {
		if cfg.filter != nil && !cfg.filter(ev) {
			return
		}
		if cfg.mapFn != nil {
			ev = cfg.mapFn(ev)
		}
		if cfg.observe != nil {
			cfg.observe(ev)
		}
		forward(ev)
	}), nil
}

// ConnectMap links src to a sink of a different event type through mapFn.
func ConnectMap[T, U any](src *Port[T], dst Sink[U], mapFn func(T) U) (*Subscription, error) {
	if src == nil {
		return nil, ErrNilPort
	}
	if mapFn == nil {
		return nil, ErrNilMapFunc
	}
	forward, err := dst.resolve()
	if err != nil {
		return nil, err
	}
	return src.Subscribe(func(ev T) {
		forward(mapFn(ev))
	}), nil
}

// Tee connects src to every destination with default link options and returns
// one subscription that disposes all of them. Every sink is validated before
// any link is made, so on error nothing is left attached to src.
func Tee[T any](src *Port[T], dsts ...Sink[T]) (*Subscription, error) {
	if src == nil {
		return nil, ErrNilPort
	}
	var err error
	for i, d := range dsts {
		if _, rerr := d.resolve(); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("destination %d: %w", i, rerr))
		}
	}
	if err != nil {
		return nil, err
	}

	links := make([]*Subscription, 0, len(dsts))
	for _, d := range dsts {
		link, _ := Connect(src, d)
		links = append(links, link)
	}
	return newSubscription(0, func() {
		for _, link := range links {
			link.Unsubscribe()
		}
	}), nil
}

// Map returns a new port carrying fn applied to every event of src, plus the
// subscription that feeds it.
func Map[T, U any](src *Port[T], fn func(T) U, opts ...PortOption) (*Port[U], *Subscription, error) {
	out := NewPort[U](opts...)
	sub, err := ConnectMap(src, ToPort(out), fn)
	if err != nil {
		return nil, nil, err
	}
	return out, sub, nil
}

// Filter returns a new port carrying the events of src for which pred is true.
func Filter[T any](src *Port[T], pred func(T) bool, opts ...PortOption) (*Port[T], *Subscription, error) {
	out := NewPort[T](opts...)
	sub, err := Connect(src, ToPort(out), WithFilter(pred))
	if err != nil {
		return nil, nil, err
	}
	return out, sub, nil
}
