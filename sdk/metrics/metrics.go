// Package metrics exposes Prometheus collectors for rack ports and the MIDI decoder.
//
// All methods are safe to call on a nil *Collector, so components can record
// unconditionally whether or not metrics were configured.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "midirack"

// Collector groups the rack's Prometheus metrics.
type Collector struct {
	published   *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	panics      *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
	messages    *prometheus.CounterVec
}

// New creates a Collector and registers it with reg. A nil reg skips registration.
// Collectors that are already registered with reg are reused.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "port",
			Name:      "published_total",
			Help:      "Events published on a port.",
		}, []string{"port"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "port",
			Name:      "deliveries_total",
			Help:      "Successful subscriber deliveries on a port.",
		}, []string{"port"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "port",
			Name:      "panics_total",
			Help:      "Subscriber callbacks that panicked during delivery.",
		}, []string{"port"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "port",
			Name:      "subscribers",
			Help:      "Current number of subscribers on a port.",
		}, []string{"port"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "messages_total",
			Help:      "Raw MIDI messages seen by the decoder, by outcome.",
		}, []string{"result"}),
	}
	if reg == nil {
		return c, nil
	}

	var err error
	c.published, err = register(reg, c.published)
	if err != nil {
		return nil, err
	}
	c.deliveries, err = register(reg, c.deliveries)
	if err != nil {
		return nil, err
	}
	c.panics, err = register(reg, c.panics)
	if err != nil {
		return nil, err
	}
	c.subscribers, err = register(reg, c.subscribers)
	if err != nil {
		return nil, err
	}
	c.messages, err = register(reg, c.messages)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Published counts one publish call on port.
func (c *Collector) Published(port string) {
	if c == nil {
		return
	}
	c.published.WithLabelValues(port).Inc()
}

// Delivered counts one successful subscriber delivery on port.
func (c *Collector) Delivered(port string) {
	if c == nil {
		return
	}
	c.deliveries.WithLabelValues(port).Inc()
}

// Panicked counts one subscriber panic on port.
func (c *Collector) Panicked(port string) {
	if c == nil {
		return
	}
	c.panics.WithLabelValues(port).Inc()
}

// SetSubscribers records the current subscriber count of port.
func (c *Collector) SetSubscribers(port string, n int) {
	if c == nil {
		return
	}
	c.subscribers.WithLabelValues(port).Set(float64(n))
}

// Decoded counts one raw message with the given decode outcome.
func (c *Collector) Decoded(result string) {
	if c == nil {
		return
	}
	c.messages.WithLabelValues(result).Inc()
}

// PublishedFor returns the publish counter of port. c must not be nil.
func (c *Collector) PublishedFor(port string) prometheus.Counter {
	return c.published.WithLabelValues(port)
}

// DeliveriesFor returns the delivery counter of port. c must not be nil.
func (c *Collector) DeliveriesFor(port string) prometheus.Counter {
	return c.deliveries.WithLabelValues(port)
}

// PanicsFor returns the panic counter of port. c must not be nil.
func (c *Collector) PanicsFor(port string) prometheus.Counter {
	return c.panics.WithLabelValues(port)
}

// SubscribersFor returns the subscriber gauge of port. c must not be nil.
func (c *Collector) SubscribersFor(port string) prometheus.Gauge {
	return c.subscribers.WithLabelValues(port)
}

// MessagesFor returns the decoder counter for result. c must not be nil.
func (c *Collector) MessagesFor(result string) prometheus.Counter {
	return c.messages.WithLabelValues(result)
}
