package backplane

import (
	"github.com/leandrodaf/midirack/internal/logger"
	"github.com/leandrodaf/midirack/sdk/contracts"
	"github.com/leandrodaf/midirack/sdk/metrics"
)

// PortOption configures a Port or a TopicBus.
type PortOption func(*portConfig)

type portConfig struct {
	name    string
	logger  contracts.Logger
	metrics *metrics.Collector
	onPanic func(*PanicError)
}

func newPortConfig(opts []PortOption) portConfig {
	cfg := portConfig{name: "port"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Default()
	}
	return cfg
}

// WithName sets the name used in logs and metric labels.
func WithName(name string) PortOption {
	return func(c *portConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets the sink for subscriber failures.
func WithLogger(l contracts.Logger) PortOption {
	return func(c *portConfig) {
		c.logger = l
	}
}

// WithMetrics records publishes, deliveries and panics on m.
func WithMetrics(m *metrics.Collector) PortOption {
	return func(c *portConfig) {
		c.metrics = m
	}
}

// WithPanicHandler is called, after logging, for every subscriber panic.
func WithPanicHandler(h func(*PanicError)) PortOption {
	return func(c *portConfig) {
		c.onPanic = h
	}
}

// LinkOption configures a link created by Connect.
type LinkOption[T any] func(*linkConfig[T])

type linkConfig[T any] struct {
	filter  func(T) bool
	mapFn   func(T) T
	observe func(T)
}

// WithFilter drops events for which pred returns false, before mapping.
func WithFilter[T any](pred func(T) bool) LinkOption[T] {
	return func(c *linkConfig[T]) {
		c.filter = pred
	}
}

// WithMap transforms each event before it is observed and forwarded.
func WithMap[T any](fn func(T) T) LinkOption[T] {
	return func(c *linkConfig[T]) {
		c.mapFn = fn
	}
}

// WithObserve calls fn with each (mapped) event right before forwarding.
func WithObserve[T any](fn func(T)) LinkOption[T] {
	return func(c *linkConfig[T]) {
		c.observe = fn
	}
}
