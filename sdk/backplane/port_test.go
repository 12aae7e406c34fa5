package backplane

import (
	"errors"
	"testing"

	"github.com/leandrodaf/midirack/internal/logger"
	"github.com/leandrodaf/midirack/sdk/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func quietPort[T any](opts ...PortOption) *Port[T] {
	return NewPort[T](append([]PortOption{WithLogger(logger.NewNopLogger())}, opts...)...)
}

func TestPortDeliversInSubscriptionOrder(t *testing.T) {
	p := quietPort[int]()

	var got []string
	p.Subscribe(func(v int) { got = append(got, "a") })
	p.Subscribe(func(v int) { got = append(got, "b") })
	p.Subscribe(func(v int) { got = append(got, "c") })

	p.Publish(1)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestPortSameCallbackTwice(t *testing.T) {
	p := quietPort[int]()

	calls := 0
	fn := func(int) { calls++ }
	first := p.Subscribe(fn)
	p.Subscribe(fn)

	p.Publish(1)
	assert.Equal(t, 2, calls)

	first.Unsubscribe()
	p.Publish(2)
	assert.Equal(t, 3, calls)
}

func TestPortNoSubscribers(t *testing.T) {
	p := quietPort[string]()
	assert.NotPanics(t, func() { p.Publish("nobody listens") })
	assert.Zero(t, p.Len())
}

func TestPortLateSubscriberMissesEarlierEvents(t *testing.T) {
	p := quietPort[int]()
	p.Publish(1)

	var got []int
	p.Subscribe(func(v int) { got = append(got, v) })
	p.Publish(2)

	assert.Equal(t, []int{2}, got)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	p := quietPort[int]()

	calls := 0
	sub := p.Subscribe(func(int) { calls++ })
	require.True(t, sub.Active())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.False(t, sub.Active())
	assert.Zero(t, p.Len())

	p.Publish(1)
	assert.Zero(t, calls)

	var nilSub *Subscription
	assert.NotPanics(t, nilSub.Unsubscribe)
	assert.False(t, nilSub.Active())
}

func TestUnsubscribeDuringPublishStillDeliversInFlightEvent(t *testing.T) {
	p := quietPort[int]()

	var (
		got  []string
		bSub *Subscription
	)
	p.Subscribe(func(v int) {
		got = append(got, "a")
		bSub.Unsubscribe()
	})
	bSub = p.Subscribe(func(v int) { got = append(got, "b") })

	p.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)

	got = nil
	p.Publish(2)
	assert.Equal(t, []string{"a"}, got)
}

func TestSubscribeDuringPublishOnlySeesLaterEvents(t *testing.T) {
	p := quietPort[int]()

	var late []int
	subscribed := false
	p.Subscribe(func(v int) {
		if !subscribed {
			subscribed = true
			p.Subscribe(func(v int) { late = append(late, v) })
		}
	})

	p.Publish(1)
	assert.Empty(t, late)
	p.Publish(2)
	assert.Equal(t, []int{2}, late)
}

func TestReentrantPublish(t *testing.T) {
	p := quietPort[int]()

	var got []int
	p.Subscribe(func(v int) {
		got = append(got, v)
		if v < 3 {
			p.Publish(v + 1)
		}
	})

	p.Publish(1)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestNilSubscriberIsIgnored(t *testing.T) {
	p := quietPort[int]()
	sub := p.Subscribe(nil)

	assert.False(t, sub.Active())
	assert.Zero(t, p.Len())
	assert.NotPanics(t, func() { p.Publish(1) })
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	var reported []*PanicError
	p := NewPort[int](
		WithName("keys"),
		WithLogger(logger.FromZap(zap.New(core))),
		WithMetrics(m),
		WithPanicHandler(func(e *PanicError) { reported = append(reported, e) }),
	)

	var got []int
	p.Subscribe(func(v int) { panic("boom") })
	p.Subscribe(func(v int) { got = append(got, v) })

	require.NotPanics(t, func() { p.Publish(7) })
	assert.Equal(t, []int{7}, got)

	require.Len(t, reported, 1)
	assert.True(t, errors.Is(reported[0], ErrSubscriberPanic))
	assert.Equal(t, "keys", reported[0].Port)
	assert.Equal(t, uint64(1), reported[0].Subscriber)
	assert.Equal(t, "boom", reported[0].Value)
	assert.NotEmpty(t, reported[0].Stack)

	entries := logs.FilterMessage("subscriber panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "keys", entries[0].ContextMap()["port"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PanicsFor("keys")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveriesFor("keys")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishedFor("keys")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SubscribersFor("keys")))
}
