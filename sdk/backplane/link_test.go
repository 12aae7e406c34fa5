package backplane

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestConnectToFunc(t *testing.T) {
	src := quietPort[int]()

	var got []int
	sub, err := Connect(src, ToFunc(func(v int) { got = append(got, v) }))
	require.NoError(t, err)

	src.Publish(1)
	src.Publish(2)
	assert.Equal(t, []int{1, 2}, got)

	sub.Unsubscribe()
	src.Publish(3)
	assert.Equal(t, []int{1, 2}, got)
}

func TestConnectToPortForwardsToItsSubscribers(t *testing.T) {
	src := quietPort[string]()
	dst := quietPort[string]()

	var got []string
	dst.Subscribe(func(v string) { got = append(got, v) })

	sub, err := Connect(src, ToPort(dst))
	require.NoError(t, err)

	src.Publish("x")
	assert.Equal(t, []string{"x"}, got)

	sub.Unsubscribe()
	src.Publish("y")
	assert.Equal(t, []string{"x"}, got)
	assert.Equal(t, 1, dst.Len(), "disposing a link leaves the destination untouched")
}

func TestConnectFilterMapObserveOrder(t *testing.T) {
	src := quietPort[int]()

	var (
		steps    []string
		observed []int
		got      []int
	)
	_, err := Connect(src,
		ToFunc(func(v int) {
			steps = append(steps, "forward")
			got = append(got, v)
		}),
		WithFilter(func(v int) bool {
			steps = append(steps, "filter")
			return v%2 == 0
		}),
		WithMap(func(v int) int {
			steps = append(steps, "map")
			return v * 10
		}),
		WithObserve(func(v int) {
			steps = append(steps, "observe")
			observed = append(observed, v)
		}),
	)
	require.NoError(t, err)

	src.Publish(1)
	assert.Equal(t, []string{"filter"}, steps)
	assert.Empty(t, got)

	steps = nil
	src.Publish(2)
	assert.Equal(t, []string{"filter", "map", "observe", "forward"}, steps)
	assert.Equal(t, []int{20}, observed)
	assert.Equal(t, []int{20}, got)
}

func TestConnectFilterAlwaysFalseDeliversNothing(t *testing.T) {
	src := quietPort[int]()

	calls := 0
	_, err := Connect(src, ToFunc(func(int) { calls++ }), WithFilter(func(int) bool { return false }))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		src.Publish(i)
	}
	assert.Zero(t, calls)
}

func TestConnectIdentityMapMatchesNoMap(t *testing.T) {
	src := quietPort[int]()

	var plain, mapped []int
	_, err := Connect(src, ToFunc(func(v int) { plain = append(plain, v) }))
	require.NoError(t, err)
	_, err = Connect(src, ToFunc(func(v int) { mapped = append(mapped, v) }), WithMap(func(v int) int { return v }))
	require.NoError(t, err)

	for _, v := range []int{3, 1, 4, 1, 5} {
		src.Publish(v)
	}
	assert.Equal(t, plain, mapped)
}

func TestConnectInvalidSinkFailsFast(t *testing.T) {
	src := quietPort[int]()

	sub, err := Connect(src, Sink[int]{})
	assert.ErrorIs(t, err, ErrInvalidSink)
	assert.Nil(t, sub)
	assert.Zero(t, src.Len())

	_, err = Connect(nil, ToFunc(func(int) {}))
	assert.ErrorIs(t, err, ErrNilPort)

	_, err = Connect(src, ToPort[int](nil))
	assert.ErrorIs(t, err, ErrInvalidSink)
}

func TestConnectMapChangesType(t *testing.T) {
	src := quietPort[int]()

	var got []string
	_, err := ConnectMap(src, ToFunc(func(s string) { got = append(got, s) }), strconv.Itoa)
	require.NoError(t, err)

	src.Publish(42)
	assert.Equal(t, []string{"42"}, got)

	_, err = ConnectMap[int, string](src, ToFunc(func(string) {}), nil)
	assert.ErrorIs(t, err, ErrNilMapFunc)
}

func TestMapAndFilterAdapters(t *testing.T) {
	src := quietPort[int]()

	evens, evenSub, err := Filter(src, func(v int) bool { return v%2 == 0 }, WithName("evens"))
	require.NoError(t, err)
	labels, _, err := Map(evens, func(v int) string { return "n" + strconv.Itoa(v) })
	require.NoError(t, err)

	var got []string
	labels.Subscribe(func(s string) { got = append(got, s) })

	for i := 1; i <= 4; i++ {
		src.Publish(i)
	}
	assert.Equal(t, []string{"n2", "n4"}, got)
	assert.Equal(t, "evens", evens.Name())

	evenSub.Unsubscribe()
	src.Publish(6)
	assert.Equal(t, []string{"n2", "n4"}, got)
}

func TestTeeDeliversToEveryDestinationInOrder(t *testing.T) {
	src := quietPort[int]()
	mid := quietPort[int]()

	var got []string
	mid.Subscribe(func(v int) { got = append(got, "port") })

	sub, err := Tee(src,
		ToFunc(func(int) { got = append(got, "first") }),
		ToPort(mid),
		ToFunc(func(int) { got = append(got, "last") }),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	src.Publish(1)
	assert.Equal(t, []string{"first", "port", "last"}, got)

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Zero(t, src.Len())

	got = nil
	src.Publish(2)
	assert.Empty(t, got)
}

func TestTeeWithNoDestinations(t *testing.T) {
	src := quietPort[int]()

	sub, err := Tee(src)
	require.NoError(t, err)
	assert.Zero(t, src.Len())
	assert.NotPanics(t, sub.Unsubscribe)
}

func TestTeeRejectsInvalidDestinationsWithoutConnecting(t *testing.T) {
	src := quietPort[int]()

	sub, err := Tee(src,
		ToFunc(func(int) {}),
		Sink[int]{},
		ToPort(quietPort[int]()),
		Sink[int]{},
	)
	require.Error(t, err)
	assert.Nil(t, sub)
	assert.True(t, errors.Is(err, ErrInvalidSink))
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorContains(t, err, "destination 1")
	assert.ErrorContains(t, err, "destination 3")
	assert.Zero(t, src.Len(), "no link is attached when any destination is invalid")
}
