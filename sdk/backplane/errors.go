package backplane

import (
	"errors"
	"fmt"
)

// Sentinel errors for the backplane.
var (
	// ErrNilPort is returned when a nil source port is connected.
	ErrNilPort = errors.New("backplane: nil port")

	// ErrInvalidSink is returned when a destination is neither a callback nor a port.
	ErrInvalidSink = errors.New("backplane: sink must be a callback or a port")

	// ErrNilMapFunc is returned when a mapping link is created without a map function.
	ErrNilMapFunc = errors.New("backplane: nil map function")

	// ErrSubscriberPanic matches any *PanicError via errors.Is.
	ErrSubscriberPanic = errors.New("backplane: subscriber panicked")
)

// PanicError describes a subscriber callback that panicked during delivery.
type PanicError struct {
	// Port is the name of the port that was publishing.
	Port string

	// Subscriber is the id of the subscription whose callback panicked.
	Subscriber uint64

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace captured in the deferred recover.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("backplane: subscriber %d on port %q panicked: %v", e.Subscriber, e.Port, e.Value)
}

// Is allows errors.Is to match PanicError with ErrSubscriberPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrSubscriberPanic
}
