package backplane

import (
	"sync"
	"sync/atomic"
)

// Subscription is the disposer returned by Subscribe, Connect, Tee and Route.
// Unsubscribe is idempotent; a nil *Subscription is a valid no-op.
type Subscription struct {
	id     uint64
	once   sync.Once
	done   atomic.Bool
	cancel func()
}

func newSubscription(id uint64, cancel func()) *Subscription {
	return &Subscription{id: id, cancel: cancel}
}

// disposedSubscription returns a subscription that is already inactive.
func disposedSubscription() *Subscription {
	s := &Subscription{}
	s.release()
	return s
}

// ID returns the identifier the subscription was registered under.
// Aggregate subscriptions returned by Tee have id 0.
func (s *Subscription) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Unsubscribe detaches the subscription. It affects every later publish but
// never a publish that is already delivering.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.done.Store(true)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Active reports whether Unsubscribe has not been called yet.
func (s *Subscription) Active() bool {
	return s != nil && !s.done.Load()
}

// release marks the subscription inactive without running its cancel func.
func (s *Subscription) release() {
	s.once.Do(func() {
		s.done.Store(true)
	})
}
