package store

import (
	"context"
	"sync"
)

// Subscription is an ordered, unbounded, append-only stream of record
// updates for one category. It captures every append from the moment it is
// opened; there is no replay of history and no gap. Opening one is cheap,
// and an abandoned subscription has no side effects beyond its buffer.
//
// Next is intended for a single consumer.
type Subscription struct {
	mu     sync.Mutex
	queue  []Record
	closed bool
	ready  chan struct{}

	unregister func()
	once       sync.Once
}

func newSubscription(unregister func()) *Subscription {
	return &Subscription{
		ready:      make(chan struct{}, 1),
		unregister: unregister,
	}
}

// push appends an event. Called by the store with its append lock held, so
// events arrive in store append order.
func (s *Subscription) push(r Record) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, r)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Next blocks until the next event is available, the subscription is closed,
// or ctx is done. Buffered events are drained before ErrClosed is reported.
func (s *Subscription) Next(ctx context.Context) (Record, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			r := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return r, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return Record{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Record{}, ctx.Err()
		case <-s.ready:
		}
	}
}

// Close terminates the subscription from either side. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		select {
		case s.ready <- struct{}{}:
		default:
		}

		if s.unregister != nil {
			s.unregister()
		}
	})
}
