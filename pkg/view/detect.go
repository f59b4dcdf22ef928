package view

import (
	"context"
	"errors"

	"github.com/mosaic-network/walletx/pkg/store"
)

// Detection follows a subscribe-before-check protocol: subscriptions are
// opened strictly before the point-in-time store checks, which closes the
// race where an event lands between "check found nothing" and "start
// listening". If a check hits, the unused subscription is simply discarded.
//
// No timeout is imposed here: a wait ends on a match, on the category
// stream terminating (ErrSubscriptionEnded), or on ctx cancellation.

// consumeUntil drains a subscription event by event, returning the first
// match. A closed category stream becomes ErrSubscriptionEnded so callers
// never see a silent permanent hang.
func consumeUntil[T any](ctx context.Context, sub *store.Subscription, match func(store.Record) (T, bool)) (T, error) {
	var zero T
	for {
		rec, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, store.ErrClosed) {
				return zero, ErrSubscriptionEnded
			}
			return zero, err
		}
		if v, ok := match(rec); ok {
			return v, nil
		}
	}
}

// detectRaced runs consumeUntil over two subscriptions concurrently and
// resolves on whichever matches first. Both subscriptions are closed on
// return; the loser is abandoned, which has no side effects.
func detectRaced[T any](
	ctx context.Context,
	subA, subB *store.Subscription,
	match func(store.Record) (T, bool),
) (T, error) {
	var zero T

	type outcome struct {
		v   T
		err error
	}
	results := make(chan outcome, 2)

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer subA.Close()
	defer subB.Close()

	for _, sub := range []*store.Subscription{subA, subB} {
		go func(sub *store.Subscription) {
			v, err := consumeUntil(raceCtx, sub, match)
			results <- outcome{v: v, err: err}
		}(sub)
	}

	var firstErr error
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err == nil {
			return r.v, nil
		}
		if firstErr == nil || errors.Is(firstErr, context.Canceled) {
			firstErr = r.err
		}
	}
	return zero, firstErr
}
