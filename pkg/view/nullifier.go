package view

import (
	"context"
	"fmt"

	"github.com/mosaic-network/walletx/pkg/store"
)

// IsNullifierSpent reports whether the nullifier has been revealed by a
// spend (note) or claim (swap). Both record categories are subscribed
// before the point-in-time checks, and when awaitDetection is set and
// neither check hits, the two streams are raced concurrently and resolved
// on whichever matches first.
//
// A record found by the check with a zero spent/claimed marker answers
// false immediately; awaiting is only for the record-absent case.
func (s *Service) IsNullifierSpent(ctx context.Context, nf store.Nullifier, awaitDetection bool) (bool, error) {
	if nf == (store.Nullifier{}) {
		return false, fmt.Errorf("%w: no nullifier passed", ErrInvalidArgument)
	}

	noteSub := s.store.Subscribe(store.CategoryNotes)
	swapSub := s.store.Subscribe(store.CategorySwaps)
	defer noteSub.Close()
	defer swapSub.Close()

	note, err := s.store.NoteByNullifier(ctx, nf)
	if err != nil {
		return false, err
	}
	if note != nil {
		return note.Spent(), nil
	}

	swap, err := s.store.SwapByNullifier(ctx, nf)
	if err != nil {
		return false, err
	}
	if swap != nil {
		return swap.Claimed(), nil
	}

	if !awaitDetection {
		return false, nil
	}

	return detectRaced(ctx, noteSub, swapSub, func(r store.Record) (bool, bool) {
		switch r.Kind {
		case store.KindNote:
			if r.Note.Nullifier == nf && r.Note.Spent() {
				return true, true
			}
		case store.KindSwap:
			if r.Swap.Nullifier == nf && r.Swap.Claimed() {
				return true, true
			}
		}
		return false, false
	})
}
