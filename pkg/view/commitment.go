package view

import (
	"context"
	"fmt"

	"github.com/mosaic-network/walletx/pkg/store"
)

// RecordByCommitment locates a note or swap by the commitment published at
// its creation, before its nullifier is known. Both categories are
// subscribed before the checks; when awaitDetection is set and the record
// is not yet in the store, the streams are raced until the commitment
// appears. Without awaitDetection an absent record fails with ErrNotFound.
func (s *Service) RecordByCommitment(ctx context.Context, c store.Commitment, awaitDetection bool) (store.Record, error) {
	if c == (store.Commitment{}) {
		return store.Record{}, fmt.Errorf("%w: no commitment passed", ErrInvalidArgument)
	}

	noteSub := s.store.Subscribe(store.CategoryNotes)
	swapSub := s.store.Subscribe(store.CategorySwaps)
	defer noteSub.Close()
	defer swapSub.Close()

	note, err := s.store.NoteByCommitment(ctx, c)
	if err != nil {
		return store.Record{}, err
	}
	if note != nil {
		return store.NoteEvent(*note), nil
	}

	swap, err := s.store.SwapByCommitment(ctx, c)
	if err != nil {
		return store.Record{}, err
	}
	if swap != nil {
		return store.SwapEvent(*swap), nil
	}

	if !awaitDetection {
		return store.Record{}, fmt.Errorf("%w: no record with commitment %s", ErrNotFound, c)
	}

	return detectRaced(ctx, noteSub, swapSub, func(r store.Record) (store.Record, bool) {
		switch r.Kind {
		case store.KindNote:
			if r.Note.Commitment == c {
				return r, true
			}
		case store.KindSwap:
			if r.Swap.Commitment == c {
				return r, true
			}
		}
		return store.Record{}, false
	})
}
