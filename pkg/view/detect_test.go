package view

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/pkg/num"
	"github.com/mosaic-network/walletx/pkg/store"
)

func TestIsNullifierSpent_RejectsZeroNullifier(t *testing.T) {
	svc, _ := newTestService(t, newFakeQuerier())

	_, err := svc.IsNullifierSpent(context.Background(), store.Nullifier{}, false)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIsNullifierSpent_AnswersFromStoredRecords(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	require.NoError(t, mem.PutNote(ctx, store.NoteRecord{
		Commitment: commitment(1),
		Nullifier:  nullifier(1),
		AssetID:    assetID(1),
		Amount:     num.FromUint64(5),
	}))
	require.NoError(t, mem.PutNote(ctx, store.NoteRecord{
		Commitment:  commitment(2),
		Nullifier:   nullifier(2),
		AssetID:     assetID(1),
		Amount:      num.FromUint64(5),
		HeightSpent: 42,
	}))
	require.NoError(t, mem.PutSwap(ctx, store.SwapRecord{
		Commitment:    commitment(3),
		Nullifier:     nullifier(3),
		HeightClaimed: 7,
	}))

	// Present but unspent answers false even when asked to await.
	spent, err := svc.IsNullifierSpent(ctx, nullifier(1), true)
	require.NoError(t, err)
	require.False(t, spent)

	spent, err = svc.IsNullifierSpent(ctx, nullifier(2), false)
	require.NoError(t, err)
	require.True(t, spent)

	spent, err = svc.IsNullifierSpent(ctx, nullifier(3), false)
	require.NoError(t, err)
	require.True(t, spent)
}

func TestIsNullifierSpent_AbsentWithoutAwait(t *testing.T) {
	svc, _ := newTestService(t, newFakeQuerier())

	spent, err := svc.IsNullifierSpent(context.Background(), nullifier(99), false)
	require.NoError(t, err)
	require.False(t, spent)
}

// The spend may land at any point relative to the check; a waiting caller
// must resolve true regardless of interleaving.
func TestIsNullifierSpent_NeverMissesConcurrentSpend(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		nf := store.Nullifier{}
		nf[0] = byte(i)
		nf[1] = byte(i >> 8)
		nf[31] = 1

		done := make(chan struct{})
		go func() {
			_ = mem.PutNote(ctx, store.NoteRecord{
				Commitment:  store.Commitment(nf),
				Nullifier:   nf,
				AssetID:     assetID(1),
				Amount:      num.FromUint64(1),
				HeightSpent: 10,
			})
			close(done)
		}()

		spent, err := svc.IsNullifierSpent(ctx, nf, true)
		require.NoError(t, err)
		require.True(t, spent, "iteration %d lost the spend event", i)
		<-done
	}
}

func TestIsNullifierSpent_AwaitsSwapClaim(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	nf := nullifier(50)
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = mem.PutSwap(ctx, store.SwapRecord{
			Commitment:    commitment(50),
			Nullifier:     nf,
			HeightClaimed: 11,
		})
	}()

	spent, err := svc.IsNullifierSpent(ctx, nf, true)
	require.NoError(t, err)
	require.True(t, spent)
}

func TestIsNullifierSpent_SubscriptionEnded(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.IsNullifierSpent(context.Background(), nullifier(60), true)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	mem.CloseCategory(store.CategoryNotes)
	mem.CloseCategory(store.CategorySwaps)

	require.ErrorIs(t, <-errCh, ErrSubscriptionEnded)
}

func TestIsNullifierSpent_ContextCancelled(t *testing.T) {
	svc, _ := newTestService(t, newFakeQuerier())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.IsNullifierSpent(ctx, nullifier(61), true)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecordByCommitment_RejectsZeroCommitment(t *testing.T) {
	svc, _ := newTestService(t, newFakeQuerier())

	_, err := svc.RecordByCommitment(context.Background(), store.Commitment{}, false)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRecordByCommitment_FindsStoredRecords(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	require.NoError(t, mem.PutNote(ctx, store.NoteRecord{
		Commitment: commitment(1),
		Nullifier:  nullifier(1),
		AssetID:    assetID(1),
		Amount:     num.FromUint64(5),
	}))
	require.NoError(t, mem.PutSwap(ctx, store.SwapRecord{
		Commitment: commitment(2),
		Nullifier:  nullifier(2),
	}))

	rec, err := svc.RecordByCommitment(ctx, commitment(1), false)
	require.NoError(t, err)
	require.Equal(t, store.KindNote, rec.Kind)
	require.Equal(t, commitment(1), rec.Note.Commitment)

	rec, err = svc.RecordByCommitment(ctx, commitment(2), false)
	require.NoError(t, err)
	require.Equal(t, store.KindSwap, rec.Kind)
}

func TestRecordByCommitment_AbsentWithoutAwait(t *testing.T) {
	svc, _ := newTestService(t, newFakeQuerier())

	_, err := svc.RecordByCommitment(context.Background(), commitment(77), false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordByCommitment_AwaitsLaterArrival(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	c := commitment(80)
	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = mem.PutSwap(ctx, store.SwapRecord{Commitment: c, Nullifier: nullifier(80)})
	}()

	rec, err := svc.RecordByCommitment(ctx, c, true)
	require.NoError(t, err)
	require.Equal(t, store.KindSwap, rec.Kind)
	require.Equal(t, c, rec.Swap.Commitment)
}

func TestConsumeUntil_SkipsNonMatching(t *testing.T) {
	mem := store.NewMemory(zap.NewNop())
	defer mem.Close()
	ctx := context.Background()

	sub := mem.Subscribe(store.CategoryNotes)
	defer sub.Close()

	for i := byte(1); i <= 5; i++ {
		require.NoError(t, mem.PutNote(ctx, store.NoteRecord{
			Commitment: commitment(i),
			Nullifier:  nullifier(i),
			AssetID:    assetID(1),
			Amount:     num.FromUint64(uint64(i)),
		}))
	}

	got, err := consumeUntil(ctx, sub, func(r store.Record) (byte, bool) {
		if r.Kind == store.KindNote && r.Note.Commitment == commitment(4) {
			return r.Note.Commitment[0], true
		}
		return 0, false
	})
	require.NoError(t, err)
	require.Equal(t, byte(4), got)
}

func TestDetectRaced_FirstMatchWins(t *testing.T) {
	mem := store.NewMemory(zap.NewNop())
	defer mem.Close()
	ctx := context.Background()

	noteSub := mem.Subscribe(store.CategoryNotes)
	swapSub := mem.Subscribe(store.CategorySwaps)

	go func() {
		_ = mem.PutSwap(ctx, store.SwapRecord{Commitment: commitment(9), Nullifier: nullifier(9)})
	}()

	got, err := detectRaced(ctx, noteSub, swapSub, func(r store.Record) (string, bool) {
		if r.Kind == store.KindSwap {
			return "swap", true
		}
		return "", false
	})
	require.NoError(t, err)
	require.Equal(t, "swap", got)
}

func TestDetectRaced_FailsOnlyAfterBothStreamsEnd(t *testing.T) {
	mem := store.NewMemory(zap.NewNop())
	defer mem.Close()
	ctx := context.Background()

	noteSub := mem.Subscribe(store.CategoryNotes)
	swapSub := mem.Subscribe(store.CategorySwaps)

	errCh := make(chan error, 1)
	go func() {
		_, err := detectRaced(ctx, noteSub, swapSub, func(store.Record) (struct{}, bool) {
			return struct{}{}, false
		})
		errCh <- err
	}()

	mem.CloseCategory(store.CategoryNotes)
	select {
	case err := <-errCh:
		t.Fatalf("resolved after one stream ended: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	mem.CloseCategory(store.CategorySwaps)
	require.ErrorIs(t, <-errCh, ErrSubscriptionEnded)
}
