package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/num"
)

func testNote(c byte, account uint32, amount uint64) NoteRecord {
	var commitment Commitment
	commitment[0] = c
	var nf Nullifier
	nf[0] = c
	nf[1] = 0xff
	return NoteRecord{
		Commitment:    commitment,
		Nullifier:     nf,
		Account:       account,
		Amount:        num.FromUint64(amount),
		HeightCreated: 1,
	}
}

func TestIterateUnspentNotes_ExcludesSpentAndZero(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())

	require.NoError(t, m.PutNote(ctx, testNote(1, 0, 100)))

	spent := testNote(2, 0, 50)
	spent.HeightSpent = 10
	require.NoError(t, m.PutNote(ctx, spent))

	require.NoError(t, m.PutNote(ctx, testNote(3, 0, 0)))

	notes, err := m.IterateUnspentNotes(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, Commitment{1}, notes[0].Commitment)
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())

	n := testNote(1, 0, 100)
	require.NoError(t, m.PutNote(ctx, n))

	got, err := m.NoteByCommitment(ctx, n.Commitment)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n, *got)

	got, err = m.NoteByNullifier(ctx, n.Nullifier)
	require.NoError(t, err)
	require.NotNil(t, got)

	missing, err := m.NoteByCommitment(ctx, Commitment{9})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// TestSubscribe_NoGapBetweenSubscribeAndAppend drives many concurrent
// subscribe/append pairs: every append after Subscribe returns must be
// delivered, no matter the interleaving.
func TestSubscribe_NoGapBetweenSubscribeAndAppend(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())

	for i := 0; i < 200; i++ {
		sub := m.Subscribe(CategoryNotes)

		var wg sync.WaitGroup
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.PutNote(ctx, testNote(byte(i), 0, 1))
		}(i)

		next, err := sub.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, KindNote, next.Kind)

		wg.Wait()
		sub.Close()
	}
}

func TestSubscribe_DeliversInAppendOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())
	sub := m.Subscribe(CategoryNotes)
	defer sub.Close()

	for i := 1; i <= 50; i++ {
		require.NoError(t, m.PutNote(ctx, testNote(byte(i), 0, uint64(i))))
	}

	for i := 1; i <= 50; i++ {
		r, err := sub.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, Commitment{byte(i)}, r.Note.Commitment)
	}
}

func TestSubscribe_NoReplayOfHistory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())

	require.NoError(t, m.PutNote(ctx, testNote(1, 0, 1)))

	sub := m.Subscribe(CategoryNotes)
	defer sub.Close()

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := sub.Next(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubscription_CloseDrainsBufferFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())
	sub := m.Subscribe(CategorySwaps)

	require.NoError(t, m.PutSwap(ctx, SwapRecord{Commitment: Commitment{1}, Amount: num.FromUint64(1)}))
	m.CloseCategory(CategorySwaps)

	r, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, KindSwap, r.Kind)

	_, err = sub.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscriptions_AreIndependent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())

	a := m.Subscribe(CategoryNotes)
	b := m.Subscribe(CategoryNotes)
	defer a.Close()
	defer b.Close()

	require.NoError(t, m.PutNote(ctx, testNote(1, 0, 1)))

	ra, err := a.Next(ctx)
	require.NoError(t, err)
	rb, err := b.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, ra.Note.Commitment, rb.Note.Commitment)

	// Closing one does not touch the other.
	a.Close()
	require.NoError(t, m.PutNote(ctx, testNote(2, 0, 1)))
	rb, err = b.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Commitment{2}, rb.Note.Commitment)
}

func TestPricesForAsset_RecencyWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())

	md := asset.Metadata{ID: asset.ID{1}, Display: "mosaic"}
	require.NoError(t, m.PutPrice(ctx, asset.EstimatedPrice{PricedAsset: md.ID, AsOfHeight: 100, NumerairePerUnit: 2}))
	require.NoError(t, m.PutPrice(ctx, asset.EstimatedPrice{PricedAsset: md.ID, AsOfHeight: 240, NumerairePerUnit: 3}))
	require.NoError(t, m.PutPrice(ctx, asset.EstimatedPrice{PricedAsset: asset.ID{2}, AsOfHeight: 240, NumerairePerUnit: 9}))

	prices, err := m.PricesForAsset(ctx, md, 250, 100)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, float64(3), prices[0].NumerairePerUnit)
}

func TestPrunePricesBelow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())

	require.NoError(t, m.PutPrice(ctx, asset.EstimatedPrice{AsOfHeight: 10}))
	require.NoError(t, m.PutPrice(ctx, asset.EstimatedPrice{AsOfHeight: 20}))

	removed, err := m.PrunePricesBelow(ctx, 15)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	prices, err := m.PricesForAsset(ctx, asset.Metadata{}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, prices, 1)
}

func TestMetadataCache(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(zap.NewNop())

	miss, err := m.AssetMetadata(ctx, asset.ID{1})
	require.NoError(t, err)
	assert.Nil(t, miss)

	md := asset.Metadata{ID: asset.ID{1}, Display: "mosaic", Symbol: "MSC", Exponent: 6}
	require.NoError(t, m.SaveAssetMetadata(ctx, md))

	hit, err := m.AssetMetadata(ctx, asset.ID{1})
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, md, *hit)
}

type captureSink struct {
	mu     sync.Mutex
	events []Category
}

func (c *captureSink) RecordUpdated(category Category, _ Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, category)
}

func TestEventSink_SeesEveryAppend(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{}
	m := NewMemory(zap.NewNop(), sink)

	require.NoError(t, m.PutNote(ctx, testNote(1, 0, 1)))
	require.NoError(t, m.PutTransaction(ctx, TxRecord{ID: TxID{9}}))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []Category{CategoryNotes, CategoryTransactions}, sink.events)
}
