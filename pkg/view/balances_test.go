package view

import (
	"context"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/num"
	"github.com/mosaic-network/walletx/pkg/store"
)

func putNote(t *testing.T, mem *store.Memory, c byte, account uint32, id asset.ID, amount num.Amount) {
	t.Helper()
	require.NoError(t, mem.PutNote(context.Background(), store.NoteRecord{
		Commitment:    commitment(c),
		Nullifier:     nullifier(c),
		Account:       account,
		AssetID:       id,
		Amount:        amount,
		HeightCreated: 1,
	}))
}

func TestAggregateBalances_ConservesValue(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	// Random notes across two accounts and two assets; totals must match an
	// arbitrary-precision reference sum exactly.
	rng := rand.New(rand.NewSource(7))
	expected := make(map[uint32]map[asset.ID]*big.Int)
	c := byte(1)
	for i := 0; i < 200; i++ {
		account := uint32(rng.Intn(2))
		id := assetID(byte(1 + rng.Intn(2)))
		amount := num.New(rng.Uint64(), rng.Uint64()>>9)

		putNote(t, mem, c, account, id, amount)
		c++

		if expected[account] == nil {
			expected[account] = make(map[asset.ID]*big.Int)
		}
		if expected[account][id] == nil {
			expected[account][id] = new(big.Int)
		}
		expected[account][id].Add(expected[account][id], amount.Big())
	}

	views, err := svc.AggregateBalances(ctx, BalancesRequest{})
	require.NoError(t, err)

	for _, v := range views {
		want := expected[v.Account.Account][v.AssetID]
		require.NotNil(t, want)
		require.Zero(t, want.Cmp(v.Amount.Big()),
			"account %d asset %s: want %s got %s", v.Account.Account, v.AssetID, want, v.Amount)
	}
}

func TestAggregateBalances_ExcludesSpentAndZero(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	putNote(t, mem, 1, 0, assetID(1), num.FromUint64(50))
	putNote(t, mem, 2, 0, assetID(1), num.FromUint64(0))
	require.NoError(t, mem.PutNote(ctx, store.NoteRecord{
		Commitment:    commitment(3),
		Nullifier:     nullifier(3),
		AssetID:       assetID(1),
		Amount:        num.FromUint64(1000),
		HeightCreated: 1,
		HeightSpent:   5,
	}))

	views, err := svc.AggregateBalances(ctx, BalancesRequest{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, num.FromUint64(50), views[0].Amount)
}

func TestAggregateBalances_OneViewPerAccountAsset(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	for i := byte(1); i <= 6; i++ {
		putNote(t, mem, i, uint32(i%2), assetID(1+i%2), num.FromUint64(uint64(i)))
	}

	views, err := svc.AggregateBalances(ctx, BalancesRequest{})
	require.NoError(t, err)

	type bucketKey struct {
		account uint32
		id      asset.ID
	}
	seen := make(map[bucketKey]bool)
	for _, v := range views {
		key := bucketKey{v.Account.Account, v.AssetID}
		require.False(t, seen[key], "duplicate view for account %d asset %s", v.Account.Account, v.AssetID)
		seen[key] = true
	}
}

func TestAggregateBalances_FilteringIsPostHoc(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	putNote(t, mem, 1, 0, assetID(1), num.FromUint64(10))
	putNote(t, mem, 2, 0, assetID(2), num.FromUint64(20))
	putNote(t, mem, 3, 1, assetID(1), num.FromUint64(30))

	account := uint32(0)
	asset1 := assetID(1)

	filtered, err := svc.AggregateBalances(ctx, BalancesRequest{AccountFilter: &account, AssetFilter: &asset1})
	require.NoError(t, err)

	all, err := svc.AggregateBalances(ctx, BalancesRequest{})
	require.NoError(t, err)
	var manual []BalanceView
	for _, v := range all {
		if v.Account.Account == account && v.AssetID == asset1 {
			manual = append(manual, v)
		}
	}

	require.Equal(t, manual, filtered)
	require.Len(t, filtered, 1)
	require.Equal(t, num.FromUint64(10), filtered[0].Amount)
}

func TestAggregateBalances_ZeroAssetIDRejected(t *testing.T) {
	svc, mem := newTestService(t, newFakeQuerier())
	ctx := context.Background()

	putNote(t, mem, 1, 0, asset.ID{}, num.FromUint64(10))

	_, err := svc.AggregateBalances(ctx, BalancesRequest{})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAggregateBalances_EquivalentValues(t *testing.T) {
	q := newFakeQuerier()
	q.head = 250
	svc, mem := newTestService(t, q)
	ctx := context.Background()

	priced := assetID(1)
	numeraire := assetID(9)

	require.NoError(t, mem.SaveAssetMetadata(ctx, asset.Metadata{ID: priced, Base: "upriced", Display: "priced", Symbol: "PRC", Exponent: 6}))
	require.NoError(t, mem.SaveAssetMetadata(ctx, asset.Metadata{ID: numeraire, Base: "unum", Display: "num", Symbol: "NUM", Exponent: 6}))
	require.NoError(t, mem.SetEpochDuration(ctx, 100))
	require.NoError(t, mem.PutPrice(ctx, asset.EstimatedPrice{
		PricedAsset:      priced,
		Numeraire:        numeraire,
		NumerairePerUnit: 2.5,
		AsOfHeight:       240,
	}))

	putNote(t, mem, 1, 0, priced, num.FromUint64(40))
	putNote(t, mem, 2, 0, priced, num.FromUint64(60))

	views, err := svc.AggregateBalances(ctx, BalancesRequest{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, num.FromUint64(100), views[0].Amount)

	// Equivalents reflect the final running total, not per-note sums.
	require.Len(t, views[0].EquivalentValues, 1)
	eq := views[0].EquivalentValues[0]
	require.Equal(t, num.FromUint64(250), eq.Amount)
	require.Equal(t, "NUM", eq.Numeraire.Symbol)
	require.Equal(t, uint64(240), eq.AsOfHeight)
}

func TestAggregateBalances_StalePricesExcluded(t *testing.T) {
	q := newFakeQuerier()
	q.head = 250
	svc, mem := newTestService(t, q)
	ctx := context.Background()

	priced := assetID(1)
	require.NoError(t, mem.SaveAssetMetadata(ctx, asset.Metadata{ID: priced, Base: "upriced", Display: "priced", Symbol: "PRC"}))
	require.NoError(t, mem.SetEpochDuration(ctx, 100))
	require.NoError(t, mem.PutPrice(ctx, asset.EstimatedPrice{
		PricedAsset:      priced,
		Numeraire:        assetID(9),
		NumerairePerUnit: 2.5,
		AsOfHeight:       100,
	}))

	putNote(t, mem, 1, 0, priced, num.FromUint64(40))

	views, err := svc.AggregateBalances(ctx, BalancesRequest{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Empty(t, views[0].EquivalentValues)
}
