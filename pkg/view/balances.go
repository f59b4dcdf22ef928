package view

import (
	"context"
	"fmt"
	"sort"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/keys"
	"github.com/mosaic-network/walletx/pkg/num"
	"github.com/mosaic-network/walletx/pkg/rpc"
	"github.com/mosaic-network/walletx/pkg/store"
)

// EquivalentValue is a balance converted through an estimated price into a
// numeraire asset, as of the observation height.
type EquivalentValue struct {
	Numeraire  asset.Metadata `json:"numeraire"`
	Amount     num.Amount     `json:"amount"`
	AsOfHeight uint64         `json:"asOfHeight"`
}

// BalanceView is one (account, asset) aggregation bucket. Known is nil for
// assets with no resolvable metadata; a view is always fully known or fully
// unknown, never mixed, and equivalent values only ever attach to known
// buckets.
type BalanceView struct {
	Account          keys.AddressView   `json:"account"`
	AssetID          asset.ID           `json:"assetId"`
	Amount           num.Amount         `json:"amount"`
	Known            *asset.Metadata    `json:"metadata,omitempty"`
	EquivalentValues []EquivalentValue  `json:"equivalentValues,omitempty"`
	ValidatorInfo    *rpc.ValidatorInfo `json:"validatorInfo,omitempty"`
}

// BalancesRequest carries the optional post-aggregation filters. Both are
// exact-match predicates, ANDed together; filtering never changes what was
// aggregated, only what is returned.
type BalancesRequest struct {
	AccountFilter *uint32
	AssetFilter   *asset.ID
}

// AggregateBalances folds every unspent, nonzero owned value record into
// per-(account, asset) totals with attached price equivalents, then applies
// the request's filters over the full bucket set.
func (s *Service) AggregateBalances(ctx context.Context, req BalancesRequest) ([]BalanceView, error) {
	epochDuration, err := s.store.EpochDuration(ctx)
	if err != nil {
		return nil, err
	}

	agg := &balanceAggregator{
		svc:             s,
		relevanceHeight: s.relevanceHeight(ctx),
		epochDuration:   epochDuration,
		buckets:         make(map[uint32]map[asset.ID]*BalanceView),
		prices:          make(map[asset.ID][]asset.EstimatedPrice),
		numeraires:      make(map[asset.ID]*asset.Metadata),
	}

	notes, err := s.store.IterateUnspentNotes(ctx)
	if err != nil {
		return nil, err
	}
	for _, note := range notes {
		// The store already excludes these; guard anyway so a different
		// Store implementation cannot corrupt totals.
		if note.Spent() || note.Amount.IsZero() {
			continue
		}
		if err := agg.add(ctx, note); err != nil {
			return nil, err
		}
	}

	return agg.filtered(req), nil
}

// balanceAggregator accumulates one aggregation pass. Prices and numeraire
// metadata are fetched once per asset and cached for the remainder of the
// pass.
type balanceAggregator struct {
	svc             *Service
	relevanceHeight uint64
	epochDuration   uint64

	buckets    map[uint32]map[asset.ID]*BalanceView
	prices     map[asset.ID][]asset.EstimatedPrice
	numeraires map[asset.ID]*asset.Metadata
}

func (a *balanceAggregator) add(ctx context.Context, note store.NoteRecord) error {
	if note.AssetID == (asset.ID{}) {
		return fmt.Errorf("%w: note %s has no asset id", ErrInvalidArgument, note.Commitment)
	}

	perAsset, ok := a.buckets[note.Account]
	if !ok {
		perAsset = make(map[asset.ID]*BalanceView)
		a.buckets[note.Account] = perAsset
	}

	bucket, ok := perAsset[note.AssetID]
	if !ok {
		var err error
		bucket, err = a.newBucket(ctx, note)
		if err != nil {
			return err
		}
		perAsset[note.AssetID] = bucket
	}

	bucket.Amount = num.Add(bucket.Amount, note.Amount)

	// Equivalent values are a derived view of the running total, recomputed
	// on every update rather than summed independently.
	if bucket.Known != nil {
		if err := a.recomputeEquivalents(ctx, bucket); err != nil {
			return err
		}
	}
	return nil
}

// newBucket initializes a zero-amount view for the note's (account, asset)
// pair: owner address resolved by index, metadata local-then-remote, and on
// a known asset the price observations loaded once.
func (a *balanceAggregator) newBucket(ctx context.Context, note store.NoteRecord) (*BalanceView, error) {
	address, err := a.svc.addresses.AddressByIndex(ctx, note.Account)
	if err != nil {
		return nil, fmt.Errorf("resolve address for account %d: %w", note.Account, err)
	}

	id := note.AssetID
	md, err := a.svc.resolveMetadata(ctx, rpc.AssetMetadataRequest{AssetID: &id})
	if err != nil {
		return nil, err
	}

	if md != nil && a.epochDuration != 0 {
		if _, loaded := a.prices[id]; !loaded {
			prices, err := a.svc.store.PricesForAsset(ctx, *md, a.relevanceHeight, a.epochDuration)
			if err != nil {
				return nil, err
			}
			a.prices[id] = prices
		}
	}

	return &BalanceView{
		Account: keys.AddressView{Address: address, Account: note.Account},
		AssetID: id,
		Known:   md,
	}, nil
}

func (a *balanceAggregator) recomputeEquivalents(ctx context.Context, bucket *BalanceView) error {
	prices := a.prices[bucket.AssetID]
	if len(prices) == 0 {
		return nil
	}

	equivalents := make([]EquivalentValue, 0, len(prices))
	for _, price := range prices {
		numeraire, err := a.numeraireMetadata(ctx, price.Numeraire)
		if err != nil {
			return err
		}
		if numeraire == nil {
			continue
		}
		equivalents = append(equivalents, EquivalentValue{
			Numeraire:  *numeraire,
			Amount:     num.MultiplyByRate(bucket.Amount, price.NumerairePerUnit),
			AsOfHeight: price.AsOfHeight,
		})
	}
	bucket.EquivalentValues = equivalents
	return nil
}

func (a *balanceAggregator) numeraireMetadata(ctx context.Context, id asset.ID) (*asset.Metadata, error) {
	if md, ok := a.numeraires[id]; ok {
		return md, nil
	}
	md, err := a.svc.resolveMetadata(ctx, rpc.AssetMetadataRequest{AssetID: &id})
	if err != nil {
		return nil, err
	}
	a.numeraires[id] = md
	return md, nil
}

// filtered applies the request's post-hoc predicates over the complete
// bucket set and returns views in a stable order: account ascending, then
// priority score descending, then asset id.
func (a *balanceAggregator) filtered(req BalancesRequest) []BalanceView {
	out := make([]BalanceView, 0)
	for account, perAsset := range a.buckets {
		if req.AccountFilter != nil && account != *req.AccountFilter {
			continue
		}
		for id, bucket := range perAsset {
			if req.AssetFilter != nil && id != *req.AssetFilter {
				continue
			}
			out = append(out, *bucket)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Account.Account != out[j].Account.Account {
			return out[i].Account.Account < out[j].Account.Account
		}
		pi, pj := uint64(0), uint64(0)
		if out[i].Known != nil {
			pi = out[i].Known.PriorityScore
		}
		if out[j].Known != nil {
			pj = out[j].Known.PriorityScore
		}
		if pi != pj {
			return pi > pj
		}
		return out[i].AssetID.String() < out[j].AssetID.String()
	})
	return out
}
