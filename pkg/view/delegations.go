package view

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/rpc"
)

// DelegationFilter selects which validators appear in a delegation listing.
type DelegationFilter int

const (
	// DelegationFilterAll emits every streamed validator, attaching a
	// zero-amount placeholder where the account holds no delegation.
	DelegationFilterAll DelegationFilter = iota

	// DelegationFilterActiveNonzero emits only validators the account holds
	// a nonzero delegation balance with.
	DelegationFilterActiveNonzero
)

// delegationEntry tracks one local delegation bucket across the validator
// stream join.
type delegationEntry struct {
	view    BalanceView
	queried bool
}

// DelegationBalancesForAccount joins the account's aggregated balances
// against the remote validator stream. Every validator the stream yields is
// represented exactly once (subject to the filter); local delegation
// buckets the stream never covered, which means their validator is jailed,
// are flushed afterwards so no held position disappears from the view.
func (s *Service) DelegationBalancesForAccount(ctx context.Context, account uint32, filter DelegationFilter) ([]BalanceView, error) {
	balances, err := s.AggregateBalances(ctx, BalancesRequest{AccountFilter: &account})
	if err != nil {
		return nil, err
	}

	// Index the account's delegation buckets by the identity key encoded in
	// their display denom, preserving aggregation order for the final flush.
	var order []string
	entries := make(map[string]*delegationEntry)
	for _, b := range balances {
		if b.Known == nil {
			continue
		}
		idKey, ok := asset.CaptureDelegation(b.Known.Display)
		if !ok {
			continue
		}
		entries[idKey] = &delegationEntry{view: b}
		order = append(order, idKey)
	}

	showInactive := filter == DelegationFilterAll

	var out []BalanceView
	err = s.querier.StreamValidatorInfo(ctx, showInactive, func(v rpc.ValidatorInfo) error {
		if entry, ok := entries[v.IdentityKey]; ok {
			matched := entry.view
			info := v
			matched.ValidatorInfo = &info
			out = append(out, matched)
			entry.queried = true
			return nil
		}

		if filter == DelegationFilterActiveNonzero {
			return nil
		}

		placeholder, err := s.delegationPlaceholder(ctx, v)
		if err != nil {
			return err
		}
		out = append(out, placeholder)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Buckets the stream never covered belong to jailed validators, which
	// the validator-info endpoint does not list.
	for _, idKey := range order {
		if entry := entries[idKey]; !entry.queried {
			s.logger.Debug("delegation bucket not covered by validator stream",
				zap.String("identityKey", idKey))
			out = append(out, entry.view)
		}
	}

	return out, nil
}

// delegationPlaceholder builds the zero-amount view for a validator the
// account holds nothing with, resolving the delegation asset's metadata
// from the remote querier since the wallet has likely never seen it.
func (s *Service) delegationPlaceholder(ctx context.Context, v rpc.ValidatorInfo) (BalanceView, error) {
	idKeyBytes, err := v.IdentityKeyBytes()
	if err != nil {
		return BalanceView{}, err
	}

	md, err := s.resolveMetadata(ctx, rpc.AssetMetadataRequest{
		AltBaseDenom: asset.DelegationBaseDenom(idKeyBytes),
	})
	if err != nil {
		return BalanceView{}, err
	}
	if md == nil {
		// The chain does not know the denom either; synthesize the derived
		// metadata so the view stays a fully known bucket. The asset id is
		// content-derived from the base denom, same as chain-issued assets.
		base := asset.DelegationBaseDenom(idKeyBytes)
		synthesized := asset.CustomizeSymbol(asset.Metadata{
			ID:      asset.ID(blake2b.Sum256([]byte(base))),
			Base:    base,
			Display: asset.DelegationDisplayDenom(idKeyBytes),
		})
		md = &synthesized
	}

	info := v
	return BalanceView{
		AssetID:       md.ID,
		Known:         md,
		ValidatorInfo: &info,
	}, nil
}
