package view

import (
	"context"
	"fmt"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/num"
)

// UnbondingGroup is one claimability class of unbonding tokens with its
// running total.
type UnbondingGroup struct {
	Total  num.Amount    `json:"total"`
	Tokens []BalanceView `json:"tokens"`
}

// UnbondingView partitions an account's unbonding tokens by whether their
// unbonding period has elapsed at the wallet's sync height.
type UnbondingView struct {
	Claimable       UnbondingGroup `json:"claimable"`
	NotYetClaimable UnbondingGroup `json:"notYetClaimable"`
}

// UnbondingBalancesForAccount partitions the account's unbonding-token
// balances into claimable and not-yet-claimable groups. A token started at
// height h is claimable once h + unbondingDelay <= the wallet's full sync
// height.
func (s *Service) UnbondingBalancesForAccount(ctx context.Context, account uint32, unbondingDelay uint64) (UnbondingView, error) {
	syncHeight, err := s.store.SyncHeight(ctx)
	if err != nil {
		return UnbondingView{}, err
	}
	if syncHeight == 0 {
		return UnbondingView{}, fmt.Errorf("%w: wallet has no sync height yet", ErrFailedPrecondition)
	}

	balances, err := s.AggregateBalances(ctx, BalancesRequest{AccountFilter: &account})
	if err != nil {
		return UnbondingView{}, err
	}

	var out UnbondingView
	for _, b := range balances {
		if b.Known == nil {
			continue
		}
		ub, ok := asset.CaptureUnbonding(b.Known.Display)
		if !ok {
			continue
		}
		if ub.StartHeight+unbondingDelay <= syncHeight {
			out.Claimable.insert(b)
		} else {
			out.NotYetClaimable.insert(b)
		}
	}
	return out, nil
}

// insert appends the token and recomputes the group total from scratch so
// the total always reflects exactly the tokens listed.
func (g *UnbondingGroup) insert(b BalanceView) {
	g.Tokens = append(g.Tokens, b)
	total := num.Amount{}
	for _, t := range g.Tokens {
		total = num.Add(total, t.Amount)
	}
	g.Total = total
}

// UnbondingFilter selects which claimability classes a listing returns.
type UnbondingFilter int

const (
	UnbondingFilterAll UnbondingFilter = iota
	UnbondingFilterClaimable
	UnbondingFilterNotYetClaimable
)

// ParseUnbondingFilter maps the wire form of the filter to its value.
func ParseUnbondingFilter(s string) (UnbondingFilter, error) {
	switch s {
	case "", "all":
		return UnbondingFilterAll, nil
	case "claimable":
		return UnbondingFilterClaimable, nil
	case "notYetClaimable":
		return UnbondingFilterNotYetClaimable, nil
	default:
		return 0, fmt.Errorf("%w: unknown unbonding filter %q", ErrInvalidArgument, s)
	}
}

// Apply narrows the view to the classes the filter selects.
func (v UnbondingView) Apply(f UnbondingFilter) UnbondingView {
	switch f {
	case UnbondingFilterClaimable:
		return UnbondingView{Claimable: v.Claimable}
	case UnbondingFilterNotYetClaimable:
		return UnbondingView{NotYetClaimable: v.NotYetClaimable}
	default:
		return v
	}
}
