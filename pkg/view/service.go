// Package view implements the wallet's read model: balance aggregation over
// owned value records, race-free detection of chain events (spends, claims,
// confirmations), transaction broadcast, and the delegation/unbonding
// reconciliation built on top.
package view

import (
	"context"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/keys"
	"github.com/mosaic-network/walletx/pkg/rpc"
	"github.com/mosaic-network/walletx/pkg/store"
)

// cacheFillWorkers bounds the fire-and-forget metadata save pool.
const cacheFillWorkers = 4

// Service is the view layer over one wallet. Every dependency is passed in
// explicitly so tests can build isolated instances.
type Service struct {
	logger    *zap.Logger
	store     store.Store
	querier   rpc.Querier
	addresses keys.AddressProvider

	// cacheFill runs best-effort metadata write-backs off the request path.
	cacheFill pond.Pool
}

// New wires a Service from its collaborators.
func New(logger *zap.Logger, st store.Store, querier rpc.Querier, addresses keys.AddressProvider) *Service {
	return &Service{
		logger:    logger,
		store:     st,
		querier:   querier,
		addresses: addresses,
		cacheFill: pond.NewPool(cacheFillWorkers),
	}
}

// Close drains the background cache-fill pool.
func (s *Service) Close() {
	s.cacheFill.StopAndWait()
}

// resolveMetadata resolves an asset's metadata: local cache first, then the
// remote querier. A remote hit gets its symbol customized and is written
// back to the local cache as a fire-and-forget side effect; failure there
// is swallowed since the write-back is purely an optimization.
// Returns nil when neither side knows the asset.
func (s *Service) resolveMetadata(ctx context.Context, req rpc.AssetMetadataRequest) (*asset.Metadata, error) {
	if req.AssetID != nil {
		local, err := s.store.AssetMetadata(ctx, *req.AssetID)
		if err != nil {
			return nil, err
		}
		if local != nil {
			return local, nil
		}
	}

	remote, err := s.querier.AssetMetadata(ctx, req)
	if err != nil {
		return nil, err
	}
	if remote == nil {
		return nil, nil
	}

	customized := asset.CustomizeSymbol(*remote)
	s.cacheFill.Submit(func() {
		if err := s.store.SaveAssetMetadata(context.Background(), customized); err != nil {
			s.logger.Warn("metadata cache-fill failed",
				zap.String("asset", customized.ID.String()),
				zap.Error(err))
		}
	})
	return &customized, nil
}

// relevanceHeight returns the height used to bound price relevance: the
// chain tip when reachable, else the local full-sync height. The tip is
// preferred so stale prices aren't shown while the wallet is catching up.
func (s *Service) relevanceHeight(ctx context.Context) uint64 {
	if head, err := s.querier.ChainHead(ctx); err == nil {
		return head
	}
	height, err := s.store.SyncHeight(ctx)
	if err != nil {
		return 0
	}
	return height
}
