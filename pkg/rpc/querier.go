package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/store"
)

// Querier captures the remote calls the view layer makes against a
// fullnode. Implemented by HTTPClient; faked in tests.
type Querier interface {
	// AssetMetadata resolves metadata by id or alternate base denom.
	// Returns (nil, nil) when the chain does not know the asset.
	AssetMetadata(ctx context.Context, req AssetMetadataRequest) (*asset.Metadata, error)

	// ChainHead returns the chain-tip height.
	ChainHead(ctx context.Context) (uint64, error)

	// StreamValidatorInfo visits the validator set in the order the remote
	// yields it. showInactive widens the stream beyond the active set.
	// Iteration stops at the first visit error, which is returned.
	StreamValidatorInfo(ctx context.Context, showInactive bool, visit func(ValidatorInfo) error) error

	// SubmitTransaction submits the opaque binary encoding and returns the
	// network's own computed id for it.
	SubmitTransaction(ctx context.Context, raw []byte) (store.TxID, error)

	// TransactionByID returns (nil, nil) when the chain has no such
	// transaction yet.
	TransactionByID(ctx context.Context, id store.TxID) (*store.TxRecord, error)
}

var _ Querier = (*HTTPClient)(nil)

// AssetMetadata resolves full display metadata for an asset the local store
// does not know.
func (c *HTTPClient) AssetMetadata(ctx context.Context, req AssetMetadataRequest) (*asset.Metadata, error) {
	var resp assetMetadataResponse
	if err := c.doJSON(ctx, http.MethodPost, assetMetadataPath, req, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch asset metadata: %w", err)
	}
	return resp.Metadata, nil
}

// ChainHead returns the latest block height the node knows about.
func (c *HTTPClient) ChainHead(ctx context.Context) (uint64, error) {
	var resp headResponse
	if err := c.doJSON(ctx, http.MethodPost, headPath, nil, &resp); err != nil {
		return 0, fmt.Errorf("fetch chain head: %w", err)
	}
	return resp.Height, nil
}

// StreamValidatorInfo fetches the validator set page by page, visiting each
// validator in remote order.
func (c *HTTPClient) StreamValidatorInfo(ctx context.Context, showInactive bool, visit func(ValidatorInfo) error) error {
	validators, err := listPaged[ValidatorInfo](ctx, c, validatorInfoPath, map[string]any{
		"showInactive": showInactive,
	})
	if err != nil {
		return fmt.Errorf("fetch validator info: %w", err)
	}
	for _, v := range validators {
		if err := visit(v); err != nil {
			return err
		}
	}
	return nil
}

// SubmitTransaction submits the transaction's exact binary encoding.
func (c *HTTPClient) SubmitTransaction(ctx context.Context, raw []byte) (store.TxID, error) {
	var resp submitTxResponse
	if err := c.doJSON(ctx, http.MethodPost, txSubmitPath, submitTxRequest{Raw: raw}, &resp); err != nil {
		return store.TxID{}, fmt.Errorf("submit transaction: %w", err)
	}
	return resp.TxID, nil
}

// TransactionByID looks a transaction up by its content-hash id.
func (c *HTTPClient) TransactionByID(ctx context.Context, id store.TxID) (*store.TxRecord, error) {
	var record store.TxRecord
	if err := c.doJSON(ctx, http.MethodPost, txByIDPath, txByIDRequest{TxID: id}, &record); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch transaction: %w", err)
	}
	return &record, nil
}
