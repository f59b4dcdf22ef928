package view

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/keys"
	"github.com/mosaic-network/walletx/pkg/rpc"
	"github.com/mosaic-network/walletx/pkg/store"
)

// fakeQuerier is an in-memory rpc.Querier for service tests.
type fakeQuerier struct {
	metadataByID    map[asset.ID]asset.Metadata
	metadataByDenom map[string]asset.Metadata

	head    uint64
	headErr error

	validators []rpc.ValidatorInfo

	// submitID overrides the id reported back for a submission; nil means
	// agree with the local content hash.
	submitID func(raw []byte) store.TxID

	txs map[store.TxID]store.TxRecord
}

func (f *fakeQuerier) AssetMetadata(_ context.Context, req rpc.AssetMetadataRequest) (*asset.Metadata, error) {
	if req.AssetID != nil {
		if md, ok := f.metadataByID[*req.AssetID]; ok {
			return &md, nil
		}
		return nil, nil
	}
	if md, ok := f.metadataByDenom[req.AltBaseDenom]; ok {
		return &md, nil
	}
	return nil, nil
}

func (f *fakeQuerier) ChainHead(context.Context) (uint64, error) {
	return f.head, f.headErr
}

func (f *fakeQuerier) StreamValidatorInfo(_ context.Context, showInactive bool, visit func(rpc.ValidatorInfo) error) error {
	for _, v := range f.validators {
		if !showInactive && v.State != "active" {
			continue
		}
		if err := visit(v); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeQuerier) SubmitTransaction(_ context.Context, raw []byte) (store.TxID, error) {
	if f.submitID != nil {
		return f.submitID(raw), nil
	}
	return TxIDFromPayload(raw), nil
}

func (f *fakeQuerier) TransactionByID(_ context.Context, id store.TxID) (*store.TxRecord, error) {
	if tx, ok := f.txs[id]; ok {
		return &tx, nil
	}
	return nil, nil
}

var _ rpc.Querier = (*fakeQuerier)(nil)

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		metadataByID:    make(map[asset.ID]asset.Metadata),
		metadataByDenom: make(map[string]asset.Metadata),
		txs:             make(map[store.TxID]store.TxRecord),
	}
}

func newTestService(t *testing.T, q rpc.Querier) (*Service, *store.Memory) {
	t.Helper()

	mem := store.NewMemory(zap.NewNop())
	addresses, err := keys.NewSeedProvider([]byte("view-test-seed"))
	require.NoError(t, err)

	svc := New(zap.NewNop(), mem, q, addresses)
	t.Cleanup(svc.Close)
	t.Cleanup(func() { _ = mem.Close() })
	return svc, mem
}

func assetID(b byte) asset.ID {
	var id asset.ID
	id[0] = b
	return id
}

func commitment(b byte) store.Commitment {
	var c store.Commitment
	c[0] = b
	return c
}

func nullifier(b byte) store.Nullifier {
	var nf store.Nullifier
	nf[0] = b
	return nf
}
