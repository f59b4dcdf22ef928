package rpc

import (
	"errors"

	"github.com/mr-tron/base58"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/store"
)

// errNotFound marks a remote 404. Callers translate it into (nil, nil)
// option semantics; it never escapes this package.
var errNotFound = errors.New("remote: not found")

// AssetMetadataRequest looks an asset up either by id or by an alternate
// base denom (used for derived assets the wallet has never held).
type AssetMetadataRequest struct {
	AssetID      *asset.ID `json:"assetId,omitempty"`
	AltBaseDenom string    `json:"altBaseDenom,omitempty"`
}

// assetMetadataResponse wraps the metadata so absence is expressible.
type assetMetadataResponse struct {
	Metadata *asset.Metadata `json:"metadata"`
}

// headResponse is the chain-tip height response.
type headResponse struct {
	Height uint64 `json:"height"`
}

// ValidatorInfo is one entry of the validator-info stream: identity key
// plus descriptive metadata.
type ValidatorInfo struct {
	// IdentityKey is the validator's identity key, base58-encoded.
	IdentityKey string `json:"identityKey"`
	Name        string `json:"name"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
	VotingPower uint64 `json:"votingPower"`
	State       string `json:"state"`
}

// IdentityKeyBytes decodes the base58 identity key.
func (v ValidatorInfo) IdentityKeyBytes() ([]byte, error) {
	return base58.Decode(v.IdentityKey)
}

// submitTxRequest carries the opaque binary transaction encoding.
// Raw marshals as base64 under encoding/json.
type submitTxRequest struct {
	Raw []byte `json:"raw"`
}

// submitTxResponse returns the network's own computed id for the submission.
type submitTxResponse struct {
	TxID store.TxID `json:"txId"`
}

// txByIDRequest looks a transaction up by its content-hash id.
type txByIDRequest struct {
	TxID store.TxID `json:"txId"`
}
