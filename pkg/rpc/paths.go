package rpc

// RPC endpoint paths for fullnode queries. All paths are consolidated here
// so a node API revision only touches one place.
const (
	headPath          = "/v1/query/height"
	assetMetadataPath = "/v1/query/asset-metadata"
	validatorInfoPath = "/v1/query/validator-info"
	txByIDPath        = "/v1/query/tx"
	txSubmitPath      = "/v1/tx/submit"
)
