// Package keys provides the address-by-index collaborator the balance
// aggregator uses to label buckets with their owning account's address.
// The real custody engine lives outside this repo; the deterministic
// provider here covers server wiring and tests.
package keys

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// AddressSize is the byte length of a wallet address.
const AddressSize = 32

// Address is an opaque account address.
type Address [AddressSize]byte

func (a Address) String() string { return base58.Encode(a[:]) }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	raw, err := base58.Decode(string(text))
	if err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != AddressSize {
		return fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(raw))
	}
	copy(a[:], raw)
	return nil
}

// AddressView pairs an address with the account index it was derived from.
type AddressView struct {
	Address Address `json:"address"`
	Account uint32  `json:"account"`
}

// AddressProvider resolves the address for an account index.
type AddressProvider interface {
	AddressByIndex(ctx context.Context, account uint32) (Address, error)
}

// SeedProvider derives per-account addresses from a wallet seed with a
// keyed blake2b hash. Deterministic: the same seed and index always yield
// the same address.
type SeedProvider struct {
	seed []byte
}

var _ AddressProvider = (*SeedProvider)(nil)

// NewSeedProvider returns a provider over the given seed bytes.
func NewSeedProvider(seed []byte) (*SeedProvider, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("seed must not be empty")
	}
	out := make([]byte, len(seed))
	copy(out, seed)
	return &SeedProvider{seed: out}, nil
}

func (p *SeedProvider) AddressByIndex(_ context.Context, account uint32) (Address, error) {
	h, err := blake2b.New256(p.seed[:min(len(p.seed), 64)])
	if err != nil {
		return Address{}, fmt.Errorf("derive address: %w", err)
	}
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], account)
	h.Write([]byte("walletx-address"))
	h.Write(idx[:])

	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr, nil
}
