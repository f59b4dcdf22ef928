// Package store defines the local record store consumed by the view layer:
// point-in-time reads over owned value records, pending swaps and
// transactions, plus ordered gap-free subscriptions per record category.
//
// The view layer only reads from the store; the external sync path owns the
// write methods. The one exception is the best-effort asset-metadata
// cache-fill, which is idempotent and safe to race with other writers.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/mosaic-network/walletx/pkg/asset"
	"github.com/mosaic-network/walletx/pkg/num"
)

// ErrClosed is returned by Subscription.Next once the category stream has
// terminated and all buffered events have been consumed.
var ErrClosed = errors.New("subscription closed")

// Category identifies one record category for subscriptions.
type Category string

const (
	CategoryNotes        Category = "notes"
	CategorySwaps        Category = "swaps"
	CategoryTransactions Category = "transactions"
)

// Commitment is the opaque binding published when a note or swap is created,
// used to locate the record before its nullifier is known.
type Commitment [32]byte

// Nullifier is the opaque one-time value revealed when a note or swap is
// spent or claimed.
type Nullifier [32]byte

// TxID is a transaction identifier: the content hash of the transaction's
// exact binary encoding.
type TxID [32]byte

func (c Commitment) String() string { return base58.Encode(c[:]) }
func (n Nullifier) String() string  { return base58.Encode(n[:]) }
func (id TxID) String() string      { return base58.Encode(id[:]) }

func (c Commitment) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (n Nullifier) MarshalText() ([]byte, error)  { return []byte(n.String()), nil }
func (id TxID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (c *Commitment) UnmarshalText(text []byte) error { return decode32(text, c[:], "commitment") }
func (n *Nullifier) UnmarshalText(text []byte) error  { return decode32(text, n[:], "nullifier") }
func (id *TxID) UnmarshalText(text []byte) error      { return decode32(text, id[:], "tx id") }

func decode32(text []byte, dst []byte, what string) error {
	raw, err := base58.Decode(string(text))
	if err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%s must be %d bytes, got %d", what, len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

// NoteRecord is an owned value record: one account, one asset, one amount.
// HeightSpent is zero until the note's nullifier is revealed on chain.
type NoteRecord struct {
	Commitment    Commitment `json:"commitment"`
	Nullifier     Nullifier  `json:"nullifier"`
	Account       uint32     `json:"account"`
	AssetID       asset.ID   `json:"assetId"`
	Amount        num.Amount `json:"amount"`
	HeightCreated uint64     `json:"heightCreated"`
	HeightSpent   uint64     `json:"heightSpent"`
}

// Spent reports whether the note has been consumed.
func (n NoteRecord) Spent() bool { return n.HeightSpent != 0 }

// SwapRecord is a pending swap: locatable by commitment before or after
// claim. HeightClaimed is zero until the swap's outputs are claimed.
type SwapRecord struct {
	Commitment    Commitment `json:"commitment"`
	Nullifier     Nullifier  `json:"nullifier"`
	Account       uint32     `json:"account"`
	AssetID       asset.ID   `json:"assetId"`
	Amount        num.Amount `json:"amount"`
	HeightCreated uint64     `json:"heightCreated"`
	HeightClaimed uint64     `json:"heightClaimed"`
}

// Claimed reports whether the swap's outputs have been claimed.
func (s SwapRecord) Claimed() bool { return s.HeightClaimed != 0 }

// TxRecord is a locally detected transaction.
type TxRecord struct {
	ID     TxID   `json:"id"`
	Height uint64 `json:"height"`
	Raw    []byte `json:"raw,omitempty"`
}

// RecordKind discriminates the Record variant.
type RecordKind uint8

const (
	KindNote RecordKind = iota + 1
	KindSwap
	KindTransaction
)

func (k RecordKind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindSwap:
		return "swap"
	case KindTransaction:
		return "transaction"
	default:
		return "untagged"
	}
}

// Record is a tagged variant over the three record categories, resolved once
// at the store boundary. Exactly one of the pointers is non-nil, matching
// Kind.
type Record struct {
	Kind RecordKind
	Note *NoteRecord
	Swap *SwapRecord
	Tx   *TxRecord
}

// NoteEvent wraps a note record as a subscription event.
func NoteEvent(n NoteRecord) Record { return Record{Kind: KindNote, Note: &n} }

// SwapEvent wraps a swap record as a subscription event.
func SwapEvent(s SwapRecord) Record { return Record{Kind: KindSwap, Swap: &s} }

// TxEvent wraps a transaction record as a subscription event.
func TxEvent(t TxRecord) Record { return Record{Kind: KindTransaction, Tx: &t} }

func (r Record) String() string {
	switch r.Kind {
	case KindNote:
		return fmt.Sprintf("note %s", r.Note.Commitment)
	case KindSwap:
		return fmt.Sprintf("swap %s", r.Swap.Commitment)
	case KindTransaction:
		return fmt.Sprintf("tx %s", r.Tx.ID)
	default:
		return "record <untagged>"
	}
}

// Store is the narrow read/subscribe interface the view layer consumes,
// plus the write path owned by the external sync process. Lookup methods
// return (nil, nil) on a miss; errors are reserved for store failures.
//
// Implementations must provide snapshot-consistent reads and gap-free
// subscriptions: a subscription captures every append from the moment
// Subscribe returns, with no replay of history.
type Store interface {
	// Reads.
	IterateUnspentNotes(ctx context.Context) ([]NoteRecord, error)
	NoteByCommitment(ctx context.Context, c Commitment) (*NoteRecord, error)
	SwapByCommitment(ctx context.Context, c Commitment) (*SwapRecord, error)
	NoteByNullifier(ctx context.Context, n Nullifier) (*NoteRecord, error)
	SwapByNullifier(ctx context.Context, n Nullifier) (*SwapRecord, error)
	TransactionByID(ctx context.Context, id TxID) (*TxRecord, error)

	// Subscriptions.
	Subscribe(category Category) *Subscription

	// Asset metadata and prices.
	AssetMetadata(ctx context.Context, id asset.ID) (*asset.Metadata, error)
	SaveAssetMetadata(ctx context.Context, md asset.Metadata) error
	PricesForAsset(ctx context.Context, md asset.Metadata, atHeight, epochDuration uint64) ([]asset.EstimatedPrice, error)

	// Sync parameters.
	SyncHeight(ctx context.Context) (uint64, error)
	EpochDuration(ctx context.Context) (uint64, error)

	// Write path (external sync process and maintenance jobs).
	PutNote(ctx context.Context, n NoteRecord) error
	PutSwap(ctx context.Context, s SwapRecord) error
	PutTransaction(ctx context.Context, t TxRecord) error
	PutPrice(ctx context.Context, p asset.EstimatedPrice) error
	SetSyncHeight(ctx context.Context, height uint64) error
	SetEpochDuration(ctx context.Context, blocks uint64) error
	PrunePricesBelow(ctx context.Context, height uint64) (int, error)

	Close() error
}
