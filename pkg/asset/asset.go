// Package asset defines asset identifiers, display metadata, and the
// derived-denomination patterns (delegation and unbonding tokens) that
// encode validator identity and unbonding heights in display strings.
package asset

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// IDSize is the byte length of an asset identifier.
const IDSize = 32

// ID is an opaque fixed-length asset identifier.
type ID [IDSize]byte

// IDFromBytes copies b into an ID. Returns an error if the length is wrong.
func IDFromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != IDSize {
		return id, fmt.Errorf("asset id must be %d bytes, got %d", IDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// String renders the id in base58 for logs and JSON.
func (id ID) String() string {
	return base58.Encode(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	raw, err := base58.Decode(string(text))
	if err != nil {
		return fmt.Errorf("decode asset id: %w", err)
	}
	parsed, err := IDFromBytes(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Metadata is the full display information for a known asset. A balance
// bucket either has complete metadata or none; the two are never mixed.
type Metadata struct {
	ID          ID     `json:"id"`
	Base        string `json:"base"`
	Display     string `json:"display"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	// Exponent converts base units to display units (10^Exponent base per display).
	Exponent uint8 `json:"exponent"`
	// PriorityScore orders assets in caller-facing lists, higher first.
	PriorityScore uint64 `json:"priorityScore"`
}

// EstimatedPrice relates a priced asset to a numeraire as of a height.
// Multiple numeraires may exist per priced asset.
type EstimatedPrice struct {
	PricedAsset      ID      `json:"pricedAsset"`
	Numeraire        ID      `json:"numeraire"`
	NumerairePerUnit float64 `json:"numerairePerUnit"`
	AsOfHeight       uint64  `json:"asOfHeight"`
}

// Stale reports whether the observation falls outside the recency window:
// anything observed more than epochDuration blocks before atHeight.
func (p EstimatedPrice) Stale(atHeight, epochDuration uint64) bool {
	if epochDuration == 0 || atHeight < epochDuration {
		return false
	}
	return p.AsOfHeight < atHeight-epochDuration
}
