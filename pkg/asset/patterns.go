package asset

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/mr-tron/base58"
)

// Derived-asset display denominations encode validator identity (delegation
// tokens) or an unbonding start height plus validator identity (unbonding
// tokens). Identity keys are rendered base58.
var (
	delegationPattern = regexp.MustCompile(`^delegation_([1-9A-HJ-NP-Za-km-z]+)$`)
	unbondingPattern  = regexp.MustCompile(`^unbonding_start_at_(\d+)_([1-9A-HJ-NP-Za-km-z]+)$`)
)

// DelegationBaseDenom derives the base denom of a validator's delegation
// token from its identity key.
func DelegationBaseDenom(identityKey []byte) string {
	return "udelegation_" + base58.Encode(identityKey)
}

// DelegationDisplayDenom derives the display denom of a validator's
// delegation token from its identity key.
func DelegationDisplayDenom(identityKey []byte) string {
	return "delegation_" + base58.Encode(identityKey)
}

// UnbondingDisplayDenom derives the display denom of an unbonding token from
// its start height and the validator's identity key.
func UnbondingDisplayDenom(startHeight uint64, identityKey []byte) string {
	return fmt.Sprintf("unbonding_start_at_%d_%s", startHeight, base58.Encode(identityKey))
}

// CaptureDelegation matches a display denom against the delegation-token
// pattern, returning the encoded identity key.
func CaptureDelegation(display string) (identityKey string, ok bool) {
	m := delegationPattern.FindStringSubmatch(display)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Unbonding is the decoded form of an unbonding-token display denom.
type Unbonding struct {
	StartHeight uint64
	IdentityKey string
}

// CaptureUnbonding matches a display denom against the unbonding-token
// pattern, decoding the start height and identity key.
func CaptureUnbonding(display string) (Unbonding, bool) {
	m := unbondingPattern.FindStringSubmatch(display)
	if m == nil {
		return Unbonding{}, false
	}
	start, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return Unbonding{}, false
	}
	return Unbonding{StartHeight: start, IdentityKey: m[2]}, true
}

// maxSymbolLength truncates pathological symbols in remote metadata.
const maxSymbolLength = 30

// CustomizeSymbol rewrites the symbol of remotely fetched metadata into the
// short display forms used everywhere in the wallet: delegation tokens get
// "delMSC(<id…>)", unbonding tokens "unbondMSCat<height>(<id…>)", and
// over-long symbols are truncated. Other metadata passes through unchanged.
func CustomizeSymbol(md Metadata) Metadata {
	if idKey, ok := CaptureDelegation(md.Display); ok {
		md.Symbol = fmt.Sprintf("delMSC(%s)", abbreviate(idKey))
		return md
	}
	if ub, ok := CaptureUnbonding(md.Display); ok {
		md.Symbol = fmt.Sprintf("unbondMSCat%d(%s)", ub.StartHeight, abbreviate(ub.IdentityKey))
		return md
	}
	if runes := []rune(md.Symbol); len(runes) > maxSymbolLength {
		md.Symbol = string(runes[:maxSymbolLength])
	}
	return md
}

func abbreviate(idKey string) string {
	if len(idKey) <= 8 {
		return idKey
	}
	return idKey[:8] + "…"
}
