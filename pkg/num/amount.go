// Package num implements the exact 128-bit unsigned quantities used for
// value totals. Amounts are split into two 64-bit words; totals are only
// ever combined with exact integer addition, never floating point.
package num

import (
	"fmt"
	"math/big"
	"math/bits"
)

// Amount is an unsigned 128-bit quantity represented as two 64-bit words.
// The zero value is a zero amount and is ready to use.
type Amount struct {
	Lo uint64 `json:"lo"`
	Hi uint64 `json:"hi"`
}

// New returns an Amount holding the given low and high words.
func New(lo, hi uint64) Amount {
	return Amount{Lo: lo, Hi: hi}
}

// FromUint64 returns an Amount holding a value that fits in 64 bits.
func FromUint64(v uint64) Amount {
	return Amount{Lo: v}
}

// Add returns a+b using exact 128-bit addition.
// Domain amounts are bounded far below 2^128, so a carry out of the high
// word is a programming error and panics rather than wrapping silently.
func Add(a, b Amount) Amount {
	lo, carry := bits.Add64(a.Lo, b.Lo, 0)
	hi, carry := bits.Add64(a.Hi, b.Hi, carry)
	if carry != 0 {
		panic(fmt.Sprintf("amount overflow: %s + %s exceeds 128 bits", a, b))
	}
	return Amount{Lo: lo, Hi: hi}
}

// IsZero reports whether both words are zero.
func (a Amount) IsZero() bool {
	return a.Lo == 0 && a.Hi == 0
}

// Cmp compares a and b, returning -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.Hi != b.Hi:
		if a.Hi < b.Hi {
			return -1
		}
		return 1
	case a.Lo != b.Lo:
		if a.Lo < b.Lo {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// Big joins the two words into a big.Int.
func (a Amount) Big() *big.Int {
	v := new(big.Int).SetUint64(a.Hi)
	v.Lsh(v, 64)
	return v.Add(v, new(big.Int).SetUint64(a.Lo))
}

// FromBig splits a non-negative big.Int into two 64-bit words.
// Returns false if v is negative or does not fit in 128 bits.
func FromBig(v *big.Int) (Amount, bool) {
	if v.Sign() < 0 || v.BitLen() > 128 {
		return Amount{}, false
	}
	lo := new(big.Int).And(v, maxWord)
	hi := new(big.Int).Rsh(v, 64)
	return Amount{Lo: lo.Uint64(), Hi: hi.Uint64()}, true
}

var maxWord = new(big.Int).SetUint64(^uint64(0))

// MultiplyByRate converts a through a floating-point conversion rate,
// rounding to the nearest integer. It exists solely for equivalent-value
// display; totals are never combined through it.
func MultiplyByRate(a Amount, rate float64) Amount {
	f := new(big.Float).SetInt(a.Big())
	f.Mul(f, big.NewFloat(rate))
	f.Add(f, big.NewFloat(0.5))
	out, _ := f.Int(nil)
	if out.Sign() < 0 {
		return Amount{}
	}
	converted, ok := FromBig(out)
	if !ok {
		// A rate large enough to push a bounded amount past 128 bits is a
		// display-only estimate; saturate instead of panicking.
		return Amount{Lo: ^uint64(0), Hi: ^uint64(0)}
	}
	return converted
}

// String renders the joined 128-bit value in base 10.
func (a Amount) String() string {
	return a.Big().String()
}
