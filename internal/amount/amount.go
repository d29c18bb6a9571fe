// Package amount implements the unsigned 128-bit quantity used for balances
// and payouts, with saturating arithmetic.
package amount

import (
	"fmt"
	"math/big"
	"math/bits"
)

// U128 is an unsigned 128-bit integer. The zero value is 0.
type U128 struct {
	Hi, Lo uint64
}

// Zero is the additive identity.
var Zero = U128{}

// Max is the largest representable value, 2^128-1.
var Max = U128{Hi: ^uint64(0), Lo: ^uint64(0)}

// FromUint64 widens n.
func FromUint64(n uint64) U128 {
	return U128{Lo: n}
}

// IsZero reports whether u is 0.
func (u U128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// Cmp returns -1, 0 or +1 as u is less than, equal to or greater than v.
func (u U128) Cmp(v U128) int {
	switch {
	case u.Hi < v.Hi:
		return -1
	case u.Hi > v.Hi:
		return 1
	case u.Lo < v.Lo:
		return -1
	case u.Lo > v.Lo:
		return 1
	}
	return 0
}

// Add returns u+v and whether the sum overflowed.
func (u U128) Add(v U128) (U128, bool) {
	lo, carry := bits.Add64(u.Lo, v.Lo, 0)
	hi, carry := bits.Add64(u.Hi, v.Hi, carry)
	return U128{Hi: hi, Lo: lo}, carry != 0
}

// Mul returns u*v truncated to 128 bits and whether the product overflowed.
func (u U128) Mul(v U128) (U128, bool) {
	// (uH*2^64 + uL)(vH*2^64 + vL): the uH*vH term lands entirely above bit 127.
	if u.Hi != 0 && v.Hi != 0 {
		return U128{}, true
	}
	hi, lo := bits.Mul64(u.Lo, v.Lo)

	crossHi1, cross1 := bits.Mul64(u.Hi, v.Lo)
	crossHi2, cross2 := bits.Mul64(u.Lo, v.Hi)
	overflow := crossHi1 != 0 || crossHi2 != 0

	hi, c := bits.Add64(hi, cross1, 0)
	overflow = overflow || c != 0
	hi, c = bits.Add64(hi, cross2, 0)
	overflow = overflow || c != 0

	return U128{Hi: hi, Lo: lo}, overflow
}

// SaturatingAdd returns u+v, clamped to Max.
func (u U128) SaturatingAdd(v U128) U128 {
	sum, overflow := u.Add(v)
	if overflow {
		return Max
	}
	return sum
}

// SaturatingMul returns u*v, clamped to Max.
func (u U128) SaturatingMul(v U128) U128 {
	prod, overflow := u.Mul(v)
	if overflow {
		return Max
	}
	return prod
}

// Big converts u to a big.Int.
func (u U128) Big() *big.Int {
	b := new(big.Int).SetUint64(u.Hi)
	b.Lsh(b, 64)
	return b.Or(b, new(big.Int).SetUint64(u.Lo))
}

// String returns the decimal form of u.
func (u U128) String() string {
	if u.Hi == 0 {
		return fmt.Sprintf("%d", u.Lo)
	}
	return u.Big().String()
}

// Parse reads a non-negative decimal integer that fits in 128 bits.
func Parse(s string) (U128, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return U128{}, fmt.Errorf("amount %q: not a decimal integer", s)
	}
	if b.Sign() < 0 {
		return U128{}, fmt.Errorf("amount %q: negative", s)
	}
	if b.BitLen() > 128 {
		return U128{}, fmt.Errorf("amount %q: exceeds 128 bits", s)
	}
	lo := new(big.Int).And(b, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(b, 64).Uint64()
	return U128{Hi: hi, Lo: lo}, nil
}

// MarshalText implements encoding.TextMarshaler so amounts print as decimals
// in JSON and YAML output.
func (u U128) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *U128) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
