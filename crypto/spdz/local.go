//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"fmt"
	"math/big"

	"github.com/markkurossi/mpclp/crypto/field"
)

// Local implements the arithmetic operations in the clear in a single
// process. The values are kept in the V fields of the shares and the
// MACs are zero. Local is useful as a reference for the two-party
// computation.
type Local struct {
	Params Params
	Stats  Stats
}

// NewLocal creates a new local backend. If params is nil, the backend
// uses the default parameters.
func NewLocal(params *Params) *Local {
	if params == nil {
		params = NewParams()
	}
	return &Local{
		Params: *params,
	}
}

func (l *Local) value(v *big.Int) *Share {
	return &Share{
		V: field.Reduce(v),
		M: new(big.Int),
	}
}

// Known returns the public constant c.
func (l *Local) Known(c *big.Int) *Share {
	return l.value(c)
}

// Add returns a+b.
func (l *Local) Add(a, b *Share) *Share {
	return l.value(field.Add(a.V, b.V))
}

// Sub returns a-b.
func (l *Local) Sub(a, b *Share) *Share {
	return l.value(field.Sub(a.V, b.V))
}

// Neg returns -a.
func (l *Local) Neg(a *Share) *Share {
	return l.value(field.Neg(a.V))
}

// Scale returns c*a.
func (l *Local) Scale(c *big.Int, a *Share) *Share {
	return l.value(field.Mul(c, a.V))
}

// Input returns the values as secret values. The local backend acts
// as every party and needs all values.
func (l *Local) Input(owner int, values []*big.Int, n int) ([]*Share, error) {
	if owner != 0 && owner != 1 {
		return nil, ErrInvalidParty
	}
	if values == nil && n > 0 {
		return nil, fmt.Errorf("spdz: local input: values of party %v unknown",
			owner)
	}
	result := make([]*Share, len(values))
	for i, v := range values {
		result[i] = l.value(v)
	}
	return result, nil
}

// Mul multiplies a and b element-wise.
func (l *Local) Mul(a, b []*Share) ([]*Share, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("spdz: mul: length mismatch %d != %d",
			len(a), len(b))
	}
	result := make([]*Share, len(a))
	for i := range a {
		result[i] = l.value(field.Mul(a[i].V, b[i].V))
	}
	l.Stats.Mults += uint64(len(a))
	l.Stats.Rounds++
	return result, nil
}

// LTZ computes [a[i] < 0].
func (l *Local) LTZ(a []*Share) ([]*Share, error) {
	result := make([]*Share, len(a))
	for i := range a {
		result[i] = l.bit(field.Signed(a[i].V).Sign() < 0)
	}
	l.Stats.Rounds++
	return result, nil
}

// LEQ computes [a[i] <= b[i]].
func (l *Local) LEQ(a, b []*Share) ([]*Share, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("spdz: leq: length mismatch %d != %d",
			len(a), len(b))
	}
	result := make([]*Share, len(a))
	for i := range a {
		result[i] = l.bit(field.Signed(a[i].V).Cmp(field.Signed(b[i].V)) <= 0)
	}
	l.Stats.Rounds++
	return result, nil
}

// Equal computes [a[i] == b[i]].
func (l *Local) Equal(bits int, a, b []*Share) ([]*Share, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("spdz: equal: length mismatch %d != %d",
			len(a), len(b))
	}
	if bits < 1 {
		return nil, fmt.Errorf("spdz: equal: invalid bit length %v", bits)
	}
	result := make([]*Share, len(a))
	for i := range a {
		result[i] = l.bit(a[i].V.Cmp(b[i].V) == 0)
	}
	l.Stats.Rounds++
	return result, nil
}

// Invert computes the multiplicative inverses of a.
func (l *Local) Invert(a []*Share) ([]*Share, error) {
	result := make([]*Share, len(a))
	for i := range a {
		inv, err := field.Inv(a[i].V)
		if err != nil {
			return nil, ErrZeroInverse
		}
		result[i] = l.value(inv)
	}
	l.Stats.Rounds++
	return result, nil
}

// Reveal returns the values of a.
func (l *Local) Reveal(a []*Share) ([]*big.Int, error) {
	result := make([]*big.Int, len(a))
	for i := range a {
		result[i] = new(big.Int).Set(a[i].V)
	}
	l.Stats.Opens += uint64(len(a))
	return result, nil
}

func (l *Local) bit(b bool) *Share {
	if b {
		return l.value(big.NewInt(1))
	}
	return l.value(big.NewInt(0))
}
