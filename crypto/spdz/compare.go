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

// LTZ computes the shared bits [a[i] < 0] for signed values in the
// range [-2^(k-1), 2^(k-1)) where k is Params.BitLength.
//
// The value b = a + 2^(k-1) is masked with a random value whose k-1
// low bits are shared bitwise and whose StatSec+1 high bits statistically
// hide b. The bit floor(b/2^(k-1)) is then computed from the opened
// masked value with a bitwise comparison against the low mask bits.
func (p *Peer) LTZ(a []*Share) ([]*Share, error) {
	n := len(a)
	if n == 0 {
		return nil, nil
	}
	k := p.Params.BitLength
	low := k - 1
	high := p.Params.StatSec + 1

	bits, err := p.RandomBits(n * (low + high))
	if err != nil {
		return nil, err
	}
	offset := field.Pow2(low)

	lowBits := make([][]*Share, n)
	lowMask := make([]*Share, n)
	masked := make([]*Share, n)
	b := make([]*Share, n)
	for i := 0; i < n; i++ {
		rb := bits[i*(low+high) : (i+1)*(low+high)]
		lowBits[i] = rb[:low]
		lowMask[i] = composeBits(rb[:low])
		r := AddShare(lowMask[i], ScaleShare(offset, composeBits(rb[low:])))

		b[i] = p.AddPublic(a[i], offset)
		masked[i] = AddShare(b[i], r)
	}
	c, err := p.Open(masked)
	if err != nil {
		return nil, err
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(low))
	cLow := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		cLow[i] = new(big.Int).Mod(c[i], mod)
	}
	u, err := p.bitLT(cLow, lowBits)
	if err != nil {
		return nil, err
	}
	invOffset, err := field.Inv(offset)
	if err != nil {
		return nil, err
	}
	one := big.NewInt(1)

	result := make([]*Share, n)
	for i := 0; i < n; i++ {
		// b mod 2^(k-1) = c' - r' + 2^(k-1)*u
		bMod := SubShare(p.Known(cLow[i]), lowMask[i])
		bMod = AddShare(bMod, ScaleShare(offset, u[i]))

		// ge = (b - b mod 2^(k-1)) / 2^(k-1)
		ge := ScaleShare(invOffset, SubShare(b[i], bMod))
		result[i] = SubShare(p.Known(one), ge)
	}
	return result, nil
}

// LEQ computes the shared bits [a[i] <= b[i]].
func (p *Peer) LEQ(a, b []*Share) ([]*Share, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("spdz: leq: length mismatch %d != %d",
			len(a), len(b))
	}
	diff := make([]*Share, len(a))
	for i := range a {
		diff[i] = SubShare(b[i], a[i])
	}
	lt, err := p.LTZ(diff)
	if err != nil {
		return nil, err
	}
	one := big.NewInt(1)
	for i := range lt {
		lt[i] = SubShare(p.Known(one), lt[i])
	}
	return lt, nil
}

// Equal computes the shared bits [a[i] == b[i]] for values whose
// difference lies in [-2^bits, 2^bits).
func (p *Peer) Equal(bits int, a, b []*Share) ([]*Share, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("spdz: equal: length mismatch %d != %d",
			len(a), len(b))
	}
	if bits < 1 || bits+p.Params.StatSec+2 >= field.P.BitLen() {
		return nil, fmt.Errorf("spdz: equal: invalid bit length %v", bits)
	}
	n := len(a)
	if n == 0 {
		return nil, nil
	}
	low := bits + 1
	high := p.Params.StatSec

	rb, err := p.RandomBits(n * (low + high))
	if err != nil {
		return nil, err
	}
	offset := field.Pow2(bits)
	shift := field.Pow2(low)

	masked := make([]*Share, n)
	lowBits := make([][]*Share, n)
	for i := 0; i < n; i++ {
		r := rb[i*(low+high) : (i+1)*(low+high)]
		lowBits[i] = r[:low]
		mask := AddShare(composeBits(r[:low]), ScaleShare(shift, composeBits(r[low:])))

		d := p.AddPublic(SubShare(a[i], b[i]), offset)
		masked[i] = AddShare(d, mask)
	}
	c, err := p.Open(masked)
	if err != nil {
		return nil, err
	}

	mod := new(big.Int).Lsh(big.NewInt(1), uint(low))
	one := big.NewInt(1)
	factors := make([][]*Share, n)
	for i := 0; i < n; i++ {
		// The difference is zero iff the low mask bits equal
		// t = (c mod 2^(bits+1) - 2^bits) mod 2^(bits+1).
		t := new(big.Int).Mod(c[i], mod)
		t.Sub(t, offset)
		t.Mod(t, mod)

		factors[i] = make([]*Share, low)
		for j := 0; j < low; j++ {
			if t.Bit(j) == 1 {
				factors[i][j] = lowBits[i][j]
			} else {
				factors[i][j] = SubShare(p.Known(one), lowBits[i][j])
			}
		}
	}
	return p.productTree(factors)
}
