//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"math/big"

	"github.com/markkurossi/mpclp/crypto/field"
)

var inv2 = func() *big.Int {
	v, err := field.Inv(big.NewInt(2))
	if err != nil {
		panic(err)
	}
	return v
}()

// RandomBits returns n shared random bits. If the preprocessor
// implements BitSource, the bits are taken from it. Otherwise each bit
// is derived from an authenticated random value r by opening r^2:
// since p = 3 mod 4, r/sqrt(r^2) is a uniformly random sign and
// (r/sqrt(r^2) + 1)/2 a uniformly random bit.
func (p *Peer) RandomBits(n int) ([]*Share, error) {
	if n <= 0 {
		return nil, nil
	}
	p.Stats.Bits += uint64(n)

	if src, ok := p.pre.(BitSource); ok {
		return src.Bits(n)
	}

	result := make([]*Share, 0, n)
	for len(result) < n {
		count := n - len(result)
		r, err := p.randoms(count)
		if err != nil {
			return nil, err
		}
		squares, err := p.Mul(r, r)
		if err != nil {
			return nil, err
		}
		s, err := p.Open(squares)
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			if s[i].Sign() == 0 {
				// Retried in the next round.
				continue
			}
			root := field.Sqrt(s[i])
			inv, err := field.Inv(root)
			if err != nil {
				return nil, err
			}
			bit := ScaleShare(field.Mul(inv, inv2), r[i])
			result = append(result, p.AddPublic(bit, inv2))
		}
	}
	return result, nil
}

// bitLT computes the shared bits [c[e] < r[e]] for the public values
// c[e] and shared bit decompositions r[e] (LSB first). All elements
// are processed in parallel with one multiplication round per bit.
func (p *Peer) bitLT(c []*big.Int, r [][]*Share) ([]*Share, error) {
	n := len(c)
	if n == 0 {
		return nil, nil
	}
	bits := len(r[0])
	lt := make([]*Share, n)
	for e := 0; e < n; e++ {
		lt[e] = p.Known(big.NewInt(0))
	}
	one := big.NewInt(1)

	for j := 0; j < bits; j++ {
		x := make([]*Share, n)
		d := make([]*Share, n)
		for e := 0; e < n; e++ {
			rj := r[e][j]
			if c[e].Bit(j) == 0 {
				x[e] = rj
			} else {
				x[e] = SubShare(p.Known(one), rj)
			}
			d[e] = SubShare(rj, lt[e])
		}
		// lt = lt + (c_j xor r_j) * (r_j - lt)
		prod, err := p.Mul(x, d)
		if err != nil {
			return nil, err
		}
		for e := 0; e < n; e++ {
			lt[e] = AddShare(lt[e], prod[e])
		}
	}
	return lt, nil
}

// composeBits returns sum(bits[i] * 2^i).
func composeBits(bits []*Share) *Share {
	result := &Share{
		V: new(big.Int),
		M: new(big.Int),
	}
	for i, b := range bits {
		result = AddShare(result, ScaleShare(field.Pow2(i), b))
	}
	return result
}

// productTree multiplies the factors of each element together in
// ceil(log2(len(factors[e]))) rounds. All elements must have the same
// number of factors.
func (p *Peer) productTree(factors [][]*Share) ([]*Share, error) {
	n := len(factors)
	if n == 0 {
		return nil, nil
	}
	cur := factors
	for len(cur[0]) > 1 {
		width := len(cur[0])
		half := width / 2

		var a, b []*Share
		for e := 0; e < n; e++ {
			for i := 0; i < half; i++ {
				a = append(a, cur[e][2*i])
				b = append(b, cur[e][2*i+1])
			}
		}
		prod, err := p.Mul(a, b)
		if err != nil {
			return nil, err
		}
		next := make([][]*Share, n)
		for e := 0; e < n; e++ {
			next[e] = append(next[e], prod[e*half:(e+1)*half]...)
			if width%2 == 1 {
				next[e] = append(next[e], cur[e][width-1])
			}
		}
		cur = next
	}
	result := make([]*Share, n)
	for e := 0; e < n; e++ {
		result[e] = cur[e][0]
	}
	return result, nil
}
