//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"github.com/markkurossi/mpclp/crypto/field"
)

// Invert computes the multiplicative inverses of the shared values
// a. The function returns ErrZeroInverse if any of the values is
// zero.
func (p *Peer) Invert(a []*Share) ([]*Share, error) {
	n := len(a)
	if n == 0 {
		return nil, nil
	}
	masks, err := p.randoms(n)
	if err != nil {
		return nil, err
	}
	prod, err := p.Mul(a, masks)
	if err != nil {
		return nil, err
	}
	c, err := p.Open(prod)
	if err != nil {
		return nil, err
	}
	result := make([]*Share, n)
	for i := 0; i < n; i++ {
		inv, err := field.Inv(c[i])
		if err != nil {
			return nil, ErrZeroInverse
		}
		result[i] = ScaleShare(inv, masks[i])
	}
	return result, nil
}
