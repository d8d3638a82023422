//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package lp implements an oblivious Revised Simplex linear
// programming solver over secret shared values.
//
// The solver never branches on secret data. All selections are
// computed arithmetically from secret 0/1 indicator vectors and the
// only value revealed in each iteration is the termination bit. The
// solver keeps an (m+1)x(m+1) update matrix instead of rewriting the
// whole tableau in each iteration and defers the division by the
// pivot to the extraction of the optimal value.
package lp

import (
	"math/big"

	"github.com/markkurossi/mpclp/crypto/spdz"
)

// Arithmetic defines the secret arithmetic operations the solver
// needs. The vector operations evaluate all their elements in the
// same communication rounds. Both spdz.Peer and spdz.Local implement
// Arithmetic.
type Arithmetic interface {
	// Known returns a secret value holding the public constant c.
	Known(c *big.Int) *spdz.Share

	// Add returns a+b.
	Add(a, b *spdz.Share) *spdz.Share

	// Sub returns a-b.
	Sub(a, b *spdz.Share) *spdz.Share

	// Scale returns c*a for the public constant c.
	Scale(c *big.Int, a *spdz.Share) *spdz.Share

	// Mul multiplies a and b element-wise.
	Mul(a, b []*spdz.Share) ([]*spdz.Share, error)

	// LEQ computes the bits a[i] <= b[i] for signed values.
	LEQ(a, b []*spdz.Share) ([]*spdz.Share, error)

	// Equal computes the bits a[i] == b[i] for values whose
	// difference is below 2^bits in absolute value.
	Equal(bits int, a, b []*spdz.Share) ([]*spdz.Share, error)

	// Invert computes the multiplicative inverses of a.
	Invert(a []*spdz.Share) ([]*spdz.Share, error)

	// Reveal opens the values a to all parties.
	Reveal(a []*spdz.Share) ([]*big.Int, error)
}

var (
	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
	bigNeg1 = big.NewInt(-1)
)

// zeros returns a vector of n secret zeros.
func zeros(arith Arithmetic, n int) []*spdz.Share {
	result := make([]*spdz.Share, n)
	for i := range result {
		result[i] = arith.Known(bigZero)
	}
	return result
}
