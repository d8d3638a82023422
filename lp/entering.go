//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package lp

import (
	"math/bits"

	"github.com/markkurossi/mpclp/crypto/spdz"
)

// Entering holds the result of the entering variable selection.
type Entering struct {
	// Index is the one-hot indicator vector of the entering column,
	// all zero when no column can enter.
	Index []*spdz.Share

	// Terminate is 1 if the solution is optimal and 0 otherwise.
	Terminate *spdz.Share
}

// ReducedCosts computes the current reduced costs F' by applying the
// last row of the update matrix to each tableau column extended with
// its objective row entry.
func ReducedCosts(arith Arithmetic, tableau *Tableau, update Matrix) (
	[]*spdz.Share, error) {

	if err := tableau.checkUpdate(update); err != nil {
		return nil, err
	}
	last := update.Row(tableau.M())

	a := make([][]*spdz.Share, tableau.Vars())
	b := make([][]*spdz.Share, tableau.Vars())
	for j := 0; j < tableau.Vars(); j++ {
		a[j] = last
		b[j] = tableau.column(j)
	}
	return InnerProducts(arith, a, b)
}

// EnteringVariable selects the entering variable with Danzig's rule:
// the column with the most negative reduced cost. The solution is
// optimal when the minimum reduced cost is non-negative.
func EnteringVariable(arith Arithmetic, tableau *Tableau, update Matrix) (
	*Entering, error) {

	costs, err := ReducedCosts(arith, tableau, update)
	if err != nil {
		return nil, err
	}
	index, minimum, err := ArgMin(arith, costs)
	if err != nil {
		return nil, err
	}
	term, err := arith.LEQ([]*spdz.Share{arith.Known(bigZero)},
		[]*spdz.Share{minimum})
	if err != nil {
		return nil, err
	}
	return &Entering{
		Index:     index,
		Terminate: term[0],
	}, nil
}

// BlandEnteringVariable selects the entering variable with Bland's
// rule: the first column with a negative reduced cost. The first
// negative column is the one where the sum of the prefix sums of the
// sign bits at the column and its predecessor equals 1.
func BlandEnteringVariable(arith Arithmetic, tableau *Tableau,
	update Matrix) (*Entering, error) {

	costs, err := ReducedCosts(arith, tableau, update)
	if err != nil {
		return nil, err
	}
	n := len(costs)

	minusOne := make([]*spdz.Share, n)
	for i := range minusOne {
		minusOne[i] = arith.Known(bigNeg1)
	}
	signs, err := arith.LEQ(costs, minusOne)
	if err != nil {
		return nil, err
	}

	pairs := make([]*spdz.Share, n)
	ones := make([]*spdz.Share, n)
	prefix := arith.Known(bigZero)
	for i := 0; i < n; i++ {
		prev := prefix
		prefix = arith.Add(prefix, signs[i])
		pairs[i] = arith.Add(prefix, prev)
		ones[i] = arith.Known(bigOne)
	}
	// The pair sums are in [0, 2n].
	index, err := arith.Equal(bits.Len(uint(2*n))+1, pairs, ones)
	if err != nil {
		return nil, err
	}
	return &Entering{
		Index:     index,
		Terminate: arith.Sub(arith.Known(bigOne), Sum(arith, index)),
	}, nil
}
