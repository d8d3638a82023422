//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package lp

import (
	"fmt"

	"github.com/markkurossi/mpclp/crypto/spdz"
)

// Sum returns the sum of the values.
func Sum(arith Arithmetic, values []*spdz.Share) *spdz.Share {
	result := arith.Known(bigZero)
	for _, v := range values {
		result = arith.Add(result, v)
	}
	return result
}

// InnerProduct returns the inner product of a and b.
func InnerProduct(arith Arithmetic, a, b []*spdz.Share) (*spdz.Share, error) {
	result, err := InnerProducts(arith, [][]*spdz.Share{a}, [][]*spdz.Share{b})
	if err != nil {
		return nil, err
	}
	return result[0], nil
}

// InnerProducts computes the inner products of the vector pairs a[i]
// and b[i] in one multiplication batch.
func InnerProducts(arith Arithmetic, a, b [][]*spdz.Share) (
	[]*spdz.Share, error) {

	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d != %d vectors",
			ErrDimension, len(a), len(b))
	}
	var x, y []*spdz.Share
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return nil, fmt.Errorf("%w: inner product of %d and %d elements",
				ErrDimension, len(a[i]), len(b[i]))
		}
		x = append(x, a[i]...)
		y = append(y, b[i]...)
	}
	prod, err := arith.Mul(x, y)
	if err != nil {
		return nil, err
	}
	result := make([]*spdz.Share, len(a))
	var ofs int
	for i := range a {
		result[i] = Sum(arith, prod[ofs:ofs+len(a[i])])
		ofs += len(a[i])
	}
	return result, nil
}

// ConditionalSelect returns a[i] if bits[i] is 1 and b[i] otherwise,
// computed as b + bit*(a-b). The bits must be 0 or 1.
func ConditionalSelect(arith Arithmetic, bits, a, b []*spdz.Share) (
	[]*spdz.Share, error) {

	if len(bits) != len(a) || len(a) != len(b) {
		return nil, fmt.Errorf("%w: select %d bits from %d and %d values",
			ErrDimension, len(bits), len(a), len(b))
	}
	diff := make([]*spdz.Share, len(a))
	for i := range a {
		diff[i] = arith.Sub(a[i], b[i])
	}
	prod, err := arith.Mul(bits, diff)
	if err != nil {
		return nil, err
	}
	result := make([]*spdz.Share, len(a))
	for i := range a {
		result[i] = arith.Add(b[i], prod[i])
	}
	return result, nil
}

// candidate is a tournament node: the indicator vector of the
// winning position among the node's leaves and the winner's values.
type candidate struct {
	index []*spdz.Share
	vals  []*spdz.Share
}

func leaves(arith Arithmetic, values ...[]*spdz.Share) []candidate {
	nodes := make([]candidate, len(values[0]))
	for i := range nodes {
		nodes[i].index = []*spdz.Share{arith.Known(bigOne)}
		for _, v := range values {
			nodes[i].vals = append(nodes[i].vals, v[i])
		}
	}
	return nodes
}

// tournament reduces the candidates pairwise until one remains. The
// choose function returns the bits selecting the left candidate of
// each pair; the left candidate always covers the lower indices. Each
// level selects the winners' values and scales the indicator vectors
// in one multiplication batch.
func tournament(arith Arithmetic, nodes []candidate,
	choose func(left, right []candidate) ([]*spdz.Share, error)) (
	candidate, error) {

	for len(nodes) > 1 {
		half := len(nodes) / 2
		left := make([]candidate, half)
		right := make([]candidate, half)
		for i := 0; i < half; i++ {
			left[i] = nodes[2*i]
			right[i] = nodes[2*i+1]
		}
		c, err := choose(left, right)
		if err != nil {
			return candidate{}, err
		}

		// winner = right + c*(left-right), index = c*left ++ (1-c)*right
		var bits, factors []*spdz.Share
		for i := 0; i < half; i++ {
			for j := range left[i].vals {
				bits = append(bits, c[i])
				factors = append(factors,
					arith.Sub(left[i].vals[j], right[i].vals[j]))
			}
			notC := arith.Sub(arith.Known(bigOne), c[i])
			for _, v := range left[i].index {
				bits = append(bits, c[i])
				factors = append(factors, v)
			}
			for _, v := range right[i].index {
				bits = append(bits, notC)
				factors = append(factors, v)
			}
		}
		prod, err := arith.Mul(bits, factors)
		if err != nil {
			return candidate{}, err
		}

		next := make([]candidate, 0, (len(nodes)+1)/2)
		var ofs int
		for i := 0; i < half; i++ {
			var node candidate
			for j := range left[i].vals {
				node.vals = append(node.vals,
					arith.Add(right[i].vals[j], prod[ofs]))
				ofs++
			}
			n := len(left[i].index) + len(right[i].index)
			node.index = prod[ofs : ofs+n]
			ofs += n
			next = append(next, node)
		}
		if len(nodes)%2 == 1 {
			next = append(next, nodes[len(nodes)-1])
		}
		nodes = next
	}
	return nodes[0], nil
}

// ArgMin returns the one-hot indicator vector of the minimum of the
// signed values and the minimum itself. Ties are resolved to the
// lowest index.
func ArgMin(arith Arithmetic, values []*spdz.Share) (
	[]*spdz.Share, *spdz.Share, error) {

	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w: minimum of empty vector",
			ErrDimension)
	}
	winner, err := tournament(arith, leaves(arith, values),
		func(left, right []candidate) ([]*spdz.Share, error) {
			a := make([]*spdz.Share, len(left))
			b := make([]*spdz.Share, len(right))
			for i := range left {
				a[i] = left[i].vals[0]
				b[i] = right[i].vals[0]
			}
			return arith.LEQ(a, b)
		})
	if err != nil {
		return nil, nil, err
	}
	return winner.index, winner.vals[0], nil
}

// MinRatio returns the one-hot indicator vector of the minimum
// fraction numerators[i]/denominators[i] together with the minimal
// numerator and denominator. The fractions are compared by cross
// multiplication and the denominators of the candidate fractions must
// be positive. Entries whose infinity flag is 1 are never selected
// unless all entries are flagged. Ties are resolved to the lowest
// index.
func MinRatio(arith Arithmetic, numerators, denominators,
	infinity []*spdz.Share) ([]*spdz.Share, *spdz.Share, *spdz.Share, error) {

	if len(numerators) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: minimum of empty vector",
			ErrDimension)
	}
	if len(numerators) != len(denominators) ||
		len(numerators) != len(infinity) {
		return nil, nil, nil, fmt.Errorf("%w: %d numerators, %d denominators, %d flags",
			ErrDimension, len(numerators), len(denominators), len(infinity))
	}
	const (
		num = iota
		den
		inf
	)
	winner, err := tournament(arith,
		leaves(arith, numerators, denominators, infinity),
		func(left, right []candidate) ([]*spdz.Share, error) {
			n := len(left)

			// n_a*d_b <= n_b*d_a
			x := make([]*spdz.Share, 2*n)
			y := make([]*spdz.Share, 2*n)
			for i := 0; i < n; i++ {
				x[i] = left[i].vals[num]
				y[i] = right[i].vals[den]
				x[n+i] = right[i].vals[num]
				y[n+i] = left[i].vals[den]
			}
			cross, err := arith.Mul(x, y)
			if err != nil {
				return nil, err
			}
			leq, err := arith.LEQ(cross[:n], cross[n:])
			if err != nil {
				return nil, err
			}

			// c = (1-inf_a) * (inf_b OR leq)
			infB := make([]*spdz.Share, n)
			for i := 0; i < n; i++ {
				infB[i] = right[i].vals[inf]
			}
			both, err := arith.Mul(infB, leq)
			if err != nil {
				return nil, err
			}
			notInfA := make([]*spdz.Share, n)
			or := make([]*spdz.Share, n)
			for i := 0; i < n; i++ {
				notInfA[i] = arith.Sub(arith.Known(bigOne), left[i].vals[inf])
				or[i] = arith.Sub(arith.Add(infB[i], leq[i]), both[i])
			}
			return arith.Mul(notInfA, or)
		})
	if err != nil {
		return nil, nil, nil, err
	}
	return winner.index, winner.vals[num], winner.vals[den], nil
}
