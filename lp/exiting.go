//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package lp

import (
	"fmt"
	"math/big"

	"github.com/markkurossi/mpclp/crypto/spdz"
)

// Exiting holds the result of the exiting variable selection.
type Exiting struct {
	// Index is the one-hot indicator vector of the exiting row. It is
	// all zero if the problem is unbounded.
	Index []*spdz.Share

	// Column is the update column of m+1 elements: 1 at the exiting
	// row and the negated updated entering column elsewhere.
	Column []*spdz.Share

	// Pivot is the updated entering column value at the exiting row.
	Pivot *spdz.Share
}

// ExitingVariable selects the exiting row with the minimum ratio test
// for the entering column. Rows whose updated entering column value is
// non-positive do not bound the entering variable and are excluded.
// Ties in the minimum ratio are resolved to the row with the lowest
// basic variable index. The bits argument is the bit length of the
// cross products compared for equality.
func ExitingVariable(arith Arithmetic, tableau *Tableau, update Matrix,
	entering []*spdz.Share, basis []*spdz.Share, bits int) (*Exiting, error) {

	m := tableau.M()
	if err := tableau.checkUpdate(update); err != nil {
		return nil, err
	}
	if len(entering) != tableau.Vars() {
		return nil, fmt.Errorf("%w: entering index has %d elements, expected %d",
			ErrDimension, len(entering), tableau.Vars())
	}
	if len(basis) != m {
		return nil, fmt.Errorf("%w: basis has %d elements, expected %d",
			ErrDimension, len(basis), m)
	}

	// Entering column of the tableau including the objective row.
	a := make([][]*spdz.Share, m+1)
	b := make([][]*spdz.Share, m+1)
	for row := 0; row < m; row++ {
		a[row] = entering
		b[row] = tableau.C.Row(row)
	}
	a[m] = entering
	b[m] = tableau.F
	column, err := InnerProducts(arith, a, b)
	if err != nil {
		return nil, err
	}

	// Apply the update matrix to the entering column and to B.
	a = make([][]*spdz.Share, 0, 2*m+1)
	b = make([][]*spdz.Share, 0, 2*m+1)
	for i := 0; i <= m; i++ {
		a = append(a, update.Row(i))
		b = append(b, column)
	}
	for i := 0; i < m; i++ {
		a = append(a, update.Row(i)[:m])
		b = append(b, tableau.B)
	}
	products, err := InnerProducts(arith, a, b)
	if err != nil {
		return nil, err
	}
	u := products[:m+1]
	ub := products[m+1:]

	// Applicability mask.
	nonApplicable, err := arith.LEQ(u[:m], zeros(arith, m))
	if err != nil {
		return nil, err
	}

	_, nm, dm, err := MinRatio(arith, ub, u[:m], nonApplicable)
	if err != nil {
		return nil, err
	}

	// Rows tied with the minimum ratio: n_i*dm == nm*d_i.
	x := make([]*spdz.Share, 2*m)
	y := make([]*spdz.Share, 2*m)
	for i := 0; i < m; i++ {
		x[i] = ub[i]
		y[i] = dm
		x[m+i] = nm
		y[m+i] = u[i]
	}
	cross, err := arith.Mul(x, y)
	if err != nil {
		return nil, err
	}
	diff := make([]*spdz.Share, m)
	for i := 0; i < m; i++ {
		diff[i] = arith.Sub(cross[i], cross[m+i])
	}
	tied, err := arith.Equal(bits, diff, zeros(arith, m))
	if err != nil {
		return nil, err
	}

	// v = M*(1-tied) + M*nonApplicable + basis*tied where M is
	// larger than any variable index.
	large := big.NewInt(int64(tableau.Vars() + 1))
	tiedBasis, err := arith.Mul(basis, tied)
	if err != nil {
		return nil, err
	}
	v := make([]*spdz.Share, m)
	for i := 0; i < m; i++ {
		notTied := arith.Sub(arith.Known(bigOne), tied[i])
		v[i] = arith.Add(arith.Scale(large, notTied),
			arith.Scale(large, nonApplicable[i]))
		v[i] = arith.Add(v[i], tiedBasis[i])
	}
	argmin, _, err := ArgMin(arith, v)
	if err != nil {
		return nil, err
	}

	// Clear the index if the selected row is not applicable and
	// compute e*(u+1) for the update column and pivot.
	x = make([]*spdz.Share, 0, 2*m)
	y = make([]*spdz.Share, 0, 2*m)
	for i := 0; i < m; i++ {
		x = append(x, argmin[i])
		y = append(y, arith.Sub(arith.Known(bigOne), nonApplicable[i]))
	}
	index, err := arith.Mul(x, y)
	if err != nil {
		return nil, err
	}
	for i := 0; i < m; i++ {
		x[i] = index[i]
		y[i] = arith.Add(u[i], arith.Known(bigOne))
	}
	selected, err := arith.Mul(x[:m], y[:m])
	if err != nil {
		return nil, err
	}

	updateColumn := make([]*spdz.Share, m+1)
	for i := 0; i < m; i++ {
		updateColumn[i] = arith.Sub(selected[i], u[i])
	}
	updateColumn[m] = arith.Sub(arith.Known(bigZero), u[m])

	pivot := arith.Sub(Sum(arith, selected), arith.Known(bigOne))

	return &Exiting{
		Index:  index,
		Column: updateColumn,
		Pivot:  pivot,
	}, nil
}
