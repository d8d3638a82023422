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

// UpdateMatrix folds the exiting row selection into the update
// matrix. The function returns the new update matrix that, applied to
// the original tableau, gives the tableau after the pivot operation
// scaled by the pivot. Only the previous pivot is inverted.
func UpdateMatrix(arith Arithmetic, update Matrix, exiting *Exiting,
	prevPivot *spdz.Share) (Matrix, error) {

	size := update.Height()
	m := size - 1
	if size < 2 || update.Width() != size {
		return nil, fmt.Errorf("%w: update matrix is %dx%d",
			ErrDimension, update.Height(), update.Width())
	}
	if len(exiting.Index) != m || len(exiting.Column) != size {
		return nil, fmt.Errorf("%w: exiting index %d, column %d, expected %d, %d",
			ErrDimension, len(exiting.Index), len(exiting.Column), m, size)
	}

	inv, err := arith.Invert([]*spdz.Share{prevPivot})
	if err != nil {
		return nil, err
	}
	ppInv := inv[0]

	// pp = pivot/prevPivot, select(e, 1, ppInv) = ppInv + e*(1-ppInv)
	// and the lambda values e[row]*old[row][col].
	x := []*spdz.Share{exiting.Pivot}
	y := []*spdz.Share{ppInv}
	oneMinus := arith.Sub(arith.Known(bigOne), ppInv)
	for i := 0; i < m; i++ {
		x = append(x, exiting.Index[i])
		y = append(y, oneMinus)
	}
	for i := 0; i < m; i++ {
		for c := 0; c < size; c++ {
			x = append(x, exiting.Index[i])
			y = append(y, update[i][c])
		}
	}
	prod, err := arith.Mul(x, y)
	if err != nil {
		return nil, err
	}
	pp := prod[0]
	lambda := prod[1+m:]

	// Scale the update column.
	x = x[:0]
	y = y[:0]
	for i := 0; i < m; i++ {
		x = append(x, exiting.Column[i])
		y = append(y, arith.Add(ppInv, prod[1+i]))
	}
	x = append(x, exiting.Column[m])
	y = append(y, ppInv)
	scaled, err := arith.Mul(x, y)
	if err != nil {
		return nil, err
	}

	lambdaSum := zeros(arith, size)
	for i := 0; i < m; i++ {
		for c := 0; c < size; c++ {
			lambdaSum[c] = arith.Add(lambdaSum[c], lambda[i*size+c])
		}
	}

	// new = scaled[row]*lambdaSum[col] + (old[row][col]-lambda)*pp
	x = make([]*spdz.Share, 0, 2*size*size)
	y = make([]*spdz.Share, 0, 2*size*size)
	for i := 0; i < size; i++ {
		for c := 0; c < size; c++ {
			sub := update[i][c]
			if i < m {
				sub = arith.Sub(sub, lambda[i*size+c])
			}
			x = append(x, scaled[i], sub)
			y = append(y, lambdaSum[c], pp)
		}
	}
	prod, err = arith.Mul(x, y)
	if err != nil {
		return nil, err
	}
	result := make(Matrix, size)
	for i := 0; i < size; i++ {
		result[i] = make([]*spdz.Share, size)
		for c := 0; c < size; c++ {
			o := 2 * (i*size + c)
			result[i][c] = arith.Add(prod[o], prod[o+1])
		}
	}
	return result, nil
}
