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

// Matrix is a row-major matrix of secret values.
type Matrix [][]*spdz.Share

// NewMatrix creates a new matrix from the rows. All rows must have
// the same non-zero length.
func NewMatrix(rows [][]*spdz.Share) (Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty matrix", ErrDimension)
	}
	for i, row := range rows {
		if len(row) != len(rows[0]) {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d",
				ErrDimension, i, len(row), len(rows[0]))
		}
	}
	return Matrix(rows), nil
}

// Identity creates an n x n identity matrix.
func Identity(arith Arithmetic, n int) Matrix {
	m := make(Matrix, n)
	for i := 0; i < n; i++ {
		m[i] = zeros(arith, n)
		m[i][i] = arith.Known(bigOne)
	}
	return m
}

// Height returns the number of rows.
func (m Matrix) Height() int {
	return len(m)
}

// Width returns the number of columns.
func (m Matrix) Width() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Row returns the row i.
func (m Matrix) Row(i int) []*spdz.Share {
	return m[i]
}

// Column returns a copy of the column j.
func (m Matrix) Column(j int) []*spdz.Share {
	result := make([]*spdz.Share, len(m))
	for i, row := range m {
		result[i] = row[j]
	}
	return result
}

// Reveal opens all matrix elements.
func (m Matrix) Reveal(arith Arithmetic) ([][]*big.Int, error) {
	var flat []*spdz.Share
	for _, row := range m {
		flat = append(flat, row...)
	}
	vals, err := arith.Reveal(flat)
	if err != nil {
		return nil, err
	}
	result := make([][]*big.Int, m.Height())
	for i := range result {
		result[i] = vals[i*m.Width() : (i+1)*m.Width()]
	}
	return result, nil
}

// Tableau defines a linear program in the standard form: minimize
// F*x + z subject to C*x = B, x >= 0. The constraint matrix C includes
// the slack variables. The tableau is never modified by the solver.
type Tableau struct {
	C Matrix
	B []*spdz.Share
	F []*spdz.Share
	Z *spdz.Share
}

// NewTableau creates a new tableau and verifies its dimensions.
func NewTableau(c Matrix, b, f []*spdz.Share, z *spdz.Share) (
	*Tableau, error) {

	if c.Height() == 0 || c.Width() == 0 {
		return nil, fmt.Errorf("%w: empty constraint matrix", ErrDimension)
	}
	if c.Height() != len(b) {
		return nil, fmt.Errorf("%w: C height %d != B length %d",
			ErrDimension, c.Height(), len(b))
	}
	if c.Width() != len(f) {
		return nil, fmt.Errorf("%w: C width %d != F length %d",
			ErrDimension, c.Width(), len(f))
	}
	if z == nil {
		return nil, fmt.Errorf("%w: missing objective offset", ErrDimension)
	}
	return &Tableau{
		C: c,
		B: b,
		F: f,
		Z: z,
	}, nil
}

// M returns the number of constraints.
func (t *Tableau) M() int {
	return t.C.Height()
}

// Vars returns the number of variables including slack variables.
func (t *Tableau) Vars() int {
	return t.C.Width()
}

// column returns the tableau column j with the objective row entry
// appended.
func (t *Tableau) column(j int) []*spdz.Share {
	return append(t.C.Column(j), t.F[j])
}

func (t *Tableau) checkUpdate(update Matrix) error {
	if update.Height() != t.M()+1 || update.Width() != t.M()+1 {
		return fmt.Errorf("%w: update matrix is %dx%d, expected %dx%d",
			ErrDimension, update.Height(), update.Width(), t.M()+1, t.M()+1)
	}
	for i, row := range update {
		if len(row) != t.M()+1 {
			return fmt.Errorf("%w: update matrix row %d has %d columns",
				ErrDimension, i, len(row))
		}
	}
	return nil
}
