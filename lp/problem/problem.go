//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package problem reads linear programs from the two-file CSV format
// and inputs them into the secret arithmetic.
//
// The values file holds the objective row F over the n decision
// variables followed by m constraint rows of n coefficients and the
// right-hand side. The pattern file has the same shape and tells
// which party supplies each cell: 1 and 2 are the parties and 0 marks
// a public constant present in every values file. A party's values
// file may hold any placeholder in the cells owned by the other
// party.
package problem

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/markkurossi/mpclp/crypto/field"
	"github.com/markkurossi/mpclp/crypto/spdz"
	"github.com/markkurossi/mpclp/lp"
)

// NumParties is the number of parties supplying problem values.
const NumParties = 2

// AllParties specifies that the values file holds every cell.
const AllParties = -1

// ErrFormat is returned for malformed problem files.
var ErrFormat = errors.New("problem: invalid format")

// Problem defines a linear program: minimize F*x subject to C*x <= B,
// x >= 0.
type Problem struct {
	// M is the number of constraints.
	M int
	// N is the number of decision variables.
	N int
	// ID is the 0-based party ID of the values or AllParties.
	ID int
	// Values holds the cell values, row-major, the objective row
	// first. The cells not known to the party are nil.
	Values [][]*big.Int
	// Pattern holds the 1-based owner party of each cell or 0 for
	// public cells.
	Pattern [][]int
}

// Party defines the arithmetic operations needed for inputting the
// problem.
type Party interface {
	lp.Arithmetic
	Input(owner int, values []*big.Int, n int) ([]*spdz.Share, error)
}

// Read reads the problem from the values and pattern files for the
// party id.
func Read(valuesFile, patternFile string, id int) (*Problem, error) {
	vf, err := os.Open(valuesFile)
	if err != nil {
		return nil, err
	}
	defer vf.Close()

	pf, err := os.Open(patternFile)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	return Parse(vf, pf, id)
}

// Parse parses the problem from the values and pattern readers for
// the party id.
func Parse(values, pattern io.Reader, id int) (*Problem, error) {
	if id != AllParties && (id < 0 || id >= NumParties) {
		return nil, fmt.Errorf("problem: invalid party %v", id)
	}
	patternRecords, err := readCSV(pattern, "pattern")
	if err != nil {
		return nil, err
	}
	valueRecords, err := readCSV(values, "values")
	if err != nil {
		return nil, err
	}
	if len(patternRecords) < 2 {
		return nil, fmt.Errorf("%w: pattern: expected objective and constraint rows",
			ErrFormat)
	}
	n := len(patternRecords[0])
	prob := &Problem{
		M:  len(patternRecords) - 1,
		N:  n,
		ID: id,
	}
	if len(valueRecords) != len(patternRecords) {
		return nil, fmt.Errorf("%w: values: %d rows, pattern: %d rows",
			ErrFormat, len(valueRecords), len(patternRecords))
	}

	for row, record := range patternRecords {
		width := n
		if row > 0 {
			width = n + 1
		}
		if len(record) != width {
			return nil, fmt.Errorf("%w: pattern: line %d: %d columns, expected %d",
				ErrFormat, row+1, len(record), width)
		}
		if len(valueRecords[row]) != width {
			return nil, fmt.Errorf("%w: values: line %d: %d columns, expected %d",
				ErrFormat, row+1, len(valueRecords[row]), width)
		}
		owners := make([]int, width)
		vals := make([]*big.Int, width)
		for col, cell := range record {
			owner, err := strconv.Atoi(cell)
			if err != nil || owner < 0 || owner > NumParties {
				return nil, fmt.Errorf("%w: pattern: line %d, column %d: invalid party '%s'",
					ErrFormat, row+1, col+1, cell)
			}
			owners[col] = owner
			if owner != 0 && id != AllParties && owner-1 != id {
				continue
			}
			v, ok := new(big.Int).SetString(valueRecords[row][col], 10)
			if !ok {
				return nil, fmt.Errorf("%w: values: line %d, column %d: invalid value '%s'",
					ErrFormat, row+1, col+1, valueRecords[row][col])
			}
			vals[col] = v
		}
		prob.Pattern = append(prob.Pattern, owners)
		prob.Values = append(prob.Values, vals)
	}
	return prob, nil
}

func readCSV(in io.Reader, name string) ([][]string, error) {
	r := csv.NewReader(in)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, name, err)
	}
	for _, record := range records {
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
	}
	return records, nil
}

// cells returns the cell coordinates in row-major order.
func (prob *Problem) cells() [][2]int {
	var result [][2]int
	for row, owners := range prob.Pattern {
		for col := range owners {
			result = append(result, [2]int{row, col})
		}
	}
	return result
}

// Tableau inputs the problem cells from their owners and returns the
// standard form tableau with the slack variables appended.
func (prob *Problem) Tableau(party Party) (*lp.Tableau, error) {
	cells := prob.cells()
	shares := make(map[[2]int]*spdz.Share)

	for owner := 1; owner <= NumParties; owner++ {
		var owned [][2]int
		var values []*big.Int
		known := prob.ID == AllParties || prob.ID == owner-1
		for _, cell := range cells {
			if prob.Pattern[cell[0]][cell[1]] != owner {
				continue
			}
			owned = append(owned, cell)
			if known {
				values = append(values, prob.Values[cell[0]][cell[1]])
			}
		}
		if len(owned) == 0 {
			continue
		}
		if !known {
			values = nil
		}
		inputs, err := party.Input(owner-1, values, len(owned))
		if err != nil {
			return nil, fmt.Errorf("problem: input from party %v: %w",
				owner, err)
		}
		for i, cell := range owned {
			shares[cell] = inputs[i]
		}
	}
	for _, cell := range cells {
		if prob.Pattern[cell[0]][cell[1]] == 0 {
			shares[cell] = party.Known(prob.Values[cell[0]][cell[1]])
		}
	}

	zero := party.Known(big.NewInt(0))
	one := party.Known(big.NewInt(1))

	rows := make([][]*spdz.Share, prob.M)
	b := make([]*spdz.Share, prob.M)
	for i := 0; i < prob.M; i++ {
		for j := 0; j < prob.N; j++ {
			rows[i] = append(rows[i], shares[[2]int{i + 1, j}])
		}
		for j := 0; j < prob.M; j++ {
			if i == j {
				rows[i] = append(rows[i], one)
			} else {
				rows[i] = append(rows[i], zero)
			}
		}
		b[i] = shares[[2]int{i + 1, prob.N}]
	}
	f := make([]*spdz.Share, prob.N+prob.M)
	for j := range f {
		if j < prob.N {
			f[j] = shares[[2]int{0, j}]
		} else {
			f[j] = zero
		}
	}
	c, err := lp.NewMatrix(rows)
	if err != nil {
		return nil, err
	}
	return lp.NewTableau(c, b, f, zero)
}

// InitialState returns the initial solver state for the problem: the
// identity update matrix, the pivot 1, and the slack variable basis.
func (prob *Problem) InitialState(arith lp.Arithmetic) (
	lp.Matrix, *spdz.Share, []*spdz.Share) {

	basis := make([]*spdz.Share, prob.M)
	for i := range basis {
		basis[i] = arith.Known(big.NewInt(int64(prob.N + i + 1)))
	}
	return lp.Identity(arith, prob.M+1), arith.Known(big.NewInt(1)), basis
}

// NewSolver creates a solver for the problem.
func (prob *Problem) NewSolver(party Party, rule lp.PivotRule) (
	*lp.Solver, error) {

	tableau, err := prob.Tableau(party)
	if err != nil {
		return nil, err
	}
	update, pivot, basis := prob.InitialState(party)
	return lp.NewSolver(party, rule, tableau, update, pivot, basis)
}

func (prob *Problem) String() string {
	var sb strings.Builder
	for row, vals := range prob.Values {
		if row == 0 {
			sb.WriteString("min")
		} else {
			sb.WriteString("s.t.")
		}
		for col, v := range vals {
			if row > 0 && col == prob.N {
				sb.WriteString(" <=")
			}
			switch {
			case v != nil:
				fmt.Fprintf(&sb, " %v", field.Signed(v))
			case prob.Pattern[row][col] != 0:
				fmt.Fprintf(&sb, " P%d", prob.Pattern[row][col])
			default:
				sb.WriteString(" ?")
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
