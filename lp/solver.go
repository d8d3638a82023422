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

// PivotRule defines the entering variable selection rule.
type PivotRule int

// Pivot rules.
const (
	Danzig PivotRule = iota
	Bland
)

var pivotRules = map[PivotRule]string{
	Danzig: "danzig",
	Bland:  "bland",
}

func (rule PivotRule) String() string {
	name, ok := pivotRules[rule]
	if ok {
		return name
	}
	return fmt.Sprintf("{PivotRule %d}", int(rule))
}

// ParsePivotRule parses the pivot rule name.
func ParsePivotRule(name string) (PivotRule, error) {
	for rule, n := range pivotRules {
		if n == name {
			return rule, nil
		}
	}
	return Danzig, fmt.Errorf("lp: unknown pivot rule '%s'", name)
}

// Params define the solver parameters.
type Params struct {
	// MaxIterations limits the number of iterations. The value 0
	// means no limit.
	MaxIterations int

	// DetectUnbounded reveals in each iteration whether an exiting
	// row was found and fails with ErrUnbounded if not. Without it,
	// each iteration reveals only the termination bit and an
	// unbounded problem runs until MaxIterations.
	DetectUnbounded bool

	// BitLength is the bit length of the ratio cross products
	// compared for equality in the minimum ratio test.
	BitLength int

	Verbose bool
}

// NewParams creates default solver parameters.
func NewParams() *Params {
	return &Params{
		BitLength: 64,
	}
}

// state holds the per-iteration solver state. A new state replaces
// the previous one after each iteration.
type state struct {
	update     Matrix
	basis      []*spdz.Share
	pivot      *spdz.Share
	terminated bool
}

// Solver implements the oblivious Revised Simplex solver.
type Solver struct {
	Params     Params
	Rule       PivotRule
	Iterations int

	arith   Arithmetic
	tableau *Tableau
	varIDs  []*big.Int
	state   state
}

// Output holds the solver result.
type Output struct {
	Tableau    *Tableau
	Update     Matrix
	Basis      []*spdz.Share
	Pivot      *spdz.Share
	Iterations int
}

// NewSolver creates a new solver for the tableau. The update matrix
// must be square with the size of the tableau height plus one and the
// basis must have one (1-based) variable index for each row. The
// dimensions are verified before any secret operation runs.
func NewSolver(arith Arithmetic, rule PivotRule, tableau *Tableau,
	update Matrix, pivot *spdz.Share, basis []*spdz.Share) (*Solver, error) {

	if err := tableau.checkUpdate(update); err != nil {
		return nil, err
	}
	if len(basis) != tableau.M() {
		return nil, fmt.Errorf("%w: basis has %d elements, expected %d",
			ErrDimension, len(basis), tableau.M())
	}
	if pivot == nil {
		return nil, fmt.Errorf("lp: missing pivot")
	}
	if _, ok := pivotRules[rule]; !ok {
		return nil, fmt.Errorf("lp: invalid pivot rule %v", rule)
	}
	varIDs := make([]*big.Int, tableau.Vars())
	for i := range varIDs {
		varIDs[i] = big.NewInt(int64(i + 1))
	}

	return &Solver{
		Params:  *NewParams(),
		Rule:    rule,
		arith:   arith,
		tableau: tableau,
		varIDs:  varIDs,
		state: state{
			update: update,
			basis:  basis,
			pivot:  pivot,
		},
	}, nil
}

func (s *Solver) debugf(format string, a ...interface{}) {
	if !s.Params.Verbose {
		return
	}
	fmt.Printf("lp: "+format, a...)
}

// Terminated tests if the solver has terminated.
func (s *Solver) Terminated() bool {
	return s.state.terminated
}

// Step runs one solver iteration. It returns true if the solution is
// optimal and the solver terminated.
func (s *Solver) Step() (bool, error) {
	if s.state.terminated {
		return true, nil
	}
	var entering *Entering
	var err error

	switch s.Rule {
	case Bland:
		entering, err = BlandEnteringVariable(s.arith, s.tableau, s.state.update)
	default:
		entering, err = EnteringVariable(s.arith, s.tableau, s.state.update)
	}
	if err != nil {
		return false, err
	}
	term, err := s.arith.Reveal([]*spdz.Share{entering.Terminate})
	if err != nil {
		return false, err
	}
	if term[0].Sign() != 0 {
		s.debugf("terminated after %v iterations\n", s.Iterations)
		s.state.terminated = true
		return true, nil
	}
	if s.Params.MaxIterations > 0 && s.Iterations >= s.Params.MaxIterations {
		return false, ErrIterationLimit
	}

	exiting, err := ExitingVariable(s.arith, s.tableau, s.state.update,
		entering.Index, s.state.basis, s.Params.BitLength)
	if err != nil {
		return false, err
	}
	if s.Params.DetectUnbounded {
		found, err := s.arith.Reveal([]*spdz.Share{Sum(s.arith, exiting.Index)})
		if err != nil {
			return false, err
		}
		if found[0].Sign() == 0 {
			return false, ErrUnbounded
		}
	}

	// The entering variable ID replaces the exiting row's basis entry.
	id := s.arith.Known(bigZero)
	for i, e := range entering.Index {
		id = s.arith.Add(id, s.arith.Scale(s.varIDs[i], e))
	}
	ids := make([]*spdz.Share, len(s.state.basis))
	for i := range ids {
		ids[i] = id
	}
	basis, err := ConditionalSelect(s.arith, exiting.Index, ids, s.state.basis)
	if err != nil {
		return false, err
	}
	update, err := UpdateMatrix(s.arith, s.state.update, exiting,
		s.state.pivot)
	if err != nil {
		return false, err
	}

	s.state = state{
		update: update,
		basis:  basis,
		pivot:  exiting.Pivot,
	}
	s.Iterations++
	s.debugf("iteration %v\n", s.Iterations)

	return false, nil
}

// Run iterates until the solution is optimal.
func (s *Solver) Run() (*Output, error) {
	for {
		done, err := s.Step()
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}
	return s.Output(), nil
}

// Output returns the current solver output.
func (s *Solver) Output() *Output {
	return &Output{
		Tableau:    s.tableau,
		Update:     s.state.update,
		Basis:      s.state.basis,
		Pivot:      s.state.pivot,
		Iterations: s.Iterations,
	}
}

// OptimalValue computes the optimal value from the solver output: the
// last row of the update matrix applied to [B z] divided by the
// pivot.
func OptimalValue(arith Arithmetic, update Matrix, tableau *Tableau,
	pivot *spdz.Share) (*spdz.Share, error) {

	if err := tableau.checkUpdate(update); err != nil {
		return nil, err
	}
	rhs := append(append([]*spdz.Share{}, tableau.B...), tableau.Z)
	numerator, err := InnerProduct(arith, update.Row(tableau.M()), rhs)
	if err != nil {
		return nil, err
	}
	inv, err := arith.Invert([]*spdz.Share{pivot})
	if err != nil {
		return nil, err
	}
	result, err := arith.Mul([]*spdz.Share{numerator}, inv)
	if err != nil {
		return nil, err
	}
	return result[0], nil
}
