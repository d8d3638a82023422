//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package lp

import (
	"errors"
	"math/big"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/mpclp/crypto/field"
	"github.com/markkurossi/mpclp/crypto/spdz"
)

type problem struct {
	c [][]int64
	b []int64
	f []int64
}

// max 2x1 + 3x2 + 4x3 + 10x4
var fixture = problem{
	c: [][]int64{
		{1, 0, 1, 0},
		{2, -3, 5, 10},
		{0, 9, 1, 0},
	},
	b: []int64{20, 50, 23},
	f: []int64{-2, -3, -4, -10},
}

// max 3x1 + 5x2
var integral = problem{
	c: [][]int64{
		{1, 0},
		{0, 2},
		{3, 2},
	},
	b: []int64{4, 12, 18},
	f: []int64{-3, -5},
}

// max 3x
var trivial = problem{
	c: [][]int64{{2}},
	b: []int64{10},
	f: []int64{-3},
}

// max x1 subject to x1 - x2 <= 1
var unbounded = problem{
	c: [][]int64{{1, -1}},
	b: []int64{1},
	f: []int64{-1, 0},
}

// values returns the problem values in the order: C rows, B, F.
func (p problem) values() []int64 {
	var result []int64
	for _, row := range p.c {
		result = append(result, row...)
	}
	result = append(result, p.b...)
	return append(result, p.f...)
}

// tableau creates the standard form tableau with slack variables from
// the secret problem values.
func (p problem) tableau(arith Arithmetic, values []*spdz.Share) (
	*Tableau, error) {

	m := len(p.c)
	n := len(p.f)

	rows := make([][]*spdz.Share, m)
	for i := 0; i < m; i++ {
		rows[i] = append(rows[i], values[i*n:(i+1)*n]...)
		for j := 0; j < m; j++ {
			if i == j {
				rows[i] = append(rows[i], arith.Known(bigOne))
			} else {
				rows[i] = append(rows[i], arith.Known(bigZero))
			}
		}
	}
	c, err := NewMatrix(rows)
	if err != nil {
		return nil, err
	}
	b := values[m*n : m*n+m]
	f := append(append([]*spdz.Share{}, values[m*n+m:]...), zeros(arith, m)...)

	return NewTableau(c, b, f, arith.Known(bigZero))
}

func (p problem) solver(arith Arithmetic, rule PivotRule,
	values []*spdz.Share) (*Solver, error) {

	tableau, err := p.tableau(arith, values)
	if err != nil {
		return nil, err
	}
	m := tableau.M()
	basis := make([]*spdz.Share, m)
	for i := 0; i < m; i++ {
		basis[i] = arith.Known(big.NewInt(int64(len(p.f) + i + 1)))
	}
	return NewSolver(arith, rule, tableau, Identity(arith, m+1),
		arith.Known(bigOne), basis)
}

type result struct {
	numerator  *big.Int
	pivot      *big.Int
	value      *big.Int
	iterations int
}

func solve(arith Arithmetic, p problem, rule PivotRule,
	values []*spdz.Share) (*result, error) {

	solver, err := p.solver(arith, rule, values)
	if err != nil {
		return nil, err
	}
	out, err := solver.Run()
	if err != nil {
		return nil, err
	}
	value, err := OptimalValue(arith, out.Update, out.Tableau, out.Pivot)
	if err != nil {
		return nil, err
	}
	rhs := append(append([]*spdz.Share{}, out.Tableau.B...), out.Tableau.Z)
	numerator, err := InnerProduct(arith, out.Update.Row(out.Tableau.M()), rhs)
	if err != nil {
		return nil, err
	}
	vals, err := arith.Reveal([]*spdz.Share{numerator, out.Pivot, value})
	if err != nil {
		return nil, err
	}
	return &result{
		numerator:  vals[0],
		pivot:      vals[1],
		value:      vals[2],
		iterations: out.Iterations,
	}, nil
}

func solveLocal(t *testing.T, p problem, rule PivotRule) *result {
	t.Helper()
	arith := spdz.NewLocal(nil)
	r, err := solve(arith, p, rule, known(arith, p.values()...))
	if err != nil {
		t.Fatalf("%v: %v", rule, err)
	}
	return r
}

func TestFixture(t *testing.T) {
	for _, test := range []struct {
		rule       PivotRule
		iterations int
	}{
		{Danzig, 2},
		{Bland, 4},
	} {
		r := solveLocal(t, fixture, test.rule)
		if r.iterations != test.iterations {
			t.Errorf("%v: iterations %v, expected %v",
				test.rule, r.iterations, test.iterations)
		}
		if r.numerator.Int64() != 5880 || r.pivot.Int64() != 90 {
			t.Errorf("%v: got %v/%v, expected 5880/90",
				test.rule, r.numerator, r.pivot)
		}
		// The optimum is 196/3.
		if field.Mul(r.value, big.NewInt(3)).Int64() != 196 {
			t.Errorf("%v: invalid optimal value %v", test.rule, r.value)
		}
	}
}

func TestIntegral(t *testing.T) {
	for _, rule := range []PivotRule{Danzig, Bland} {
		r := solveLocal(t, integral, rule)
		if r.value.Int64() != 36 {
			t.Errorf("%v: optimal value %v, expected 36", rule, r.value)
		}
	}
}

func TestTrivial(t *testing.T) {
	for _, rule := range []PivotRule{Danzig, Bland} {
		r := solveLocal(t, trivial, rule)
		if r.iterations != 1 {
			t.Errorf("%v: iterations %v, expected 1", rule, r.iterations)
		}
		if r.value.Int64() != 15 {
			t.Errorf("%v: optimal value %v, expected 15", rule, r.value)
		}
	}
}

func TestUnbounded(t *testing.T) {
	for _, rule := range []PivotRule{Danzig, Bland} {
		arith := spdz.NewLocal(nil)
		solver, err := unbounded.solver(arith, rule,
			known(arith, unbounded.values()...))
		if err != nil {
			t.Fatal(err)
		}
		solver.Params.DetectUnbounded = true
		_, err = solver.Run()
		if !errors.Is(err, ErrUnbounded) {
			t.Errorf("%v: expected ErrUnbounded, got %v", rule, err)
		}
	}
}

func TestRevealedValues(t *testing.T) {
	for _, p := range []problem{fixture, integral, trivial} {
		for _, rule := range []PivotRule{Danzig, Bland} {
			arith := spdz.NewLocal(nil)
			solver, err := p.solver(arith, rule, known(arith, p.values()...))
			if err != nil {
				t.Fatal(err)
			}
			if solver.Params.DetectUnbounded {
				t.Fatalf("unbounded detection enabled by default")
			}
			out, err := solver.Run()
			if err != nil {
				t.Fatal(err)
			}
			// One termination bit per step, including the final one.
			expected := uint64(out.Iterations + 1)
			if arith.Stats.Opens != expected {
				t.Errorf("%v: %v iterations revealed %v values, expected %v",
					rule, out.Iterations, arith.Stats.Opens, expected)
			}
		}
	}
}

var exitingTieTests = []struct {
	basis []int64
	index []int64
}{
	{[]int64{2, 3}, []int64{1, 0}},
	{[]int64{3, 2}, []int64{0, 1}},
}

func TestExitingTieBreak(t *testing.T) {
	for _, test := range exitingTieTests {
		arith := spdz.NewLocal(nil)
		c, err := NewMatrix([][]*spdz.Share{
			known(arith, 1, 1, 0),
			known(arith, 1, 0, 1),
		})
		if err != nil {
			t.Fatal(err)
		}
		tableau, err := NewTableau(c, known(arith, 4, 4),
			known(arith, -1, 0, 0), arith.Known(bigZero))
		if err != nil {
			t.Fatal(err)
		}
		exiting, err := ExitingVariable(arith, tableau, Identity(arith, 3),
			known(arith, 1, 0, 0), known(arith, test.basis...), 64)
		if err != nil {
			t.Fatal(err)
		}
		index := reveal(t, arith, exiting.Index)
		for i, v := range index {
			if v != test.index[i] {
				t.Errorf("basis %v: exiting index %v, expected %v",
					test.basis, index, test.index)
				break
			}
		}
		pivot := reveal(t, arith, []*spdz.Share{exiting.Pivot})
		if pivot[0] != 1 {
			t.Errorf("basis %v: pivot %v, expected 1", test.basis, pivot[0])
		}
	}
}

func TestIterationLimit(t *testing.T) {
	arith := spdz.NewLocal(nil)
	solver, err := fixture.solver(arith, Bland, known(arith, fixture.values()...))
	if err != nil {
		t.Fatal(err)
	}
	solver.Params.MaxIterations = 2
	_, err = solver.Run()
	if !errors.Is(err, ErrIterationLimit) {
		t.Errorf("expected ErrIterationLimit, got %v", err)
	}
}

func TestTermination(t *testing.T) {
	for _, rule := range []PivotRule{Danzig, Bland} {
		arith := spdz.NewLocal(nil)
		solver, err := fixture.solver(arith, rule,
			known(arith, fixture.values()...))
		if err != nil {
			t.Fatal(err)
		}
		out, err := solver.Run()
		if err != nil {
			t.Fatal(err)
		}
		costs, err := ReducedCosts(arith, out.Tableau, out.Update)
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range reveal(t, arith, costs) {
			if v < 0 {
				t.Errorf("%v: reduced cost %v is %v", rule, i, v)
			}
		}
	}
}

func TestOneHot(t *testing.T) {
	arith := spdz.NewLocal(nil)
	solver, err := fixture.solver(arith, Danzig, known(arith, fixture.values()...))
	if err != nil {
		t.Fatal(err)
	}
	for !solver.Terminated() {
		st := solver.state
		for _, rule := range []PivotRule{Danzig, Bland} {
			var entering *Entering
			if rule == Bland {
				entering, err = BlandEnteringVariable(arith, solver.tableau,
					st.update)
			} else {
				entering, err = EnteringVariable(arith, solver.tableau,
					st.update)
			}
			if err != nil {
				t.Fatal(err)
			}
			if reveal(t, arith, []*spdz.Share{entering.Terminate})[0] == 1 {
				continue
			}
			oneHot(t, arith, entering.Index)

			exiting, err := ExitingVariable(arith, solver.tableau, st.update,
				entering.Index, st.basis, 64)
			if err != nil {
				t.Fatal(err)
			}
			oneHot(t, arith, exiting.Index)
		}
		if _, err := solver.Step(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDimensions(t *testing.T) {
	arith := spdz.NewLocal(nil)
	tableau, err := fixture.tableau(arith, known(arith, fixture.values()...))
	if err != nil {
		t.Fatal(err)
	}
	basis := known(arith, 5, 6, 7)
	one := arith.Known(bigOne)

	_, err = NewSolver(arith, Danzig, tableau, Identity(arith, 3), one, basis)
	if !errors.Is(err, ErrDimension) {
		t.Errorf("3x3 update matrix: expected ErrDimension, got %v", err)
	}
	_, err = NewSolver(arith, Danzig, tableau, Identity(arith, 4), one,
		basis[:2])
	if !errors.Is(err, ErrDimension) {
		t.Errorf("short basis: expected ErrDimension, got %v", err)
	}
	_, err = EnteringVariable(arith, tableau, Identity(arith, 5))
	if !errors.Is(err, ErrDimension) {
		t.Errorf("entering: expected ErrDimension, got %v", err)
	}
	_, err = NewTableau(tableau.C, tableau.B[:2], tableau.F, tableau.Z)
	if !errors.Is(err, ErrDimension) {
		t.Errorf("short B: expected ErrDimension, got %v", err)
	}
	_, err = NewTableau(tableau.C, tableau.B, tableau.F[:3], tableau.Z)
	if !errors.Is(err, ErrDimension) {
		t.Errorf("short F: expected ErrDimension, got %v", err)
	}
	_, err = NewMatrix([][]*spdz.Share{known(arith, 1, 2), known(arith, 1)})
	if !errors.Is(err, ErrDimension) {
		t.Errorf("ragged matrix: expected ErrDimension, got %v", err)
	}
	if arith.Stats.Mults != 0 {
		t.Errorf("dimension checks performed %v multiplications",
			arith.Stats.Mults)
	}
}

func TestParsePivotRule(t *testing.T) {
	for _, rule := range []PivotRule{Danzig, Bland} {
		r, err := ParsePivotRule(rule.String())
		if err != nil || r != rule {
			t.Errorf("ParsePivotRule(%v): %v, %v", rule, r, err)
		}
	}
	if _, err := ParsePivotRule("steepest"); err == nil {
		t.Errorf("ParsePivotRule succeeded for unknown rule")
	}
}

// reference implements the fraction-free simplex by rewriting the
// whole tableau in each iteration.
type reference struct {
	t     [][]*big.Int
	basis []int
	prev  *big.Int
}

func newReference(p problem) *reference {
	m := len(p.c)
	n := len(p.f)
	ref := &reference{
		prev: big.NewInt(1),
	}
	for i := 0; i <= m; i++ {
		row := make([]*big.Int, n+m+1)
		for j := range row {
			row[j] = new(big.Int)
		}
		if i < m {
			for j := 0; j < n; j++ {
				row[j] = field.Int64(p.c[i][j])
			}
			row[n+i] = big.NewInt(1)
			row[n+m] = field.Int64(p.b[i])
			ref.basis = append(ref.basis, n+i+1)
		} else {
			for j := 0; j < n; j++ {
				row[j] = field.Int64(p.f[j])
			}
		}
		ref.t = append(ref.t, row)
	}
	return ref
}

func (ref *reference) signed(i, j int) int64 {
	return field.Signed(ref.t[i][j]).Int64()
}

// step runs one Danzig iteration. It returns false if the solution is
// optimal.
func (ref *reference) step() bool {
	m := len(ref.t) - 1
	vars := len(ref.t[0]) - 1

	k := 0
	for j := 1; j < vars; j++ {
		if ref.signed(m, j) < ref.signed(m, k) {
			k = j
		}
	}
	if ref.signed(m, k) >= 0 {
		return false
	}
	r := -1
	for i := 0; i < m; i++ {
		if ref.signed(i, k) <= 0 {
			continue
		}
		if r < 0 {
			r = i
			continue
		}
		lhs := ref.signed(i, vars) * ref.signed(r, k)
		rhs := ref.signed(r, vars) * ref.signed(i, k)
		if lhs < rhs || (lhs == rhs && ref.basis[i] < ref.basis[r]) {
			r = i
		}
	}
	pivot := ref.t[r][k]
	prevInv, err := field.Inv(ref.prev)
	if err != nil {
		panic(err)
	}
	next := make([][]*big.Int, len(ref.t))
	for i := range ref.t {
		if i == r {
			next[i] = ref.t[i]
			continue
		}
		next[i] = make([]*big.Int, len(ref.t[i]))
		for j := range ref.t[i] {
			v := field.Sub(field.Mul(pivot, ref.t[i][j]),
				field.Mul(ref.t[i][k], ref.t[r][j]))
			next[i][j] = field.Mul(v, prevInv)
		}
	}
	ref.t = next
	ref.prev = pivot
	ref.basis[r] = k + 1
	return true
}

func TestUpdateMatrixEquivalence(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 5; round++ {
		var p problem
		for i := 0; i < 3; i++ {
			var row []int64
			for j := 0; j < 3; j++ {
				row = append(row, 1+rnd.Int64N(9))
			}
			p.c = append(p.c, row)
			p.b = append(p.b, 1+rnd.Int64N(20))
			p.f = append(p.f, -1-rnd.Int64N(9))
		}
		arith := spdz.NewLocal(nil)
		solver, err := p.solver(arith, Danzig, known(arith, p.values()...))
		if err != nil {
			t.Fatal(err)
		}
		ref := newReference(p)
		orig := newReference(p).t

		for {
			done, err := solver.Step()
			if err != nil {
				t.Fatal(err)
			}
			more := ref.step()
			if done == more {
				t.Fatalf("round %v: solver done=%v, reference continues=%v",
					round, done, more)
			}
			if done {
				break
			}
			update, err := solver.state.update.Reveal(arith)
			if err != nil {
				t.Fatal(err)
			}
			for i := range update {
				for j := range orig[0] {
					v := new(big.Int)
					for l := range update[i] {
						v = field.Add(v, field.Mul(update[i][l], orig[l][j]))
					}
					if v.Cmp(ref.t[i][j]) != 0 {
						t.Fatalf("round %v, iteration %v: T[%v][%v]: %v != %v",
							round, solver.Iterations, i, j,
							field.Signed(v), field.Signed(ref.t[i][j]))
					}
				}
			}
		}
	}
}

// runPeers solves the problem with two peers. Peer 0 provides all
// problem values.
func runPeers(t *testing.T, p problem, rule PivotRule) [2]*result {
	c0, c1 := p2p.Pipe()
	conns := [2]*p2p.Conn{c0, c1}

	var results [2]*result
	var errs [2]error
	var wg sync.WaitGroup

	values := p.values()

	for id := 0; id < 2; id++ {
		wg.Go(func() {
			pre, err := spdz.NewDealer(conns[id], id)
			if err != nil {
				errs[id] = err
				return
			}
			peer, err := spdz.NewPeer(conns[id], id, pre, nil)
			if err != nil {
				errs[id] = err
				return
			}
			var inputs []*spdz.Share
			if id == 0 {
				vals := make([]*big.Int, len(values))
				for i, v := range values {
					vals[i] = field.Int64(v)
				}
				inputs, err = peer.Input(0, vals, 0)
			} else {
				inputs, err = peer.Input(0, nil, len(values))
			}
			if err != nil {
				errs[id] = err
				return
			}
			results[id], errs[id] = solve(peer, p, rule, inputs)
		})
	}
	wg.Wait()

	for id, err := range errs {
		if err != nil {
			t.Fatalf("peer %v: %v", id, err)
		}
	}
	return results
}

func TestTwoParty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping two-party solver in short mode")
	}
	for _, rule := range []PivotRule{Danzig, Bland} {
		local := solveLocal(t, integral, rule)
		results := runPeers(t, integral, rule)
		for id, r := range results {
			if r.value.Cmp(local.value) != 0 {
				t.Errorf("%v: P%v: value %v, expected %v",
					rule, id, r.value, local.value)
			}
			if r.iterations != local.iterations {
				t.Errorf("%v: P%v: iterations %v, expected %v",
					rule, id, r.iterations, local.iterations)
			}
		}
	}
}

func TestTwoPartyFixture(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping two-party solver in short mode")
	}
	results := runPeers(t, fixture, Danzig)
	for id, r := range results {
		if r.numerator.Int64() != 5880 || r.pivot.Int64() != 90 {
			t.Errorf("P%v: got %v/%v, expected 5880/90",
				id, r.numerator, r.pivot)
		}
	}
}
