//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package problem

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/mpclp/crypto/field"
	"github.com/markkurossi/mpclp/crypto/spdz"
	"github.com/markkurossi/mpclp/lp"
)

func TestRead(t *testing.T) {
	prob, err := Read("testdata/fixture_values1.csv",
		"testdata/fixture_pattern.csv", 0)
	if err != nil {
		t.Fatal(err)
	}
	if prob.M != 3 || prob.N != 4 {
		t.Fatalf("invalid dimensions %vx%v", prob.M, prob.N)
	}
	if prob.Values[0][3].Int64() != -10 {
		t.Errorf("F[3]: got %v", prob.Values[0][3])
	}
	if prob.Values[1][0] != nil {
		t.Errorf("C[0][0] of party 2 known to party 1")
	}
	if prob.Values[2][4].Int64() != 50 {
		t.Errorf("B[1]: got %v", prob.Values[2][4])
	}
	if prob.Pattern[3][1] != 1 {
		t.Errorf("pattern[3][1]: got %v", prob.Pattern[3][1])
	}
}

var parseErrors = []struct {
	values  string
	pattern string
}{
	{"1,2\n3,4,5\n", "1,1\n1,1\n"},
	{"1,2\n3,4,5\n", "1,1\n1,1,9\n"},
	{"1,2\n3,4,5\n", "1,1\n1,a,0\n"},
	{"1,2\n3,x,5\n", "1,1\n1,1,0\n"},
	{"1,2\n", "1,1\n1,1,0\n"},
	{"1,2\n3,4,5\n", "1,1\n"},
	{"1\n3,4,5\n", "1,1\n1,1,0\n"},
	{"1,2\n3,4,5\n", "1,\"1\n1,1,0\n"},
}

func TestParseErrors(t *testing.T) {
	for idx, test := range parseErrors {
		_, err := Parse(strings.NewReader(test.values),
			strings.NewReader(test.pattern), 0)
		if !errors.Is(err, ErrFormat) {
			t.Errorf("test %v: expected ErrFormat, got %v", idx, err)
		}
	}
	_, err := Parse(strings.NewReader("1\n1,1\n"),
		strings.NewReader("1\n1,1\n"), 2)
	if err == nil || errors.Is(err, ErrFormat) {
		t.Errorf("invalid party: got %v", err)
	}
}

func TestPlaceholders(t *testing.T) {
	// Party 2 cells are not parsed by party 1.
	prob, err := Parse(strings.NewReader("1,2\nx,x,5\n"),
		strings.NewReader("1,1\n2,2,0\n"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if prob.Values[1][2].Int64() != 5 {
		t.Errorf("public value: got %v", prob.Values[1][2])
	}
	_, err = Parse(strings.NewReader("1,2\nx,x,5\n"),
		strings.NewReader("1,1\n2,2,0\n"), AllParties)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat, got %v", err)
	}
}

func TestLocal(t *testing.T) {
	prob, err := Read("testdata/fixture_all.csv",
		"testdata/fixture_pattern.csv", AllParties)
	if err != nil {
		t.Fatal(err)
	}
	arith := spdz.NewLocal(nil)
	tableau, err := prob.Tableau(arith)
	if err != nil {
		t.Fatal(err)
	}
	if tableau.M() != 3 || tableau.Vars() != 7 {
		t.Fatalf("invalid tableau %vx%v", tableau.M(), tableau.Vars())
	}
	c, err := tableau.C.Reveal(arith)
	if err != nil {
		t.Fatal(err)
	}
	expected := [][]int64{
		{1, 0, 1, 0, 1, 0, 0},
		{2, -3, 5, 10, 0, 1, 0},
		{0, 9, 1, 0, 0, 0, 1},
	}
	for i := range expected {
		for j := range expected[i] {
			if field.Signed(c[i][j]).Int64() != expected[i][j] {
				t.Errorf("C[%v][%v]: got %v, expected %v",
					i, j, field.Signed(c[i][j]), expected[i][j])
			}
		}
	}

	value := solve(t, prob, arith)
	if field.Mul(value, big.NewInt(3)).Int64() != 196 {
		t.Errorf("invalid optimal value %v", value)
	}
}

func TestLocalPartial(t *testing.T) {
	prob, err := Read("testdata/fixture_values1.csv",
		"testdata/fixture_pattern.csv", 0)
	if err != nil {
		t.Fatal(err)
	}
	_, err = prob.Tableau(spdz.NewLocal(nil))
	if err == nil {
		t.Errorf("local tableau succeeded without party 2 values")
	}
}

func solve(t *testing.T, prob *Problem, party Party) *big.Int {
	solver, err := prob.NewSolver(party, lp.Danzig)
	if err != nil {
		t.Fatal(err)
	}
	out, err := solver.Run()
	if err != nil {
		t.Fatal(err)
	}
	value, err := lp.OptimalValue(party, out.Update, out.Tableau, out.Pivot)
	if err != nil {
		t.Fatal(err)
	}
	result, err := party.Reveal([]*spdz.Share{value})
	if err != nil {
		t.Fatal(err)
	}
	return result[0]
}

func TestTwoParty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping two-party solver in short mode")
	}
	c0, c1 := p2p.Pipe()
	conns := [2]*p2p.Conn{c0, c1}

	var values [2]*big.Int
	var errs [2]error
	var wg sync.WaitGroup

	for id := 0; id < 2; id++ {
		wg.Go(func() {
			errs[id] = func() error {
				prob, err := Read(
					fmt.Sprintf("testdata/integral_values%d.csv", id+1),
					"testdata/integral_pattern.csv", id)
				if err != nil {
					return err
				}
				pre, err := spdz.NewDealer(conns[id], id)
				if err != nil {
					return err
				}
				peer, err := spdz.NewPeer(conns[id], id, pre, nil)
				if err != nil {
					return err
				}
				solver, err := prob.NewSolver(peer, lp.Danzig)
				if err != nil {
					return err
				}
				out, err := solver.Run()
				if err != nil {
					return err
				}
				value, err := lp.OptimalValue(peer, out.Update, out.Tableau,
					out.Pivot)
				if err != nil {
					return err
				}
				result, err := peer.Reveal([]*spdz.Share{value})
				if err != nil {
					return err
				}
				values[id] = result[0]
				return nil
			}()
		})
	}
	wg.Wait()

	for id := 0; id < 2; id++ {
		if errs[id] != nil {
			t.Fatalf("peer %v: %v", id, errs[id])
		}
		if values[id].Int64() != 36 {
			t.Errorf("peer %v: optimal value %v, expected 36", id, values[id])
		}
	}
}
