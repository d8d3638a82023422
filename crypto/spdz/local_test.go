//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"errors"
	"math/big"
	"testing"

	"github.com/markkurossi/mpclp/crypto/field"
)

func TestLocal(t *testing.T) {
	l := NewLocal(nil)

	a := l.Known(big.NewInt(6))
	b := l.Known(big.NewInt(-4))

	prod, err := l.Mul([]*Share{a}, []*Share{b})
	if err != nil {
		t.Fatal(err)
	}
	v := l.Add(prod[0], l.Scale(big.NewInt(2), l.Sub(a, b)))
	v = l.Neg(v)

	result, err := l.Reveal([]*Share{v})
	if err != nil {
		t.Fatal(err)
	}
	if got := field.Signed(result[0]).Int64(); got != 4 {
		t.Errorf("got %v, expected 4", got)
	}

	inv, err := l.Invert([]*Share{a})
	if err != nil {
		t.Fatal(err)
	}
	if field.Mul(inv[0].V, a.V).Cmp(big.NewInt(1)) != 0 {
		t.Errorf("invalid inverse")
	}
	_, err = l.Invert([]*Share{l.Known(big.NewInt(0))})
	if !errors.Is(err, ErrZeroInverse) {
		t.Errorf("expected ErrZeroInverse, got %v", err)
	}
	if _, err := l.Mul([]*Share{a}, nil); err == nil {
		t.Errorf("Mul succeeded with mismatched lengths")
	}
}
