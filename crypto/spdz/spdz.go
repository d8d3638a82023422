//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package spdz implements a two-party SPDZ-style arithmetic secret
// sharing backend over the P-256 base field.
//
// A secret value x is additively shared between peers 0 and 1 so
// that x = x0 + x1 mod p. Each share also carries a share of the
// information-theoretic MAC alpha*x where alpha is the global MAC key
// which is itself additively shared. Multiplications consume Beaver
// triples produced by a Preprocessor. All opened values are recorded
// and verified in batches by CheckMACs.
//
// The Peer operations work on vectors: a call to Mul, Open, LTZ, etc.
// evaluates all elements in the same communication rounds.
package spdz

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/markkurossi/mpclp/crypto/field"
)

// Errors.
var (
	ErrOutOfTriples = errors.New("spdz: not enough triples")
	ErrMACCheck     = errors.New("spdz: MAC check failed")
	ErrZeroInverse  = errors.New("spdz: inverse of zero")
	ErrInvalidParty = errors.New("spdz: invalid party ID")
	ErrCommitment   = errors.New("spdz: commitment mismatch")
)

// Share is a party's additive share of a secret value V together
// with its share of the value's MAC.
type Share struct {
	V *big.Int
	M *big.Int
}

// NewShare creates a new share from the value and MAC shares.
func NewShare(v, m *big.Int) *Share {
	if m == nil {
		m = new(big.Int)
	}
	return &Share{
		V: field.Reduce(v),
		M: field.Reduce(m),
	}
}

func (s *Share) String() string {
	return fmt.Sprintf("%v/%v", s.V, s.M)
}

// AddShare returns a+b.
func AddShare(a, b *Share) *Share {
	return &Share{
		V: field.Add(a.V, b.V),
		M: field.Add(a.M, b.M),
	}
}

// SubShare returns a-b.
func SubShare(a, b *Share) *Share {
	return &Share{
		V: field.Sub(a.V, b.V),
		M: field.Sub(a.M, b.M),
	}
}

// NegShare returns -a.
func NegShare(a *Share) *Share {
	return &Share{
		V: field.Neg(a.V),
		M: field.Neg(a.M),
	}
}

// ScaleShare returns c*a for the public constant c.
func ScaleShare(c *big.Int, a *Share) *Share {
	return &Share{
		V: field.Mul(c, a.V),
		M: field.Mul(c, a.M),
	}
}

// Triple is an authenticated Beaver multiplication triple: C = A*B.
type Triple struct {
	A *Share
	B *Share
	C *Share
}

// Role defines the peer roles in two-party sub-protocols such as
// the OT directions of the preprocessing.
type Role int

// Peer roles.
const (
	Sender Role = iota
	Receiver
)

func (r Role) String() string {
	switch r {
	case Sender:
		return "sender"
	case Receiver:
		return "receiver"
	default:
		return fmt.Sprintf("{Role %d}", int(r))
	}
}

// Params define the arithmetic parameters.
type Params struct {
	// BitLength is the bit length k of the signed values compared
	// with LTZ and LEQ: values must lie in [-2^(k-1), 2^(k-1)).
	BitLength int

	// StatSec is the statistical security parameter of the masked
	// openings in comparisons and equality tests.
	StatSec int

	// BatchSize is the minimum number of triples requested from the
	// preprocessor when the pool runs empty.
	BatchSize int

	Verbose bool
}

// NewParams creates default parameters.
func NewParams() *Params {
	return &Params{
		BitLength: 64,
		StatSec:   40,
		BatchSize: 1024,
	}
}

func (params *Params) validate() error {
	if params.BitLength < 2 {
		return fmt.Errorf("spdz: invalid bit length %v", params.BitLength)
	}
	if params.StatSec < 0 {
		return fmt.Errorf("spdz: invalid statistical security %v",
			params.StatSec)
	}
	if params.BitLength+params.StatSec+2 >= field.P.BitLen() {
		return fmt.Errorf("spdz: bit length %v + statistical security %v too large",
			params.BitLength, params.StatSec)
	}
	return nil
}

// Stats count the operations performed by a backend.
type Stats struct {
	Mults   uint64
	Opens   uint64
	Rounds  uint64
	Triples uint64
	Bits    uint64
	Checks  uint64
}

// Add adds the argument stats to this Stats.
func (stats *Stats) Add(o Stats) {
	stats.Mults += o.Mults
	stats.Opens += o.Opens
	stats.Rounds += o.Rounds
	stats.Triples += o.Triples
	stats.Bits += o.Bits
	stats.Checks += o.Checks
}

func (stats Stats) String() string {
	return fmt.Sprintf("mul=%v open=%v rounds=%v triples=%v bits=%v checks=%v",
		stats.Mults, stats.Opens, stats.Rounds, stats.Triples, stats.Bits,
		stats.Checks)
}
