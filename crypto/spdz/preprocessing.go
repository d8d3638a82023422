//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"math/big"
)

// Preprocessor produces the input independent correlated randomness
// consumed by the online phase. Both peers must call the methods in
// the same order with the same arguments.
type Preprocessor interface {
	// MACKey returns the peer's share of the global MAC key.
	MACKey() (*big.Int, error)

	// Triples returns n authenticated multiplication triples.
	Triples(n int) ([]*Triple, error)
}

// BitSource is an optional Preprocessor interface for producing
// authenticated random bits directly. Peers fall back to computing
// bits from triples when the preprocessor does not implement
// BitSource.
type BitSource interface {
	Bits(n int) ([]*Share, error)
}
