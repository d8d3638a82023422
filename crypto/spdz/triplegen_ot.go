//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/markkurossi/mpc/ot"
	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/mpclp/crypto/field"
)

// Cross multiplication tweaks.
const (
	tweakAB uint64 = iota
	tweakMACA
	tweakMACB
	tweakMACC
	numTweaks
)

// OTPreprocessor generates authenticated triples without a trusted
// party. The cross terms of the products and MACs are computed with
// Gilboa multiplication over IKNP correlated OT extension. Each peer
// is the OT sender in one direction and the receiver in the other.
type OTPreprocessor struct {
	conn     *p2p.Conn
	id       int
	rand     io.Reader
	alpha    *big.Int
	sender   *ot.IKNPSender
	receiver *ot.IKNPReceiver
}

// NewOTPreprocessor creates a new OT preprocessor for the peer id. The
// newOT function creates the base OT instances for the two OT
// extension directions. Both peers must create their preprocessors
// concurrently.
func NewOTPreprocessor(conn *p2p.Conn, id int, newOT func() ot.OT) (
	*OTPreprocessor, error) {

	if id != 0 && id != 1 {
		return nil, ErrInvalidParty
	}
	pre := &OTPreprocessor{
		conn: conn,
		id:   id,
		rand: rand.Reader,
	}

	// Direction d has peer d as the OT sender.
	for d := 0; d < 2; d++ {
		oti := newOT()
		var err error
		if pre.role(d) == Sender {
			if err = oti.InitSender(conn); err != nil {
				return nil, err
			}
			pre.sender, err = ot.NewIKNPSender(oti, conn, pre.rand, nil)
		} else {
			if err = oti.InitReceiver(conn); err != nil {
				return nil, err
			}
			pre.receiver, err = ot.NewIKNPReceiver(oti, conn, pre.rand)
		}
		if err != nil {
			return nil, fmt.Errorf("spdz: OT setup: %w", err)
		}
	}
	return pre, nil
}

// role returns the peer's role in the OT direction d.
func (pre *OTPreprocessor) role(d int) Role {
	if d == pre.id {
		return Sender
	}
	return Receiver
}

// MACKey implements Preprocessor.MACKey. The MAC key share is sampled
// locally.
func (pre *OTPreprocessor) MACKey() (*big.Int, error) {
	if pre.alpha != nil {
		return pre.alpha, nil
	}
	alpha, err := field.Random(pre.rand)
	if err != nil {
		return nil, err
	}
	pre.alpha = alpha
	return alpha, nil
}

type crossDirection struct {
	sender   *senderCorrelation
	receiver *receiverCorrelation
}

// Triples implements Preprocessor.Triples.
func (pre *OTPreprocessor) Triples(n int) ([]*Triple, error) {
	if n <= 0 {
		return nil, errors.New("spdz: n must be positive")
	}
	if _, err := pre.MACKey(); err != nil {
		return nil, err
	}

	a := make([]*big.Int, n)
	b := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		var err error
		a[i], err = field.Random(pre.rand)
		if err != nil {
			return nil, err
		}
		b[i], err = field.Random(pre.rand)
		if err != nil {
			return nil, err
		}
	}

	// Receiver inputs: groups 0..n-1 are the b shares and group n is
	// the MAC key share.
	inputs := make([]*big.Int, n+1)
	copy(inputs, b)
	inputs[n] = pre.alpha

	var sItems, rItems []crossItem
	for i := 0; i < n; i++ {
		base := uint64(i) * numTweaks
		sItems = append(sItems,
			crossItem{group: i, tweak: base + tweakAB, x: a[i]},
			crossItem{group: n, tweak: base + tweakMACA, x: a[i]},
			crossItem{group: n, tweak: base + tweakMACB, x: b[i]})
		rItems = append(rItems,
			crossItem{group: i, tweak: base + tweakAB},
			crossItem{group: n, tweak: base + tweakMACA},
			crossItem{group: n, tweak: base + tweakMACB})
	}

	var dir crossDirection
	var sOut, rOut []*big.Int
	for d := 0; d < 2; d++ {
		var err error
		if pre.role(d) == Sender {
			dir.sender, err = expandSend(pre.sender, n+1)
			if err == nil {
				sOut, err = dir.sender.multiply(pre.conn, sItems)
			}
		} else {
			dir.receiver, err = expandReceive(pre.receiver, inputs)
			if err == nil {
				rOut, err = dir.receiver.multiply(pre.conn, rItems)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("spdz: triple generation: %w", err)
		}
	}

	c := make([]*big.Int, n)
	macA := make([]*big.Int, n)
	macB := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		o := i * 3
		c[i] = field.Add(field.Mul(a[i], b[i]), field.Add(sOut[o], rOut[o]))
		macA[i] = field.Add(field.Mul(pre.alpha, a[i]),
			field.Add(sOut[o+1], rOut[o+1]))
		macB[i] = field.Add(field.Mul(pre.alpha, b[i]),
			field.Add(sOut[o+2], rOut[o+2]))
	}

	// Second round: MACs of the products.
	sItems = sItems[:0]
	rItems = rItems[:0]
	for i := 0; i < n; i++ {
		tweak := uint64(i)*numTweaks + tweakMACC
		sItems = append(sItems, crossItem{group: n, tweak: tweak, x: c[i]})
		rItems = append(rItems, crossItem{group: n, tweak: tweak})
	}
	for d := 0; d < 2; d++ {
		var err error
		if pre.role(d) == Sender {
			sOut, err = dir.sender.multiply(pre.conn, sItems)
		} else {
			rOut, err = dir.receiver.multiply(pre.conn, rItems)
		}
		if err != nil {
			return nil, fmt.Errorf("spdz: triple generation: %w", err)
		}
	}

	result := make([]*Triple, n)
	for i := 0; i < n; i++ {
		macC := field.Add(field.Mul(pre.alpha, c[i]),
			field.Add(sOut[i], rOut[i]))
		result[i] = &Triple{
			A: NewShare(a[i], macA[i]),
			B: NewShare(b[i], macB[i]),
			C: NewShare(c[i], macC),
		}
	}
	return result, nil
}
