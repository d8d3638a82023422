//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/markkurossi/mpc/ot"
	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/mpclp/crypto/field"
	"golang.org/x/crypto/blake2b"
)

// fieldBits is the number of correlated OTs needed to multiply with
// one field element.
const fieldBits = field.Size * 8

// crossItem defines one cross multiplication x*y where the sender
// holds x and the receiver holds y. The group selects the receiver's
// input y and the tweak separates multiplications using the same
// group.
type crossItem struct {
	group int
	tweak uint64
	x     *big.Int
}

// senderCorrelation holds the sender's correlated OTs: the zero
// labels b0 and the correlation delta. The one labels are b0 ⊕ Δ.
type senderCorrelation struct {
	labels []ot.Label
	delta  ot.Label
}

// receiverCorrelation holds the receiver's inputs and the chosen
// labels b0 ⊕ y[j]*Δ for each input bit.
type receiverCorrelation struct {
	inputs []*big.Int
	labels []ot.Label
}

func expandSend(iknp *ot.IKNPSender, groups int) (*senderCorrelation, error) {
	labels, err := iknp.Send(groups*fieldBits, false)
	if err != nil {
		return nil, err
	}
	return &senderCorrelation{
		labels: labels,
		delta:  iknp.Delta,
	}, nil
}

func expandReceive(iknp *ot.IKNPReceiver, inputs []*big.Int) (
	*receiverCorrelation, error) {

	flags := make([]bool, len(inputs)*fieldBits)
	for g, y := range inputs {
		for j := 0; j < fieldBits; j++ {
			flags[g*fieldBits+j] = y.Bit(j) == 1
		}
	}
	labels := make([]ot.Label, len(flags))
	if err := iknp.Receive(flags, labels, false); err != nil {
		return nil, err
	}
	return &receiverCorrelation{
		inputs: inputs,
		labels: labels,
	}, nil
}

// hashLabel hashes the label l into a field element. The tweak and
// bit index j separate the hashes of different multiplications.
func hashLabel(tweak uint64, j int, l ot.Label) *big.Int {
	var buf [8 + 4 + 16]byte
	var ld ot.LabelData

	binary.BigEndian.PutUint64(buf[0:], tweak)
	binary.BigEndian.PutUint32(buf[8:], uint32(j))
	copy(buf[12:], l.Bytes(&ld))

	digest := blake2b.Sum512(buf[:])
	return field.Reduce(new(big.Int).SetBytes(digest[:]))
}

// multiply runs the sender side of the Gilboa multiplication for the
// items. The function sends the correction values to the receiver and
// returns the sender's additive shares of the products.
func (c *senderCorrelation) multiply(conn *p2p.Conn, items []crossItem) (
	[]*big.Int, error) {

	result := make([]*big.Int, len(items))
	msg := make([]*big.Int, 0, len(items)*fieldBits)

	for i, item := range items {
		if (item.group+1)*fieldBits > len(c.labels) {
			return nil, fmt.Errorf("spdz: invalid OT group %v", item.group)
		}
		share := new(big.Int)
		x := field.Reduce(item.x)
		for j := 0; j < fieldBits; j++ {
			b0 := c.labels[item.group*fieldBits+j]
			b1 := b0
			b1.Xor(c.delta)

			h0 := hashLabel(item.tweak, j, b0)
			h1 := hashLabel(item.tweak, j, b1)

			// D = H(b0) + x*2^j - H(b1)
			d := field.Add(h0, field.Mul(x, field.Pow2(j)))
			msg = append(msg, field.Sub(d, h1))

			share = field.Sub(share, h0)
		}
		result[i] = share
	}
	if err := sendFields(conn, msg); err != nil {
		return nil, err
	}
	return result, nil
}

// multiply runs the receiver side of the Gilboa multiplication for
// the items and returns the receiver's additive shares of the
// products.
func (c *receiverCorrelation) multiply(conn *p2p.Conn, items []crossItem) (
	[]*big.Int, error) {

	msg, err := receiveFields(conn, len(items)*fieldBits)
	if err != nil {
		return nil, err
	}
	result := make([]*big.Int, len(items))
	for i, item := range items {
		if item.group >= len(c.inputs) {
			return nil, fmt.Errorf("spdz: invalid OT group %v", item.group)
		}
		y := c.inputs[item.group]
		share := new(big.Int)
		for j := 0; j < fieldBits; j++ {
			t := c.labels[item.group*fieldBits+j]
			share = field.Add(share, hashLabel(item.tweak, j, t))
			if y.Bit(j) == 1 {
				share = field.Add(share, msg[i*fieldBits+j])
			}
		}
		result[i] = share
	}
	return result, nil
}
