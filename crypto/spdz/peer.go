//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/mpclp/crypto/field"
	"github.com/markkurossi/text/superscript"
)

// Peer implements one party of the two-party arithmetic backend.
type Peer struct {
	Params  Params
	Stats   Stats
	conn    *p2p.Conn
	id      int
	rand    io.Reader
	pre     Preprocessor
	alpha   *big.Int
	triples []*Triple
	bits    []*Share
	pending []opened
}

type opened struct {
	value *big.Int
	mac   *big.Int
}

// NewPeer creates a new peer with the ID id (0 or 1) communicating
// with its counterpart over conn. The preprocessor pre supplies the
// MAC key share and the multiplication triples. If params is nil,
// the peer uses the default parameters.
func NewPeer(conn *p2p.Conn, id int, pre Preprocessor, params *Params) (
	*Peer, error) {

	if id != 0 && id != 1 {
		return nil, ErrInvalidParty
	}
	if params == nil {
		params = NewParams()
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	alpha, err := pre.MACKey()
	if err != nil {
		return nil, fmt.Errorf("spdz: MAC key: %w", err)
	}
	return &Peer{
		Params: *params,
		conn:   conn,
		id:     id,
		rand:   rand.Reader,
		pre:    pre,
		alpha:  alpha,
	}, nil
}

// ID returns the peer ID.
func (p *Peer) ID() int {
	return p.id
}

// Conn returns the peer's connection.
func (p *Peer) Conn() *p2p.Conn {
	return p.conn
}

func (p *Peer) String() string {
	return "P" + superscript.Itoa(p.id)
}

func (p *Peer) debugf(format string, a ...interface{}) {
	if !p.Params.Verbose {
		return
	}
	msg := fmt.Sprintf(format, a...)
	fmt.Printf("%v: %v", p, msg)
}

// Known returns the share of the public constant c.
func (p *Peer) Known(c *big.Int) *Share {
	v := new(big.Int)
	if p.id == 0 {
		v = field.Reduce(c)
	}
	return &Share{
		V: v,
		M: field.Mul(p.alpha, c),
	}
}

// Add returns a+b.
func (p *Peer) Add(a, b *Share) *Share {
	return AddShare(a, b)
}

// Sub returns a-b.
func (p *Peer) Sub(a, b *Share) *Share {
	return SubShare(a, b)
}

// Neg returns -a.
func (p *Peer) Neg(a *Share) *Share {
	return NegShare(a)
}

// Scale returns c*a for the public constant c.
func (p *Peer) Scale(c *big.Int, a *Share) *Share {
	return ScaleShare(c, a)
}

// AddPublic returns a+c for the public constant c.
func (p *Peer) AddPublic(a *Share, c *big.Int) *Share {
	return AddShare(a, p.Known(c))
}

// exchange sends our values to the peer and returns the peer's
// values. The order of operations is asymmetric to avoid deadlocks.
func (p *Peer) exchange(vals []*big.Int) ([]*big.Int, error) {
	if p.id == 0 {
		if err := sendFields(p.conn, vals); err != nil {
			return nil, err
		}
		return receiveFields(p.conn, len(vals))
	}
	peer, err := receiveFields(p.conn, len(vals))
	if err != nil {
		return nil, err
	}
	if err := sendFields(p.conn, vals); err != nil {
		return nil, err
	}
	return peer, nil
}

// exchangeData exchanges the data messages with the peer.
func (p *Peer) exchangeData(data []byte) ([]byte, error) {
	if p.id == 0 {
		if err := p.conn.SendData(data); err != nil {
			return nil, err
		}
		if err := p.conn.Flush(); err != nil {
			return nil, err
		}
		return p.conn.ReceiveData()
	}
	peer, err := p.conn.ReceiveData()
	if err != nil {
		return nil, err
	}
	if err := p.conn.SendData(data); err != nil {
		return nil, err
	}
	if err := p.conn.Flush(); err != nil {
		return nil, err
	}
	return peer, nil
}

// Open opens the shared values a. The opened values are recorded for
// the next MAC check.
func (p *Peer) Open(a []*Share) ([]*big.Int, error) {
	if len(a) == 0 {
		return nil, nil
	}
	vals := make([]*big.Int, len(a))
	for i, s := range a {
		vals[i] = s.V
	}
	peer, err := p.exchange(vals)
	if err != nil {
		return nil, fmt.Errorf("spdz: open: %w", err)
	}
	result := make([]*big.Int, len(a))
	for i := range a {
		result[i] = field.Add(vals[i], peer[i])
		p.pending = append(p.pending, opened{
			value: result[i],
			mac:   a[i].M,
		})
	}
	p.Stats.Opens += uint64(len(a))
	p.Stats.Rounds++
	return result, nil
}

// Reveal opens the shared values a and verifies the MACs of all values
// opened so far.
func (p *Peer) Reveal(a []*Share) ([]*big.Int, error) {
	result, err := p.Open(a)
	if err != nil {
		return nil, err
	}
	if err := p.CheckMACs(); err != nil {
		return nil, err
	}
	return result, nil
}

// Input secret shares the values of the owner peer. The owner
// provides its values in values; the other peer passes nil and the
// number of values in n.
//
// The masks are opened privately to the owner. The owner verifies
// them with a random linear combination that is opened to both peers
// and authenticated by the next MAC check. The function returns
// ErrMACCheck if the peer sent a modified mask share.
func (p *Peer) Input(owner int, values []*big.Int, n int) ([]*Share, error) {
	if owner != 0 && owner != 1 {
		return nil, ErrInvalidParty
	}
	if owner == p.id {
		n = len(values)
	}
	if n == 0 {
		return nil, nil
	}
	// The last mask blinds the check value.
	masks, err := p.randoms(n + 1)
	if err != nil {
		return nil, err
	}

	// Open masks to the owner and send eps and the check coefficients.
	var eps, coeffs, r []*big.Int
	if owner == p.id {
		peer, err := receiveFields(p.conn, n+1)
		if err != nil {
			return nil, fmt.Errorf("spdz: input: %w", err)
		}
		r = make([]*big.Int, n+1)
		for i := range r {
			r[i] = field.Add(masks[i].V, peer[i])
		}
		eps = make([]*big.Int, n)
		coeffs = make([]*big.Int, n)
		for i := 0; i < n; i++ {
			eps[i] = field.Sub(values[i], r[i])
			coeffs[i], err = field.Random(p.rand)
			if err != nil {
				return nil, err
			}
		}
		if err := sendFields(p.conn, append(eps, coeffs...)); err != nil {
			return nil, fmt.Errorf("spdz: input: %w", err)
		}
	} else {
		vals := make([]*big.Int, n+1)
		for i := range vals {
			vals[i] = masks[i].V
		}
		if err := sendFields(p.conn, vals); err != nil {
			return nil, fmt.Errorf("spdz: input: %w", err)
		}
		msg, err := receiveFields(p.conn, 2*n)
		if err != nil {
			return nil, fmt.Errorf("spdz: input: %w", err)
		}
		eps = msg[:n]
		coeffs = msg[n:]
	}
	p.Stats.Rounds += 2

	// check = sum(coeffs[i]*masks[i]) + masks[n]
	check := masks[n]
	for i := 0; i < n; i++ {
		check = AddShare(check, ScaleShare(coeffs[i], masks[i]))
	}
	opened, err := p.Open([]*Share{check})
	if err != nil {
		return nil, fmt.Errorf("spdz: input: %w", err)
	}
	if owner == p.id {
		expected := r[n]
		for i := 0; i < n; i++ {
			expected = field.Add(expected, field.Mul(coeffs[i], r[i]))
		}
		if expected.Cmp(opened[0]) != 0 {
			return nil, fmt.Errorf("%w: input mask", ErrMACCheck)
		}
	}

	result := make([]*Share, n)
	for i := 0; i < n; i++ {
		result[i] = p.AddPublic(masks[i], eps[i])
	}
	return result, nil
}

// takeTriples takes n triples from the triple pool, refilling the
// pool from the preprocessor if needed.
func (p *Peer) takeTriples(n int) ([]*Triple, error) {
	if len(p.triples) < n {
		count := n - len(p.triples)
		if count < p.Params.BatchSize {
			count = p.Params.BatchSize
		}
		p.debugf("generating %v triples\n", count)
		t, err := p.pre.Triples(count)
		if err != nil {
			return nil, err
		}
		if len(t) != count {
			return nil, fmt.Errorf("%w: got %d, expected %d",
				ErrOutOfTriples, len(t), count)
		}
		p.triples = append(p.triples, t...)
	}
	result := p.triples[:n]
	p.triples = p.triples[n:]
	p.Stats.Triples += uint64(n)
	return result, nil
}

// randoms returns n authenticated random values.
func (p *Peer) randoms(n int) ([]*Share, error) {
	triples, err := p.takeTriples(n)
	if err != nil {
		return nil, err
	}
	result := make([]*Share, n)
	for i, t := range triples {
		result[i] = t.A
	}
	return result, nil
}

// Mul multiplies the shared values a and b element-wise. All
// products are computed in one communication round.
func (p *Peer) Mul(a, b []*Share) ([]*Share, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("spdz: mul: length mismatch %d != %d",
			len(a), len(b))
	}
	n := len(a)
	if n == 0 {
		return nil, nil
	}
	triples, err := p.takeTriples(n)
	if err != nil {
		return nil, err
	}
	de := make([]*Share, 2*n)
	for i := 0; i < n; i++ {
		de[i] = SubShare(a[i], triples[i].A)
		de[n+i] = SubShare(b[i], triples[i].B)
	}
	vals, err := p.Open(de)
	if err != nil {
		return nil, err
	}
	result := make([]*Share, n)
	for i := 0; i < n; i++ {
		d := vals[i]
		e := vals[n+i]
		t := triples[i]

		// z = c + d*b + e*a + d*e
		z := AddShare(t.C, ScaleShare(d, t.B))
		z = AddShare(z, ScaleShare(e, t.A))
		result[i] = p.AddPublic(z, field.Mul(d, e))
	}
	p.Stats.Mults += uint64(n)
	return result, nil
}
