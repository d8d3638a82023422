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
)

// Dealer implements a trusted dealer Preprocessor. Peer 0 acts as the
// dealer: it samples the MAC key and all correlated randomness and
// sends peer 1 its shares. The dealer is suitable for testing and for
// deployments where peer 0 is trusted with the preprocessing.
type Dealer struct {
	conn  *p2p.Conn
	id    int
	rand  io.Reader
	alpha *big.Int
}

// NewDealer creates a new dealer preprocessor for the peer id.
func NewDealer(conn *p2p.Conn, id int) (*Dealer, error) {
	if id != 0 && id != 1 {
		return nil, ErrInvalidParty
	}
	return &Dealer{
		conn: conn,
		id:   id,
		rand: rand.Reader,
	}, nil
}

// MACKey implements Preprocessor.MACKey.
func (d *Dealer) MACKey() (*big.Int, error) {
	if d.id == 1 {
		v, err := d.receive(1)
		if err != nil {
			return nil, err
		}
		return v[0], nil
	}
	alpha, err := field.Random(d.rand)
	if err != nil {
		return nil, err
	}
	alpha0, err := field.Random(d.rand)
	if err != nil {
		return nil, err
	}
	d.alpha = alpha
	if err := d.send([]*big.Int{field.Sub(alpha, alpha0)}); err != nil {
		return nil, err
	}
	return alpha0, nil
}

// Triples implements Preprocessor.Triples.
func (d *Dealer) Triples(n int) ([]*Triple, error) {
	if n <= 0 {
		return nil, nil
	}
	result := make([]*Triple, n)

	if d.id == 1 {
		v, err := d.receive(6 * n)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			o := i * 6
			result[i] = &Triple{
				A: NewShare(v[o+0], v[o+1]),
				B: NewShare(v[o+2], v[o+3]),
				C: NewShare(v[o+4], v[o+5]),
			}
		}
		return result, nil
	}
	if d.alpha == nil {
		return nil, fmt.Errorf("spdz: dealer: MAC key not generated")
	}

	peer := make([]*big.Int, 0, 6*n)
	for i := 0; i < n; i++ {
		a, err := field.Random(d.rand)
		if err != nil {
			return nil, err
		}
		b, err := field.Random(d.rand)
		if err != nil {
			return nil, err
		}
		c := field.Mul(a, b)

		var own [3]*Share
		for idx, v := range []*big.Int{a, b, c} {
			s0, s1, err := d.deal(v)
			if err != nil {
				return nil, err
			}
			own[idx] = s0
			peer = append(peer, s1.V, s1.M)
		}
		result[i] = &Triple{
			A: own[0],
			B: own[1],
			C: own[2],
		}
	}
	if err := d.send(peer); err != nil {
		return nil, err
	}
	return result, nil
}

// Bits implements BitSource.Bits.
func (d *Dealer) Bits(n int) ([]*Share, error) {
	if n <= 0 {
		return nil, nil
	}
	result := make([]*Share, n)

	if d.id == 1 {
		v, err := d.receive(2 * n)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			result[i] = NewShare(v[2*i], v[2*i+1])
		}
		return result, nil
	}
	if d.alpha == nil {
		return nil, fmt.Errorf("spdz: dealer: MAC key not generated")
	}

	buf := make([]byte, (n+7)/8)
	if _, err := io.ReadFull(d.rand, buf); err != nil {
		return nil, err
	}
	peer := make([]*big.Int, 0, 2*n)
	for i := 0; i < n; i++ {
		bit := big.NewInt(int64((buf[i/8] >> (i % 8)) & 1))
		s0, s1, err := d.deal(bit)
		if err != nil {
			return nil, err
		}
		result[i] = s0
		peer = append(peer, s1.V, s1.M)
	}
	if err := d.send(peer); err != nil {
		return nil, err
	}
	return result, nil
}

// deal splits the value v into two authenticated shares.
func (d *Dealer) deal(v *big.Int) (*Share, *Share, error) {
	v0, err := field.Random(d.rand)
	if err != nil {
		return nil, nil, err
	}
	m0, err := field.Random(d.rand)
	if err != nil {
		return nil, nil, err
	}
	mac := field.Mul(d.alpha, v)

	return &Share{
			V: v0,
			M: m0,
		}, &Share{
			V: field.Sub(v, v0),
			M: field.Sub(mac, m0),
		}, nil
}

func (d *Dealer) send(v []*big.Int) error {
	return sendFields(d.conn, v)
}

func (d *Dealer) receive(n int) ([]*big.Int, error) {
	return receiveFields(d.conn, n)
}
