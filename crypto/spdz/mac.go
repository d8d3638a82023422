//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/markkurossi/mpclp/crypto/field"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

const commitNonceSize = 32

var coinFlipInfo = []byte("spdz mac check")

// commit exchanges the committed values with the peer: both peers
// first exchange the commitments of their values and then the values
// themselves. The function returns the peer's value after verifying
// it against the peer's commitment.
func (p *Peer) commit(value []byte) ([]byte, error) {
	opening := make([]byte, len(value)+commitNonceSize)
	copy(opening, value)
	if _, err := io.ReadFull(p.rand, opening[len(value):]); err != nil {
		return nil, err
	}
	digest := blake2b.Sum256(opening)

	peerDigest, err := p.exchangeData(digest[:])
	if err != nil {
		return nil, err
	}
	peerOpening, err := p.exchangeData(opening)
	if err != nil {
		return nil, err
	}
	if len(peerOpening) != len(opening) {
		return nil, ErrCommitment
	}
	d := blake2b.Sum256(peerOpening)
	if !bytes.Equal(d[:], peerDigest) {
		return nil, ErrCommitment
	}
	p.Stats.Rounds += 2

	return peerOpening[:len(value)], nil
}

// coinFlip returns a PRG seeded with a jointly generated random seed.
func (p *Peer) coinFlip() (io.Reader, error) {
	var seed [32]byte
	if _, err := io.ReadFull(p.rand, seed[:]); err != nil {
		return nil, err
	}
	peerSeed, err := p.commit(seed[:])
	if err != nil {
		return nil, err
	}
	for i := range seed {
		seed[i] ^= peerSeed[i]
	}
	var key [chacha20.KeySize + chacha20.NonceSize]byte
	_, err = io.ReadFull(hkdf.Expand(sha256.New, seed[:], coinFlipInfo), key[:])
	if err != nil {
		return nil, err
	}

	cipher, err := chacha20.NewUnauthenticatedCipher(key[:chacha20.KeySize],
		key[chacha20.KeySize:])
	if err != nil {
		return nil, err
	}
	return &prg{
		cipher: cipher,
	}, nil
}

type prg struct {
	cipher *chacha20.Cipher
}

func (r *prg) Read(p []byte) (int, error) {
	clear(p)
	r.cipher.XORKeyStream(p, p)
	return len(p), nil
}

// CheckMACs verifies the MACs of all values opened since the previous
// check. The values are combined with jointly random coefficients and
// the peers commit to their MAC differences before opening them. The
// function returns ErrMACCheck if any opened value was modified.
func (p *Peer) CheckMACs() error {
	if len(p.pending) == 0 {
		return nil
	}
	pending := p.pending
	p.pending = nil

	coeffs, err := p.coinFlip()
	if err != nil {
		return fmt.Errorf("spdz: MAC check: %w", err)
	}

	a := new(big.Int)
	gamma := new(big.Int)
	for _, o := range pending {
		r, err := field.Random(coeffs)
		if err != nil {
			return err
		}
		a = field.Add(a, field.Mul(r, o.value))
		gamma = field.Add(gamma, field.Mul(r, o.mac))
	}
	sigma := field.Sub(gamma, field.Mul(p.alpha, a))

	peerSigma, err := p.commit(field.Bytes32(sigma))
	if err != nil {
		return fmt.Errorf("spdz: MAC check: %w", err)
	}
	sum := field.Add(sigma, new(big.Int).SetBytes(peerSigma))

	p.Stats.Checks++
	p.debugf("MAC check: %v values\n", len(pending))

	if sum.Sign() != 0 {
		return ErrMACCheck
	}
	return nil
}
