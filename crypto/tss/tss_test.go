//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package tss

import (
	"bytes"
	"math/big"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bnb-chain/tss-lib/v2/ecdsa/keygen"
	"github.com/markkurossi/mpc/p2p"
)

func TestResultDigest(t *testing.T) {
	d := ResultDigest("fixture", 2, big.NewInt(5880))
	if len(d) != 32 {
		t.Fatalf("digest length %v, expected 32", len(d))
	}
	if !bytes.Equal(d, ResultDigest("fixture", 2, big.NewInt(5880))) {
		t.Errorf("digest not deterministic")
	}
	tests := [][]byte{
		ResultDigest("fixture", 3, big.NewInt(5880)),
		ResultDigest("fixture", 2, big.NewInt(5881)),
		ResultDigest("fixturf", 2, big.NewInt(5880)),
		ResultDigest("", 2, big.NewInt(5880)),
	}
	for idx, test := range tests {
		if bytes.Equal(d, test) {
			t.Errorf("test %v: digest collision", idx)
		}
	}
}

func TestNewPeer(t *testing.T) {
	p0, p1 := p2p.Pipe()

	if _, err := NewPeer(p0, 2); err == nil {
		t.Errorf("NewPeer accepted invalid ID")
	}
	a, err := NewPeer(p0, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewPeer(p1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if a.PartyID == nil || b.PartyID == nil {
		t.Fatalf("party IDs not resolved")
	}
	if a.PartyID.Id == b.PartyID.Id {
		t.Errorf("peers share party ID %v", a.PartyID.Id)
	}
}

func TestKeygenSign(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping threshold keygen in short mode")
	}
	c0, c1 := p2p.Pipe()
	conns := []*p2p.Conn{c0, c1}
	dir := t.TempDir()
	digest := ResultDigest("fixture", 2, big.NewInt(5880))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	sigs := make([][]byte, 2)
	keys := make([]*keygen.LocalPartySaveData, 2)

	for id := 0; id < 2; id++ {
		wg.Go(func() {
			peer, err := NewPeer(conns[id], id)
			if err != nil {
				errs[id] = err
				return
			}
			save, err := peer.Keygen()
			if err != nil {
				errs[id] = err
				return
			}
			file := filepath.Join(dir, peer.PartyID.Id+".share")
			if err := WriteSaveData(file, save); err != nil {
				errs[id] = err
				return
			}
			keys[id], err = ReadSaveData(file)
			if err != nil {
				errs[id] = err
				return
			}
			_, sigs[id], errs[id] = peer.Sign(keys[id], digest)
		})
	}
	wg.Wait()

	for id, err := range errs {
		if err != nil {
			t.Fatalf("P%v: %v", id, err)
		}
	}
	pub := PublicKey(keys[0])
	if !pub.Equal(PublicKey(keys[1])) {
		t.Fatalf("peers derived different public keys")
	}
	for id, sig := range sigs {
		if !Verify(pub, digest, sig) {
			t.Errorf("P%v: signature does not verify", id)
		}
	}
	if Verify(pub, ResultDigest("fixture", 3, big.NewInt(5880)), sigs[0]) {
		t.Errorf("signature verifies for a different result")
	}
}
