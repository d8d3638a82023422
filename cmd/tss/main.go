//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"crypto/ecdsa"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/mpclp/crypto/field"
	"github.com/markkurossi/mpclp/crypto/tss"
)

func main() {
	fDir := flag.String("dir", ".", "key share directory")
	fVerbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	log.SetFlags(0)

	if len(flag.Args()) == 0 {
		log.Fatalf("usage: tss keygen | verify ID ITERATIONS VALUE SIGNATURE")
	}

	switch flag.Args()[0] {
	case "keygen":
		keygen(*fDir, *fVerbose)

	case "verify":
		args := flag.Args()[1:]
		if len(args) != 4 {
			log.Fatalf("usage: tss verify ID ITERATIONS VALUE SIGNATURE")
		}
		verify(*fDir, args[0], args[1], args[2], args[3])

	default:
		log.Fatalf("invalid operation: %v\n", flag.Args()[0])
	}
}

func shareName(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("peer-%d.share", id))
}

func keygen(dir string, verbose bool) {
	c0, c1 := p2p.Pipe()
	conns := []*p2p.Conn{c0, c1}

	var wg sync.WaitGroup
	for id := 0; id < 2; id++ {
		wg.Go(func() {
			peer, err := tss.NewPeer(conns[id], id)
			if err != nil {
				log.Fatal(err)
			}
			peer.Verbose = verbose
			fmt.Printf("%v: Key=%x\n", peer.PartyID.Id, peer.PartyID.Key)

			save, err := peer.Keygen()
			if err != nil {
				log.Fatal(err)
			}
			err = tss.WriteSaveData(shareName(dir, id), save)
			if err != nil {
				log.Fatal(err)
			}
		})
	}
	wg.Wait()

	key, err := tss.ReadSaveData(shareName(dir, 0))
	if err != nil {
		log.Fatal(err)
	}
	printKey(tss.PublicKey(key))
}

func verify(dir, id, iterations, value, signature string) {
	key, err := tss.ReadSaveData(shareName(dir, 0))
	if err != nil {
		log.Fatal(err)
	}
	iter, err := strconv.Atoi(iterations)
	if err != nil {
		log.Fatalf("invalid iterations: %v", err)
	}
	r, ok := new(big.Rat).SetString(value)
	if !ok {
		log.Fatalf("invalid value: %v", value)
	}
	v, err := field.Rat(r)
	if err != nil {
		log.Fatal(err)
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		log.Fatalf("invalid signature: %v", err)
	}

	pub := tss.PublicKey(key)
	printKey(pub)

	result := tss.Verify(pub, tss.ResultDigest(id, iter, v), sig)
	fmt.Printf(" verify: %v\n", result)
	if !result {
		os.Exit(1)
	}
}

func printKey(key *ecdsa.PublicKey) {
	keyBytes, err := key.Bytes()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf(" pubkey: %x\n", keyBytes)
}
