//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

// Package tss implements two-party threshold ECDSA attestation of LP
// results using the https://github.com/bnb-chain/tss-lib library. The
// solver peers jointly sign a digest of the revealed result so that a
// third party can verify the result with the joint public key.
package tss

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"sync"

	"github.com/bnb-chain/tss-lib/v2/common"
	"github.com/bnb-chain/tss-lib/v2/ecdsa/keygen"
	"github.com/bnb-chain/tss-lib/v2/ecdsa/signing"
	"github.com/bnb-chain/tss-lib/v2/tss"
	"github.com/markkurossi/mpc/ot"
	"github.com/markkurossi/text/superscript"
)

var (
	bo = binary.BigEndian
)

const (
	moniker   = "mpclp"
	chunkSize = 32 * 1024
)

// Peer implements a two-party peer for threshold signature scheme.
type Peer struct {
	Verbose bool
	PartyID *tss.PartyID

	io      ot.IO
	ctx     *tss.PeerContext
	once    sync.Once
	inCh    chan []byte
	readErr chan error
}

func init() {
	tss.RegisterCurve("secp256r1", elliptic.P256())
}

func partyName(id int) string {
	return "P" + superscript.Itoa(id)
}

func makePartyID(id int) *tss.PartyID {
	var keyData []byte

	keyData = append(keyData, []byte(partyName(id))...)
	keyData = append(keyData, []byte(moniker)...)

	key := new(big.Int).SetBytes(keyData)

	return tss.NewPartyID(partyName(id), moniker, key)
}

// NewPeer creates a new two-party peer for threshold signature
// scheme. The id is the solver peer ID (0 or 1). After the first
// Keygen or Sign, the peer owns the receive side of the connection.
func NewPeer(io ot.IO, id int) (*Peer, error) {
	if id != 0 && id != 1 {
		return nil, fmt.Errorf("tss: invalid peer ID %v", id)
	}
	ids := tss.SortPartyIDs(tss.UnSortedPartyIDs{
		makePartyID(0),
		makePartyID(1),
	})

	var this *tss.PartyID
	for _, i := range ids {
		if i.Id == partyName(id) {
			this = i
		}
	}

	return &Peer{
		io:      io,
		ctx:     tss.NewPeerContext(ids),
		PartyID: this,
		inCh:    make(chan []byte),
		readErr: make(chan error, 1),
	}, nil
}

func (peer *Peer) debugf(format string, a ...interface{}) {
	if !peer.Verbose {
		return
	}
	msg := fmt.Sprintf(format, a...)
	fmt.Printf("%v: %v", peer.PartyID.Id, msg)
}

// reader reads messages from the connection for all protocol runs.
func (peer *Peer) reader() {
	for {
		data, err := peer.receive()
		if err != nil {
			peer.readErr <- err
			return
		}
		peer.inCh <- data
	}
}

// send sends the message as a sequence of chunks which fit into the
// connection's write buffer.
func (peer *Peer) send(data []byte) error {
	count := (len(data) + chunkSize - 1) / chunkSize
	if err := peer.io.SendUint32(count); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		end := min((i+1)*chunkSize, len(data))
		if err := peer.io.SendData(data[i*chunkSize : end]); err != nil {
			return err
		}
	}
	return peer.io.Flush()
}

func (peer *Peer) receive() ([]byte, error) {
	count, err := peer.io.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	var result []byte
	for i := 0; i < count; i++ {
		chunk, err := peer.io.ReceiveData()
		if err != nil {
			return nil, err
		}
		result = append(result, chunk...)
	}
	return result, nil
}

// run runs the party until it delivers its result to endCh.
func run[T any](peer *Peer, party tss.Party, outCh <-chan tss.Message,
	endCh chan T) (T, error) {

	var zero T
	errCh := make(chan *tss.Error, 1)

	peer.once.Do(func() {
		go peer.reader()
	})

	go func() {
		if err := party.Start(); err != nil {
			errCh <- err
		}
	}()

	for {
		select {
		case err := <-errCh:
			return zero, err

		case err := <-peer.readErr:
			return zero, party.WrapError(err)

		case msg := <-outCh:
			dst := msg.GetTo()
			peer.debugf("msg: src=%v, dst=%v\n", msg.GetFrom().Id, dst)

			if dst != nil && dst[0].Index == msg.GetFrom().Index {
				return zero, fmt.Errorf("party %v sending a message to itself",
					peer.PartyID)
			}

			// Send message to our peer.
			data, err := marshalMessage(msg)
			if err != nil {
				return zero, party.WrapError(err)
			}
			if err := peer.send(data); err != nil {
				return zero, party.WrapError(err)
			}

		case result := <-endCh:
			return result, nil

		case in := <-peer.inCh:
			msg, err := unmarshalMessage(in)
			if err != nil {
				return zero, err
			}
			peer.debugf("input: src=%v\n", msg.GetFrom().Id)
			go func() {
				_, err := party.Update(msg)
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
				}
			}()
		}
	}
}

// Keygen implements the threshold key generation.
func (peer *Peer) Keygen() (*keygen.LocalPartySaveData, error) {
	outCh := make(chan tss.Message)
	endCh := make(chan *keygen.LocalPartySaveData, 1)
	curve := elliptic.P256()

	n := len(peer.ctx.IDs())

	params := tss.NewParameters(curve, peer.ctx, peer.PartyID, n, 1)
	party := keygen.NewLocalParty(params, outCh, endCh).(*keygen.LocalParty)

	save, err := run(peer, party, outCh, endCh)
	if err != nil {
		return nil, err
	}
	peer.debugf("save: id=%v\n", peer.PartyID.Id)
	return save, nil
}

// Sign implements the threshold signature for the digest using the
// local key share key. The function returns the signed digest and the
// ASN.1 encoded signature.
func (peer *Peer) Sign(key *keygen.LocalPartySaveData, digest []byte) (
	[]byte, []byte, error) {

	outCh := make(chan tss.Message)
	endCh := make(chan *common.SignatureData, 1)
	curve := elliptic.P256()

	n := len(peer.ctx.IDs())

	params := tss.NewParameters(curve, peer.ctx, peer.PartyID, n, 1)
	party := signing.NewLocalParty(new(big.Int).SetBytes(digest), params,
		*key, outCh, endCh, len(digest)).(*signing.LocalParty)

	signature, err := run(peer, party, outCh, endCh)
	if err != nil {
		return nil, nil, err
	}
	peer.debugf("signature: %x\n", signature.Signature)

	sig := ecdsaSig{
		R: new(big.Int).SetBytes(signature.R),
		S: new(big.Int).SetBytes(signature.S),
	}
	data, err := asn1.Marshal(sig)
	if err != nil {
		return nil, nil, err
	}
	return signature.M, data, nil
}

type ecdsaSig struct {
	R *big.Int
	S *big.Int
}

// PublicKey returns the joint public key of the key share.
func PublicKey(key *keygen.LocalPartySaveData) *ecdsa.PublicKey {
	return key.ECDSAPub.ToECDSAPubKey()
}

// ResultDigest computes the digest of an LP result for signing. The
// value is the revealed optimal value as a field element.
func ResultDigest(problemID string, iterations int, value *big.Int) []byte {
	h := sha256.New()

	var buf [8]byte
	bo.PutUint32(buf[:4], uint32(len(problemID)))
	h.Write(buf[:4])
	h.Write([]byte(problemID))

	bo.PutUint64(buf[:], uint64(iterations))
	h.Write(buf[:])

	var v [32]byte
	value.FillBytes(v[:])
	h.Write(v[:])

	return h.Sum(nil)
}

// Verify verifies the ASN.1 encoded signature of the digest.
func Verify(pub *ecdsa.PublicKey, digest, signature []byte) bool {
	return ecdsa.VerifyASN1(pub, digest, signature)
}

func marshalMessage(msg tss.Message) ([]byte, error) {
	msgData, _, err := msg.WireBytes()
	if err != nil {
		return nil, err
	}
	fromData, err := json.Marshal(msg.GetFrom())
	if err != nil {
		return nil, err
	}

	l := 4 + len(msgData) + len(fromData) + 1

	data := make([]byte, l)
	bo.PutUint32(data, uint32(len(msgData)))
	copy(data[4:], msgData)
	copy(data[4+len(msgData):], fromData)

	if msg.IsBroadcast() {
		data[l-1] = 1
	}
	return data, nil
}

func unmarshalMessage(data []byte) (tss.ParsedMessage, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("truncated message")
	}
	msgLen := int(bo.Uint32(data))
	if 4+msgLen+1 > len(data) {
		return nil, fmt.Errorf("truncated message")
	}
	msgData := data[4 : 4+msgLen]
	fromData := data[4+msgLen : len(data)-1]
	isBroadcast := data[len(data)-1] == 1

	var from tss.PartyID
	err := json.Unmarshal(fromData, &from)
	if err != nil {
		return nil, err
	}
	return tss.ParseWireMessage(msgData, &from, isBroadcast)
}

// WriteSaveData writes the local party save data to file.
func WriteSaveData(file string, save *keygen.LocalPartySaveData) error {
	data, err := json.Marshal(save)
	if err != nil {
		return err
	}
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// ReadSaveData reads the local party save data from file.
func ReadSaveData(file string) (*keygen.LocalPartySaveData, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	result := new(keygen.LocalPartySaveData)
	err = json.Unmarshal(data, result)
	if err != nil {
		return nil, err
	}
	return result, nil
}
