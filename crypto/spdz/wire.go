//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"math/big"

	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/mpclp/crypto/field"
)

// chunkElements is the maximum number of field elements sent in one
// data message. The messages must fit into the connection's write
// buffer.
const chunkElements = 1024

// sendFields sends the field elements vals to the peer and flushes
// the connection.
func sendFields(conn *p2p.Conn, vals []*big.Int) error {
	for len(vals) > 0 {
		n := len(vals)
		if n > chunkElements {
			n = chunkElements
		}
		if err := conn.SendData(field.Encode(vals[:n])); err != nil {
			return err
		}
		vals = vals[n:]
	}
	return conn.Flush()
}

// receiveFields receives n field elements from the peer.
func receiveFields(conn *p2p.Conn, n int) ([]*big.Int, error) {
	result := make([]*big.Int, 0, n)
	for len(result) < n {
		count := n - len(result)
		if count > chunkElements {
			count = chunkElements
		}
		data, err := conn.ReceiveData()
		if err != nil {
			return nil, err
		}
		vals, err := field.Decode(data, count)
		if err != nil {
			return nil, err
		}
		result = append(result, vals...)
	}
	return result, nil
}
