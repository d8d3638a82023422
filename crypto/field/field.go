//
// Copyright (c) 2025-2026 Markku Rossi
//
// All rights reserved.
//

// Package field implements helpers for the prime field GF(p) where p
// is the P-256 base field prime. Field elements are represented as
// *big.Int values in the range [0, p). Signed integers are embedded
// so that negative values -x map to p-x.
package field

import (
	"crypto/elliptic"
	"fmt"
	"io"
	"math/big"
)

// Size is the byte size of an encoded field element.
const Size = 32

var (
	// P is the field modulus.
	P = elliptic.P256().Params().P

	half = new(big.Int).Rsh(P, 1)
	pm2  = new(big.Int).Sub(P, big.NewInt(2))
	sqrE = new(big.Int).Rsh(new(big.Int).Add(P, big.NewInt(1)), 2)
)

// Reduce reduces x modulo P. The result is a new value in [0, P).
func Reduce(x *big.Int) *big.Int {
	z := new(big.Int).Mod(x, P)
	if z.Sign() < 0 {
		z.Add(z, P)
	}
	return z
}

// Int64 returns the field element for the signed integer v.
func Int64(v int64) *big.Int {
	return Reduce(big.NewInt(v))
}

// Signed decodes the field element x as a signed integer in the
// range (-(P-1)/2, (P-1)/2].
func Signed(x *big.Int) *big.Int {
	z := Reduce(x)
	if z.Cmp(half) > 0 {
		z.Sub(z, P)
	}
	return z
}

// Add returns a+b mod P.
func Add(a, b *big.Int) *big.Int {
	return Reduce(new(big.Int).Add(a, b))
}

// Sub returns a-b mod P.
func Sub(a, b *big.Int) *big.Int {
	return Reduce(new(big.Int).Sub(a, b))
}

// Mul returns a*b mod P.
func Mul(a, b *big.Int) *big.Int {
	return Reduce(new(big.Int).Mul(a, b))
}

// Neg returns -a mod P.
func Neg(a *big.Int) *big.Int {
	return Reduce(new(big.Int).Neg(a))
}

// Inv returns the multiplicative inverse of a. The function returns
// an error if a is zero.
func Inv(a *big.Int) (*big.Int, error) {
	z := Reduce(a)
	if z.Sign() == 0 {
		return nil, fmt.Errorf("field: inverse of zero")
	}
	return z.Exp(z, pm2, P), nil
}

// Rat returns the rational r as the field element num/den.
func Rat(r *big.Rat) (*big.Int, error) {
	inv, err := Inv(r.Denom())
	if err != nil {
		return nil, err
	}
	return Mul(r.Num(), inv), nil
}

// Sqrt returns a square root of a, or nil if a is not a quadratic
// residue. P = 3 mod 4 so the root is a^((P+1)/4).
func Sqrt(a *big.Int) *big.Int {
	z := Reduce(a)
	r := new(big.Int).Exp(z, sqrE, P)
	if Mul(r, r).Cmp(z) != 0 {
		return nil
	}
	return r
}

// Pow2 returns 2^n as a field element.
func Pow2(n int) *big.Int {
	return Reduce(new(big.Int).Lsh(big.NewInt(1), uint(n)))
}

// Random returns a uniformly distributed random field element read
// from r.
func Random(r io.Reader) (*big.Int, error) {
	for {
		var buf [Size]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		x := new(big.Int).SetBytes(buf[:])
		if x.Cmp(P) < 0 {
			return x, nil
		}
	}
}

// Bytes32 encodes x as a 32-byte big-endian value.
func Bytes32(x *big.Int) []byte {
	b := make([]byte, Size)
	if x == nil {
		return b
	}
	Reduce(x).FillBytes(b)
	return b
}

// Encode encodes the elements of v into a packed byte array of
// len(v)*Size bytes.
func Encode(v []*big.Int) []byte {
	out := make([]byte, len(v)*Size)
	for i, x := range v {
		if x == nil {
			continue
		}
		Reduce(x).FillBytes(out[i*Size : (i+1)*Size])
	}
	return out
}

// Decode decodes n field elements from the packed byte array data.
func Decode(data []byte, n int) ([]*big.Int, error) {
	if len(data) != n*Size {
		return nil, fmt.Errorf("field: expected %d bytes for %d elements, got %d",
			n*Size, n, len(data))
	}
	result := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		x := new(big.Int).SetBytes(data[i*Size : (i+1)*Size])
		if x.Cmp(P) >= 0 {
			return nil, fmt.Errorf("field: element %d out of range", i)
		}
		result[i] = x
	}
	return result, nil
}
