// Package curve implements the secp256k1 scalar and point arithmetic that
// every other package in this module builds on: DKG polynomials, FROST
// nonces and signatures, and capability-event signature checks all reduce
// to operations on Scalar and Point.
package curve

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Scalar is an element of Z/nZ, where n is the order of the secp256k1 group.
type Scalar struct {
	v secp256k1.ModNScalar
}

// NewScalar returns the zero scalar.
func NewScalar() *Scalar {
	return &Scalar{}
}

// ScalarFromUint32 returns the scalar representing the given small integer.
// Used for participant indices, which double as evaluation points of the
// sharing polynomials.
func ScalarFromUint32(n uint32) *Scalar {
	s := NewScalar()
	s.v.SetInt(n)
	return s
}

// RandomScalarNonzero samples a uniformly random nonzero scalar.
//
// Secrets, nonces, and polynomial coefficients must never be the
// additive identity.
func RandomScalarNonzero() (*Scalar, error) {
	for {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, fmt.Errorf("curve: sample scalar: %w", err)
		}
		s := NewScalar()
		s.v.SetByteSlice(buf[:])
		if !s.v.IsZero() {
			return s, nil
		}
	}
}

// ScalarFromBytes decodes a 32-byte big-endian scalar, rejecting the zero
// scalar and any value that would have needed reduction mod n (i.e. any
// encoding of a value >= n).
func ScalarFromBytes(b []byte) (*Scalar, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("curve: scalar must be 32 bytes, got %d", len(b))
	}
	s := NewScalar()
	if overflow := s.v.SetByteSlice(b); overflow {
		return nil, fmt.Errorf("curve: scalar encoding is >= group order")
	}
	if s.v.IsZero() {
		return nil, fmt.Errorf("curve: scalar is zero")
	}
	return s, nil
}

// ScalarFromHex decodes a lowercase-hex encoded scalar, the canonical
// exchange form for scalars.
func ScalarFromHex(s string) (*Scalar, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("curve: decode scalar hex: %w", err)
	}
	return ScalarFromBytes(b)
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (s *Scalar) Bytes() []byte {
	b := s.v.Bytes()
	out := make([]byte, 32)
	copy(out, b[:])
	return out
}

// Hex returns the canonical lowercase-hex encoding.
func (s *Scalar) Hex() string {
	return hex.EncodeToString(s.Bytes())
}

// Set copies other into s and returns s.
func (s *Scalar) Set(other *Scalar) *Scalar {
	s.v.Set(&other.v)
	return s
}

// Add returns s + other.
func (s *Scalar) Add(other *Scalar) *Scalar {
	out := NewScalar()
	out.v.Add2(&s.v, &other.v)
	return out
}

// Sub returns s - other.
func (s *Scalar) Sub(other *Scalar) *Scalar {
	neg := NewScalar()
	neg.v.Set(&other.v)
	neg.v.Negate()
	out := NewScalar()
	out.v.Add2(&s.v, &neg.v)
	return out
}

// Mul returns s * other.
func (s *Scalar) Mul(other *Scalar) *Scalar {
	out := NewScalar()
	out.v.Mul2(&s.v, &other.v)
	return out
}

// MulAdd returns s*x + y, the Horner-step primitive polynomial
// evaluation and signature aggregation build on.
func (s *Scalar) MulAdd(x, y *Scalar) *Scalar {
	return s.Mul(x).Add(y)
}

// Negate returns -s mod n.
func (s *Scalar) Negate() *Scalar {
	out := NewScalar()
	out.v.Set(&s.v)
	out.v.Negate()
	return out
}

// Invert returns the multiplicative inverse of s. Panics if s is zero: a
// guard against misuse on values that must never be zero.
func (s *Scalar) Invert() *Scalar {
	if s.v.IsZero() {
		panic("curve: attempt to invert the zero scalar")
	}
	out := NewScalar()
	out.v.Set(&s.v)
	out.v.InverseNonConst()
	return out
}

// Equal reports whether s and other represent the same residue mod n.
func (s *Scalar) Equal(other *Scalar) bool {
	return s.v.Equals(&other.v)
}

// IsZero reports whether s is the additive identity.
func (s *Scalar) IsZero() bool {
	return s.v.IsZero()
}

// ActOnBase returns s*G, the scalar multiple of the generator.
func (s *Scalar) ActOnBase() *Point {
	p := &Point{}
	secp256k1.ScalarBaseMultNonConst(&s.v, &p.v)
	return p
}

// Act returns s*P for the given point.
func (s *Scalar) Act(p *Point) *Point {
	out := &Point{}
	secp256k1.ScalarMultNonConst(&s.v, &p.v, &out.v)
	return out
}

// MarshalBinary implements encoding.BinaryMarshaler, used by the CBOR
// encoding of KeyPackage and Capability records.
func (s *Scalar) MarshalBinary() ([]byte, error) {
	return s.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Scalar) UnmarshalBinary(b []byte) error {
	decoded, err := ScalarFromBytes(b)
	if err != nil {
		return err
	}
	s.v = decoded.v
	return nil
}
