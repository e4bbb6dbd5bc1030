package curve

import (
	"encoding/hex"
	"fmt"

	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Point is a secp256k1 group element, in Jacobian coordinates internally
// but always exchanged as a 33-byte compressed point.
type Point struct {
	v secp256k1.JacobianPoint
}

// NewIdentityPoint returns the point at infinity. A zero-value JacobianPoint
// has Z == 0, which is the Jacobian representation of infinity.
func NewIdentityPoint() *Point {
	return &Point{}
}

// BasePoint returns the secp256k1 generator G.
func BasePoint() *Point {
	one := ScalarFromUint32(1)
	return one.ActOnBase()
}

// PointFromBytes decodes a 33-byte compressed point, rejecting anything
// that doesn't decode to a point on the curve.
func PointFromBytes(b []byte) (*Point, error) {
	if len(b) != 33 {
		return nil, fmt.Errorf("curve: point must be 33 bytes, got %d", len(b))
	}
	if b[0] != 2 && b[0] != 3 {
		return nil, fmt.Errorf("curve: invalid compressed point prefix 0x%02x", b[0])
	}
	p := &Point{}
	p.v.Z.SetInt(1)
	if p.v.X.SetByteSlice(b[1:]) {
		return nil, fmt.Errorf("curve: point x-coordinate out of range")
	}
	if !secp256k1.DecompressY(&p.v.X, b[0] == 3, &p.v.Y) {
		return nil, fmt.Errorf("curve: x-coordinate is not on the curve")
	}
	return p, nil
}

// PointFromHex decodes a lowercase-hex compressed point.
func PointFromHex(s string) (*Point, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("curve: decode point hex: %w", err)
	}
	return PointFromBytes(b)
}

// Bytes returns the canonical 33-byte compressed encoding.
func (p *Point) Bytes() []byte {
	affine := p.v
	affine.ToAffine()
	out := make([]byte, 33)
	out[0] = byte(affine.Y.IsOddBit()) + 2
	x := affine.X.Bytes()
	copy(out[1:], x[:])
	return out
}

// Hex returns the canonical lowercase-hex compressed encoding.
func (p *Point) Hex() string {
	return hex.EncodeToString(p.Bytes())
}

// Add returns p + other.
func (p *Point) Add(other *Point) *Point {
	out := &Point{}
	secp256k1.AddNonConst(&p.v, &other.v, &out.v)
	return out
}

// Sub returns p - other.
func (p *Point) Sub(other *Point) *Point {
	return p.Add(other.Negate())
}

// Negate returns -p.
func (p *Point) Negate() *Point {
	out := &Point{}
	out.v.Set(&p.v)
	out.v.Y.Negate(1)
	out.v.Y.Normalize()
	return out
}

// Equal reports whether p and other are the same group element.
func (p *Point) Equal(other *Point) bool {
	a, b := p.v, other.v
	a.ToAffine()
	b.ToAffine()
	return a.X.Equals(&b.X) && a.Y.Equals(&b.Y) && a.Z.Equals(&b.Z)
}

// IsIdentity reports whether p is the point at infinity.
func (p *Point) IsIdentity() bool {
	return p.v.Z.IsZero()
}

// XBytes returns the 32-byte big-endian affine X coordinate alone, dropping
// the parity byte. Used for the BIP-340-style canonicalization in package
// frost, where only a point's X coordinate is bound into a hash or a
// 64-byte signature, and the Y parity is fixed up separately.
func (p *Point) XBytes() [32]byte {
	affine := p.v
	affine.ToAffine()
	return *affine.X.Bytes()
}

// HasEvenY reports whether p's affine Y coordinate is even.
func (p *Point) HasEvenY() bool {
	affine := p.v
	affine.ToAffine()
	return affine.Y.IsOddBit() == 0
}

// MarshalBinary implements encoding.BinaryMarshaler, used by the CBOR
// encoding of KeyPackage and Capability records.
func (p *Point) MarshalBinary() ([]byte, error) {
	return p.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Point) UnmarshalBinary(b []byte) error {
	decoded, err := PointFromBytes(b)
	if err != nil {
		return err
	}
	p.v = decoded.v
	return nil
}
