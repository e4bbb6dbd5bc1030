// Package schnorr implements the BIP-340-style Schnorr signature scheme
// used throughout this module: a 64-byte (X-only commitment, response
// scalar) pair that verifies identically whether it was produced by a
// single secret key (capability grant/delegate events signed by a
// personal key) or aggregated by the threshold signing engine in package
// frost (capability grant/revoke events signed "by the group key").
package schnorr

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
)

// Signature is a 64-byte Schnorr signature: a 32-byte X-only commitment
// point and a 32-byte response scalar.
type Signature struct {
	RX [32]byte
	Z  *curve.Scalar
}

// Bytes encodes the signature as 64 bytes: RX || Z.
func (sig *Signature) Bytes() []byte {
	out := make([]byte, 64)
	copy(out[:32], sig.RX[:])
	copy(out[32:], sig.Z.Bytes())
	return out
}

// SignatureFromBytes decodes a 64-byte signature.
func SignatureFromBytes(b []byte) (*Signature, error) {
	if len(b) != 64 {
		return nil, fmt.Errorf("schnorr: signature must be 64 bytes, got %d", len(b))
	}
	z := curve.NewScalar()
	if err := z.UnmarshalBinary(b[32:]); err != nil {
		return nil, fmt.Errorf("schnorr: decode signature scalar: %w", err)
	}
	sig := &Signature{Z: z}
	copy(sig.RX[:], b[:32])
	return sig, nil
}

// Challenge computes c = H_chal(Rx, Yx, m), the Fiat-Shamir challenge
// shared by signing and verification, bound to the canonical X-only
// encodings so the 64-byte signature never needs to carry a parity bit.
func Challenge(rX, yX [32]byte, message [32]byte) *curve.Scalar {
	return curve.NewTaggedHash("chal").WriteBytes(rX[:]).WriteBytes(yX[:]).WriteBytes(message[:]).Scalar()
}

// Sign produces a single-party Schnorr signature over message under
// secret's public key, used for capability delegation events (signed by
// a grant holder whose type is delegate) and for any other event signed
// by a participant's own long-term key rather than the threshold group
// key. Canonicalizes its nonce's Y parity exactly as the multi-party
// protocol in package frost does, so the two are interchangeable at
// verification time.
func Sign(secret *curve.Scalar, message [32]byte) (*Signature, error) {
	if secret == nil || secret.IsZero() {
		return nil, fmt.Errorf("schnorr: invalid secret key")
	}
	pub := secret.ActOnBase()

	k, err := curve.RandomScalarNonzero()
	if err != nil {
		return nil, fmt.Errorf("schnorr: sample nonce: %w", err)
	}
	R := k.ActOnBase()
	if !R.HasEvenY() {
		k = k.Negate()
		R = R.Negate()
	}

	rX := R.XBytes()
	yX := pub.XBytes()
	c := Challenge(rX, yX, message)
	z := k.Add(c.Mul(secret))

	return &Signature{RX: rX, Z: z}, nil
}

// Verify checks that sig is a valid Schnorr signature over message under
// pubkey.
func Verify(pubkey *curve.Point, message [32]byte, sig *Signature) bool {
	if sig == nil || sig.Z == nil || pubkey == nil {
		return false
	}
	yX := pubkey.XBytes()
	c := Challenge(sig.RX, yX, message)

	// check = z*G - c*Y; must be the even-Y point whose X is sig.RX.
	check := sig.Z.ActOnBase().Sub(c.Act(pubkey))
	if check.IsIdentity() {
		return false
	}
	if !check.HasEvenY() {
		return false
	}
	return check.XBytes() == sig.RX
}
