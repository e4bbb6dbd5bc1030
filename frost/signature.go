package frost

import (
	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/schnorr"
)

// Signature is the 64-byte aggregate output of threshold signing: a
// 32-byte X-only commitment point and a 32-byte response scalar, in
// BIP-340-style encoding. It is the same type package schnorr uses for
// single-party signatures, since the two verify under an identical
// equation; a verifier never has to know whether the key names a single
// signer or a threshold one.
type Signature = schnorr.Signature

// SignatureFromBytes decodes a 64-byte signature.
func SignatureFromBytes(b []byte) (*Signature, error) {
	return schnorr.SignatureFromBytes(b)
}

// VerifyFinal checks that sig is a valid FROST/Schnorr signature over
// message under groupPubkey.
func VerifyFinal(groupPubkey *curve.Point, message [32]byte, sig *Signature) bool {
	return schnorr.Verify(groupPubkey, message, sig)
}
