package dkg

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
)

// KeyPackage is a participant's durable output of a finished DKG: their
// signing share, the group's public key, the full public commitment
// vector (needed to verify any participant's share, e.g. after a
// refresh), and the chain key, a piece of session-wide agreed randomness
// available for future key derivation.
type KeyPackage struct {
	MyIndex         party.Index     `cbor:"1,keyasint"`
	MyShare         *curve.Scalar   `cbor:"2,keyasint"`
	GroupPublicKey  *curve.Point    `cbor:"3,keyasint"`
	Commitments     []*curve.Point  `cbor:"4,keyasint"`
	Threshold       uint32          `cbor:"5,keyasint"`
	ParticipantKeys []*curve.Point  `cbor:"6,keyasint"`
	ChainKey        [32]byte        `cbor:"7,keyasint"`
}

// N returns the total number of participants the group was generated for.
func (kp *KeyPackage) N() int { return len(kp.ParticipantKeys) }

// Marshal encodes kp into CBOR for durable storage.
func (kp *KeyPackage) Marshal() ([]byte, error) {
	b, err := cbor.Marshal(kp)
	if err != nil {
		return nil, fmt.Errorf("dkg: marshal key package: %w", err)
	}
	return b, nil
}

// UnmarshalKeyPackage decodes a KeyPackage previously produced by Marshal.
func UnmarshalKeyPackage(b []byte) (*KeyPackage, error) {
	var kp KeyPackage
	if err := cbor.Unmarshal(b, &kp); err != nil {
		return nil, fmt.Errorf("dkg: unmarshal key package: %w", err)
	}
	return &kp, nil
}
