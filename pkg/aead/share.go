// Package aead provides the authenticated encryption used to distribute
// DKG and refresh shares between participants: a conversation key
// derived from an ECDH exchange on secp256k1, fed through
// chacha20poly1305, with the session id and round number bound in as
// associated data.
package aead

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/coracle-social/kgroups/pkg/curve"
)

// ConversationKey derives a symmetric key for the (mySecret, peerPubkey)
// pair via ECDH followed by a tagged KDF.
func ConversationKey(mySecret *curve.Scalar, peerPubkey *curve.Point) [32]byte {
	shared := mySecret.Act(peerPubkey)
	return curve.NewTaggedHash("share-conversation-key").WritePoint(shared).Sum32()
}

// SealedShare is the wire form of an encrypted share: nonce + ciphertext.
type SealedShare struct {
	Nonce      []byte
	Ciphertext []byte
}

// associatedData binds the session id and round number to the
// ciphertext, so a share sealed for one session or round can never be
// replayed into another.
func associatedData(sessionID [32]byte, round uint32) []byte {
	out := make([]byte, 0, len(sessionID)+4)
	out = append(out, sessionID[:]...)
	var roundBuf [4]byte
	binary.BigEndian.PutUint32(roundBuf[:], round)
	return append(out, roundBuf[:]...)
}

// SealShare encrypts a 32-byte scalar share under the given conversation
// key, binding sessionID and round as associated data.
func SealShare(key [32]byte, sessionID [32]byte, round uint32, share *curve.Scalar) (*SealedShare, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("aead: construct cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("aead: sample nonce: %w", err)
	}
	ct := aead.Seal(nil, nonce, share.Bytes(), associatedData(sessionID, round))
	return &SealedShare{Nonce: nonce, Ciphertext: ct}, nil
}

// OpenShare decrypts and authenticates a sealed share. Any bit flipped in
// the ciphertext causes this to fail, detecting a one-byte substitution
// with probability 1.
func OpenShare(key [32]byte, sessionID [32]byte, round uint32, sealed *SealedShare) (*curve.Scalar, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("aead: construct cipher: %w", err)
	}
	plain, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, associatedData(sessionID, round))
	if err != nil {
		return nil, fmt.Errorf("aead: decryption failed: %w", err)
	}
	return curve.ScalarFromBytes(plain)
}
