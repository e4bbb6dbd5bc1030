// Package event implements the wire event shape: a signed,
// content-addressed record carried as JSON over the pub/sub transport and
// consumed by package capability (grant/revoke/delegate parsing) and
// package relay (authorization).
package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/schnorr"
)

var (
	ErrInvalidID        = errors.New("event: invalid id")
	ErrInvalidPubkey    = errors.New("event: invalid pubkey")
	ErrInvalidSignature = errors.New("event: invalid signature")
)

// Tag is one [name, value, ...] array from an event's tags field. Only
// the first two positions are named; extra positions are kept verbatim.
type Tag []string

// Name returns the tag's name (position 0), or "" if empty.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the tag's primary value (position 1), or "" if absent.
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Tags is the ordered tag list attached to every event.
type Tags []Tag

// Get returns the first tag whose name matches, and whether one was found.
func (ts Tags) Get(name string) (Tag, bool) {
	for _, t := range ts {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// GetValue returns the value of the first tag whose name matches.
func (ts Tags) GetValue(name string) (string, bool) {
	t, ok := ts.Get(name)
	if !ok {
		return "", false
	}
	return t.Value(), true
}

// Has reports whether a (name, value) pair is present among the tags,
// used by capability.Authorize's requiredTags/excludedTags matching.
func (ts Tags) Has(name, value string) bool {
	for _, t := range ts {
		if t.Name() == name && t.Value() == value {
			return true
		}
	}
	return false
}

// Event is the wire event envelope: { id, pubkey, created_at, kind,
// tags: [[string,...]], content, sig }.
type Event struct {
	ID        string `json:"id"`
	Pubkey    string `json:"pubkey"`
	CreatedAt int64  `json:"created_at"`
	Kind      uint16 `json:"kind"`
	Tags      Tags   `json:"tags"`
	Content   string `json:"content"`
	Sig       string `json:"sig"`
}

// canonicalize builds the array form events hash over, following NIP-01's
// id-computation rule: the id is the SHA-256 of the canonical
// serialization.
func canonicalize(e *Event) ([]byte, error) {
	form := [5]any{0, e.Pubkey, e.CreatedAt, e.Kind, e.Tags}
	head, err := json.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("event: canonicalize: %w", err)
	}
	// splice the content in as the 6th array element without re-escaping
	// what's already been marshaled.
	content, err := json.Marshal(e.Content)
	if err != nil {
		return nil, fmt.Errorf("event: canonicalize content: %w", err)
	}
	out := append(head[:len(head)-1], ',')
	out = append(out, content...)
	out = append(out, ']')
	return out, nil
}

// ComputeID returns the SHA-256 of e's canonical serialization.
func ComputeID(e *Event) [32]byte {
	b, err := canonicalize(e)
	if err != nil {
		// canonicalize only fails on non-JSON-marshalable content, which
		// Event's fields (plain strings/ints) can never produce.
		panic(err)
	}
	return sha256.Sum256(b)
}

// PubkeyPoint decodes e.Pubkey as a compressed curve point.
func (e *Event) PubkeyPoint() (*curve.Point, error) {
	p, err := curve.PointFromHex(e.Pubkey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubkey, err)
	}
	return p, nil
}

// Verify checks e's id matches its canonical serialization and that Sig
// is a valid 64-byte Schnorr signature over that id under Pubkey.
func (e *Event) Verify() error {
	want := ComputeID(e)
	gotHex := strings.ToLower(strings.TrimSpace(e.ID))
	if gotHex != hex.EncodeToString(want[:]) {
		return fmt.Errorf("%w: id does not match canonical serialization", ErrInvalidID)
	}
	pub, err := e.PubkeyPoint()
	if err != nil {
		return err
	}
	sigBytes, err := hex.DecodeString(e.Sig)
	if err != nil {
		return fmt.Errorf("%w: decode sig: %v", ErrInvalidSignature, err)
	}
	sig, err := schnorr.SignatureFromBytes(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !schnorr.Verify(pub, want, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes e's id from its other fields, signs it under secret, and
// populates ID/Pubkey/Sig in place.
func Sign(e *Event, secret *curve.Scalar) error {
	e.Pubkey = secret.ActOnBase().Hex()
	id := ComputeID(e)
	e.ID = hex.EncodeToString(id[:])
	sig, err := schnorr.Sign(secret, id)
	if err != nil {
		return fmt.Errorf("event: sign: %w", err)
	}
	e.Sig = hex.EncodeToString(sig.Bytes())
	return nil
}
