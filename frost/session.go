// Package frost implements the two-round, coordinator-less FROST-style
// threshold signing engine: nonce commitment, then partial signature,
// aggregated into a single 64-byte Schnorr-compatible signature that
// verifies under the DKG group public key without ever reconstructing
// the group secret.
package frost

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
)

// State is one of a signing session's lifecycle states.
type State int

const (
	StateInitialized State = iota
	StateCommitted
	StateSigned
	StateAggregated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateCommitted:
		return "committed"
	case StateSigned:
		return "signed"
	case StateAggregated:
		return "aggregated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PublicNonce is the round-1 broadcast: "(D_i, E_i) = (d_i*G, e_i*G)",
// tagged hidden_pn and binder_pn.
type PublicNonce struct {
	Index  party.Index
	Hidden *curve.Point // D_i
	Binder *curve.Point // E_i
}

// secretNonce holds a signer's own (d_i, e_i). Single-use: Sign consumes
// it and zeroizes it so a session can never emit two partial signatures
// under the same nonces.
type secretNonce struct {
	d, e *curve.Scalar
	used bool
}

// PartialSignature is the round-2 broadcast: signer i's response z_i,
// plus the pubkey identifying who sent it.
type PartialSignature struct {
	Index        party.Index
	Z            *curve.Scalar
	SignerPubkey *curve.Point
}

// Session is the per-signer threshold-signing state machine.
type Session struct {
	cfg   Config
	state State

	myNonce *secretNonce // nil until Commit, nil again after Sign

	publicNonces      map[party.Index]*PublicNonce
	partialSignatures map[party.Index]*PartialSignature

	finalSignature *Signature

	failedPeer party.Index
	failedKind string
}

// CreateSession validates cfg and returns a new Session in
// StateInitialized.
func CreateSession(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.SignerIndices = cfg.sortedSignerIndices()
	return &Session{
		cfg:               cfg,
		state:             StateInitialized,
		publicNonces:      make(map[party.Index]*PublicNonce),
		partialSignatures: make(map[party.Index]*PartialSignature),
	}, nil
}

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// MyIndex returns this participant's index.
func (s *Session) MyIndex() party.Index { return s.cfg.KeyPackage.MyIndex }

// Threshold returns t.
func (s *Session) Threshold() uint32 { return s.cfg.KeyPackage.Threshold }

// SignerIndices returns the sorted quorum for this session.
func (s *Session) SignerIndices() []party.Index {
	out := make([]party.Index, len(s.cfg.SignerIndices))
	copy(out, s.cfg.SignerIndices)
	return out
}

func (s *Session) fail(peerIndex party.Index, kind string, err error) error {
	s.state = StateFailed
	s.failedPeer = peerIndex
	s.failedKind = kind
	s.Destroy()
	return newError(uint32(peerIndex), kind, err)
}

// Destroy zeroizes this session's secret nonces. Safe to call on an
// already-failed, already-signed, or already-aggregated session.
func (s *Session) Destroy() {
	s.myNonce = nil
}

func (s *Session) requireState(want State) error {
	if s.state != want {
		return fmt.Errorf("frost: expected state %s, got %s", want, s.state)
	}
	return nil
}

// signerPubkey looks up the long-term pubkey of the given signer index from
// the key package's ordered participant list.
func (s *Session) signerPubkey(idx party.Index) (*curve.Point, error) {
	keys := s.cfg.KeyPackage.ParticipantKeys
	if !idx.Valid(uint32(len(keys))) {
		return nil, fmt.Errorf("frost: signer index %d out of range", idx)
	}
	return keys[idx-1], nil
}
