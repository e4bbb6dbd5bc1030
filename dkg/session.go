package dkg

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/aead"
	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
	"github.com/coracle-social/kgroups/pkg/polynomial"
)

// State is one of the DKG session's state machine states.
type State int

const (
	StateInitialized State = iota
	StateRound1Complete
	StateRound2Complete
	StateFinalized
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRound1Complete:
		return "round1_complete"
	case StateRound2Complete:
		return "round2_complete"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Round1Package is the broadcast message of DKG round 1: VSS commitments to
// a participant's secret-sharing polynomial.
type Round1Package struct {
	Index          party.Index
	VSSCommitments []*curve.Point
	SelfProofR     *curve.Point // Schnorr PoK commitment over the constant term
	SelfProofMu    *curve.Scalar
	ChainKeyCommit [32]byte
}

// Round2Package carries, or encrypts, the share one participant sends
// another. Of the packages Round2 builds, only the self-entry has
// ClearShare set, and it is never transmitted. The session's own
// round2Packages map stores every accepted share in ClearShare, the
// received ones after decryption; IngestRound2 uses an incoming
// ClearShare as-is instead of opening SealedShare.
type Round2Package struct {
	FromIndex    party.Index
	ToIndex      party.Index
	ClearShare   *curve.Scalar // self-entry, or an accepted share after decryption
	SealedShare  *aead.SealedShare
	ChainKeyPart [32]byte
}

// Session is the per-participant DKG state machine.
//
// A Session owns its ephemeral secrets (the local secret-sharing
// polynomial) for as long as it's alive; Finalize hands ownership of the
// derived secret to the returned KeyPackage, and any other terminal
// transition (failure, or the caller discarding the session) must zeroize
// them. Go can't force zeroization on garbage collection, so callers
// that need it should call Session.Destroy.
type Session struct {
	cfg   Config
	state State

	polynomial   *polynomial.Polynomial // nil once destroyed
	chainKeyPart [32]byte

	round1Packages map[party.Index]*Round1Package
	round2Packages map[party.Index]*Round2Package

	failedPeer party.Index
	failedKind string
}

// CreateSession validates cfg and returns a new Session in StateInitialized.
func CreateSession(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Session{
		cfg:            cfg,
		state:          StateInitialized,
		round1Packages: make(map[party.Index]*Round1Package),
		round2Packages: make(map[party.Index]*Round2Package),
	}, nil
}

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// MyIndex returns this participant's index.
func (s *Session) MyIndex() party.Index { return s.cfg.MyIndex }

// N returns the total number of participants.
func (s *Session) N() int { return len(s.cfg.Participants) }

// Threshold returns t.
func (s *Session) Threshold() uint32 { return s.cfg.Threshold }

// fail transitions the session into the terminal StateFailed, recording the
// blamed peer for the caller to surface as a dkg:<peer_idx>:<kind> error.
func (s *Session) fail(peerIndex party.Index, kind string, err error) error {
	s.state = StateFailed
	s.failedPeer = peerIndex
	s.failedKind = kind
	s.zeroize()
	return newError(uint32(peerIndex), kind, err)
}

// zeroize clears ephemeral secret material. Called on failure, on
// finalization (the polynomial is no longer needed once shares are
// summed), and may be called explicitly by a caller discarding a live
// session.
func (s *Session) zeroize() {
	s.polynomial = nil
	for i := range s.chainKeyPart {
		s.chainKeyPart[i] = 0
	}
	for idx, pkg := range s.round2Packages {
		if pkg.ClearShare != nil {
			pkg.ClearShare = nil
		}
		s.round2Packages[idx] = pkg
	}
}

// Destroy zeroizes the session's secrets. Safe to call on an already-failed
// or finalized session.
func (s *Session) Destroy() {
	s.zeroize()
}

func (s *Session) requireState(want State) error {
	if s.state != want {
		return fmt.Errorf("dkg: expected state %s, got %s", want, s.state)
	}
	return nil
}
