package dkg

import (
	"crypto/rand"
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
	"github.com/coracle-social/kgroups/pkg/polynomial"
)

// Round1 samples this participant's degree-(t-1) polynomial, commits to
// it, and proves knowledge of the constant term: t random nonzero
// scalars are drawn, their Pedersen commitments computed, and the result
// recorded as this participant's own round-1 package.
func (s *Session) Round1() (*Round1Package, error) {
	if err := s.requireState(StateInitialized); err != nil {
		return nil, err
	}

	contribution, err := curve.RandomScalarNonzero()
	if err != nil {
		return nil, fmt.Errorf("dkg: sample secret contribution: %w", err)
	}
	poly, err := polynomial.NewPolynomial(int(s.cfg.Threshold)-1, contribution)
	if err != nil {
		return nil, fmt.Errorf("dkg: sample polynomial: %w", err)
	}
	s.polynomial = poly

	a0 := poly.Constant()
	a0G := a0.ActOnBase()

	proofR, proofMu, err := schnorrProve(s.cfg.SessionID, s.cfg.MyIndex, a0, a0G)
	if err != nil {
		return nil, fmt.Errorf("dkg: prove knowledge of constant term: %w", err)
	}

	var chainKeyPart [32]byte
	if _, err := rand.Read(chainKeyPart[:]); err != nil {
		return nil, fmt.Errorf("dkg: sample chain key contribution: %w", err)
	}
	s.chainKeyPart = chainKeyPart
	commit := curve.NewTaggedHash("dkg-chainkey-commit").WriteBytes(chainKeyPart[:]).Sum32()

	pkg := &Round1Package{
		Index:          s.cfg.MyIndex,
		VSSCommitments: poly.Commitments(),
		SelfProofR:     proofR,
		SelfProofMu:    proofMu,
		ChainKeyCommit: commit,
	}
	s.round1Packages[s.cfg.MyIndex] = pkg
	if len(s.round1Packages) == s.N() {
		s.state = StateRound1Complete
	}
	return pkg, nil
}

// IngestRound1 records a peer's round-1 package, verifying their Schnorr
// proof of knowledge of the constant term. Transitions to
// StateRound1Complete once all n packages (including self) are present.
func (s *Session) IngestRound1(pkg *Round1Package) error {
	if s.state != StateInitialized && s.state != StateRound1Complete {
		return fmt.Errorf("dkg: ingest_round1 called in state %s", s.state)
	}
	if pkg.Index == s.cfg.MyIndex {
		return fmt.Errorf("dkg: ingest_round1: received our own index %d", pkg.Index)
	}
	if !pkg.Index.Valid(uint32(s.N())) {
		return fmt.Errorf("dkg: ingest_round1: index %d out of range", pkg.Index)
	}
	if len(pkg.VSSCommitments) != int(s.cfg.Threshold) {
		return s.fail(pkg.Index, "bad-commitment-length",
			fmt.Errorf("expected %d commitments, got %d", s.cfg.Threshold, len(pkg.VSSCommitments)))
	}
	if existing, ok := s.round1Packages[pkg.Index]; ok {
		if !commitmentsEqual(existing.VSSCommitments, pkg.VSSCommitments) {
			return s.fail(pkg.Index, "conflicting-round1",
				fmt.Errorf("duplicate index %d with different commitments", pkg.Index))
		}
		return nil
	}

	a0G := pkg.VSSCommitments[0]
	if !schnorrVerify(s.cfg.SessionID, pkg.Index, a0G, pkg.SelfProofR, pkg.SelfProofMu) {
		return s.fail(pkg.Index, "bad-pok", fmt.Errorf("schnorr proof of knowledge failed"))
	}

	s.round1Packages[pkg.Index] = pkg

	if len(s.round1Packages) == s.N() {
		s.state = StateRound1Complete
	}
	return nil
}

func commitmentsEqual(a, b []*curve.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// schnorrProve produces a Schnorr proof of knowledge of secret, binding
// the session id and claimed index into the challenge so a proof can't
// be replayed under a different session or a different claimed index.
func schnorrProve(sessionID [32]byte, idx party.Index, secret *curve.Scalar, public *curve.Point) (*curve.Point, *curve.Scalar, error) {
	k, err := curve.RandomScalarNonzero()
	if err != nil {
		return nil, nil, err
	}
	R := k.ActOnBase()
	c := schnorrChallenge(sessionID, idx, public, R)
	mu := k.Add(secret.Mul(c))
	return R, mu, nil
}

func schnorrVerify(sessionID [32]byte, idx party.Index, public, R *curve.Point, mu *curve.Scalar) bool {
	if public.IsIdentity() || R == nil || mu == nil {
		return false
	}
	c := schnorrChallenge(sessionID, idx, public, R)
	lhs := mu.ActOnBase()
	rhs := R.Add(c.Act(public))
	return lhs.Equal(rhs)
}

func schnorrChallenge(sessionID [32]byte, idx party.Index, public, R *curve.Point) *curve.Scalar {
	return curve.NewTaggedHash("dkg-pok").
		WriteBytes(sessionID[:]).
		WriteUint32(uint32(idx)).
		WritePoint(public).
		WritePoint(R).
		Scalar()
}
