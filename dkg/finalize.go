package dkg

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
	"github.com/coracle-social/kgroups/pkg/polynomial"
)

// Finalize sums the received shares into this participant's signing
// share, aggregates every participant's constant-term commitment into
// the group public key, and aggregates the full commitment vectors into
// the group's public polynomial. The session's ephemeral polynomial is
// zeroized once summed: from this point on, MyShare in the returned
// KeyPackage is the only copy of this participant's secret material.
func (s *Session) Finalize() (*KeyPackage, error) {
	if err := s.requireState(StateRound2Complete); err != nil {
		return nil, err
	}

	myShare := curve.NewScalar()
	for i := 1; i <= s.N(); i++ {
		pkg, ok := s.round2Packages[party.Index(i)]
		if !ok || pkg.ClearShare == nil {
			return nil, fmt.Errorf("dkg: finalize: missing share from %d", i)
		}
		myShare = myShare.Add(pkg.ClearShare)
	}

	constantTerms := make([]*curve.Point, 0, s.N())
	vectors := make([][]*curve.Point, 0, s.N())
	chainKeyParts := make([][]byte, 0, s.N())
	for i := 1; i <= s.N(); i++ {
		r1, ok := s.round1Packages[party.Index(i)]
		if !ok {
			return nil, fmt.Errorf("dkg: finalize: missing round-1 package from %d", i)
		}
		constantTerms = append(constantTerms, r1.VSSCommitments[0])
		vectors = append(vectors, r1.VSSCommitments)
		r2 := s.round2Packages[party.Index(i)]
		chainKeyParts = append(chainKeyParts, r2.ChainKeyPart[:])
	}

	groupPublicKey := curve.NewIdentityPoint()
	for _, c := range constantTerms {
		groupPublicKey = groupPublicKey.Add(c)
	}

	commitments, err := polynomial.SumCommitmentVectors(vectors)
	if err != nil {
		return nil, fmt.Errorf("dkg: finalize: %w", err)
	}

	chainKey := curve.NewTaggedHash("dkg-chainkey").
		WriteBytes(concat(chainKeyParts)).
		Sum32()

	kp := &KeyPackage{
		MyIndex:         s.cfg.MyIndex,
		MyShare:         myShare,
		GroupPublicKey:  groupPublicKey,
		Commitments:     commitments,
		Threshold:       s.cfg.Threshold,
		ParticipantKeys: s.cfg.Participants,
		ChainKey:        chainKey,
	}

	s.zeroize()
	s.state = StateFinalized
	return kp, nil
}

func concat(parts [][]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
