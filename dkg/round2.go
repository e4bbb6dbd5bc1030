package dkg

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/aead"
	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
	"github.com/coracle-social/kgroups/pkg/polynomial"
)

const round2Number = 2

// Round2 evaluates this participant's polynomial at every other
// participant's index and seals the result under a per-pair conversation
// key. The self-entry (index == MyIndex) is kept in the clear and is
// never transmitted; callers must not broadcast it.
func (s *Session) Round2() ([]*Round2Package, error) {
	if err := s.requireState(StateRound1Complete); err != nil {
		return nil, err
	}
	if s.polynomial == nil {
		return nil, fmt.Errorf("dkg: round2: polynomial already destroyed")
	}

	out := make([]*Round2Package, 0, s.N())
	for i := 1; i <= s.N(); i++ {
		toIdx := party.Index(i)
		share := s.polynomial.Evaluate(toIdx.Scalar())

		if toIdx == s.cfg.MyIndex {
			pkg := &Round2Package{
				FromIndex:    s.cfg.MyIndex,
				ToIndex:      toIdx,
				ClearShare:   share,
				ChainKeyPart: s.chainKeyPart,
			}
			s.round2Packages[s.cfg.MyIndex] = pkg
			continue
		}

		peerPubkey := s.cfg.Participants[toIdx-1]
		key := aead.ConversationKey(s.cfg.MySecretKey, peerPubkey)
		sealed, err := aead.SealShare(key, s.cfg.SessionID, round2Number, share)
		if err != nil {
			return nil, fmt.Errorf("dkg: round2: seal share for %d: %w", toIdx, err)
		}
		out = append(out, &Round2Package{
			FromIndex:    s.cfg.MyIndex,
			ToIndex:      toIdx,
			SealedShare:  sealed,
			ChainKeyPart: s.chainKeyPart,
		})
	}
	return out, nil
}

// IngestRound2 decrypts and verifies a share addressed to this
// participant, checking it against the sender's round-1 VSS commitments:
// f_i(j)*G must equal the sum of A_{i,k} * j^k. The sender's revealed
// chain-key contribution must also hash to the commitment they broadcast
// in round 1. A verification failure blames the sender and fails the
// session. Transitions to StateRound2Complete once all n shares
// (including self) are present.
func (s *Session) IngestRound2(pkg *Round2Package) error {
	if s.state != StateRound1Complete && s.state != StateRound2Complete {
		return fmt.Errorf("dkg: ingest_round2 called in state %s", s.state)
	}
	if pkg.ToIndex != s.cfg.MyIndex {
		return fmt.Errorf("dkg: ingest_round2: package addressed to %d, not us", pkg.ToIndex)
	}
	if !pkg.FromIndex.Valid(uint32(s.N())) {
		return fmt.Errorf("dkg: ingest_round2: sender index %d out of range", pkg.FromIndex)
	}
	if _, dup := s.round2Packages[pkg.FromIndex]; dup {
		return nil
	}

	senderPkg, ok := s.round1Packages[pkg.FromIndex]
	if !ok {
		return fmt.Errorf("dkg: ingest_round2: no round-1 package from %d yet", pkg.FromIndex)
	}

	clearShare := pkg.ClearShare
	if clearShare == nil {
		if pkg.SealedShare == nil {
			return s.fail(pkg.FromIndex, "missing-share", fmt.Errorf("neither clear nor sealed share present"))
		}
		peerPubkey := s.cfg.Participants[pkg.FromIndex-1]
		key := aead.ConversationKey(s.cfg.MySecretKey, peerPubkey)
		opened, err := aead.OpenShare(key, s.cfg.SessionID, round2Number, pkg.SealedShare)
		if err != nil {
			return s.fail(pkg.FromIndex, "decrypt-failed", err)
		}
		clearShare = opened
	}

	expected := polynomial.EvaluateCommitments(senderPkg.VSSCommitments, s.cfg.MyIndex.Scalar())
	if !clearShare.ActOnBase().Equal(expected) {
		return s.fail(pkg.FromIndex, "vss-mismatch", fmt.Errorf("share does not match sender's commitments"))
	}

	commit := curve.NewTaggedHash("dkg-chainkey-commit").WriteBytes(pkg.ChainKeyPart[:]).Sum32()
	if commit != senderPkg.ChainKeyCommit {
		return s.fail(pkg.FromIndex, "chainkey-mismatch", fmt.Errorf("revealed chain-key contribution does not match round-1 commitment"))
	}

	s.round2Packages[pkg.FromIndex] = &Round2Package{
		FromIndex:    pkg.FromIndex,
		ToIndex:      pkg.ToIndex,
		ClearShare:   clearShare,
		ChainKeyPart: pkg.ChainKeyPart,
	}

	if len(s.round2Packages) == s.N() {
		s.state = StateRound2Complete
	}
	return nil
}
