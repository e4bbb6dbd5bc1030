package frost

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
)

// Aggregate sums every signer's partial into the final signature,
// sigma = sum_i z_i. Requires a partial from every configured signer, and
// is accepted only once VerifyFinal confirms the result verifies under
// the group public key.
func (s *Session) Aggregate() (*Signature, error) {
	if s.state != StateSigned {
		return nil, fmt.Errorf("frost: aggregate called in state %s", s.state)
	}
	if len(s.partialSignatures) != len(s.cfg.SignerIndices) {
		return nil, fmt.Errorf("frost: aggregate: have %d of %d partial signatures",
			len(s.partialSignatures), len(s.cfg.SignerIndices))
	}

	ctx, err := s.computeContext()
	if err != nil {
		return nil, err
	}

	sigma := curve.NewScalar()
	for _, idx := range s.cfg.SignerIndices {
		psig, ok := s.partialSignatures[idx]
		if !ok {
			return nil, fmt.Errorf("frost: aggregate: missing partial from %d", idx)
		}
		sigma = sigma.Add(psig.Z)
	}

	sig := &Signature{RX: ctx.rX, Z: sigma}
	if !VerifyFinal(s.cfg.KeyPackage.GroupPublicKey, s.cfg.Message, sig) {
		return nil, fmt.Errorf("frost: aggregate: aggregated signature failed verification")
	}

	s.finalSignature = sig
	s.state = StateAggregated
	return sig, nil
}

// FinalSignature returns the aggregated signature, if Aggregate has
// succeeded.
func (s *Session) FinalSignature() *Signature { return s.finalSignature }
