package frost

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
)

// Sign computes this signer's partial signature
// z_i = d_i + rho_i*e_i + lambda_i*s_i*c. Requires every public nonce to
// be present. Before returning, Sign verifies its own partial against the
// public commitments (a self-verification failure means the share is
// compromised or the code is wrong, and is always fatal) and destroys
// the consumed secret nonce so this session can never sign twice under
// it.
func (s *Session) Sign() (*PartialSignature, error) {
	if err := s.requireState(StateCommitted); err != nil {
		return nil, err
	}
	if s.myNonce == nil || s.myNonce.used {
		return nil, fmt.Errorf("frost: nonce already consumed")
	}

	ctx, err := s.computeContext()
	if err != nil {
		return nil, err
	}

	myIdx := s.MyIndex()
	d, e := s.myNonce.d, s.myNonce.e
	if ctx.flipped {
		d, e = d.Negate(), e.Negate()
	}

	lambda := ctx.lambdas[uint32(myIdx)]
	z := d.Add(ctx.rho[myIdx].Mul(e)).Add(lambda.Mul(s.cfg.KeyPackage.MyShare).Mul(ctx.c))

	myPub, err := s.signerPubkey(myIdx)
	if err != nil {
		return nil, err
	}

	if !verifyPartial(z, ctx.rShares[myIdx], lambda, ctx.c, s.publicShare(myIdx)) {
		return nil, s.fail(myIdx, "self-verify-failed", fmt.Errorf("own partial signature does not satisfy its own verification equation"))
	}

	s.myNonce.used = true
	s.myNonce = nil

	psig := &PartialSignature{Index: myIdx, Z: z, SignerPubkey: myPub}
	s.partialSignatures[myIdx] = psig
	s.state = StateSigned
	return psig, nil
}

// IngestPartial verifies and records a peer's partial signature against
// its committed nonce, rejecting a signer outside the configured set or
// an invalid partial.
func (s *Session) IngestPartial(psig *PartialSignature) error {
	if s.state != StateCommitted && s.state != StateSigned {
		return fmt.Errorf("frost: ingest_partial called in state %s", s.state)
	}
	if !s.inSignerSet(psig.Index) {
		return fmt.Errorf("frost: signer %d is not part of this signing session", psig.Index)
	}
	if _, dup := s.partialSignatures[psig.Index]; dup {
		return nil
	}
	if _, ok := s.publicNonces[psig.Index]; !ok {
		return fmt.Errorf("frost: no committed nonce from %d yet", psig.Index)
	}

	ctx, err := s.computeContext()
	if err != nil {
		return err
	}
	lambda := ctx.lambdas[uint32(psig.Index)]
	expectedPub := s.publicShare(psig.Index)

	if !verifyPartial(psig.Z, ctx.rShares[psig.Index], lambda, ctx.c, expectedPub) {
		return s.fail(psig.Index, "invalid-partial", fmt.Errorf("partial signature from %d does not verify", psig.Index))
	}

	s.partialSignatures[psig.Index] = psig
	return nil
}

// verifyPartial checks z*G == rShare + lambda*c*P, the self-verification
// equation reused for both Sign's self-check and IngestPartial's peer
// check.
func verifyPartial(z *curve.Scalar, rShare *curve.Point, lambda, c *curve.Scalar, P *curve.Point) bool {
	lhs := z.ActOnBase()
	rhs := rShare.Add(lambda.Mul(c).Act(P))
	return lhs.Equal(rhs)
}
