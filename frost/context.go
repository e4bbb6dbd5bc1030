package frost

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
	"github.com/coracle-social/kgroups/pkg/polynomial"
	"github.com/coracle-social/kgroups/pkg/schnorr"
)

// signingContext is the derived state every signer (and every verifier of
// a partial signature) computes independently from the public round-1
// commitments: per-signer binding factors, the group commitment, the
// Fiat-Shamir challenge, and Lagrange weights.
//
// rShares[i] = D_i + rho_i*E_i, sign-adjusted per the BIP-340-style
// canonicalization that schnorr.Verify checks: if the raw sum R has an odd
// Y coordinate, every rShares entry (and every signer's own d_i, e_i) is
// negated so the quantity actually bound into z_i always sums to a point
// with even Y. R.XBytes() is unaffected by this, since negation flips Y but
// not X, which is exactly why the 64-byte signature only needs to carry X.
type signingContext struct {
	rho     map[party.Index]*curve.Scalar
	rShares map[party.Index]*curve.Point
	rX      [32]byte
	flipped bool
	c       *curve.Scalar
	lambdas map[uint32]*curve.Scalar
}

func (s *Session) computeContext() (*signingContext, error) {
	if !s.ReadyToSign() {
		return nil, fmt.Errorf("frost: not all public nonces are present yet")
	}

	groupKey := s.cfg.KeyPackage.GroupPublicKey

	rho := make(map[party.Index]*curve.Scalar, len(s.cfg.SignerIndices))
	for _, i := range s.cfg.SignerIndices {
		h := curve.NewTaggedHash("rho").WriteUint32(uint32(i))
		for _, l := range s.cfg.SignerIndices {
			pn := s.publicNonces[l]
			h = h.WriteUint32(uint32(l)).WritePoint(pn.Hidden).WritePoint(pn.Binder)
		}
		h = h.WriteBytes(s.cfg.Message[:]).WritePoint(groupKey)
		rho[i] = h.Scalar()
	}

	R := curve.NewIdentityPoint()
	rShares := make(map[party.Index]*curve.Point, len(s.cfg.SignerIndices))
	for _, i := range s.cfg.SignerIndices {
		pn := s.publicNonces[i]
		share := rho[i].Act(pn.Binder).Add(pn.Hidden)
		rShares[i] = share
		R = R.Add(share)
	}

	flipped := !R.HasEvenY()
	if flipped {
		for i, share := range rShares {
			rShares[i] = share.Negate()
		}
	}
	rX := R.XBytes()
	yX := groupKey.XBytes()

	c := schnorr.Challenge(rX, yX, s.cfg.Message)

	domain := party.ToUint32(s.cfg.SignerIndices)
	lambdas := polynomial.LagrangeCoefficients(domain, domain)

	return &signingContext{
		rho:     rho,
		rShares: rShares,
		rX:      rX,
		flipped: flipped,
		c:       c,
		lambdas: lambdas,
	}, nil
}

// publicShare evaluates the aggregated public polynomial at idx, giving
// s_idx*G, the long-lived public share of signer idx, without knowledge
// of any secret: derivable from aggregated VSS commitments alone.
func (s *Session) publicShare(idx party.Index) *curve.Point {
	return polynomial.EvaluateCommitments(s.cfg.KeyPackage.Commitments, idx.Scalar())
}
