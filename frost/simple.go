package frost

import (
	"fmt"

	"github.com/coracle-social/kgroups/dkg"
	"github.com/coracle-social/kgroups/pkg/party"
)

// SignWithShares is a simplified single-shot API: a synchronous variant
// that takes t shares held by one party and executes both signing rounds
// locally. It is testing-only: the trusted-dealer/single-party path must
// be gated behind an explicit flag in production code, so callers must
// pass allowInsecure=true to acknowledge that every share is visible to
// the caller, defeating the entire point of threshold signing.
//
// Internally this drives one frost.Session per share through exactly the
// same Commit/Sign/IngestNonce/IngestPartial/Aggregate calls a distributed
// caller would make, so the output is bit-identical to the distributed
// variant given the same randomness.
func SignWithShares(allowInsecure bool, shares []*dkg.KeyPackage, message [32]byte) (*Signature, error) {
	if !allowInsecure {
		return nil, fmt.Errorf("frost: SignWithShares requires allowInsecure=true: holding multiple shares in one process defeats threshold signing")
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("frost: no shares provided")
	}

	signerIndices := make([]party.Index, 0, len(shares))
	for _, kp := range shares {
		signerIndices = append(signerIndices, kp.MyIndex)
	}
	signerIndices = party.SortIndices(signerIndices)

	sessions := make(map[party.Index]*Session, len(shares))
	for _, kp := range shares {
		sess, err := CreateSession(Config{
			Message:       message,
			SignerIndices: signerIndices,
			KeyPackage:    kp,
		})
		if err != nil {
			return nil, err
		}
		sessions[kp.MyIndex] = sess
	}

	nonces := make([]*PublicNonce, 0, len(sessions))
	for _, idx := range signerIndices {
		pn, err := sessions[idx].Commit()
		if err != nil {
			return nil, err
		}
		nonces = append(nonces, pn)
	}
	for _, sess := range sessions {
		for _, pn := range nonces {
			if pn.Index == sess.MyIndex() {
				continue
			}
			if err := sess.IngestNonce(pn); err != nil {
				return nil, err
			}
		}
	}

	partials := make([]*PartialSignature, 0, len(sessions))
	for _, idx := range signerIndices {
		psig, err := sessions[idx].Sign()
		if err != nil {
			return nil, err
		}
		partials = append(partials, psig)
	}

	var final *Signature
	for _, sess := range sessions {
		for _, psig := range partials {
			if psig.Index == sess.MyIndex() {
				continue
			}
			if err := sess.IngestPartial(psig); err != nil {
				return nil, err
			}
		}
		sig, err := sess.Aggregate()
		if err != nil {
			return nil, err
		}
		final = sig
	}
	return final, nil
}
