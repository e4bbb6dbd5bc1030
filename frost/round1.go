package frost

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
)

// Commit draws this signer's two nonzero nonce scalars (d_i, e_i) and
// returns their public commitments. The secret nonces remain local until
// Sign consumes them.
func (s *Session) Commit() (*PublicNonce, error) {
	if err := s.requireState(StateInitialized); err != nil {
		return nil, err
	}

	d, err := curve.RandomScalarNonzero()
	if err != nil {
		return nil, fmt.Errorf("frost: sample hiding nonce: %w", err)
	}
	e, err := curve.RandomScalarNonzero()
	if err != nil {
		return nil, fmt.Errorf("frost: sample binding nonce: %w", err)
	}
	s.myNonce = &secretNonce{d: d, e: e}

	pub := &PublicNonce{
		Index:  s.MyIndex(),
		Hidden: d.ActOnBase(),
		Binder: e.ActOnBase(),
	}
	s.publicNonces[s.MyIndex()] = pub
	s.state = StateCommitted
	return pub, nil
}

// IngestNonce records a peer's public nonce commitment, rejecting a signer
// outside the configured set, an identity-point commitment, or a duplicate
// with a mismatched value. A duplicate with the same value, including a
// re-delivery of our own commitment, is a no-op; a second Commit call is
// rejected by Commit's state check.
func (s *Session) IngestNonce(pn *PublicNonce) error {
	if s.state != StateCommitted {
		return fmt.Errorf("frost: ingest_nonce called in state %s", s.state)
	}
	if !s.inSignerSet(pn.Index) {
		return fmt.Errorf("frost: signer %d is not part of this signing session", pn.Index)
	}
	if pn.Hidden == nil || pn.Binder == nil || pn.Hidden.IsIdentity() || pn.Binder.IsIdentity() {
		return s.fail(pn.Index, "identity-nonce", fmt.Errorf("nonce commitment is the identity point"))
	}
	if existing, ok := s.publicNonces[pn.Index]; ok {
		if !existing.Hidden.Equal(pn.Hidden) || !existing.Binder.Equal(pn.Binder) {
			return s.fail(pn.Index, "duplicate-commit", fmt.Errorf("duplicate commit from %d with a different nonce", pn.Index))
		}
		return nil
	}
	s.publicNonces[pn.Index] = pn
	return nil
}

// ReadyToSign reports whether every signer's public nonce has been
// collected.
func (s *Session) ReadyToSign() bool {
	return len(s.publicNonces) == len(s.cfg.SignerIndices)
}

// inSignerSet reports whether idx is one of the configured signers.
func (s *Session) inSignerSet(idx party.Index) bool {
	for _, si := range s.cfg.SignerIndices {
		if si == idx {
			return true
		}
	}
	return false
}
