package frost

import (
	"fmt"

	"github.com/coracle-social/kgroups/dkg"
	"github.com/coracle-social/kgroups/pkg/party"
)

// Config is the input to CreateSession: a signing session's fixed
// parameters, minus the mutable round state, which Session tracks
// separately.
type Config struct {
	// Message is the 32-byte payload being signed.
	Message [32]byte
	// SignerIndices is the quorum participating in this signature, sorted
	// ascending, size >= KeyPackage.Threshold.
	SignerIndices []party.Index
	// KeyPackage is this signer's long-lived DKG output.
	KeyPackage *dkg.KeyPackage
}

// validate rejects |signerIndices| < t or myIndex not in signerIndices.
func (c *Config) validate() error {
	if c.KeyPackage == nil {
		return fmt.Errorf("frost: key package is required")
	}
	if uint32(len(c.SignerIndices)) < c.KeyPackage.Threshold {
		return fmt.Errorf("frost: Not enough shares: have %d signers, need threshold %d",
			len(c.SignerIndices), c.KeyPackage.Threshold)
	}
	found := false
	seen := make(map[party.Index]bool, len(c.SignerIndices))
	for _, idx := range c.SignerIndices {
		if !idx.Valid(uint32(c.KeyPackage.N())) {
			return fmt.Errorf("frost: signer index %d out of range", idx)
		}
		if seen[idx] {
			return fmt.Errorf("frost: duplicate signer index %d", idx)
		}
		seen[idx] = true
		if idx == c.KeyPackage.MyIndex {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("frost: myIndex %d is not in signerIndices", c.KeyPackage.MyIndex)
	}
	return nil
}

// sortedSignerIndices returns SignerIndices sorted ascending; a signing
// session's signer set is always kept sorted.
func (c *Config) sortedSignerIndices() []party.Index {
	return party.SortIndices(c.SignerIndices)
}
