package capability

import (
	"github.com/coracle-social/kgroups/internal/apperr"
)

// ValidateDelegation checks that delegate is a valid delegation derived
// from original: every condition must hold, or the delegation is rejected
// with a capability:<kind> error.
//
// delegateSignerHolder is the pubkey that actually signed the delegate
// event (evt.Pubkey); delegateReferences is the "e" tag of that event.
func ValidateDelegation(original, delegate *Capability, delegateSignerHolder string, delegateReferences string) error {
	if original.Type != TypeDelegate {
		return apperr.Capabilityf("delegation requires a delegate-type parent, got %s", original.Type)
	}
	if original.Holder.Hex() != delegateSignerHolder {
		return apperr.Capabilityf("delegation signed by %s, not the grant holder %s", delegateSignerHolder, original.Holder.Hex())
	}
	if delegateReferences != original.EventID {
		return apperr.Capabilityf("delegation references %s, not parent grant %s", delegateReferences, original.EventID)
	}
	if original.Qualifiers != nil && len(original.Qualifiers.Kinds) > 0 {
		if delegate.Qualifiers == nil || len(delegate.Qualifiers.Kinds) == 0 {
			return apperr.Capabilityf("delegation exceeds parent kinds")
		}
		if !kindsSubset(delegate.Qualifiers.Kinds, original.Qualifiers.Kinds) {
			return apperr.Capabilityf("delegation exceeds parent kinds")
		}
	}
	if original.ExpiresAt != nil {
		if delegate.ExpiresAt == nil || *delegate.ExpiresAt > *original.ExpiresAt {
			return apperr.Capabilityf("delegation expiry exceeds parent expiry")
		}
	}
	return nil
}

// kindsSubset reports whether every element of sub is present in super.
func kindsSubset(sub, super []uint16) bool {
	set := make(map[uint16]struct{}, len(super))
	for _, k := range super {
		set[k] = struct{}{}
	}
	for _, k := range sub {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

// Derive builds the final Capability for a validated delegation: the
// issuer is copied from the original grant, and the delegation chain is
// extended with (original.holder, delegate.holder, delegate.eventId).
// Call only after ValidateDelegation has accepted the pair.
func Derive(original, delegate *Capability) *Capability {
	out := *delegate
	out.Issuer = original.Issuer
	out.ParentEventID = original.EventID
	chain := make([]DelegationLink, 0, len(original.DelegationChain)+1)
	chain = append(chain, original.DelegationChain...)
	chain = append(chain, DelegationLink{
		Delegator:      original.Holder,
		Delegatee:      delegate.Holder,
		BindingEventID: delegate.EventID,
	})
	out.DelegationChain = chain
	return &out
}
