// Package capability implements the capability model: the grant/revoke/
// delegate record shapes derived from signed relay events, and the pure
// authorization decision over a capability set.
package capability

import (
	"errors"
	"strings"

	"github.com/coracle-social/kgroups/pkg/curve"
)

// Type is one of the five capability kinds a Capability's type field holds.
type Type string

const (
	TypeRead     Type = "read"
	TypeWrite    Type = "write"
	TypePublish  Type = "publish"
	TypeDelete   Type = "delete"
	TypeDelegate Type = "delegate"
)

func (t Type) Valid() bool {
	switch t {
	case TypeRead, TypeWrite, TypePublish, TypeDelete, TypeDelegate:
		return true
	default:
		return false
	}
}

// ParseType parses a capability type string; any string outside the fixed
// set of five types yields a parse failure.
func ParseType(raw string) (Type, error) {
	t := Type(strings.TrimSpace(raw))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

var (
	ErrInvalidType      = errors.New("capability: invalid type")
	ErrMissingHolder    = errors.New("capability: missing holder")
	ErrInvalidRateLimit = errors.New("capability: invalid rate limit")
)

// TagPair is a (name, value) pair, the unit used for requiredTags and
// excludedTags.
type TagPair struct {
	Name  string
	Value string
}

// RateLimit is a (count, periodSeconds) quota descriptor. See
// QuotaTracker for the counter implementation that enforces it.
type RateLimit struct {
	Count         int
	PeriodSeconds int
}

func (r *RateLimit) valid() error {
	if r == nil {
		return nil
	}
	if r.Count < 1 || r.PeriodSeconds < 1 {
		return ErrInvalidRateLimit
	}
	return nil
}

// Qualifiers narrows a Capability's applicability.
type Qualifiers struct {
	Kinds        []uint16
	RequiredTags []TagPair
	ExcludedTags []TagPair
	RateLimit    *RateLimit
}

// DelegationLink is one hop of a Capability's delegation chain: a
// (delegator, delegatee, bindingEventId) triple.
type DelegationLink struct {
	Delegator     *curve.Point
	Delegatee     *curve.Point
	BindingEventID string
}

// Capability is an immutable capability record, derived from a signed
// grant/delegate event and logically destroyed (never mutated) by a later
// revoke.
type Capability struct {
	EventID         string
	Type            Type
	Holder          *curve.Point
	Issuer          *curve.Point // the group key; unchanged through delegation
	Qualifiers      *Qualifiers
	IssuedAt        int64
	ExpiresAt       *int64
	DelegationChain []DelegationLink
	// ParentEventID is the event id of the capability this one was
	// delegated from, empty for a root grant. Lets the store walk
	// revocation up a delegation chain without reconstructing ancestry
	// from DelegationChain alone.
	ParentEventID string
}

// Expired reports whether the capability is expired at now.
func (c *Capability) Expired(now int64) bool {
	return c.ExpiresAt != nil && now >= *c.ExpiresAt
}
