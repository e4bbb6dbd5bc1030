package capability

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coracle-social/kgroups/event"
	"github.com/coracle-social/kgroups/internal/apperr"
	"github.com/coracle-social/kgroups/pkg/curve"
)

// Event kinds for the three capability operations.
const (
	KindGrant    uint16 = 29000
	KindRevoke   uint16 = 29001
	KindDelegate uint16 = 29002
)

// ParseGrant parses a 29000 grant event into a Capability: requires a
// holder field and a valid type; other fields are optional qualifiers.
// The caller is responsible for having already verified evt.Verify() and
// that evt.Pubkey is the group key.
func ParseGrant(evt *event.Event) (*Capability, error) {
	if evt.Kind != KindGrant {
		return nil, apperr.Capabilityf("parse: kind %d is not a grant", evt.Kind)
	}
	holderHex, ok := evt.Tags.GetValue("p")
	if !ok || strings.TrimSpace(holderHex) == "" {
		return nil, apperr.Capabilityf("parse: %v", ErrMissingHolder)
	}
	holder, err := curve.PointFromHex(holderHex)
	if err != nil {
		return nil, apperr.Capabilityf("parse: decode holder pubkey: %v", err)
	}
	typeRaw, ok := evt.Tags.GetValue("capability")
	if !ok {
		return nil, apperr.Capabilityf("parse: missing capability tag")
	}
	capType, err := ParseType(typeRaw)
	if err != nil {
		return nil, apperr.Capabilityf("parse: %v", err)
	}
	issuer, err := evt.PubkeyPoint()
	if err != nil {
		return nil, apperr.Capabilityf("parse: %v", err)
	}
	qualifiers, err := parseQualifiers(evt.Tags)
	if err != nil {
		return nil, apperr.Capabilityf("parse: %v", err)
	}
	var expiresAt *int64
	if raw, ok := evt.Tags.GetValue("expiration"); ok && raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperr.Capabilityf("parse: bad expiration: %v", err)
		}
		expiresAt = &v
	}
	return &Capability{
		EventID:    evt.ID,
		Type:       capType,
		Holder:     holder,
		Issuer:     issuer,
		Qualifiers: qualifiers,
		IssuedAt:   evt.CreatedAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// RevokeRecord is the parsed form of a 29001 revoke event. A revoke
// carries no qualifier state of its own, only a reference to the grant it
// targets.
type RevokeRecord struct {
	EventID        string
	Issuer         *curve.Point
	RevokedEventID string
}

// ParseRevoke parses a 29001 revoke event, which references the grant it
// revokes via its "e" tag.
func ParseRevoke(evt *event.Event) (*RevokeRecord, error) {
	if evt.Kind != KindRevoke {
		return nil, apperr.Capabilityf("parse: kind %d is not a revoke", evt.Kind)
	}
	revokedID, ok := evt.Tags.GetValue("e")
	if !ok || revokedID == "" {
		return nil, apperr.Capabilityf("parse: revoke missing e tag")
	}
	issuer, err := evt.PubkeyPoint()
	if err != nil {
		return nil, apperr.Capabilityf("parse: %v", err)
	}
	return &RevokeRecord{EventID: evt.ID, Issuer: issuer, RevokedEventID: revokedID}, nil
}

// ParseDelegate parses a 29002 delegate event into a Capability whose
// shape is validated against its parent by ValidateDelegation. This
// function only parses the wire fields; it does not check the parent
// relationship.
func ParseDelegate(evt *event.Event) (*Capability, string, error) {
	if evt.Kind != KindDelegate {
		return nil, "", apperr.Capabilityf("parse: kind %d is not a delegate", evt.Kind)
	}
	c, err := parseGrantLikeFields(evt)
	if err != nil {
		return nil, "", err
	}
	parentID, ok := evt.Tags.GetValue("e")
	if !ok || parentID == "" {
		return nil, "", apperr.Capabilityf("parse: delegate missing e tag")
	}
	return c, parentID, nil
}

// parseGrantLikeFields shares the holder/type/qualifiers/expiry parsing
// between ParseGrant and ParseDelegate, since grant and delegate events
// carry the same field shape with different signers.
func parseGrantLikeFields(evt *event.Event) (*Capability, error) {
	holderHex, ok := evt.Tags.GetValue("p")
	if !ok || strings.TrimSpace(holderHex) == "" {
		return nil, apperr.Capabilityf("parse: %v", ErrMissingHolder)
	}
	holder, err := curve.PointFromHex(holderHex)
	if err != nil {
		return nil, apperr.Capabilityf("parse: decode holder pubkey: %v", err)
	}
	typeRaw, ok := evt.Tags.GetValue("capability")
	if !ok {
		return nil, apperr.Capabilityf("parse: missing capability tag")
	}
	capType, err := ParseType(typeRaw)
	if err != nil {
		return nil, apperr.Capabilityf("parse: %v", err)
	}
	qualifiers, err := parseQualifiers(evt.Tags)
	if err != nil {
		return nil, apperr.Capabilityf("parse: %v", err)
	}
	var expiresAt *int64
	if raw, ok := evt.Tags.GetValue("expiration"); ok && raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, apperr.Capabilityf("parse: bad expiration: %v", err)
		}
		expiresAt = &v
	}
	return &Capability{
		EventID:    evt.ID,
		Type:       capType,
		Holder:     holder,
		IssuedAt:   evt.CreatedAt,
		ExpiresAt:  expiresAt,
		Qualifiers: qualifiers,
	}, nil
}

// parseQualifiers parses the optional "kinds", "required-tags",
// "excluded-tags", and "rate-limit" tags of a capability event. Each is a
// single tag whose values (positions 1..n) are the list elements, except
// required/excluded tags which pack "name:value" pairs.
func parseQualifiers(tags event.Tags) (*Qualifiers, error) {
	q := &Qualifiers{}
	any := false
	if t, ok := tags.Get("kinds"); ok && len(t) > 1 {
		any = true
		for _, raw := range t[1:] {
			v, err := strconv.ParseUint(raw, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("bad kind %q: %w", raw, err)
			}
			q.Kinds = append(q.Kinds, uint16(v))
		}
	}
	if t, ok := tags.Get("required-tags"); ok && len(t) > 1 {
		any = true
		pairs, err := parseTagPairs(t[1:])
		if err != nil {
			return nil, fmt.Errorf("required-tags: %w", err)
		}
		q.RequiredTags = pairs
	}
	if t, ok := tags.Get("excluded-tags"); ok && len(t) > 1 {
		any = true
		pairs, err := parseTagPairs(t[1:])
		if err != nil {
			return nil, fmt.Errorf("excluded-tags: %w", err)
		}
		q.ExcludedTags = pairs
	}
	if t, ok := tags.Get("rate-limit"); ok && len(t) == 3 {
		any = true
		count, err := strconv.Atoi(t[1])
		if err != nil {
			return nil, fmt.Errorf("rate-limit count: %w", err)
		}
		period, err := strconv.Atoi(t[2])
		if err != nil {
			return nil, fmt.Errorf("rate-limit period: %w", err)
		}
		rl := &RateLimit{Count: count, PeriodSeconds: period}
		if err := rl.valid(); err != nil {
			return nil, err
		}
		q.RateLimit = rl
	}
	if !any {
		return nil, nil
	}
	return q, nil
}

func parseTagPairs(raw []string) ([]TagPair, error) {
	out := make([]TagPair, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed pair %q, want name:value", r)
		}
		out = append(out, TagPair{Name: parts[0], Value: parts[1]})
	}
	return out, nil
}
