package capability

import (
	"github.com/coracle-social/kgroups/event"
	"github.com/coracle-social/kgroups/pkg/curve"
)

// EventContext is the (kind, tags) pair Authorize optionally takes, used
// to match qualifiers against an inbound event.
type EventContext struct {
	Kind uint16
	Tags event.Tags
}

// Decision is the result of Authorize: which capability (if any) granted
// the action. At most one witness capability is ever returned.
type Decision struct {
	Authorized bool
	Witness    *Capability
}

// Authorize implements the authorization decision: given a capability set
// for holder h, action a, the current time, and an optional event
// context, selects the first matching capability or reports denial. A
// pure function of its inputs.
func Authorize(capabilities []*Capability, holder *curve.Point, action Type, now int64, ctx *EventContext) Decision {
	for _, c := range capabilities {
		if !c.Holder.Equal(holder) {
			continue
		}
		if c.Type != action {
			continue
		}
		if c.Expired(now) {
			continue
		}
		if ctx != nil && !qualifiersMatch(c.Qualifiers, ctx) {
			continue
		}
		return Decision{Authorized: true, Witness: c}
	}
	return Decision{Authorized: false}
}

func qualifiersMatch(q *Qualifiers, ctx *EventContext) bool {
	if q == nil {
		return true
	}
	if len(q.Kinds) > 0 {
		found := false
		for _, k := range q.Kinds {
			if k == ctx.Kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, rt := range q.RequiredTags {
		if !ctx.Tags.Has(rt.Name, rt.Value) {
			return false
		}
	}
	for _, et := range q.ExcludedTags {
		if ctx.Tags.Has(et.Name, et.Value) {
			return false
		}
	}
	return true
}
