package relay

import (
	"github.com/coracle-social/kgroups/event"
)

// Filter is a REQ subscription filter: ids, authors, kinds, #e, #p, #h,
// since, until, limit. Empty/nil clauses are vacuously true; every
// non-empty clause must hold conjunctively for a match.
type Filter struct {
	IDs     []string `json:"ids,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Kinds   []uint16 `json:"kinds,omitempty"`
	E       []string `json:"#e,omitempty"`
	P       []string `json:"#p,omitempty"`
	H       []string `json:"#h,omitempty"`
	Since   *int64   `json:"since,omitempty"`
	Until   *int64   `json:"until,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

// Matches reports whether evt satisfies every non-empty clause of f,
// conjunctively.
func (f *Filter) Matches(evt *event.Event) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, evt.ID) {
		return false
	}
	if len(f.Authors) > 0 && !containsString(f.Authors, evt.Pubkey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsKind(f.Kinds, evt.Kind) {
		return false
	}
	if len(f.E) > 0 && !tagValuesIntersect(evt.Tags, "e", f.E) {
		return false
	}
	if len(f.P) > 0 && !tagValuesIntersect(evt.Tags, "p", f.P) {
		return false
	}
	if len(f.H) > 0 && !tagValuesIntersect(evt.Tags, "h", f.H) {
		return false
	}
	if f.Since != nil && evt.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && evt.CreatedAt > *f.Until {
		return false
	}
	return true
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func containsKind(list []uint16, want uint16) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func tagValuesIntersect(tags event.Tags, name string, want []string) bool {
	for _, t := range tags {
		if t.Name() != name {
			continue
		}
		if containsString(want, t.Value()) {
			return true
		}
	}
	return false
}
