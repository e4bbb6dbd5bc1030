// Package capability's Store indexes accepted capability records by holder
// and by event id, and tracks revoked grant ids.
package capability

import (
	"sort"
	"sync"

	"github.com/coracle-social/kgroups/internal/apperr"
	"github.com/coracle-social/kgroups/pkg/curve"
)

// Store holds the authorization core's view of capability state. Safe for
// concurrent use, though it's expected to be mutated only by the relay's
// single event-loop task; the mutex exists so tests and any worker-pool
// verification path can read it concurrently with the writer.
type Store struct {
	mu         sync.RWMutex
	byEventID  map[string]*Capability
	byHolder   map[string][]*Capability // keyed by Holder.Hex()
	revokedIDs map[string]struct{}
}

// NewStore returns an empty capability store.
func NewStore() *Store {
	return &Store{
		byEventID:  make(map[string]*Capability),
		byHolder:   make(map[string][]*Capability),
		revokedIDs: make(map[string]struct{}),
	}
}

// Add records a newly accepted grant or delegate capability. Re-adding the
// same event id is a no-op.
func (s *Store) Add(c *Capability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byEventID[c.EventID]; dup {
		return
	}
	s.byEventID[c.EventID] = c
	s.byHolder[c.Holder.Hex()] = append(s.byHolder[c.Holder.Hex()], c)
}

// Get looks up a capability by its originating event id, used to resolve a
// delegate event's parent grant.
func (s *Store) Get(eventID string) (*Capability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byEventID[eventID]
	return c, ok
}

// Revoke marks eventID's capability as revoked. Once accepted, no
// capability derived from that event id authorizes any action; a grant
// under a different id is unaffected.
func (s *Store) Revoke(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokedIDs[eventID] = struct{}{}
}

// IsRevoked reports whether eventID has been revoked.
func (s *Store) IsRevoked(eventID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, revoked := s.revokedIDs[eventID]
	return revoked
}

// Active returns holder's non-revoked capabilities, the set Authorize
// should be called with.
func (s *Store) Active(holder *curve.Point) []*Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.byHolder[holder.Hex()]
	out := make([]*Capability, 0, len(all))
	for _, c := range all {
		if s.isRevokedChain(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// isRevokedChain reports whether c or any ancestor up its ParentEventID
// chain has been revoked: revoking an original grant must also disable
// every capability delegated from it.
func (s *Store) isRevokedChain(c *Capability) bool {
	for eid, seen := c.EventID, 0; eid != ""; seen++ {
		if seen > len(s.byEventID) {
			break // cycle guard; a well-formed chain can't loop
		}
		if _, revoked := s.revokedIDs[eid]; revoked {
			return true
		}
		parent, ok := s.byEventID[eid]
		if !ok {
			break
		}
		eid = parent.ParentEventID
	}
	return false
}

// All returns every stored capability record in event-id order, for
// persistence snapshots.
func (s *Store) All() []*Capability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Capability, 0, len(s.byEventID))
	for _, c := range s.byEventID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventID < out[j].EventID })
	return out
}

// RevokedIDs returns the revoked event ids, sorted.
func (s *Store) RevokedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.revokedIDs))
	for id := range s.revokedIDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CapabilityOrErr is a small convenience used by the relay driver to turn a
// missing-capability Authorize result into a stable error kind.
func CapabilityOrErr(d Decision) (*Capability, error) {
	if !d.Authorized {
		return nil, apperr.Restrictedf("not authorized")
	}
	return d.Witness, nil
}
