// Persistence covers the relay's durable minimum: group metadata keyed
// by group id, the accepted capability records with their event ids, and
// each group's admin and member sets. Content events are not persisted.
package relay

import (
	"fmt"
	"os"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"github.com/coracle-social/kgroups/capability"
	"github.com/coracle-social/kgroups/pkg/curve"
)

// Snapshot is the durable form of a Core's state.
type Snapshot struct {
	Groups       map[string]*GroupSnapshot `cbor:"1,keyasint"`
	Capabilities []*capability.Capability  `cbor:"2,keyasint"`
	RevokedIDs   []string                  `cbor:"3,keyasint"`
}

// GroupSnapshot is one group's persisted form. Admin permission sets and
// member sets are flattened to sorted slices so the encoding is
// deterministic.
type GroupSnapshot struct {
	ID          string                  `cbor:"1,keyasint"`
	GroupPubkey *curve.Point            `cbor:"2,keyasint"`
	Visibility  Visibility              `cbor:"3,keyasint"`
	Access      Access                  `cbor:"4,keyasint"`
	Admins      map[string][]Permission `cbor:"5,keyasint"`
	Members     []string                `cbor:"6,keyasint"`
}

// Snapshot captures the durable minimum of c's state.
func (c *Core) Snapshot() *Snapshot {
	snap := &Snapshot{Groups: make(map[string]*GroupSnapshot, len(c.groups))}
	for id, g := range c.groups {
		gs := &GroupSnapshot{
			ID:          id,
			GroupPubkey: g.GroupPubkey,
			Visibility:  g.Visibility,
			Access:      g.Access,
			Admins:      make(map[string][]Permission, len(g.Admins)),
		}
		for pk, perms := range g.Admins {
			flat := make([]Permission, 0, len(perms))
			for p := range perms {
				flat = append(flat, p)
			}
			sort.Slice(flat, func(i, j int) bool { return flat[i] < flat[j] })
			gs.Admins[pk] = flat
		}
		gs.Members = make([]string, 0, len(g.Members))
		for m := range g.Members {
			gs.Members = append(gs.Members, m)
		}
		sort.Strings(gs.Members)
		snap.Groups[id] = gs
	}
	snap.Capabilities = c.capabilities.All()
	snap.RevokedIDs = c.capabilities.RevokedIDs()
	return snap
}

// Restore replaces c's group and capability state with snap's contents.
// Meant for startup, before the event loop begins admitting.
func (c *Core) Restore(snap *Snapshot) {
	c.groups = make(map[string]*GroupState, len(snap.Groups))
	for id, gs := range snap.Groups {
		g := NewGroupState(gs.ID, gs.GroupPubkey, gs.Visibility, gs.Access)
		for pk, perms := range gs.Admins {
			for _, p := range perms {
				g.GrantPermission(pk, p)
			}
		}
		for _, m := range gs.Members {
			g.AddMember(m)
		}
		c.groups[id] = g
	}
	c.capabilities = capability.NewStore()
	for _, record := range snap.Capabilities {
		c.capabilities.Add(record)
	}
	for _, id := range snap.RevokedIDs {
		c.capabilities.Revoke(id)
	}
}

// SaveSnapshot writes snap to path in CBOR.
func SaveSnapshot(path string, snap *Snapshot) error {
	b, err := cbor.Marshal(snap)
	if err != nil {
		return fmt.Errorf("relay: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("relay: write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot previously written by SaveSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("relay: read snapshot: %w", err)
	}
	var snap Snapshot
	if err := cbor.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("relay: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
