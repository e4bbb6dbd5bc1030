// Package relay implements the authorization core: the NIP-29-style
// relay logic that admits or rejects inbound signed events against
// capability state and group membership.
package relay

import (
	"github.com/coracle-social/kgroups/pkg/curve"
)

// Visibility is a group's visibility setting.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Access is a group's access setting.
type Access string

const (
	AccessOpen   Access = "open"
	AccessClosed Access = "closed"
)

// Permission is one entry of an admin's permission set, matching the
// moderation permission table ("add-user", "remove-user",
// "edit-metadata", "delete-event", "delete-group").
type Permission string

const (
	PermissionAddUser      Permission = "add-user"
	PermissionRemoveUser   Permission = "remove-user"
	PermissionEditMetadata Permission = "edit-metadata"
	PermissionDeleteEvent  Permission = "delete-event"
	PermissionDeleteGroup  Permission = "delete-group"
)

// GroupState is a community's group record: { id; groupPubkey;
// visibility; access; admins: map pubkey -> permission set; members: set
// of pubkeys }.
type GroupState struct {
	ID          string
	GroupPubkey *curve.Point
	Visibility  Visibility
	Access      Access
	Admins      map[string]map[Permission]struct{} // keyed by pubkey hex
	Members     map[string]struct{}                // keyed by pubkey hex
}

// NewGroupState returns an empty group in the given visibility/access mode.
func NewGroupState(id string, groupPubkey *curve.Point, vis Visibility, acc Access) *GroupState {
	return &GroupState{
		ID:          id,
		GroupPubkey: groupPubkey,
		Visibility:  vis,
		Access:      acc,
		Admins:      make(map[string]map[Permission]struct{}),
		Members:     make(map[string]struct{}),
	}
}

// IsMember reports whether pubkey (hex) belongs to the group.
func (g *GroupState) IsMember(pubkeyHex string) bool {
	_, ok := g.Members[pubkeyHex]
	return ok
}

// AddMember adds pubkeyHex to the member set.
func (g *GroupState) AddMember(pubkeyHex string) {
	g.Members[pubkeyHex] = struct{}{}
}

// RemoveMember removes pubkeyHex from the member set.
func (g *GroupState) RemoveMember(pubkeyHex string) {
	delete(g.Members, pubkeyHex)
}

// HasPermission reports whether pubkeyHex is a recorded admin whose
// permission set contains perm.
func (g *GroupState) HasPermission(pubkeyHex string, perm Permission) bool {
	perms, ok := g.Admins[pubkeyHex]
	if !ok {
		return false
	}
	_, ok = perms[perm]
	return ok
}

// GrantPermission adds perm to pubkeyHex's admin permission set, creating
// the admin entry if needed.
func (g *GroupState) GrantPermission(pubkeyHex string, perm Permission) {
	if g.Admins[pubkeyHex] == nil {
		g.Admins[pubkeyHex] = make(map[Permission]struct{})
	}
	g.Admins[pubkeyHex][perm] = struct{}{}
}
