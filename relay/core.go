package relay

import (
	"log/slog"
	"strings"
	"time"

	"github.com/coracle-social/kgroups/capability"
	"github.com/coracle-social/kgroups/event"
	"github.com/coracle-social/kgroups/internal/apperr"
	"github.com/coracle-social/kgroups/pkg/curve"
)

// kindGroupCreate is the NIP-29-style group-creation kind. A group
// obviously can't exist yet when it's being created, so this kind is
// exempted from the "group must exist" check applied to other
// group-user and moderation kinds.
const kindGroupCreate uint16 = 9007

// Core is the authorization core: the single-writer relay state that
// admits or rejects inbound events against group membership and
// capability state.
type Core struct {
	cfg Config
	log *slog.Logger

	// RootPubkey is the community's threshold group key: the signer every
	// grant/revoke event and every relay-signed metadata/admin/member
	// event (kinds 29000-29001, 39000-39002) must carry. Delegate events
	// are signed by the delegating grant holder instead.
	RootPubkey *curve.Point

	capabilities *capability.Store
	quotas       *capability.QuotaTracker
	groups       map[string]*GroupState // keyed by groupId
	recent       *idWindow
	seenEvents   map[string]struct{} // accepted event ids, for idempotent resubmission
	hub          *Hub

	authenticated map[string]struct{} // pubkey hex of connections that completed AUTH
}

// NewCore constructs an authorization core for a community whose root
// identity is rootPubkey.
func NewCore(cfg Config, rootPubkey *curve.Point, log *slog.Logger) *Core {
	if log == nil {
		log = slog.Default()
	}
	return &Core{
		cfg:           cfg,
		log:           log,
		RootPubkey:    rootPubkey,
		capabilities:  capability.NewStore(),
		quotas:        capability.NewQuotaTracker(),
		groups:        make(map[string]*GroupState),
		recent:        newIDWindow(),
		seenEvents:    make(map[string]struct{}),
		hub:           NewHub(),
		authenticated: make(map[string]struct{}),
	}
}

// Group returns a group by id. It does not create one: groups come from
// PutGroup or an admitted group-creation event; a 39000 metadata event
// does not create a group.
func (c *Core) Group(groupID string) (*GroupState, bool) {
	g, ok := c.groups[groupID]
	return g, ok
}

// PutGroup registers or replaces a group's state.
func (c *Core) PutGroup(g *GroupState) {
	c.groups[g.ID] = g
}

// Seen reports whether an event id has already been accepted. Duplicate
// submissions get a positive OK but no re-broadcast.
func (c *Core) Seen(eventID string) bool {
	_, ok := c.seenEvents[eventID]
	return ok
}

// MarkAuthenticated records that pubkeyHex has completed an AUTH challenge
// (kind 22242), satisfying the auth-required gate when cfg.RequireAuth is
// set.
func (c *Core) MarkAuthenticated(pubkeyHex string) {
	c.authenticated[pubkeyHex] = struct{}{}
}

func (c *Core) isAuthenticated(pubkeyHex string) bool {
	_, ok := c.authenticated[pubkeyHex]
	return ok
}

// Admit runs the admission pipeline against evt, whose wire encoding was
// wireSize bytes. A nil error means evt was accepted and its side
// effects (group, membership, and capability state) have been applied;
// broadcasting to subscribers is the dispatcher's job once the OK frame
// is out. A non-nil error is always one of package apperr's stable
// kinds, suitable for the OK frame's message field.
func (c *Core) Admit(evt *event.Event, wireSize int, now time.Time) error {
	if c.cfg.RequireAuth && !c.isAuthenticated(evt.Pubkey) {
		return apperr.AuthRequiredf("AUTH required before publishing")
	}

	if _, dup := c.seenEvents[evt.ID]; dup {
		// Duplicate EVENT submissions yield a positive OK and no
		// re-broadcast.
		return nil
	}

	if err := evt.Verify(); err != nil {
		return apperr.Invalidf("bad signature: %v", err)
	}
	if wireSize > c.cfg.MaxEventSize {
		return apperr.Invalidf("event too large")
	}

	if requiresGroupSigner(evt.Kind) {
		signer, err := evt.PubkeyPoint()
		if err != nil {
			return apperr.Invalidf("bad pubkey: %v", err)
		}
		if c.RootPubkey == nil || !signer.Equal(c.RootPubkey) {
			return apperr.Restrictedf("capability and metadata events must be signed by the group key")
		}
	}

	var group *GroupState
	if isGroupUserOrModerationKind(evt.Kind) {
		groupID, ok := evt.Tags.GetValue("h")
		if !ok || strings.TrimSpace(groupID) == "" {
			return apperr.Invalidf("missing h tag")
		}
		group, ok = c.groups[groupID]
		if !ok && evt.Kind != kindGroupCreate {
			return apperr.Invalidf("unknown group %s", groupID)
		}
		if !isMetadataKind(evt.Kind) {
			if err := c.checkTimelineReferences(evt); err != nil {
				return err
			}
		}
		if err := c.checkLatePublication(evt, now); err != nil {
			return err
		}
	}

	if err := c.authorize(evt, group); err != nil {
		return err
	}

	if isCapabilityEvent(evt.Kind) {
		if err := c.applyCapability(evt); err != nil {
			return err
		}
	}

	c.accept(evt)
	return nil
}

// applyCapability parses a grant/revoke/delegate event and applies its
// side effects against the capability store, on the single-writer
// admission path so a malformed grant or a delegation subset violation is
// reported in the submitter's OK frame rather than logged and lost.
func (c *Core) applyCapability(evt *event.Event) error {
	switch evt.Kind {
	case capability.KindGrant:
		grant, err := capability.ParseGrant(evt)
		if err != nil {
			return err
		}
		c.capabilities.Add(grant)
	case capability.KindRevoke:
		rec, err := capability.ParseRevoke(evt)
		if err != nil {
			return err
		}
		c.capabilities.Revoke(rec.RevokedEventID)
	case capability.KindDelegate:
		delegateCap, parentID, err := capability.ParseDelegate(evt)
		if err != nil {
			return err
		}
		parent, ok := c.capabilities.Get(parentID)
		if !ok {
			return apperr.Capabilityf("delegation references unknown grant %s", parentID)
		}
		if c.capabilities.IsRevoked(parentID) {
			return apperr.Capabilityf("delegation references revoked grant %s", parentID)
		}
		if err := capability.ValidateDelegation(parent, delegateCap, evt.Pubkey, parentID); err != nil {
			return err
		}
		c.capabilities.Add(capability.Derive(parent, delegateCap))
	}
	return nil
}

// checkTimelineReferences enforces that non-metadata kinds carry the
// configured minimum of timeline-reference prefixes: each "previous" tag
// value is an 8-hex-char id prefix, and in strict mode (MinPreviousRefs
// > 0) at least that many must match ids in the recent-event window.
// Prefix collisions within the window are tolerated; the mechanism is
// advisory ordering.
func (c *Core) checkTimelineReferences(evt *event.Event) error {
	if c.cfg.MinPreviousRefs <= 0 {
		return nil
	}
	known := 0
	for _, t := range evt.Tags {
		if t.Name() != "previous" {
			continue
		}
		if len(t.Value()) != prefixLen {
			return apperr.Invalidf("bad previous-ref format")
		}
		if c.recent.HasPrefix(t.Value()) {
			known++
		}
	}
	if known < c.cfg.MinPreviousRefs {
		return apperr.Invalidf("insufficient known previous references: have %d, need %d", known, c.cfg.MinPreviousRefs)
	}
	return nil
}

// checkLatePublication rejects events whose created_at is older than the
// configured late-publication window.
func (c *Core) checkLatePublication(evt *event.Event, now time.Time) error {
	window := int64(c.cfg.LatePublicationWindow)
	if window <= 0 {
		return nil
	}
	if now.Unix()-evt.CreatedAt > window {
		return apperr.Invalidf("Late publication rejected")
	}
	return nil
}

// authorize dispatches to the per-kind authorization rule.
func (c *Core) authorize(evt *event.Event, group *GroupState) error {
	switch {
	case evt.Kind == kindGroupCreate:
		// Creation necessarily precedes any admin/member state, so it is
		// exempt from group-existence and permission checks; it doesn't
		// gate who may create one.
		return c.createGroup(evt)
	case isChatOrNote(evt.Kind):
		return c.authorizeChatOrNote(evt, group)
	case isModeration(evt.Kind):
		return c.authorizeModeration(evt, group)
	case evt.Kind == KindJoinRequest:
		return c.authorizeJoin(evt, group)
	case evt.Kind == KindLeaveRequest:
		if group != nil {
			group.RemoveMember(evt.Pubkey)
		}
		return nil
	default:
		return nil
	}
}

func (c *Core) authorizeChatOrNote(evt *event.Event, group *GroupState) error {
	signer, err := evt.PubkeyPoint()
	if err != nil {
		return apperr.Invalidf("bad pubkey: %v", err)
	}
	if group != nil && group.IsMember(evt.Pubkey) {
		return nil
	}
	decision := capability.Authorize(c.capabilities.Active(signer), signer, capability.TypeWrite, evt.CreatedAt, &capability.EventContext{
		Kind: evt.Kind,
		Tags: evt.Tags,
	})
	if !decision.Authorized {
		return apperr.Restrictedf("not authorized")
	}
	if !c.quotas.Allow(decision.Witness, evt.Pubkey, time.Unix(evt.CreatedAt, 0)) {
		return apperr.Restrictedf("rate limit exceeded")
	}
	return nil
}

func (c *Core) authorizeModeration(evt *event.Event, group *GroupState) error {
	if group == nil {
		return apperr.Invalidf("unknown group")
	}
	perm, ok := moderationPermissions[evt.Kind]
	if !ok {
		return apperr.Blockedf("unsupported moderation kind %d", evt.Kind)
	}
	if !group.HasPermission(evt.Pubkey, perm) {
		return apperr.Restrictedf("not admin")
	}

	switch evt.Kind {
	case KindModAddUser:
		if target, ok := evt.Tags.GetValue("p"); ok && target != "" {
			group.AddMember(target)
		}
	case KindModRemoveUser:
		if target, ok := evt.Tags.GetValue("p"); ok && target != "" {
			group.RemoveMember(target)
		}
	case KindModDeleteGroup:
		delete(c.groups, group.ID)
	}
	return nil
}

// createGroup registers the group named by the event's h tag, making the
// creator an admin with the full permission set. Optional "private" and
// "closed" tags set the group's visibility and access; the defaults are
// public and open. Re-creating an existing group is rejected rather than
// silently resetting its state.
func (c *Core) createGroup(evt *event.Event) error {
	groupID, _ := evt.Tags.GetValue("h")
	if _, exists := c.groups[groupID]; exists {
		return apperr.Invalidf("group %s already exists", groupID)
	}
	vis := VisibilityPublic
	if _, ok := evt.Tags.Get("private"); ok {
		vis = VisibilityPrivate
	}
	acc := AccessOpen
	if _, ok := evt.Tags.Get("closed"); ok {
		acc = AccessClosed
	}
	g := NewGroupState(groupID, c.RootPubkey, vis, acc)
	for _, perm := range []Permission{
		PermissionAddUser,
		PermissionRemoveUser,
		PermissionEditMetadata,
		PermissionDeleteEvent,
		PermissionDeleteGroup,
	} {
		g.GrantPermission(evt.Pubkey, perm)
	}
	g.AddMember(evt.Pubkey)
	c.groups[groupID] = g
	return nil
}

func (c *Core) authorizeJoin(evt *event.Event, group *GroupState) error {
	if group == nil {
		return apperr.Invalidf("unknown group")
	}
	if group.Access == AccessOpen {
		group.AddMember(evt.Pubkey)
	}
	// Closed groups: recorded (accept returns to the caller below so the
	// event lands in seenEvents) but not auto-approved.
	return nil
}

// accept records evt as accepted. Broadcasting to subscribers is the
// dispatcher's job, after it has written the submitter's OK frame: the
// OK for an EVENT must precede any broadcast of that event back to the
// submitting connection.
func (c *Core) accept(evt *event.Event) {
	c.seenEvents[evt.ID] = struct{}{}
	c.recent.Record(evt.ID)
}

// Capabilities exposes the underlying store, for callers that seed
// capability state out of band (e.g. replaying persisted grant events at
// startup).
func (c *Core) Capabilities() *capability.Store { return c.capabilities }

// Hub exposes the subscription registry for transport-layer wiring.
func (c *Core) Hub() *Hub { return c.hub }
