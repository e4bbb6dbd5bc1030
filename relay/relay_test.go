package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coracle-social/kgroups/capability"
	"github.com/coracle-social/kgroups/event"
	"github.com/coracle-social/kgroups/internal/apperr"
	"github.com/coracle-social/kgroups/pkg/curve"
)

func newTestCore(t *testing.T) (*Core, *curve.Scalar) {
	t.Helper()
	rootSK, err := curve.RandomScalarNonzero()
	require.NoError(t, err)
	cfg := DefaultConfig()
	core := NewCore(cfg, rootSK.ActOnBase(), nil)
	return core, rootSK
}

func signChat(t *testing.T, sk *curve.Scalar, groupID string, kind uint16, createdAt int64) *event.Event {
	t.Helper()
	evt := &event.Event{
		CreatedAt: createdAt,
		Kind:      kind,
		Tags:      event.Tags{{"h", groupID}},
		Content:   "hi",
	}
	require.NoError(t, event.Sign(evt, sk))
	return evt
}

// An event created 7200s in the past against a 3600s late-publication
// window is rejected.
func TestAdmit_LatePublicationRejected(t *testing.T) {
	core, _ := newTestCore(t)
	core.PutGroup(NewGroupState("G", nil, VisibilityPublic, AccessOpen))

	sk, _ := mustRelayKey(t)
	now := time.Unix(10000, 0)
	evt := signChat(t, sk, "G", KindChatMessage, now.Unix()-7200)

	err := core.Admit(evt, 100, now)
	require.Error(t, err)
	var kindErr *apperr.Error
	require.ErrorAs(t, err, &kindErr)
	require.Equal(t, apperr.KindInvalid, kindErr.Kind)
	require.Contains(t, err.Error(), "Late publication rejected")
}

func TestAdmit_MissingHTagRejected(t *testing.T) {
	core, _ := newTestCore(t)
	sk, _ := mustRelayKey(t)
	evt := &event.Event{CreatedAt: 1000, Kind: KindChatMessage, Content: "hi"}
	require.NoError(t, event.Sign(evt, sk))

	err := core.Admit(evt, 100, time.Unix(1000, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing h tag")
}

func TestAdmit_WriteCapabilityOrMembership(t *testing.T) {
	core, rootSK := newTestCore(t)
	core.PutGroup(NewGroupState("G", nil, VisibilityPublic, AccessClosed))

	sk, pub := mustRelayKey(t)
	evt := signChat(t, sk, "G", KindChatMessage, 1000)

	// no capability, not a member: denied.
	err := core.Admit(evt, 100, time.Unix(1000, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "restricted")

	// grant a write capability and retry with a fresh event id (idempotence
	// would otherwise treat a retried identical event as already-accepted).
	grantEvt := &event.Event{
		CreatedAt: 999,
		Kind:      capability.KindGrant,
		Tags: event.Tags{
			{"p", pub.Hex()},
			{"capability", "write"},
		},
	}
	require.NoError(t, event.Sign(grantEvt, rootSK))
	require.NoError(t, core.Admit(grantEvt, 100, time.Unix(1000, 0)))

	evt2 := signChat(t, sk, "G", KindChatMessage, 1001)
	require.NoError(t, core.Admit(evt2, 100, time.Unix(1000, 0)))
}

// A grant not signed by the group key is rejected outright.
func TestAdmit_GrantRequiresGroupSigner(t *testing.T) {
	core, _ := newTestCore(t)
	sk, pub := mustRelayKey(t)

	grantEvt := &event.Event{
		CreatedAt: 1000,
		Kind:      capability.KindGrant,
		Tags: event.Tags{
			{"p", pub.Hex()},
			{"capability", "write"},
		},
	}
	require.NoError(t, event.Sign(grantEvt, sk))
	err := core.Admit(grantEvt, 100, time.Unix(1000, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "signed by the group key")
}

// Delegate events are signed by the grant holder, not the group key, and
// a delegation exceeding the parent's kind set surfaces in the OK error.
func TestAdmit_DelegationSubsetEnforced(t *testing.T) {
	core, rootSK := newTestCore(t)
	delegatorSK, delegator := mustRelayKey(t)
	_, delegatee := mustRelayKey(t)

	rootGrant := &event.Event{
		CreatedAt: 1000,
		Kind:      capability.KindGrant,
		Tags: event.Tags{
			{"p", delegator.Hex()},
			{"capability", "delegate"},
			append(event.Tag{"kinds"}, "9", "10"),
		},
	}
	require.NoError(t, event.Sign(rootGrant, rootSK))
	require.NoError(t, core.Admit(rootGrant, 100, time.Unix(1000, 0)))

	tooBroad := &event.Event{
		CreatedAt: 1500,
		Kind:      capability.KindDelegate,
		Tags: event.Tags{
			{"p", delegatee.Hex()},
			{"capability", "write"},
			{"e", rootGrant.ID},
			append(event.Tag{"kinds"}, "9", "10", "11"),
		},
	}
	require.NoError(t, event.Sign(tooBroad, delegatorSK))
	err := core.Admit(tooBroad, 100, time.Unix(1500, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "delegation exceeds parent kinds")

	narrower := &event.Event{
		CreatedAt: 1501,
		Kind:      capability.KindDelegate,
		Tags: event.Tags{
			{"p", delegatee.Hex()},
			{"capability", "write"},
			{"e", rootGrant.ID},
			append(event.Tag{"kinds"}, "9"),
		},
	}
	require.NoError(t, event.Sign(narrower, delegatorSK))
	require.NoError(t, core.Admit(narrower, 100, time.Unix(1501, 0)))
	require.Len(t, core.Capabilities().Active(delegatee), 1)
}

// A revoke delivered through the relay disables the grant it references
// and everything delegated from it.
func TestAdmit_RevokeDisablesDelegationChain(t *testing.T) {
	core, rootSK := newTestCore(t)
	delegatorSK, delegator := mustRelayKey(t)
	_, delegatee := mustRelayKey(t)

	rootGrant := &event.Event{
		CreatedAt: 1000,
		Kind:      capability.KindGrant,
		Tags: event.Tags{
			{"p", delegator.Hex()},
			{"capability", "delegate"},
		},
	}
	require.NoError(t, event.Sign(rootGrant, rootSK))
	require.NoError(t, core.Admit(rootGrant, 100, time.Unix(1000, 0)))

	delegateEvt := &event.Event{
		CreatedAt: 1100,
		Kind:      capability.KindDelegate,
		Tags: event.Tags{
			{"p", delegatee.Hex()},
			{"capability", "write"},
			{"e", rootGrant.ID},
		},
	}
	require.NoError(t, event.Sign(delegateEvt, delegatorSK))
	require.NoError(t, core.Admit(delegateEvt, 100, time.Unix(1100, 0)))
	require.Len(t, core.Capabilities().Active(delegatee), 1)

	revokeEvt := &event.Event{
		CreatedAt: 1200,
		Kind:      capability.KindRevoke,
		Tags:      event.Tags{{"e", rootGrant.ID}},
	}
	require.NoError(t, event.Sign(revokeEvt, rootSK))
	require.NoError(t, core.Admit(revokeEvt, 100, time.Unix(1200, 0)))
	require.Empty(t, core.Capabilities().Active(delegatee))
}

// A group-create event registers the group with the creator as a
// fully-permissioned admin; re-creation is rejected.
func TestAdmit_GroupCreate(t *testing.T) {
	core, _ := newTestCore(t)
	sk, pub := mustRelayKey(t)

	create := &event.Event{
		CreatedAt: 1000,
		Kind:      kindGroupCreate,
		Tags:      event.Tags{{"h", "NEW"}},
	}
	require.NoError(t, event.Sign(create, sk))
	require.NoError(t, core.Admit(create, 100, time.Unix(1000, 0)))

	g, ok := core.Group("NEW")
	require.True(t, ok)
	require.True(t, g.HasPermission(pub.Hex(), PermissionDeleteGroup))
	require.True(t, g.IsMember(pub.Hex()))

	again := &event.Event{
		CreatedAt: 1001,
		Kind:      kindGroupCreate,
		Tags:      event.Tags{{"h", "NEW"}},
	}
	require.NoError(t, event.Sign(again, sk))
	err := core.Admit(again, 100, time.Unix(1001, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}

func TestAdmit_ModerationRequiresPermission(t *testing.T) {
	core, _ := newTestCore(t)
	group := NewGroupState("G", nil, VisibilityPublic, AccessOpen)
	core.PutGroup(group)

	sk, pub := mustRelayKey(t)
	evt := &event.Event{
		CreatedAt: 1000,
		Kind:      KindModRemoveUser,
		Tags:      event.Tags{{"h", "G"}},
	}
	require.NoError(t, event.Sign(evt, sk))
	err := core.Admit(evt, 100, time.Unix(1000, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not admin")

	group.GrantPermission(pub.Hex(), PermissionRemoveUser)
	evt2 := &event.Event{
		CreatedAt: 1001,
		Kind:      KindModRemoveUser,
		Tags:      event.Tags{{"h", "G"}},
	}
	require.NoError(t, event.Sign(evt2, sk))
	require.NoError(t, core.Admit(evt2, 100, time.Unix(1000, 0)))
}

func TestAdmit_JoinRequestOpenVsClosed(t *testing.T) {
	core, _ := newTestCore(t)
	open := NewGroupState("OPEN", nil, VisibilityPublic, AccessOpen)
	closed := NewGroupState("CLOSED", nil, VisibilityPublic, AccessClosed)
	core.PutGroup(open)
	core.PutGroup(closed)

	sk, pub := mustRelayKey(t)
	joinOpen := &event.Event{CreatedAt: 1000, Kind: KindJoinRequest, Tags: event.Tags{{"h", "OPEN"}}}
	require.NoError(t, event.Sign(joinOpen, sk))
	require.NoError(t, core.Admit(joinOpen, 100, time.Unix(1000, 0)))
	require.True(t, open.IsMember(pub.Hex()))

	joinClosed := &event.Event{CreatedAt: 1001, Kind: KindJoinRequest, Tags: event.Tags{{"h", "CLOSED"}}}
	require.NoError(t, event.Sign(joinClosed, sk))
	require.NoError(t, core.Admit(joinClosed, 100, time.Unix(1000, 0)))
	require.False(t, closed.IsMember(pub.Hex()))
}

func TestAdmit_Idempotence(t *testing.T) {
	core, _ := newTestCore(t)
	core.PutGroup(NewGroupState("G", nil, VisibilityPublic, AccessOpen))
	sk, _ := mustRelayKey(t)

	join := &event.Event{CreatedAt: 999, Kind: KindJoinRequest, Tags: event.Tags{{"h", "G"}}}
	require.NoError(t, event.Sign(join, sk))
	require.NoError(t, core.Admit(join, 100, time.Unix(1000, 0)))

	evt := signChat(t, sk, "G", KindChatMessage, 1000)
	require.NoError(t, core.Admit(evt, 100, time.Unix(1000, 0)))
	require.NoError(t, core.Admit(evt, 100, time.Unix(1000, 0))) // duplicate: still a positive no-op
}

// In strict mode an event must reference at least MinPreviousRefs recent
// event ids by 8-char prefix.
func TestAdmit_StrictPreviousRefs(t *testing.T) {
	core, _ := newTestCore(t)
	core.cfg.MinPreviousRefs = 1
	core.PutGroup(NewGroupState("G", nil, VisibilityPublic, AccessOpen))
	sk, pub := mustRelayKey(t)
	g, _ := core.Group("G")
	g.AddMember(pub.Hex())

	seeded := signChat(t, sk, "G", KindChatMessage, 999)
	core.recent.Record(seeded.ID)

	noRefs := signChat(t, sk, "G", KindChatMessage, 1000)
	err := core.Admit(noRefs, 100, time.Unix(1000, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "previous references")

	badFormat := &event.Event{
		CreatedAt: 1001,
		Kind:      KindChatMessage,
		Tags:      event.Tags{{"h", "G"}, {"previous", "abc"}},
	}
	require.NoError(t, event.Sign(badFormat, sk))
	err = core.Admit(badFormat, 100, time.Unix(1001, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad previous-ref format")

	withRef := &event.Event{
		CreatedAt: 1002,
		Kind:      KindChatMessage,
		Tags:      event.Tags{{"h", "G"}, {"previous", seeded.ID[:8]}},
	}
	require.NoError(t, event.Sign(withRef, sk))
	require.NoError(t, core.Admit(withRef, 100, time.Unix(1002, 0)))
}

// A connection holding two distinct matching subscriptions receives the
// event on each of them; a subscription's multiple OR'd filters still
// yield only one delivery.
func TestHub_BroadcastPerSubscription(t *testing.T) {
	hub := NewHub()
	deliveries := make(map[string]int)

	subscribe := func(subID string, filters ...*Filter) {
		hub.Subscribe(&Subscription{
			ConnID:  "conn1",
			SubID:   subID,
			Filters: filters,
			Deliver: func(evt *event.Event) error {
				deliveries[subID]++
				return nil
			},
		})
	}
	subscribe("by-kind", &Filter{Kinds: []uint16{9}})
	subscribe("by-group", &Filter{H: []string{"G"}})
	subscribe("no-match", &Filter{Kinds: []uint16{11}})
	subscribe("ored", &Filter{Kinds: []uint16{9}}, &Filter{H: []string{"G"}})

	evt := &event.Event{ID: "abc", Kind: 9, Tags: event.Tags{{"h", "G"}}}
	hub.Broadcast(evt)

	require.Equal(t, 1, deliveries["by-kind"])
	require.Equal(t, 1, deliveries["by-group"])
	require.Zero(t, deliveries["no-match"])
	require.Equal(t, 1, deliveries["ored"])
}

func TestFilter_ConjunctiveMatch(t *testing.T) {
	evt := &event.Event{ID: "abc", Pubkey: "def", Kind: 9, CreatedAt: 100, Tags: event.Tags{{"h", "G"}}}
	since := int64(50)
	f := &Filter{Kinds: []uint16{9}, H: []string{"G"}, Since: &since}
	require.True(t, f.Matches(evt))

	f2 := &Filter{Kinds: []uint16{1}}
	require.False(t, f2.Matches(evt))
}

func mustRelayKey(t *testing.T) (*curve.Scalar, *curve.Point) {
	t.Helper()
	sk, err := curve.RandomScalarNonzero()
	require.NoError(t, err)
	return sk, sk.ActOnBase()
}
