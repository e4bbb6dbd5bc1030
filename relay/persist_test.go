package relay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coracle-social/kgroups/capability"
	"github.com/coracle-social/kgroups/event"
)

func TestSnapshotRoundTrip(t *testing.T) {
	core, rootSK := newTestCore(t)
	_, holder := mustRelayKey(t)

	group := NewGroupState("G", core.RootPubkey, VisibilityPrivate, AccessClosed)
	group.GrantPermission(holder.Hex(), PermissionAddUser)
	group.AddMember(holder.Hex())
	core.PutGroup(group)

	grantEvt := &event.Event{
		CreatedAt: 1000,
		Kind:      capability.KindGrant,
		Tags: event.Tags{
			{"p", holder.Hex()},
			{"capability", "write"},
		},
	}
	require.NoError(t, event.Sign(grantEvt, rootSK))
	require.NoError(t, core.Admit(grantEvt, 100, time.Unix(1000, 0)))
	core.Capabilities().Revoke("someotherid")

	path := filepath.Join(t.TempDir(), "relay.snapshot")
	require.NoError(t, SaveSnapshot(path, core.Snapshot()))

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)

	restored := NewCore(DefaultConfig(), core.RootPubkey, nil)
	restored.Restore(loaded)

	g, ok := restored.Group("G")
	require.True(t, ok)
	require.Equal(t, VisibilityPrivate, g.Visibility)
	require.Equal(t, AccessClosed, g.Access)
	require.True(t, g.HasPermission(holder.Hex(), PermissionAddUser))
	require.True(t, g.IsMember(holder.Hex()))

	require.Len(t, restored.Capabilities().Active(holder), 1)
	require.True(t, restored.Capabilities().IsRevoked("someotherid"))
}
