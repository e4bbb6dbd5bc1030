package event

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coracle-social/kgroups/pkg/curve"
)

func TestSignAndVerify(t *testing.T) {
	sk, err := curve.RandomScalarNonzero()
	require.NoError(t, err)

	evt := &Event{
		CreatedAt: 1700000000,
		Kind:      9,
		Tags:      Tags{{"h", "group1"}},
		Content:   "hello",
	}
	require.NoError(t, Sign(evt, sk))
	require.NoError(t, evt.Verify())

	evt.Content = "tampered"
	require.Error(t, evt.Verify())
}

func TestTagsHelpers(t *testing.T) {
	tags := Tags{{"h", "group1"}, {"kinds", "9", "10"}}
	v, ok := tags.GetValue("h")
	require.True(t, ok)
	require.Equal(t, "group1", v)
	require.True(t, tags.Has("h", "group1"))
	require.False(t, tags.Has("h", "group2"))
	_, ok = tags.Get("missing")
	require.False(t, ok)
}
