package aead

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coracle-social/kgroups/pkg/curve"
)

func TestSealOpenRoundTrip(t *testing.T) {
	aSecret, err := curve.RandomScalarNonzero()
	require.NoError(t, err)
	bSecret, err := curve.RandomScalarNonzero()
	require.NoError(t, err)

	aPub := aSecret.ActOnBase()
	bPub := bSecret.ActOnBase()

	keyFromA := ConversationKey(aSecret, bPub)
	keyFromB := ConversationKey(bSecret, aPub)
	require.Equal(t, keyFromA, keyFromB)

	share, err := curve.RandomScalarNonzero()
	require.NoError(t, err)

	var sessionID [32]byte
	sessionID[0] = 0xAB

	sealed, err := SealShare(keyFromA, sessionID, 2, share)
	require.NoError(t, err)

	opened, err := OpenShare(keyFromB, sessionID, 2, sealed)
	require.NoError(t, err)
	require.True(t, share.Equal(opened))
}

func TestOpenShareDetectsTampering(t *testing.T) {
	aSecret, err := curve.RandomScalarNonzero()
	require.NoError(t, err)
	bSecret, err := curve.RandomScalarNonzero()
	require.NoError(t, err)

	key := ConversationKey(aSecret, bSecret.ActOnBase())
	share, err := curve.RandomScalarNonzero()
	require.NoError(t, err)

	var sessionID [32]byte
	sealed, err := SealShare(key, sessionID, 1, share)
	require.NoError(t, err)

	sealed.Ciphertext[0] ^= 0x01
	_, err = OpenShare(key, sessionID, 1, sealed)
	require.Error(t, err)
}

func TestOpenShareRejectsWrongRound(t *testing.T) {
	secret, err := curve.RandomScalarNonzero()
	require.NoError(t, err)
	key := ConversationKey(secret, secret.ActOnBase())

	share, err := curve.RandomScalarNonzero()
	require.NoError(t, err)

	var sessionID [32]byte
	sealed, err := SealShare(key, sessionID, 1, share)
	require.NoError(t, err)

	_, err = OpenShare(key, sessionID, 2, sealed)
	require.Error(t, err)
}
