package dkg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
)

// runRefresh drives a full refresh round for every holder in kps, returning
// the refreshed KeyPackages. secrets/participants must match the ones used
// to produce kps.
func runRefresh(t *testing.T, sessionID [32]byte, threshold, n uint32, participants []*curve.Point, secrets []*curve.Scalar, kps []*KeyPackage) []*KeyPackage {
	t.Helper()

	sessions := make(map[party.Index]*RefreshSession, n)
	for i := uint32(1); i <= n; i++ {
		cfg := Config{
			SessionID:    sessionID,
			Threshold:    threshold,
			Participants: participants,
			MyIndex:      party.Index(i),
			MySecretKey:  secrets[i-1],
		}
		sess, err := CreateRefreshSession(cfg, kps[i-1])
		require.NoError(t, err)
		sessions[party.Index(i)] = sess
	}

	round1Packages := make([]*RefreshRound1Package, 0, n)
	for i := uint32(1); i <= n; i++ {
		pkg, err := sessions[party.Index(i)].Round1()
		require.NoError(t, err)
		round1Packages = append(round1Packages, pkg)
	}
	for _, sess := range sessions {
		for _, pkg := range round1Packages {
			if pkg.Index == sess.cfg.MyIndex {
				continue
			}
			require.NoError(t, sess.IngestRound1(pkg))
		}
	}

	round2Packages := make([]*Round2Package, 0, n*(n-1))
	for i := uint32(1); i <= n; i++ {
		pkgs, err := sessions[party.Index(i)].Round2()
		require.NoError(t, err)
		round2Packages = append(round2Packages, pkgs...)
	}
	for _, sess := range sessions {
		for _, pkg := range round2Packages {
			if pkg.ToIndex != sess.cfg.MyIndex {
				continue
			}
			require.NoError(t, sess.IngestRound2(pkg))
		}
	}

	out := make([]*KeyPackage, n)
	for i := uint32(1); i <= n; i++ {
		kp, err := sessions[party.Index(i)].Finalize()
		require.NoError(t, err)
		out[i-1] = kp
	}
	return out
}

func TestRefreshPreservesGroupKeyAndInvalidatesOldShares(t *testing.T) {
	n, threshold := uint32(3), uint32(2)

	sessionID, err := NewSessionID()
	require.NoError(t, err)
	secrets := make([]*curve.Scalar, n)
	pubkeys := make([]*curve.Point, n)
	for i := range secrets {
		sk, err := curve.RandomScalarNonzero()
		require.NoError(t, err)
		secrets[i] = sk
		pubkeys[i] = sk.ActOnBase()
	}
	sorted, indices, err := party.AssignIndices(pubkeys)
	require.NoError(t, err)
	sortedSecrets := make([]*curve.Scalar, n)
	for i, sk := range secrets {
		idx := indices[pubkeys[i].Hex()]
		sortedSecrets[idx-1] = sk
	}

	sessions := make(map[party.Index]*Session, n)
	for i := uint32(1); i <= n; i++ {
		sess, err := CreateSession(Config{
			SessionID:    sessionID,
			Threshold:    threshold,
			Participants: sorted,
			MyIndex:      party.Index(i),
			MySecretKey:  sortedSecrets[i-1],
		})
		require.NoError(t, err)
		sessions[party.Index(i)] = sess
	}
	round1 := make([]*Round1Package, 0, n)
	for i := uint32(1); i <= n; i++ {
		pkg, err := sessions[party.Index(i)].Round1()
		require.NoError(t, err)
		round1 = append(round1, pkg)
	}
	for _, sess := range sessions {
		for _, pkg := range round1 {
			if pkg.Index == sess.MyIndex() {
				continue
			}
			require.NoError(t, sess.IngestRound1(pkg))
		}
	}
	round2 := make([]*Round2Package, 0, n*(n-1))
	for i := uint32(1); i <= n; i++ {
		pkgs, err := sessions[party.Index(i)].Round2()
		require.NoError(t, err)
		round2 = append(round2, pkgs...)
	}
	for _, sess := range sessions {
		for _, pkg := range round2 {
			if pkg.ToIndex != sess.MyIndex() {
				continue
			}
			require.NoError(t, sess.IngestRound2(pkg))
		}
	}
	originals := make([]*KeyPackage, n)
	for i := uint32(1); i <= n; i++ {
		kp, err := sessions[party.Index(i)].Finalize()
		require.NoError(t, err)
		originals[i-1] = kp
	}

	refreshSessionID, err := NewSessionID()
	require.NoError(t, err)
	refreshed := runRefresh(t, refreshSessionID, threshold, n, sorted, sortedSecrets, originals)

	require.True(t, originals[0].GroupPublicKey.Equal(refreshed[0].GroupPublicKey))
	for i := range refreshed {
		require.True(t, refreshed[0].GroupPublicKey.Equal(refreshed[i].GroupPublicKey))
		require.False(t, originals[i].MyShare.Equal(refreshed[i].MyShare))
	}

	// Mixing one original share with refreshed shares must not reconstruct
	// a secret consistent with the group key.
	domain := []uint32{1, 2}
	mixed := curve.NewScalar()
	lambda1 := lagrangeAt2(domain, 1)
	lambda2 := lagrangeAt2(domain, 2)
	mixed = mixed.Add(lambda1.Mul(originals[0].MyShare))
	mixed = mixed.Add(lambda2.Mul(refreshed[1].MyShare))
	require.False(t, mixed.ActOnBase().Equal(refreshed[0].GroupPublicKey))
}

func lagrangeAt2(domain []uint32, j uint32) *curve.Scalar {
	numerator := curve.ScalarFromUint32(1)
	for _, idx := range domain {
		numerator = numerator.Mul(curve.ScalarFromUint32(idx))
	}
	denominator := curve.ScalarFromUint32(1)
	for _, idx := range domain {
		xi := curve.ScalarFromUint32(idx)
		xj := curve.ScalarFromUint32(j)
		if idx == j {
			denominator = denominator.Mul(xj)
			continue
		}
		denominator = denominator.Mul(xi.Sub(xj))
	}
	return numerator.Mul(denominator.Invert())
}
