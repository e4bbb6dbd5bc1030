package dkg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coracle-social/kgroups/pkg/curve"
	"github.com/coracle-social/kgroups/pkg/party"
	"github.com/coracle-social/kgroups/pkg/polynomial"
)

// runDKG drives a full t-of-n DKG to completion for every participant,
// returning their KeyPackages in index order: the honest-participants
// happy path.
func runDKG(t *testing.T, threshold, n uint32) []*KeyPackage {
	t.Helper()

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
		cfg := Config{
			SessionID:    sessionID,
			Threshold:    threshold,
			Participants: sorted,
			MyIndex:      party.Index(i),
			MySecretKey:  sortedSecrets[i-1],
		}
		sess, err := CreateSession(cfg)
		require.NoError(t, err)
		sessions[party.Index(i)] = sess
	}

	round1Packages := make([]*Round1Package, 0, n)
	for i := uint32(1); i <= n; i++ {
		pkg, err := sessions[party.Index(i)].Round1()
		require.NoError(t, err)
		round1Packages = append(round1Packages, pkg)
	}
	for _, sess := range sessions {
		for _, pkg := range round1Packages {
			if pkg.Index == sess.MyIndex() {
				continue
			}
			require.NoError(t, sess.IngestRound1(pkg))
		}
		require.Equal(t, StateRound1Complete, sess.State())
	}

	round2Packages := make([]*Round2Package, 0, n*(n-1))
	for i := uint32(1); i <= n; i++ {
		pkgs, err := sessions[party.Index(i)].Round2()
		require.NoError(t, err)
		round2Packages = append(round2Packages, pkgs...)
	}
	for _, sess := range sessions {
		for _, pkg := range round2Packages {
			if pkg.ToIndex != sess.MyIndex() {
				continue
			}
			require.NoError(t, sess.IngestRound2(pkg))
		}
		require.Equal(t, StateRound2Complete, sess.State())
	}

	keyPackages := make([]*KeyPackage, n)
	for i := uint32(1); i <= n; i++ {
		kp, err := sessions[party.Index(i)].Finalize()
		require.NoError(t, err)
		keyPackages[i-1] = kp
	}
	return keyPackages
}

func TestDKGProducesConsistentGroupKey(t *testing.T) {
	kps := runDKG(t, 2, 3)
	for _, kp := range kps[1:] {
		require.True(t, kps[0].GroupPublicKey.Equal(kp.GroupPublicKey))
		require.Equal(t, kps[0].ChainKey, kp.ChainKey)
	}
}

func TestDKGSharesReconstructGroupKey(t *testing.T) {
	kps := runDKG(t, 3, 5)

	domain := []uint32{1, 2, 3}
	lambdas := polynomial.LagrangeCoefficients(domain, domain)

	secret := curve.NewScalar()
	for _, idx := range domain {
		secret = secret.Add(lambdas[idx].Mul(kps[idx-1].MyShare))
	}
	require.True(t, secret.ActOnBase().Equal(kps[0].GroupPublicKey))

	// A different quorum of the same size reconstructs the same secret.
	domain2 := []uint32{2, 4, 5}
	lambdas2 := polynomial.LagrangeCoefficients(domain2, domain2)
	secret2 := curve.NewScalar()
	for _, idx := range domain2 {
		secret2 = secret2.Add(lambdas2[idx].Mul(kps[idx-1].MyShare))
	}
	require.True(t, secret.Equal(secret2))
}

func TestDKGRound2TamperingIsDetected(t *testing.T) {
	sessionID, err := NewSessionID()
	require.NoError(t, err)

	n, threshold := uint32(3), uint32(2)
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
	for i := uint32(1); i <= n; i++ {
		pkg, err := sessions[party.Index(i)].Round1()
		require.NoError(t, err)
		for j := uint32(1); j <= n; j++ {
			if j == i {
				continue
			}
			require.NoError(t, sessions[party.Index(j)].IngestRound1(pkg))
		}
	}

	victim := sessions[party.Index(1)]
	attacker := sessions[party.Index(2)]
	pkgs, err := attacker.Round2()
	require.NoError(t, err)

	for _, pkg := range pkgs {
		if pkg.ToIndex != 1 {
			continue
		}
		pkg.SealedShare.Ciphertext[0] ^= 0x01
		err := victim.IngestRound2(pkg)
		require.Error(t, err)
		require.Equal(t, StateFailed, victim.State())
	}
}

// A chain-key reveal that doesn't hash to the round-1 commitment is
// blamed on the sender.
func TestDKGChainKeyRevealMismatchIsDetected(t *testing.T) {
	sessionID, err := NewSessionID()
	require.NoError(t, err)

	n, threshold := uint32(3), uint32(2)
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
	for i := uint32(1); i <= n; i++ {
		pkg, err := sessions[party.Index(i)].Round1()
		require.NoError(t, err)
		for j := uint32(1); j <= n; j++ {
			if j == i {
				continue
			}
			require.NoError(t, sessions[party.Index(j)].IngestRound1(pkg))
		}
	}

	victim := sessions[party.Index(1)]
	pkgs, err := sessions[party.Index(2)].Round2()
	require.NoError(t, err)
	for _, pkg := range pkgs {
		if pkg.ToIndex != 1 {
			continue
		}
		pkg.ChainKeyPart[0] ^= 0x01
		err := victim.IngestRound2(pkg)
		require.Error(t, err)
		require.Contains(t, err.Error(), "chainkey-mismatch")
		require.Equal(t, StateFailed, victim.State())
	}
}
