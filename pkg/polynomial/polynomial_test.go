package polynomial

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coracle-social/kgroups/pkg/curve"
)

func TestEvaluateMatchesCommitments(t *testing.T) {
	secret, err := curve.RandomScalarNonzero()
	require.NoError(t, err)

	p, err := NewPolynomial(2, secret)
	require.NoError(t, err)
	require.True(t, p.Constant().Equal(secret))

	commitments := p.Commitments()
	for _, x := range []uint32{1, 2, 3, 7} {
		xs := curve.ScalarFromUint32(x)
		fx := p.Evaluate(xs)
		require.True(t, fx.ActOnBase().Equal(EvaluateCommitments(commitments, xs)))
	}
}

func TestLagrangeReconstructsSecret(t *testing.T) {
	secret, err := curve.RandomScalarNonzero()
	require.NoError(t, err)

	threshold := 3
	p, err := NewPolynomial(threshold-1, secret)
	require.NoError(t, err)

	domain := []uint32{2, 5, 9}
	lambdas := LagrangeCoefficients(domain, domain)

	reconstructed := curve.NewScalar()
	for _, idx := range domain {
		share := p.Evaluate(curve.ScalarFromUint32(idx))
		reconstructed = reconstructed.Add(lambdas[idx].Mul(share))
	}
	require.True(t, reconstructed.Equal(secret))
}

func TestSumCommitmentVectors(t *testing.T) {
	a, err := NewPolynomial(1, curve.ScalarFromUint32(5))
	require.NoError(t, err)
	b, err := NewPolynomial(1, curve.ScalarFromUint32(7))
	require.NoError(t, err)

	sum, err := SumCommitmentVectors([][]*curve.Point{a.Commitments(), b.Commitments()})
	require.NoError(t, err)
	require.True(t, sum[0].Equal(curve.ScalarFromUint32(12).ActOnBase()))
}
