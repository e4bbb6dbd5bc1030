package polynomial

import (
	"github.com/coracle-social/kgroups/pkg/curve"
)

// LagrangeCoefficients returns the Lagrange coefficients at 0 for every
// index in subset, interpolating over interpolationDomain.
func LagrangeCoefficients(interpolationDomain []uint32, subset []uint32) map[uint32]*curve.Scalar {
	scalars := make(map[uint32]*curve.Scalar, len(interpolationDomain))
	numerator := curve.ScalarFromUint32(1)
	for _, idx := range interpolationDomain {
		xi := curve.ScalarFromUint32(idx)
		scalars[idx] = xi
		numerator = numerator.Mul(xi)
	}

	out := make(map[uint32]*curve.Scalar, len(subset))
	for _, j := range subset {
		out[j] = lagrangeAt(interpolationDomain, scalars, numerator, j)
	}
	return out
}

// LagrangeCoefficient is the single-index convenience form of
// LagrangeCoefficients, used when a signer only needs its own lambda_i.
func LagrangeCoefficient(interpolationDomain []uint32, j uint32) *curve.Scalar {
	return LagrangeCoefficients(interpolationDomain, []uint32{j})[j]
}

// lagrangeAt computes l_j(0) = (x_0 * ... * x_k) / (x_j * prod_{i != j} (x_i - x_j)).
func lagrangeAt(interpolationDomain []uint32, scalars map[uint32]*curve.Scalar, numerator *curve.Scalar, j uint32) *curve.Scalar {
	xJ := scalars[j]
	denominator := curve.ScalarFromUint32(1)
	for _, i := range interpolationDomain {
		xI := scalars[i]
		if i == j {
			denominator = denominator.Mul(xJ)
			continue
		}
		denominator = denominator.Mul(xI.Sub(xJ))
	}
	return numerator.Mul(denominator.Invert())
}
