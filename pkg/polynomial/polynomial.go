// Package polynomial implements secret-sharing polynomials and their
// point-valued (VSS commitment) counterparts.
package polynomial

import (
	"fmt"

	"github.com/coracle-social/kgroups/pkg/curve"
)

// Polynomial represents f(X) = a_0 + a_1*X + ... + a_t*X^t over the scalar
// field, where t is the threshold-1 (degree). a_0 is the secret contribution
// of whoever sampled it.
type Polynomial struct {
	coefficients []*curve.Scalar
}

// NewPolynomial samples a degree-`degree` polynomial with the given constant
// term. If constant is nil, the constant term is 0 (used for refresh
// polynomials, whose g(0) must be 0).
func NewPolynomial(degree int, constant *curve.Scalar) (*Polynomial, error) {
	if degree < 0 {
		return nil, fmt.Errorf("polynomial: negative degree %d", degree)
	}
	coeffs := make([]*curve.Scalar, degree+1)
	if constant == nil {
		coeffs[0] = curve.NewScalar()
	} else {
		coeffs[0] = constant
	}
	for i := 1; i <= degree; i++ {
		c, err := curve.RandomScalarNonzero()
		if err != nil {
			return nil, fmt.Errorf("polynomial: sample coefficient %d: %w", i, err)
		}
		coeffs[i] = c
	}
	return &Polynomial{coefficients: coeffs}, nil
}

// Evaluate evaluates the polynomial at x using Horner's method. x must be
// nonzero: evaluating at 0 would hand back the secret constant term
// directly.
func (p *Polynomial) Evaluate(x *curve.Scalar) *curve.Scalar {
	if x.IsZero() {
		panic("polynomial: attempt to leak secret by evaluating at 0")
	}
	result := curve.NewScalar()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		result = result.MulAdd(x, p.coefficients[i])
	}
	return result
}

// Constant returns the constant term a_0 (the secret contribution).
func (p *Polynomial) Constant() *curve.Scalar {
	return p.coefficients[0]
}

// Degree returns the polynomial's degree.
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// Commitments returns the VSS commitment vector Phi = <a_0*G, ..., a_t*G>,
// i.e. the point-valued counterpart of this polynomial.
func (p *Polynomial) Commitments() []*curve.Point {
	out := make([]*curve.Point, len(p.coefficients))
	for i, c := range p.coefficients {
		out[i] = c.ActOnBase()
	}
	return out
}

// EvaluateCommitments evaluates a VSS commitment vector at x, returning
// f(x)*G without knowledge of f's coefficients. This is how a recipient
// checks a received share against the sender's public commitments:
// f_i(j)*G == sum_k A_{i,k} * j^k.
func EvaluateCommitments(commitments []*curve.Point, x *curve.Scalar) *curve.Point {
	result := curve.NewIdentityPoint()
	xPow := curve.ScalarFromUint32(1)
	for _, A := range commitments {
		result = result.Add(xPow.Act(A))
		xPow = xPow.Mul(x)
	}
	return result
}

// SumCommitmentVectors aggregates coefficient-wise commitment vectors
// from multiple participants into the public polynomial of the group.
// All vectors must have the same length.
func SumCommitmentVectors(vectors [][]*curve.Point) ([]*curve.Point, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("polynomial: no commitment vectors to sum")
	}
	degree := len(vectors[0])
	sum := make([]*curve.Point, degree)
	for i := range sum {
		sum[i] = curve.NewIdentityPoint()
	}
	for _, v := range vectors {
		if len(v) != degree {
			return nil, fmt.Errorf("polynomial: commitment vector length mismatch: %d != %d", len(v), degree)
		}
		for i, p := range v {
			sum[i] = sum[i].Add(p)
		}
	}
	return sum, nil
}
