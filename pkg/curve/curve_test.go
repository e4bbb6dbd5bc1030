package curve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	s, err := RandomScalarNonzero()
	require.NoError(t, err)
	require.False(t, s.IsZero())

	decoded, err := ScalarFromBytes(s.Bytes())
	require.NoError(t, err)
	require.True(t, s.Equal(decoded))
}

func TestScalarFromBytesRejectsZero(t *testing.T) {
	_, err := ScalarFromBytes(make([]byte, 32))
	require.Error(t, err)
}

func TestScalarArithmetic(t *testing.T) {
	a := ScalarFromUint32(3)
	b := ScalarFromUint32(4)
	require.True(t, a.Add(b).Equal(ScalarFromUint32(7)))
	require.True(t, a.Mul(b).Equal(ScalarFromUint32(12)))
	require.True(t, a.Sub(a).IsZero())

	inv := a.Invert()
	require.True(t, a.Mul(inv).Equal(ScalarFromUint32(1)))
}

func TestPointRoundTrip(t *testing.T) {
	s := ScalarFromUint32(42)
	p := s.ActOnBase()

	decoded, err := PointFromBytes(p.Bytes())
	require.NoError(t, err)
	require.True(t, p.Equal(decoded))
}

func TestPointArithmeticMatchesScalarArithmetic(t *testing.T) {
	a := ScalarFromUint32(5)
	b := ScalarFromUint32(9)

	lhs := a.Add(b).ActOnBase()
	rhs := a.ActOnBase().Add(b.ActOnBase())
	require.True(t, lhs.Equal(rhs))
}

func TestPointFromBytesRejectsBadLength(t *testing.T) {
	_, err := PointFromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestIdentityPoint(t *testing.T) {
	id := NewIdentityPoint()
	require.True(t, id.IsIdentity())

	g := BasePoint()
	require.False(t, g.IsIdentity())
	require.True(t, g.Sub(g).IsIdentity())
}

func TestHTagDeterministicAndDomainSeparated(t *testing.T) {
	a := HTag("rho", []byte("hello"))
	b := HTag("rho", []byte("hello"))
	require.True(t, a.Equal(b))

	c := HTag("chal", []byte("hello"))
	require.False(t, a.Equal(c))
}
