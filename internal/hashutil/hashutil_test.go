package hashutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContentHash_Deterministic(t *testing.T) {
	a := ContentHash([]byte("hello"))
	b := ContentHash([]byte("hello"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, ContentHash([]byte("world")))
}

func TestHash_HexRoundTrip(t *testing.T) {
	h := ContentHash([]byte("round-trip"))
	parsed, err := ParseHex(h.Hex())
	require.NoError(t, err)
	require.Equal(t, h, parsed)
}

func TestDot_OrthogonalVectorsAreZero(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	require.InDelta(t, 0, Dot(a, b), 1e-6)
}

func TestDot_IdenticalUnitVectorIsOne(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	require.InDelta(t, 1, Dot(a, a), 1e-6)
}

func TestMagnitude(t *testing.T) {
	v := []float32{3, 4}
	require.InDelta(t, 5, Magnitude(v), 1e-6)
}

func TestMagnitude_EmptyVectorIsZero(t *testing.T) {
	require.Equal(t, float64(0), Magnitude(nil))
}

func TestNormalize_ProducesUnitVector(t *testing.T) {
	v := []float32{3, 4}
	n := Normalize(v)
	require.InDelta(t, 1.0, Magnitude(n), 1e-6)
	require.True(t, IsNormalized(n, 1e-5))
}

func TestNormalize_ZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	n := Normalize(v)
	require.Equal(t, v, n)
}

func TestCosine_IdenticalVectorsIsOne(t *testing.T) {
	v := []float32{0.6, 0.8}
	require.InDelta(t, 1.0, Cosine(v, v), 1e-6)
}

func TestCosine_OppositeVectorsIsMinusOne(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	require.InDelta(t, -1.0, Cosine(a, b), 1e-6)
}

func TestCosine_MismatchedLengthIsZero(t *testing.T) {
	require.Equal(t, float64(0), Cosine([]float32{1}, []float32{1, 2}))
}

func TestCosine_ZeroMagnitudeIsZero(t *testing.T) {
	require.Equal(t, float64(0), Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestIsNormalized_ToleranceBoundary(t *testing.T) {
	v := []float32{float32(1.0 + 5e-5), 0}
	require.True(t, IsNormalized(v, 1e-4))
	require.False(t, IsNormalized(v, 1e-6))
}

func TestHasHardwareFloat_DoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() { _ = HasHardwareFloat() })
}

func TestMagnitude_MatchesManualSqrtSumSquares(t *testing.T) {
	v := []float32{1, 2, 3, 4}
	var want float64
	for _, x := range v {
		want += float64(x) * float64(x)
	}
	want = math.Sqrt(want)
	require.InDelta(t, want, Magnitude(v), 1e-6)
}
