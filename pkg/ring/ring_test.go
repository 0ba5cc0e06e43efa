package ring

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/internal/ringparams"
)

func TestMulRqDistributesOverAdd(t *testing.T) {
	var seed [ringparams.SeedSize]byte
	_, err := rand.Read(seed[:])
	require.NoError(t, err)

	a := SampleBoundedPoly(rand.Reader, ringparams.Eta)
	b := SampleBoundedPoly(rand.Reader, ringparams.Eta)
	c := SampleBoundedPoly(rand.Reader, ringparams.Eta)

	lhs := MulRq(a, Add(b, c))
	rhs := Add(MulRq(a, b), MulRq(a, c))
	require.Equal(t, lhs, rhs)
}

func TestDecomposeRecombines(t *testing.T) {
	const alpha = ringparams.Alpha
	for a := int64(0); a < ringparams.Q; a += 97 {
		hi, lo := Decompose(a, alpha)
		got := mod(hi*alpha + lo)
		require.Equal(t, mod(a), got, "a=%d", a)
		require.LessOrEqual(t, lo, alpha/2)
		require.Greater(t, lo, -alpha/2)
	}
}

func TestExpandADeterministic(t *testing.T) {
	var seed [ringparams.SeedSize]byte
	copy(seed[:], []byte("deterministic-seed-for-testing!"))

	a1 := ExpandA(seed, ringparams.K, ringparams.L)
	a2 := ExpandA(seed, ringparams.K, ringparams.L)
	require.Equal(t, a1, a2)

	var other [ringparams.SeedSize]byte
	copy(other[:], []byte("a-different-seed-for-testing!!!"))
	a3 := ExpandA(other, ringparams.K, ringparams.L)
	require.NotEqual(t, a1, a3)
}

func TestMatVecAndTranspose(t *testing.T) {
	var seed [ringparams.SeedSize]byte
	_, err := rand.Read(seed[:])
	require.NoError(t, err)

	a := ExpandA(seed, ringparams.K, ringparams.L)
	v := SampleBoundedVector(rand.Reader, ringparams.L, ringparams.Eta)

	out := a.MulVec(v)
	require.Len(t, out, ringparams.K)

	at := a.Transpose()
	require.Len(t, at, ringparams.L)
	require.Len(t, at[0], ringparams.K)
}
