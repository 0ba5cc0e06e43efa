package kemlattice

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/latticekey"
)

func TestEncapsDecapsRoundTrip(t *testing.T) {
	pk, sk, err := latticekey.Generate(nil)
	require.NoError(t, err)

	var key [ringparams.SessionKeySize]byte
	_, err = io.ReadFull(rand.Reader, key[:])
	require.NoError(t, err)

	ct, err := Encaps(pk, key)
	require.NoError(t, err)

	got, ok := Decaps(sk, ct)
	require.True(t, ok)
	require.Equal(t, key, got)
}

func TestEncapsDecapsManyTrials(t *testing.T) {
	pk, sk, err := latticekey.Generate(nil)
	require.NoError(t, err)

	for trial := 0; trial < 64; trial++ {
		var key [ringparams.SessionKeySize]byte
		_, err := io.ReadFull(rand.Reader, key[:])
		require.NoError(t, err)

		ct, err := Encaps(pk, key)
		require.NoError(t, err)

		got, ok := Decaps(sk, ct)
		require.True(t, ok)
		require.Equal(t, key, got, "trial %d", trial)
	}
}
