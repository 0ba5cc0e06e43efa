package session_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/session"
	"github.com/luxfi/qsp/pkg/wire"
)

func TestMatchHelloFindsRegisteredOwner(t *testing.T) {
	var rho [32]byte
	rho[0] = 3

	alicePK, _, err := latticekey.Generate(&rho)
	require.NoError(t, err)
	bobPK, _, err := latticekey.Generate(&rho)
	require.NoError(t, err)

	manifest := &wire.Manifest{
		Version: wire.ManifestVersion, Threshold: 1, TotalShares: 2,
		Registry: []wire.RegistryEntry{
			{OwnerAlias: "alice", OwnerPublicT: encodeVec(alicePK)},
			{OwnerAlias: "bob", OwnerPublicT: encodeVec(bobPK)},
		},
	}

	id, index, ok := session.MatchHello(manifest, bobPK)
	require.True(t, ok)
	require.Equal(t, "bob", string(id))
	require.Equal(t, 1, index) // sorted order: alice=0, bob=1
}

func TestMatchHelloRejectsUnknownKey(t *testing.T) {
	var rho [32]byte
	rho[0] = 3

	alicePK, _, err := latticekey.Generate(&rho)
	require.NoError(t, err)
	strangerPK, _, err := latticekey.Generate(&rho)
	require.NoError(t, err)

	manifest := &wire.Manifest{
		Registry: []wire.RegistryEntry{
			{OwnerAlias: "alice", OwnerPublicT: encodeVec(alicePK)},
		},
	}

	_, _, ok := session.MatchHello(manifest, strangerPK)
	require.False(t, ok)
}

func TestMatchHelloRejectsDuplicateAlias(t *testing.T) {
	var rho [32]byte
	rho[0] = 3

	alicePK, _, err := latticekey.Generate(&rho)
	require.NoError(t, err)

	manifest := &wire.Manifest{
		Registry: []wire.RegistryEntry{
			{OwnerAlias: "alice", OwnerPublicT: encodeVec(alicePK)},
			{OwnerAlias: "alice", OwnerPublicT: encodeVec(alicePK)},
		},
	}

	_, _, ok := session.MatchHello(manifest, alicePK)
	require.False(t, ok)
}

func encodeVec(pk *latticekey.PublicKey) [][]int64 {
	out := make([][]int64, len(pk.T))
	for i, p := range pk.T {
		out[i] = p.Encode()
	}
	return out
}
