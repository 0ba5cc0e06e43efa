package thresholdsig

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/party"
	"github.com/luxfi/qsp/pkg/ring"
)

func makeGroup(t *testing.T, n, threshold int) (rho [ringparams.SeedSize]byte, cfgs map[party.ID]*Config, groupPub *latticekey.PublicKey) {
	_, err := io.ReadFull(rand.Reader, rho[:])
	require.NoError(t, err)

	ids := make(party.IDSlice, n)
	pubs := make(map[party.ID]*latticekey.PublicKey, n)
	cfgs = make(map[party.ID]*Config, n)

	for i := 0; i < n; i++ {
		id := party.ID(rune('A' + i))
		ids[i] = id

		pk, sk, err := latticekey.Generate(&rho)
		require.NoError(t, err)
		pubs[id] = pk

		cfgs[id] = &Config{
			ID:        id,
			Rho:       rho,
			Threshold: threshold,
			PartyIDs:  ids,
			SecretKey: sk,
			PublicKey: pk,
		}
	}
	for _, cfg := range cfgs {
		cfg.PartyIDs = ids
	}

	groupPub, err = GroupPublicKey(rho, pubs)
	require.NoError(t, err)
	return rho, cfgs, groupPub
}

func TestThresholdSignVerify(t *testing.T) {
	rho, cfgs, groupPub := makeGroup(t, 3, 2)

	ids := make(party.IDSlice, 0, len(cfgs))
	for id := range cfgs {
		ids = append(ids, id)
	}
	signers := ids.Sorted()[:2]

	msg := []byte("recover asset batch 7")
	sig, err := RunInProcess(rho, cfgs, signers, msg, 1_700_000_000)
	require.NoError(t, err)

	require.NoError(t, Verify(rho, groupPub, msg, sig, len(signers)))
}

func TestThresholdVerifyRejectsWrongW(t *testing.T) {
	rho, cfgs, groupPub := makeGroup(t, 3, 2)

	ids := make(party.IDSlice, 0, len(cfgs))
	for id := range cfgs {
		ids = append(ids, id)
	}
	signers := ids.Sorted()[:2]

	msg := []byte("recover asset batch 7")
	sig, err := RunInProcess(rho, cfgs, signers, msg, 1_700_000_000)
	require.NoError(t, err)

	tampered := *sig
	tampered.W = append(ring.Vector{}, sig.W...)
	tampered.W[0][0] = (tampered.W[0][0] + 1) % ringparams.Q

	err = Verify(rho, groupPub, msg, &tampered, len(signers))
	require.Error(t, err)
}
