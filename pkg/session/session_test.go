package session_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/pkg/crt"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/party"
	"github.com/luxfi/qsp/pkg/session"
	"github.com/luxfi/qsp/pkg/wire"
	"github.com/luxfi/qsp/protocols/thresholdsig"
)

func checkerboard() crt.Image {
	pixels := make([]uint16, 4*4*3)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			var v uint16
			if (x+y)%2 == 0 {
				v = 255
			}
			base := (y*4 + x) * 3
			pixels[base], pixels[base+1], pixels[base+2] = v, v, v
		}
	}
	return crt.Image{Width: 4, Height: 4, Pixels: pixels}
}

func TestRunRecoverySucceedsWithThresholdParticipants(t *testing.T) {
	var rho [32]byte
	rho[0] = 9

	ids := party.IDSlice{"alice", "bob", "carol"}
	threshold := 2

	cfgs := make(map[party.ID]*thresholdsig.Config, len(ids))
	pubs := make(map[party.ID]*latticekey.PublicKey, len(ids))
	for _, id := range ids {
		pk, sk, err := latticekey.Generate(&rho)
		require.NoError(t, err)
		cfgs[id] = &thresholdsig.Config{
			ID: id, Rho: rho, Threshold: threshold, PartyIDs: ids,
			SecretKey: sk, PublicKey: pk,
		}
		pubs[id] = pk
	}
	groupPub, err := thresholdsig.GroupPublicKey(rho, pubs)
	require.NoError(t, err)

	img := checkerboard()
	moduli := []int64{257, 263, 269}
	shares, err := crt.Split(img, 3, threshold, moduli)
	require.NoError(t, err)

	registry := make([]wire.RegistryEntry, len(ids))
	for i, id := range ids {
		registry[i] = wire.RegistryEntry{
			ShareIndex: i, Modulus: moduli[i],
			FilePath: string(id) + "/secure_share.dat", ShareFingerprint: sha256Hex(t, shares[i]),
			OwnerAlias: string(id),
		}
	}
	manifest := &wire.Manifest{
		Version: wire.ManifestVersion, Threshold: threshold, TotalShares: 3,
		PublicSeed: hex.EncodeToString(rho[:]), Registry: registry,
	}
	require.NoError(t, manifest.Validate())

	fileHash, err := session.FileHash(manifest)
	require.NoError(t, err)

	host := session.NewHost(session.HostConfig{
		Manifest: manifest, GroupPubKey: groupPub, Threshold: threshold,
	})

	// Invite exactly threshold participants: no spares, so every invited
	// peer is contacted and must succeed.
	active := ids[:threshold]
	var participants []session.ParticipantInfo
	errCh := make(chan error, len(active))
	for i, id := range active {
		hostSide, peerSide := newPipe()
		participants = append(participants, session.ParticipantInfo{ID: id, Conn: hostSide, PubKey: pubs[id]})

		id, i := id, i
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			errCh <- session.JoinRecoverySession(ctx, peerSide, cfgs[id], session.LocalShare{Share: shares[i]}, nil)
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	got, err := host.RunRecovery(ctx, fileHash, participants)
	require.NoError(t, err)
	require.Equal(t, img.Pixels, got.Pixels)
	require.Equal(t, session.Finished, host.Phase())

	for range active {
		require.NoError(t, <-errCh)
	}
}

// TestRunRecoveryRetriesWithSpareAfterDecline invites one extra participant
// beyond the threshold. The second active participant declines every
// request, so the Host must substitute the spare and restart phase 1
// rather than aborting the whole recovery (§4.J line 193).
func TestRunRecoveryRetriesWithSpareAfterDecline(t *testing.T) {
	var rho [32]byte
	rho[0] = 11

	ids := party.IDSlice{"alice", "bob", "carol"}
	threshold := 2

	cfgs := make(map[party.ID]*thresholdsig.Config, len(ids))
	pubs := make(map[party.ID]*latticekey.PublicKey, len(ids))
	for _, id := range ids {
		pk, sk, err := latticekey.Generate(&rho)
		require.NoError(t, err)
		cfgs[id] = &thresholdsig.Config{
			ID: id, Rho: rho, Threshold: threshold, PartyIDs: ids,
			SecretKey: sk, PublicKey: pk,
		}
		pubs[id] = pk
	}
	groupPub, err := thresholdsig.GroupPublicKey(rho, pubs)
	require.NoError(t, err)

	img := checkerboard()
	moduli := []int64{257, 263, 269}
	shares, err := crt.Split(img, 3, threshold, moduli)
	require.NoError(t, err)

	registry := make([]wire.RegistryEntry, len(ids))
	for i, id := range ids {
		registry[i] = wire.RegistryEntry{
			ShareIndex: i, Modulus: moduli[i],
			FilePath: string(id) + "/secure_share.dat", ShareFingerprint: sha256Hex(t, shares[i]),
			OwnerAlias: string(id),
		}
	}
	manifest := &wire.Manifest{
		Version: wire.ManifestVersion, Threshold: threshold, TotalShares: 3,
		PublicSeed: hex.EncodeToString(rho[:]), Registry: registry,
	}
	require.NoError(t, manifest.Validate())

	fileHash, err := session.FileHash(manifest)
	require.NoError(t, err)

	host := session.NewHost(session.HostConfig{
		Manifest: manifest, GroupPubKey: groupPub, Threshold: threshold,
	})

	// alice and bob are invited as the active pair; carol is the spare.
	// bob declines every challenge it is asked to sign.
	declineAll := func([]byte) bool { return false }
	approvers := map[party.ID]session.Approver{"alice": nil, "bob": declineAll, "carol": nil}

	type result struct {
		id  party.ID
		err error
	}
	var participants []session.ParticipantInfo
	resultCh := make(chan result, len(ids))
	for i, id := range ids {
		hostSide, peerSide := newPipe()
		participants = append(participants, session.ParticipantInfo{ID: id, Conn: hostSide, PubKey: pubs[id]})

		id, i := id, i
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := session.JoinRecoverySession(ctx, peerSide, cfgs[id], session.LocalShare{Share: shares[i]}, approvers[id])
			resultCh <- result{id: id, err: err}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	got, err := host.RunRecovery(ctx, fileHash, participants)
	require.NoError(t, err)
	require.Equal(t, img.Pixels, got.Pixels)
	require.Equal(t, session.Finished, host.Phase())

	for range ids {
		r := <-resultCh
		if r.id == "bob" {
			require.Error(t, r.err) // bob: declined, never recontacted, eventually times out
		} else {
			require.NoError(t, r.err)
		}
	}
}

func sha256Hex(t *testing.T, s crt.Share) string {
	t.Helper()
	raw, err := wire.EncodeShare(s)
	require.NoError(t, err)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
