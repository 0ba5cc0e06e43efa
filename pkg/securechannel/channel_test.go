package securechannel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/securechannel"
)

func newPair(t *testing.T) (aPK *latticekey.PublicKey, aSK *latticekey.SecretKey, bPK *latticekey.PublicKey, bSK *latticekey.SecretKey) {
	t.Helper()
	var seed [32]byte
	seed[0] = 7
	var err error
	aPK, aSK, err = latticekey.Generate(&seed)
	require.NoError(t, err)
	bPK, bSK, err = latticekey.Generate(&seed)
	require.NoError(t, err)
	return
}

func TestHandshakeEstablishesSharedKey(t *testing.T) {
	aPK, aSK, bPK, bSK := newPair(t)

	initCh, hs, err := securechannel.SetupAsInitiator(bPK, aSK, 1_000)
	require.NoError(t, err)
	require.Equal(t, securechannel.KemSent, initCh.State())

	respCh, err := securechannel.Accept(hs, bSK, aPK, 1_010)
	require.NoError(t, err)
	require.Equal(t, securechannel.Established, respCh.State())

	plaintext := []byte("REQ_COMMITMENT")
	sealed, err := respCh.Seal(plaintext)
	require.NoError(t, err)

	initCh.MarkEstablished()
	opened, err := initCh.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestAcceptRejectsStaleHandshake(t *testing.T) {
	aPK, aSK, bPK, bSK := newPair(t)

	_, hs, err := securechannel.SetupAsInitiator(bPK, aSK, 0)
	require.NoError(t, err)

	_, err = securechannel.Accept(hs, bSK, aPK, 61)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.HandshakeStale))
}

func TestAcceptRejectsUnrelatedSigningKey(t *testing.T) {
	aPK, aSK, bPK, bSK := newPair(t)
	_ = aPK

	var otherSeed [32]byte
	otherSeed[0] = 7
	unrelatedPK, _, err := latticekey.Generate(&otherSeed)
	require.NoError(t, err)

	_, hs, err := securechannel.SetupAsInitiator(bPK, aSK, 100)
	require.NoError(t, err)

	_, err = securechannel.Accept(hs, bSK, unrelatedPK, 110)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.HandshakeSig))
}
