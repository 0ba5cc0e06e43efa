package wire_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/wire"
)

func TestHelloEnvelopeNestsPublicKeyAsLiteralJSON(t *testing.T) {
	var rho [32]byte
	rho[0] = 5
	pk, _, err := latticekey.Generate(&rho)
	require.NoError(t, err)

	env, err := wire.NewHelloEnvelope(pk)
	require.NoError(t, err)
	data, err := wire.MarshalEnvelope(env)
	require.NoError(t, err)

	// The public key's own JSON field ("rho") must appear literally in the
	// outer envelope's bytes, not hidden behind a base64 string.
	require.True(t, strings.Contains(string(data), `"rho":"`))

	got, err := wire.UnmarshalEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, wire.TypeHello, got.Type)

	decoded, err := wire.DecodeHelloPayload(got)
	require.NoError(t, err)
	require.True(t, pk.Equal(decoded))
}

func TestBinaryEnvelopeRoundTrip(t *testing.T) {
	body := []byte{0x01, 0x02, 0x03, 0xff}
	env, err := wire.NewBinaryEnvelope(wire.TypeSecure, body)
	require.NoError(t, err)

	data, err := wire.MarshalEnvelope(env)
	require.NoError(t, err)

	got, err := wire.UnmarshalEnvelope(data)
	require.NoError(t, err)
	require.Equal(t, wire.TypeSecure, got.Type)

	decoded, err := wire.DecodeBinaryPayload(got)
	require.NoError(t, err)
	require.Equal(t, body, decoded)
}
