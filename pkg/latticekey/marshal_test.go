package latticekey_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/latticekey"
)

func TestSecretKeyJSONRoundTrip(t *testing.T) {
	var rho [32]byte
	rho[0] = 7

	_, sk, err := latticekey.Generate(&rho)
	require.NoError(t, err)

	data, err := json.Marshal(sk)
	require.NoError(t, err)

	var raw struct {
		S1 [][]int64 `json:"s1"`
		S2 [][]int64 `json:"s2"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, row := range append(raw.S1, raw.S2...) {
		for _, c := range row {
			require.GreaterOrEqual(t, c, int64(-ringparams.Eta))
			require.LessOrEqual(t, c, int64(ringparams.Eta))
		}
	}

	var got latticekey.SecretKey
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, sk.Rho, got.Rho)
	require.Equal(t, sk.S1, got.S1)
	require.Equal(t, sk.S2, got.S2)
}

func TestSecretKeyJSONRejectsOutOfBoundCoefficient(t *testing.T) {
	var rho [32]byte
	rho[0] = 7
	_, sk, err := latticekey.Generate(&rho)
	require.NoError(t, err)

	data, err := json.Marshal(sk)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	s1 := raw["s1"].([]interface{})
	row := s1[0].([]interface{})
	row[0] = float64(ringparams.Eta + 1)
	s1[0] = row
	raw["s1"] = s1

	tampered, err := json.Marshal(raw)
	require.NoError(t, err)

	var out latticekey.SecretKey
	require.Error(t, json.Unmarshal(tampered, &out))
}

func TestPublicKeyJSONRoundTrip(t *testing.T) {
	var rho [32]byte
	rho[0] = 7

	pk, _, err := latticekey.Generate(&rho)
	require.NoError(t, err)

	data, err := json.Marshal(pk)
	require.NoError(t, err)

	var got latticekey.PublicKey
	require.NoError(t, json.Unmarshal(data, &got))
	require.True(t, pk.Equal(&got))
}
