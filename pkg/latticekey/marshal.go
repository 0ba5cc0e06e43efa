package latticekey

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/ring"
)

type publicKeyJSON struct {
	Rho string    `json:"rho"`
	T   [][]int64 `json:"t"`
}

type secretKeyJSON struct {
	Rho string    `json:"rho"`
	S1  [][]int64 `json:"s1"`
	S2  [][]int64 `json:"s2"`
}

// rawVectorToJSON encodes a vector's raw [0, q) mod-q representatives,
// used for the public t = A*s1 + s2 which has no small bound of its own.
func rawVectorToJSON(v ring.Vector) [][]int64 {
	out := make([][]int64, len(v))
	for i, p := range v {
		out[i] = p.Encode()
	}
	return out
}

func rawVectorFromJSON(rows [][]int64) (ring.Vector, error) {
	out := make(ring.Vector, len(rows))
	for i, row := range rows {
		p, ok := ring.Decode(row)
		if !ok {
			return nil, fmt.Errorf("latticekey: row %d: coefficient out of range or wrong length %d", i, len(row))
		}
		out[i] = p
	}
	return out, nil
}

// centeredVectorToJSON encodes a vector's coefficients centered into
// [-q/2, q/2), the §6 key-file representation for s1/s2: their coefficients
// are bounded by Eta and are unreadable junk left in raw [0, q) form.
func centeredVectorToJSON(v ring.Vector) [][]int64 {
	out := make([][]int64, len(v))
	for i, p := range v {
		out[i] = ring.Center(p).Encode()
	}
	return out
}

// centeredVectorFromJSON is the inverse of centeredVectorToJSON, validating
// that every coefficient falls within [-bound, bound] (I1) before folding it
// back into the [0, q) mod-q representation the rest of the ring package
// expects.
func centeredVectorFromJSON(rows [][]int64, bound int64) (ring.Vector, error) {
	out := make(ring.Vector, len(rows))
	for i, row := range rows {
		if len(row) != ringparams.N {
			return nil, fmt.Errorf("latticekey: row %d: wrong length %d", i, len(row))
		}
		var p ring.Poly
		for j, c := range row {
			if c < -bound || c > bound {
				return nil, fmt.Errorf("latticekey: row %d: coefficient %d out of centered bound [-%d, %d]", i, c, bound, bound)
			}
			if c < 0 {
				c += ringparams.Q
			}
			p[j] = c
		}
		out[i] = p
	}
	return out, nil
}

// MarshalJSON implements the public-key file format of §6:
// {rho: hex32, t: [[int; N]; k]}. t is left in raw [0, q) form: unlike
// s1/s2 it has no small bound to center into.
func (pk *PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(publicKeyJSON{
		Rho: hex.EncodeToString(pk.Rho[:]),
		T:   rawVectorToJSON(pk.T),
	})
}

// UnmarshalJSON implements the inverse of MarshalJSON.
func (pk *PublicKey) UnmarshalJSON(data []byte) error {
	var raw publicKeyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rho, err := hex.DecodeString(raw.Rho)
	if err != nil {
		return fmt.Errorf("latticekey: decode rho: %w", err)
	}
	if len(rho) != ringparams.SeedSize {
		return fmt.Errorf("latticekey: rho must be %d bytes, got %d", ringparams.SeedSize, len(rho))
	}
	copy(pk.Rho[:], rho)

	t, err := rawVectorFromJSON(raw.T)
	if err != nil {
		return err
	}
	if len(t) != ringparams.K {
		return fmt.Errorf("latticekey: t must have %d rows, got %d", ringparams.K, len(t))
	}
	pk.T = t
	return nil
}

// MarshalJSON implements the secret-key file format of §6:
// {rho: hex32, s1: [[int; N]; l], s2: [[int; N]; k]}. s1/s2 are centered
// into [-Eta, Eta] before encoding, per §6's key-file format — the raw
// [0, q) mod-q representative of a small secret coefficient is unreadable
// and would silently round-trip through a different-looking but
// equivalent residue on every re-save.
func (sk *SecretKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(secretKeyJSON{
		Rho: hex.EncodeToString(sk.Rho[:]),
		S1:  centeredVectorToJSON(sk.S1),
		S2:  centeredVectorToJSON(sk.S2),
	})
}

// UnmarshalJSON implements the inverse of MarshalJSON.
func (sk *SecretKey) UnmarshalJSON(data []byte) error {
	var raw secretKeyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rho, err := hex.DecodeString(raw.Rho)
	if err != nil {
		return fmt.Errorf("latticekey: decode rho: %w", err)
	}
	if len(rho) != ringparams.SeedSize {
		return fmt.Errorf("latticekey: rho must be %d bytes, got %d", ringparams.SeedSize, len(rho))
	}
	copy(sk.Rho[:], rho)

	s1, err := centeredVectorFromJSON(raw.S1, ringparams.Eta)
	if err != nil {
		return err
	}
	s2, err := centeredVectorFromJSON(raw.S2, ringparams.Eta)
	if err != nil {
		return err
	}
	if len(s1) != ringparams.L {
		return fmt.Errorf("latticekey: s1 must have %d rows, got %d", ringparams.L, len(s1))
	}
	if len(s2) != ringparams.K {
		return fmt.Errorf("latticekey: s2 must have %d rows, got %d", ringparams.K, len(s2))
	}
	sk.S1 = s1
	sk.S2 = s2
	return nil
}
