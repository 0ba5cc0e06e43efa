// Package thresholdsig implements Component E: the three-phase (commit,
// challenge, respond) threshold signature described in §4.E. It is
// transport-agnostic — protocols/thresholdsig only computes the math of
// each phase; pkg/session drives it over the secure channel and owns the
// phase-timeout and barrier-synchronization policy of §5.
package thresholdsig

import (
	"fmt"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/party"
	"github.com/luxfi/qsp/pkg/ring"
)

// Config is one party's view of a threshold-signing group: all parties
// share Rho (hence A = ExpandA(Rho)) but hold independent (s1_i, s2_i, t_i)
// — there is no Shamir-shared master secret, the group public key is the
// sum T = Sum(t_i) (§4.E).
type Config struct {
	ID        party.ID
	Rho       [ringparams.SeedSize]byte
	Threshold int
	PartyIDs  party.IDSlice
	SecretKey *latticekey.SecretKey
	PublicKey *latticekey.PublicKey
}

// Validate checks that a Config is well-formed for running a session.
func (c *Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("thresholdsig: missing party ID")
	}
	if c.Threshold < 1 || c.Threshold > len(c.PartyIDs) {
		return fmt.Errorf("thresholdsig: invalid threshold %d for %d parties", c.Threshold, len(c.PartyIDs))
	}
	if c.SecretKey == nil || c.PublicKey == nil {
		return fmt.Errorf("thresholdsig: missing key material")
	}
	if c.SecretKey.Rho != c.Rho || c.PublicKey.Rho != c.Rho {
		return fmt.Errorf("thresholdsig: key seed does not match group seed")
	}
	return nil
}

// GroupPublicKey sums the per-party public keys into T = Sum(t_i), failing
// if any key uses a different rho (they would then expand to a different A).
func GroupPublicKey(rho [ringparams.SeedSize]byte, pubs map[party.ID]*latticekey.PublicKey) (*latticekey.PublicKey, error) {
	t := ring.Vector(make([]ring.Poly, ringparams.K))
	for id, pk := range pubs {
		if pk.Rho != rho {
			return nil, fmt.Errorf("thresholdsig: party %s uses a mismatched seed", id)
		}
		t = ring.AddVec(t, pk.T)
	}
	return &latticekey.PublicKey{Rho: rho, T: t}, nil
}

// matrixFor expands A for the group's shared seed.
func matrixFor(rho [ringparams.SeedSize]byte) ring.Matrix {
	return ring.ExpandA(rho, ringparams.K, ringparams.L)
}

// ychallengeBound is the phase-1 commitment sampling bound gamma1 >> 3,
// identical to the single-party signer's (§4.D, §4.E).
const ychallengeBound = ringparams.Gamma1 >> 3
