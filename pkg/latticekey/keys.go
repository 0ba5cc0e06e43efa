// Package latticekey defines the single lattice key type shared by the KEM
// (pkg/kemlattice), the single-party signer (pkg/signer), and the threshold
// signer (protocols/thresholdsig).
//
// The original system kept two incompatible "public key" shapes — one for
// KEM use (public_seed/s) and one for signing (rho/s1) — stitched together
// at runtime by an adapter. Design note 9 collapses that into one type: both
// roles agree on (rho, s1, s2), and expand_a (pkg/ring.ExpandA) is the only
// place A is ever derived from rho.
package latticekey

import (
	"crypto/rand"
	"io"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/ring"
)

// PublicKey is a 32-byte seed and the length-K vector t = A*s1 + s2 (I1).
type PublicKey struct {
	Rho [ringparams.SeedSize]byte
	T   ring.Vector
}

// SecretKey is (rho, s1, s2); s1 has length L, s2 has length K, and every
// coefficient lies in [-Eta, Eta] (I1). A SecretKey must never leave the
// host that minted it (§3 lifecycle).
type SecretKey struct {
	Rho [ringparams.SeedSize]byte
	S1  ring.Vector
	S2  ring.Vector
}

// A returns the expanded public matrix for this key pair's seed.
func (pk *PublicKey) A() ring.Matrix {
	return ring.ExpandA(pk.Rho, ringparams.K, ringparams.L)
}

// A returns the expanded public matrix for this key pair's seed.
func (sk *SecretKey) A() ring.Matrix {
	return ring.ExpandA(sk.Rho, ringparams.K, ringparams.L)
}

// Generate samples a fresh (pk, sk) pair. If seed is nil, a fresh random rho
// is drawn from crypto/rand; callers that need a specific rho (e.g. all
// parties of a threshold group sharing one A) pass it explicitly.
func Generate(seed *[ringparams.SeedSize]byte) (*PublicKey, *SecretKey, error) {
	var rho [ringparams.SeedSize]byte
	if seed != nil {
		rho = *seed
	} else if _, err := io.ReadFull(rand.Reader, rho[:]); err != nil {
		return nil, nil, err
	}

	s1 := ring.SampleBoundedVector(rand.Reader, ringparams.L, ringparams.Eta)
	s2 := ring.SampleBoundedVector(rand.Reader, ringparams.K, ringparams.Eta)

	a := ring.ExpandA(rho, ringparams.K, ringparams.L)
	t := ring.AddVec(a.MulVec(s1), s2)

	pk := &PublicKey{Rho: rho, T: t}
	sk := &SecretKey{Rho: rho, S1: s1, S2: s2}
	return pk, sk, nil
}

// Equal reports whether two public keys are identical.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	if other == nil || pk.Rho != other.Rho || len(pk.T) != len(other.T) {
		return false
	}
	for i := range pk.T {
		if pk.T[i] != other.T[i] {
			return false
		}
	}
	return true
}
