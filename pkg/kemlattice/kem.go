// Package kemlattice implements Component B: the module-LWE key
// encapsulation mechanism that wraps a 32-byte session key under a
// latticekey.PublicKey (§4.B).
package kemlattice

import (
	"crypto/rand"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/ring"
)

// Ciphertext is (u, v): u has length L, v is a single polynomial (§3).
type Ciphertext struct {
	U ring.Vector
	V ring.Poly
}

// encodeKey packs a 32-byte key into a polynomial: coefficient i is q/2 if
// bit i of the key is 1, else 0.
func encodeKey(key [ringparams.SessionKeySize]byte) ring.Poly {
	var m ring.Poly
	for i := 0; i < ringparams.N; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		if key[byteIdx]&(1<<bitIdx) != 0 {
			m[i] = ringparams.Q / 2
		}
	}
	return m
}

// decodeKey reconstructs a 32-byte key from a centered message polynomial:
// bit i is 1 iff q/4 < m[i] < 3q/4 (taking the positive representative).
func decodeKey(m ring.Poly) [ringparams.SessionKeySize]byte {
	var key [ringparams.SessionKeySize]byte
	for i := 0; i < ringparams.N; i++ {
		c := ((m[i] % ringparams.Q) + ringparams.Q) % ringparams.Q
		if c > ringparams.Q/4 && c < 3*ringparams.Q/4 {
			byteIdx := i / 8
			bitIdx := uint(i % 8)
			key[byteIdx] |= 1 << bitIdx
		}
	}
	return key
}

// Encaps encapsulates key under pk, returning the ciphertext (u, v).
//
// The construction sets r (dimension L), e1 (dimension L) and e2 (one
// polynomial) all with Eta-bounded coefficients, then:
//
//	u = A^T * r + e1
//	v = t^T * r + e2 + encode(key)
//
// Because this module fixes K == L, A^T is itself an L x L matrix, which
// resolves the dimension ambiguity spec.md flags: the contract that matters
// is that Decaps's s1^T * u term cancels A^T * r against u's own A^T * r,
// leaving only small noise plus the encoded message.
func Encaps(pk *latticekey.PublicKey, key [ringparams.SessionKeySize]byte) (*Ciphertext, error) {
	r := ring.SampleBoundedVector(rand.Reader, ringparams.L, ringparams.Eta)
	e1 := ring.SampleBoundedVector(rand.Reader, ringparams.L, ringparams.Eta)
	e2 := ring.SampleBoundedPoly(rand.Reader, ringparams.Eta)

	at := pk.A().Transpose()
	u := ring.AddVec(at.MulVec(r), e1)

	v := ring.Add(ring.Dot(pk.T, r), ring.Add(e2, encodeKey(key)))

	return &Ciphertext{U: u, V: v}, nil
}

// Decaps recovers the session key from a ciphertext using sk. It reports
// ok=false only when u does not have length L. Every other ciphertext is
// decoded coefficient by coefficient, so a mismatched key or a corrupted
// ciphertext yields a wrong key with ok=true rather than ok=false.
func Decaps(sk *latticekey.SecretKey, ct *Ciphertext) (key [ringparams.SessionKeySize]byte, ok bool) {
	if len(ct.U) != ringparams.L {
		return key, false
	}
	mPrime := ring.Sub(ct.V, ring.Dot(sk.S1, ct.U))
	mPrime = ring.Center(mPrime)
	return decodeKey(mPrime), true
}
