// Package fiatshamir holds the single Fiat-Shamir challenge derivation used
// by both the single-party signer (pkg/signer) and the threshold signer
// (protocols/thresholdsig). Design note 9 fixes the historical ambiguity
// between hashing a raw commitment and hashing its high-bits: every caller
// here hashes HighBits, never the raw commitment.
package fiatshamir

import (
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/ring"
)

// CommitHash binds a message to a commitment vector: SHA256(msg ||
// encode(w)). Used by the single-party signer, whose commitment *is*
// HighBits(A*y) already (§4.D).
func CommitHash(msg []byte, w ring.Vector) [32]byte {
	h := sha256.New()
	h.Write(msg)
	writeVector(h, w)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ThresholdHash binds a message, a timestamp, and the high bits of the
// aggregated commitment: SHAKE256(msg || encode(HighBits(W)) || ts8). Used
// by the threshold signer's phase-2 challenge (§4.E), which both the Host
// and every Participant must derive identically.
func ThresholdHash(msg []byte, highBitsW ring.Vector, ts int64) [32]byte {
	h := sha3.NewShake256()
	h.Write(msg)
	writeVector(h, highBitsW)
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(ts))
	h.Write(tsBuf[:])

	var out [32]byte
	if _, err := h.Read(out[:]); err != nil {
		panic("fiatshamir: shake256 read failed: " + err.Error())
	}
	return out
}

type byteWriter interface {
	Write(p []byte) (int, error)
}

func writeVector(w byteWriter, v ring.Vector) {
	for _, p := range v {
		for _, c := range p.Encode() {
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], uint64(c))
			w.Write(b[:])
		}
	}
}

// ChallengeFromHash derives a ternary weight-Tau polynomial from a 32-byte
// hash by streaming SHAKE256 output: each byte b selects a candidate slot
// b mod N and, if still zero, assigns +1 for an even byte or -1 for an odd
// one, until exactly Tau slots are nonzero (§4.D).
func ChallengeFromHash(h [32]byte) ring.Poly {
	var c ring.Poly
	placed := 0

	xof := sha3.NewShake256()
	xof.Write(h[:])

	var buf [1]byte
	for placed < ringparams.Tau {
		if _, err := xof.Read(buf[:]); err != nil {
			panic("fiatshamir: shake256 read failed: " + err.Error())
		}
		idx := int(buf[0]) % ringparams.N
		if c[idx] != 0 {
			continue
		}
		if buf[0]&1 == 0 {
			c[idx] = 1
		} else {
			c[idx] = ringparams.Q - 1 // -1 mod q
		}
		placed++
	}
	return c
}
