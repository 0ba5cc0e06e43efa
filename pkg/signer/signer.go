// Package signer implements Component D: the non-interactive, single-party
// lattice signature (Fiat-Shamir-with-aborts over R_q), used directly by
// pkg/securechannel's handshake authentication and as the verification
// core that protocols/thresholdsig's aggregation re-derives (§4.D).
package signer

import (
	"crypto/rand"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/fiatshamir"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/ring"
)

// Signature is (z, w, c_hash) per §3.
type Signature struct {
	Z     ring.Vector
	W     ring.Vector
	CHash [32]byte
}

// ychallengeBound is the commitment sampling bound gamma1 >> 3 used for y
// (§4.D/§4.E use the same bound for both single-party and threshold y).
const ychallengeBound = ringparams.Gamma1 >> 3

// Sign produces a Signature over msg, resampling y up to
// ringparams.MaxSignRetries times until the rejection-sampling check (I3)
// passes.
func Sign(sk *latticekey.SecretKey, msg []byte) (*Signature, error) {
	a := sk.A()

	for attempt := 0; attempt < ringparams.MaxSignRetries; attempt++ {
		y := ring.SampleBoundedVector(rand.Reader, ringparams.L, ychallengeBound)
		w := ring.HighBitsVec(a.MulVec(y), ringparams.Alpha)

		cHash := fiatshamir.CommitHash(msg, w)
		c := fiatshamir.ChallengeFromHash(cHash)

		z := ring.AddVec(y, ring.ScaleVec(sk.S1, c))
		if ring.InfNormVec(z) >= ringparams.Gamma1-ringparams.Beta {
			continue
		}

		return &Signature{Z: z, W: w, CHash: cHash}, nil
	}

	return nil, apperr.New("signer.Sign", apperr.CryptoSample)
}

// Verify checks sig against msg under pk.
func Verify(pk *latticekey.PublicKey, msg []byte, sig *Signature) error {
	expectHash := fiatshamir.CommitHash(msg, sig.W)
	if expectHash != sig.CHash {
		return apperr.New("signer.Verify", apperr.CryptoVerifyHash)
	}

	c := fiatshamir.ChallengeFromHash(sig.CHash)
	a := pk.A()

	v := ring.SubVec(a.MulVec(sig.Z), ring.ScaleVec(pk.T, c))

	alphaW := scaleVecByInt(sig.W, ringparams.Alpha)
	diff := ring.SubVec(v, alphaW)

	bound := ringparams.Beta + ringparams.Alpha/2 + ringparams.SlackBound
	if ring.InfNormVec(diff) > int64(bound) {
		return apperr.New("signer.Verify", apperr.CryptoVerifyNorm)
	}
	return nil
}

func scaleVecByInt(v ring.Vector, s int64) ring.Vector {
	out := make(ring.Vector, len(v))
	for i := range v {
		out[i] = ring.Scale(v[i], s)
	}
	return out
}
