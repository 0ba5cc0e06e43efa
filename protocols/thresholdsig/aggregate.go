package thresholdsig

import (
	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/fiatshamir"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/party"
	"github.com/luxfi/qsp/pkg/ring"
)

// Signature is the Host's aggregated result of a completed session:
// Z = Sum(z_i), the commitment sum W the challenge was derived from, and
// the challenge hash itself.
type Signature struct {
	Z         ring.Vector
	W         ring.Vector
	CHash     [32]byte
	Timestamp int64
}

// SumCommitments aggregates the phase-1 commitments collected from every
// verified participant, W = Sum(w_i) mod q (§4.E phase 2). The Host must
// have waited for all intended participants before calling this: adding a
// late commitment after the challenge has been issued is not supported by
// this function, only by restarting phase 1.
func SumCommitments(commitments map[party.ID]ring.Vector) ring.Vector {
	w := ring.Vector(make([]ring.Poly, ringparams.K))
	for _, wi := range commitments {
		w = ring.AddVec(w, wi)
	}
	return w
}

// DeriveChallenge computes the Host's canonical challenge hash from W, the
// message, and the session timestamp — the same hash every Participant
// recomputes independently in PartyState.Respond.
func DeriveChallenge(msg []byte, w ring.Vector, ts int64) [32]byte {
	highW := ring.HighBitsVec(w, ringparams.Alpha)
	return fiatshamir.ThresholdHash(msg, highW, ts)
}

// Combine sums the phase-2 responses into Z = Sum(z_i). Declined or missing
// responses must not be present in responses; the caller (pkg/session) is
// responsible for having already aborted the session if fewer than
// Threshold verified responses arrived (I6).
func Combine(responses map[party.ID]ring.Vector) ring.Vector {
	z := ring.Vector(make([]ring.Poly, ringparams.L))
	for _, zi := range responses {
		z = ring.AddVec(z, zi)
	}
	return z
}

// Verify checks a completed threshold signature two ways, as required by
// §4.E: the challenge-hash path (recomputing the challenge from W and
// comparing against sig.CHash) and the norm path (A*Z - c*T approximately
// equals alpha*W, within a slack scaled by the number of contributing
// parties since each contributes independent c*s2_i noise).
func Verify(rho [ringparams.SeedSize]byte, groupPub *latticekey.PublicKey, msg []byte, sig *Signature, numParties int) error {
	expectHash := DeriveChallenge(msg, sig.W, sig.Timestamp)
	if expectHash != sig.CHash {
		return apperr.New("thresholdsig.Verify", apperr.CryptoVerifyHash)
	}

	if ring.InfNormVec(sig.Z) >= ringparams.Gamma1-ringparams.Beta {
		return apperr.New("thresholdsig.Verify", apperr.CryptoVerifyNorm)
	}

	c := fiatshamir.ChallengeFromHash(sig.CHash)
	a := matrixFor(rho)

	v := ring.SubVec(a.MulVec(sig.Z), ring.ScaleVec(groupPub.T, c))
	alphaW := scaleVecByInt(sig.W, ringparams.Alpha)
	diff := ring.SubVec(v, alphaW)

	bound := int64(ringparams.Beta+ringparams.Alpha/2+ringparams.SlackBound) * int64(numParties)
	if ring.InfNormVec(diff) > bound {
		return apperr.New("thresholdsig.Verify", apperr.CryptoVerifyNorm)
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
