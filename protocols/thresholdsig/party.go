package thresholdsig

import (
	"crypto/rand"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/fiatshamir"
	"github.com/luxfi/qsp/pkg/ring"
)

// Response is a participant's phase-2 output. Declined is set when the
// participant's own rejection-sampling or LowBits check failed (I4): the
// Host must treat this exactly like a lost peer and restart phase 1.
type Response struct {
	Z        ring.Vector
	Declined bool
}

// PartyState holds one participant's ephemeral commitment secret between
// phase 1 and phase 2 of a single session. Create it with NewPartyState;
// the zero value has no Config and cannot Commit.
type PartyState struct {
	cfg *Config
	y   ring.Vector // retained only between Commit and Respond; see I4
}

// NewPartyState creates participant-side state bound to cfg.
func NewPartyState(cfg *Config) *PartyState {
	return &PartyState{cfg: cfg}
}

// Commit runs phase 1: sample a fresh y_i and return the commitment
// w_i = A*y_i mod q, centered into [-q/2, q/2) (§4.E).
func (s *PartyState) Commit() (ring.Vector, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, apperr.Wrap("thresholdsig.Commit", apperr.Param, err)
	}
	a := matrixFor(s.cfg.Rho)
	y := ring.SampleBoundedVector(rand.Reader, ringparams.L, ychallengeBound)
	s.y = y
	return ring.CenterVec(a.MulVec(y)), nil
}

// Respond runs phase 2: given the Host's aggregated commitment W and the
// session message/timestamp, derive the shared challenge, compute this
// party's response z_i, and validate it against both bounds of I4.
//
// y_i is dropped (the field is cleared) before Respond returns in every
// code path, successful or not, per the §3 lifecycle rule.
func (s *PartyState) Respond(msg []byte, ts int64, w ring.Vector) (*Response, error) {
	y := s.y
	s.y = nil // I4: drop the commitment secret unconditionally
	if y == nil {
		return nil, apperr.New("thresholdsig.Respond", apperr.SessionWrongPhase)
	}

	highW := ring.HighBitsVec(w, ringparams.Alpha)
	cHash := fiatshamir.ThresholdHash(msg, highW, ts)
	c := fiatshamir.ChallengeFromHash(cHash)

	a := matrixFor(s.cfg.Rho)
	z := ring.AddVec(y, ring.ScaleVec(s.cfg.SecretKey.S1, c))
	r := ring.SubVec(a.MulVec(y), ring.ScaleVec(s.cfg.SecretKey.S2, c))
	lowR := ring.LowBitsVec(r, ringparams.Alpha)

	if ring.InfNormVec(z) >= ringparams.Gamma1-ringparams.Beta {
		return &Response{Declined: true}, nil
	}
	if ring.InfNormVec(lowR) >= ringparams.Gamma2-ringparams.Beta {
		return &Response{Declined: true}, nil
	}

	return &Response{Z: z}, nil
}
