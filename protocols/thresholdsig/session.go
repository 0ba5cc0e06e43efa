package thresholdsig

import (
	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/party"
	"github.com/luxfi/qsp/pkg/ring"
)

// RunInProcess drives a complete commit/challenge/respond/verify cycle for
// a group of in-process parties, restarting phase 1 for every signer
// whenever any one of them declines, up to
// ringparams.MaxThresholdPhase1Retries times (§4.E failure semantics,
// scenario 4 of §8). It has no network dependency: pkg/session reimplements
// the same phase sequence over the secure channel, but this function is the
// reference flow exercised by this package's own tests and is reusable by
// anything that already holds every signer's Config in one process.
func RunInProcess(rho [ringparams.SeedSize]byte, cfgs map[party.ID]*Config, signers party.IDSlice, msg []byte, ts int64) (*Signature, error) {
	for attempt := 0; attempt < ringparams.MaxThresholdPhase1Retries; attempt++ {
		states := make(map[party.ID]*PartyState, len(signers))
		commitments := make(map[party.ID]ring.Vector, len(signers))

		for _, id := range signers {
			st := NewPartyState(cfgs[id])
			w, err := st.Commit()
			if err != nil {
				return nil, err
			}
			states[id] = st
			commitments[id] = w
		}

		w := SumCommitments(commitments)
		cHash := DeriveChallenge(msg, w, ts)

		responses := make(map[party.ID]ring.Vector, len(signers))
		anyDeclined := false
		for _, id := range signers {
			resp, err := states[id].Respond(msg, ts, w)
			if err != nil {
				return nil, err
			}
			if resp.Declined {
				anyDeclined = true
				break
			}
			responses[id] = resp.Z
		}

		if anyDeclined {
			continue
		}

		z := Combine(responses)
		return &Signature{Z: z, W: w, CHash: cHash, Timestamp: ts}, nil
	}

	return nil, apperr.New("thresholdsig.RunInProcess", apperr.CryptoSample)
}
