package session

import (
	"context"

	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/crt"
	"github.com/luxfi/qsp/pkg/wire"
	"github.com/luxfi/qsp/protocols/thresholdsig"
)

// Approver is the authorization hook (§4.J): before computing a phase-2
// response, a Participant MAY present mHash to an external approver. A nil
// Approver always approves.
type Approver func(mHash []byte) bool

// LocalShare is a Participant's own decrypted, fingerprint-verified share,
// already on hand when the session starts (the Host's REQ_SHARE only asks
// for its release, not its decryption, so that check happens once up
// front rather than per-request).
type LocalShare struct {
	Share       crt.Share
	Fingerprint string // hex64, compared against manifest RegistryEntry.ShareFingerprint
}

// JoinRecoverySession runs one Participant's side of a recovery session
// over conn until REQ_SHARE has been served or ctx is cancelled. cfg
// drives its phase-1/phase-2 math (protocols/thresholdsig.PartyState);
// local is the plaintext share this party will release on success.
//
// Phase 1 can restart mid-session when some other participant declines or
// is lost (§4.J line 193): the Host simply re-issues REQ_COMMITMENT to
// every still-active participant, including this one, even after it has
// already answered a BROAD_CHALLENGE. This loop tolerates that by treating
// each inbound message as the next step of whichever round is current
// rather than assuming a fixed linear sequence.
func JoinRecoverySession(ctx context.Context, conn PeerConn, cfg *thresholdsig.Config, local LocalShare, approve Approver) error {
	var state *thresholdsig.PartyState

	for {
		inner, err := conn.RecvSecure(ctx)
		if err != nil {
			return apperr.Wrap("session.JoinRecoverySession", apperr.TransportPeerLost, err)
		}

		switch inner.Type {
		case wire.TypeReqCommitment:
			state = thresholdsig.NewPartyState(cfg)
			w, err := state.Commit()
			if err != nil {
				return err
			}
			commitBytes, err := encodeVector(w)
			if err != nil {
				return err
			}
			if err := conn.SendSecure(ctx, wire.SecureInner{Type: wire.TypeResCommitment, Payload: commitBytes}); err != nil {
				return apperr.Wrap("session.JoinRecoverySession", apperr.TransportPeerLost, err)
			}

		case wire.TypeBroadChallenge:
			if state == nil {
				return apperr.New("session.JoinRecoverySession", apperr.SessionWrongPhase)
			}
			msg, ts, wAgg, err := decodeChallenge(inner.Payload)
			if err != nil {
				return err
			}

			if approve != nil && !approve(msg) {
				declinedBytes, encErr := encodeResponse(nil, true)
				if encErr != nil {
					return encErr
				}
				if err := conn.SendSecure(ctx, wire.SecureInner{Type: wire.TypeResResponse, Payload: declinedBytes}); err != nil {
					return apperr.Wrap("session.JoinRecoverySession", apperr.TransportPeerLost, err)
				}
				continue // the Host retries with a different peer; keep listening
			}

			resp, err := state.Respond(msg, ts, wAgg)
			if err != nil {
				return err
			}
			responseBytes, err := encodeResponse(resp.Z, resp.Declined)
			if err != nil {
				return err
			}
			if err := conn.SendSecure(ctx, wire.SecureInner{Type: wire.TypeResResponse, Payload: responseBytes}); err != nil {
				return apperr.Wrap("session.JoinRecoverySession", apperr.TransportPeerLost, err)
			}
			// On success, keep listening: either REQ_SHARE follows, or a
			// fresh REQ_COMMITMENT arrives because a different peer was
			// lost or declined and the whole round restarted.

		case wire.TypeReqShare:
			shareBytes, err := wire.EncodeShare(local.Share)
			if err != nil {
				return err
			}
			if err := conn.SendSecure(ctx, wire.SecureInner{Type: wire.TypeResShare, Payload: shareBytes}); err != nil {
				return apperr.Wrap("session.JoinRecoverySession", apperr.TransportPeerLost, err)
			}
			return nil

		default:
			return apperr.New("session.JoinRecoverySession", apperr.SessionWrongPhase)
		}
	}
}
