// Package session implements Component J: the Recovery Host state machine
// that coordinates the secure channel (I), the threshold signer (E), and
// the CRT reconstructor (F) across t participants (§4.J).
package session

import (
	"context"
	"crypto/sha256"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/crt"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/party"
	"github.com/luxfi/qsp/pkg/ring"
	"github.com/luxfi/qsp/pkg/wire"
	"github.com/luxfi/qsp/protocols/thresholdsig"
)

// Phase is the Recovery Host's lifecycle stage (§4.J). RunRecovery moves
// the Host through these stages in order and Host.Phase reports the
// current one.
type Phase int

const (
	Idle Phase = iota
	WaitingCommitments
	WaitingResponses
	Reconstructing
	Finished
)

// PeerConn is one established secure channel to a participant, abstracted
// away from the concrete transport so the Host can be driven by a real
// pkg/transport socket or, in tests, an in-process pipe.
type PeerConn interface {
	SendSecure(ctx context.Context, msg wire.SecureInner) error
	RecvSecure(ctx context.Context) (wire.SecureInner, error)
}

// ParticipantInfo binds one matched peer's identity to its connection.
type ParticipantInfo struct {
	ID    party.ID
	Conn  PeerConn
	PubKey *latticekey.PublicKey
}

// Manifest-derived inputs a Host needs to run one recovery.
type HostConfig struct {
	Manifest    *wire.Manifest
	GroupPubKey *latticekey.PublicKey
	HostID      party.ID
	HostSecret  *latticekey.SecretKey // the Host's own party-0 share, if it participates
	Threshold   int
}

// Host runs one Recovery Session end to end. Phase transitions and Phase
// reads are guarded by mtx so that other goroutines observe a consistent
// phase (§5).
type Host struct {
	cfg HostConfig

	mtx   sync.Mutex
	phase Phase
}

// NewHost constructs a Host in the Idle phase.
func NewHost(cfg HostConfig) *Host {
	return &Host{cfg: cfg, phase: Idle}
}

// Phase returns the current phase under lock.
func (h *Host) Phase() Phase {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.phase
}

func (h *Host) setPhase(p Phase) {
	h.mtx.Lock()
	h.phase = p
	h.mtx.Unlock()
}

// RunRecovery drives the full bring-up-through-reconstruction flow against
// an already-matched set of invited participants (HELLO matching against
// registry[*].owner_public_t happens before RunRecovery is called, per
// §4.J step 4). fileHash is H, the hash the threshold signature is over.
//
// invited may oversubscribe the threshold (n_invited >= Threshold, §4.J
// line 127/206): the first Threshold entries form the active signing set
// and the rest are held as spares. A participant that declines phase 2, or
// is lost at any point before the signature is combined, causes the whole
// phase-1/phase-2 round to restart with one spare substituted in its place
// (§4.J line 193: "retry with a new peer if available, else abort"), up to
// ringparams.MaxThresholdPhase1Retries rounds — mirroring
// protocols/thresholdsig.RunInProcess's in-process restart loop.
//
// It returns the reconstructed image or a structured error; on any failure
// the session still ends in Finished, per §5's cancellation contract.
func (h *Host) RunRecovery(ctx context.Context, fileHash []byte, invited []ParticipantInfo) (crt.Image, error) {
	if len(invited) < h.cfg.Threshold {
		h.setPhase(Finished)
		return crt.Image{}, apperr.New("session.RunRecovery", apperr.Param)
	}

	active := append([]ParticipantInfo(nil), invited[:h.cfg.Threshold]...)
	spares := append([]ParticipantInfo(nil), invited[h.cfg.Threshold:]...)

	for attempt := 0; attempt < ringparams.MaxThresholdPhase1Retries; attempt++ {
		h.setPhase(WaitingCommitments)
		commitments, ids, lost := h.collectCommitments(ctx, active)
		if len(ids) < len(active) {
			var ok bool
			if active, spares, ok = substitute(active, spares, lost); !ok {
				h.setPhase(Finished)
				return crt.Image{}, apperr.New("session.RunRecovery", apperr.TransportPeerLost)
			}
			continue
		}

		w := thresholdsig.SumCommitments(commitments)
		ts := time.Now().Unix()
		cHash := thresholdsig.DeriveChallenge(fileHash, w, ts)

		h.setPhase(WaitingResponses)
		responses, lost := h.collectResponses(ctx, active, ids, fileHash, ts, w)
		if len(lost) > 0 {
			var ok bool
			if active, spares, ok = substitute(active, spares, lost); !ok {
				h.setPhase(Finished)
				return crt.Image{}, apperr.New("session.RunRecovery", apperr.SessionDeclined)
			}
			continue
		}

		z := thresholdsig.Combine(responses)
		sig := &thresholdsig.Signature{Z: z, W: w, CHash: cHash, Timestamp: ts}
		rho, err := h.cfg.Manifest.Seed()
		if err != nil {
			h.setPhase(Finished)
			return crt.Image{}, apperr.Wrap("session.RunRecovery", apperr.Param, err)
		}
		if err := thresholdsig.Verify(rho, h.cfg.GroupPubKey, fileHash, sig, len(ids)); err != nil {
			h.setPhase(Finished)
			return crt.Image{}, err
		}

		h.setPhase(Reconstructing)
		shares, err := h.collectShares(ctx, active)
		if err != nil {
			h.setPhase(Finished)
			return crt.Image{}, err
		}

		img, err := crt.Reconstruct(shares)
		h.setPhase(Finished)
		return img, err
	}

	h.setPhase(Finished)
	return crt.Image{}, apperr.New("session.RunRecovery", apperr.SessionDeclined)
}

// substitute drops every participant named in lost from active and backfills
// each slot with one spare, preserving len(active) == threshold. It reports
// false when there are not enough spares to cover every loss, the "else
// abort" half of §4.J line 193.
func substitute(active, spares []ParticipantInfo, lost map[party.ID]bool) ([]ParticipantInfo, []ParticipantInfo, bool) {
	kept := make([]ParticipantInfo, 0, len(active))
	for _, p := range active {
		if !lost[p.ID] {
			kept = append(kept, p)
		}
	}
	need := len(active) - len(kept)
	if need > len(spares) {
		return nil, nil, false
	}
	next := append(kept, spares[:need]...)
	return next, spares[need:], true
}

// collectCommitments sends REQ_COMMITMENT to every participant and waits
// for RES_COMMITMENT from each within Phase1Timeout. Unlike collectShares,
// a single participant's failure must not cancel the others' in-flight
// requests — it is reported in lost so RunRecovery can substitute a spare
// and retry the round — so this fans out with a plain WaitGroup rather
// than errgroup's fail-fast context cancellation.
func (h *Host) collectCommitments(ctx context.Context, participants []ParticipantInfo) (commitments map[party.ID]ring.Vector, ids []party.ID, lost map[party.ID]bool) {
	ctx, cancel := context.WithTimeout(ctx, ringparams.Phase1Timeout)
	defer cancel()

	var mtx sync.Mutex
	commitments = make(map[party.ID]ring.Vector, len(participants))
	ids = make([]party.ID, 0, len(participants))
	lost = make(map[party.ID]bool)

	var wg sync.WaitGroup
	for _, p := range participants {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Conn.SendSecure(ctx, wire.SecureInner{Type: wire.TypeReqCommitment}); err != nil {
				mtx.Lock()
				lost[p.ID] = true
				mtx.Unlock()
				return
			}
			inner, err := p.Conn.RecvSecure(ctx)
			if err != nil || inner.Type != wire.TypeResCommitment {
				mtx.Lock()
				lost[p.ID] = true
				mtx.Unlock()
				return
			}
			w, err := decodeVector(inner.Payload)
			if err != nil {
				mtx.Lock()
				lost[p.ID] = true
				mtx.Unlock()
				return
			}
			mtx.Lock()
			commitments[p.ID] = w
			ids = append(ids, p.ID)
			mtx.Unlock()
		}()
	}
	wg.Wait()
	return commitments, ids, lost
}

// collectResponses issues BROAD_CHALLENGE and waits for RES_RESPONSE from
// each participant within Phase2Timeout. An explicit decline is treated
// exactly like a lost peer (§4.J line 193): it is reported in lost rather
// than aborting the round outright, so RunRecovery can substitute a spare
// and restart phase 1 with a fresh commitment set.
func (h *Host) collectResponses(ctx context.Context, participants []ParticipantInfo, ids []party.ID, fileHash []byte, ts int64, w ring.Vector) (responses map[party.ID]ring.Vector, lost map[party.ID]bool) {
	ctx, cancel := context.WithTimeout(ctx, ringparams.Phase2Timeout)
	defer cancel()

	wanted := make(map[party.ID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	responses = make(map[party.ID]ring.Vector, len(ids))
	lost = make(map[party.ID]bool)

	payload, err := encodeChallenge(fileHash, ts, w)
	if err != nil {
		for _, id := range ids {
			lost[id] = true
		}
		return responses, lost
	}

	var mtx sync.Mutex
	var wg sync.WaitGroup
	for _, p := range participants {
		if !wanted[p.ID] {
			continue
		}
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Conn.SendSecure(ctx, wire.SecureInner{Type: wire.TypeBroadChallenge, Payload: payload}); err != nil {
				mtx.Lock()
				lost[p.ID] = true
				mtx.Unlock()
				return
			}
			inner, err := p.Conn.RecvSecure(ctx)
			if err != nil || inner.Type != wire.TypeResResponse {
				mtx.Lock()
				lost[p.ID] = true
				mtx.Unlock()
				return
			}
			z, declined, err := decodeResponse(inner.Payload)
			if err != nil || declined {
				mtx.Lock()
				lost[p.ID] = true
				mtx.Unlock()
				return
			}
			mtx.Lock()
			responses[p.ID] = z
			mtx.Unlock()
		}()
	}
	wg.Wait()
	return responses, lost
}

// collectShares issues REQ_SHARE to every participant and waits for
// RES_SHARE within ShareDeliveryTimeout, decoding each reply into a
// crt.Share ready for F.Reconstruct.
func (h *Host) collectShares(ctx context.Context, participants []ParticipantInfo) ([]crt.Share, error) {
	ctx, cancel := context.WithTimeout(ctx, ringparams.ShareDeliveryTimeout)
	defer cancel()

	var mtx sync.Mutex
	var shares []crt.Share

	eg, ctx := errgroup.WithContext(ctx)
	for _, p := range participants {
		p := p
		eg.Go(func() error {
			if err := p.Conn.SendSecure(ctx, wire.SecureInner{Type: wire.TypeReqShare}); err != nil {
				return apperr.Wrap("session.collectShares", apperr.TransportPeerLost, err)
			}
			inner, err := p.Conn.RecvSecure(ctx)
			if err != nil {
				return apperr.Wrap("session.collectShares", apperr.TransportPeerLost, err)
			}
			if inner.Type != wire.TypeResShare {
				return apperr.New("session.collectShares", apperr.TransportPeerLost)
			}
			share, err := wire.DecodeShare(inner.Payload)
			if err != nil {
				return err
			}
			mtx.Lock()
			shares = append(shares, share)
			mtx.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return shares, nil
}

// FileHash computes H, the target file hash the threshold signature
// protects, as SHA-256 of the whole manifest as rendered by
// wire.MarshalManifest (§4.J step 1).
func FileHash(m *wire.Manifest) ([]byte, error) {
	raw, err := wire.MarshalManifest(m)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	return sum[:], nil
}
