// Package qsp is the facade over the post-quantum threshold custody engine:
// a Dealer splits a secret image into n lattice-encrypted shares, and a
// Recovery Host later coordinates an interactive threshold-signature
// session with t Participants to authorize reconstruction (§3).
//
// The entry points below (LockAndDistribute, OpenRecoveryHost with
// RunRecovery to drive the returned Host, JoinRecoverySession, and
// ReconstructFromShares) are the library's front door; the
// GUI, CLI, and directory conventions that drive them are out of scope
// (§1) and are expected to be thin callers of exactly these functions,
// mirroring how protocols/lss.go fronts its own keygen/sign/reshare rounds.
package qsp

import (
	"context"

	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/crt"
	"github.com/luxfi/qsp/pkg/dealer"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/party"
	"github.com/luxfi/qsp/pkg/session"
	"github.com/luxfi/qsp/pkg/wire"
	"github.com/luxfi/qsp/protocols/thresholdsig"
)

// Type aliases so callers never need to import the component packages
// directly for the common shapes.
type (
	Image           = crt.Image
	Share           = crt.Share
	Manifest        = wire.Manifest
	PublicKey       = latticekey.PublicKey
	SecretKey       = latticekey.SecretKey
	PartyID         = party.ID
	Recipient       = dealer.Recipient
	ParticipantInfo = session.ParticipantInfo
)

// LockAndDistribute drives the Dealer (§4.G): it splits img into
// len(recipients) CRT shares (any threshold of which reconstruct it),
// encrypts each to its recipient under the shared seed, and writes the
// encrypted share files plus a manifest into outputDir.
func LockAndDistribute(outputDir string, img Image, recipients []Recipient, threshold int, moduli []int64, seed [32]byte) (*dealer.Result, error) {
	return dealer.LockAndDistribute(outputDir, img, recipients, threshold, moduli, seed)
}

// RecoveryHost is the object returned by OpenRecoveryHost; callers drive it
// by supplying matched participants and running RunRecovery.
type RecoveryHost = session.Host

// OpenRecoveryHost validates the manifest and builds a Recovery Host ready
// to accept invitations (§4.J step 1-2). groupPub is the sum of every
// intended participant's public key (thresholdsig.GroupPublicKey).
func OpenRecoveryHost(manifest *Manifest, groupPub *PublicKey, threshold int) (*RecoveryHost, error) {
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	if threshold < 1 || threshold > manifest.TotalShares {
		return nil, apperr.New("qsp.OpenRecoveryHost", apperr.Param)
	}
	return session.NewHost(session.HostConfig{
		Manifest:    manifest,
		GroupPubKey: groupPub,
		Threshold:   threshold,
	}), nil
}

// RunRecovery drives one Recovery Host through REQ_COMMITMENT,
// BROAD_CHALLENGE, RES_RESPONSE, and REQ_SHARE against the given matched
// participants (§4.J "Recovery run"), returning the reconstructed image.
// invited may list more than threshold participants: the extras are held
// as spares and substituted in if an active participant declines or is
// lost, per §4.J's "retry with a new peer if available, else abort".
func RunRecovery(ctx context.Context, host *RecoveryHost, fileHash []byte, invited []ParticipantInfo) (Image, error) {
	return host.RunRecovery(ctx, fileHash, invited)
}

// JoinRecoverySession runs one Participant's side of a recovery session:
// phase-1 commitment, phase-2 response (subject to the optional approve
// hook), and final share release (§4.J, §4.E).
func JoinRecoverySession(ctx context.Context, conn session.PeerConn, cfg *thresholdsig.Config, local session.LocalShare, approve session.Approver) error {
	return session.JoinRecoverySession(ctx, conn, cfg, local, approve)
}

// ReconstructFromShares recovers the original image from any >= t shares
// (§4.F), the same math the Recovery Host uses internally once phase-2
// verification succeeds.
func ReconstructFromShares(shares []Share) (Image, error) {
	return crt.Reconstruct(shares)
}
