// Package securechannel implements Component I: a per-peer authenticated
// channel built from one KEM handshake (pkg/kemlattice) authenticated by a
// lattice signature (pkg/signer), followed by AES-256-GCM sealing of every
// subsequent tunnel message (§4.I).
package securechannel

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/kemlattice"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/signer"
	"github.com/luxfi/qsp/pkg/wire"
)

// State is the lifecycle of one Channel (§4.I).
type State int

const (
	Fresh State = iota
	KemSent
	Established
)

// Channel is one peer's secure tunnel. It is single-writer, single-reader,
// owned by the task that created it (§5 shared-resource policy).
type Channel struct {
	state State
	key   [ringparams.SessionKeySize]byte
}

// Handshake is the bytes exchanged to establish a Channel: the signed
// {ts, kem} payload plus its signature.
type Handshake struct {
	Payload wire.HandshakePayload
	Sig     *signer.Signature
}

// SetupAsInitiator draws a fresh 32-byte session key, encapsulates it under
// peerPK, signs the timestamped payload with mySK, and returns both the
// handshake to send and the Channel (state KemSent, key already cached).
func SetupAsInitiator(peerPK *latticekey.PublicKey, mySK *latticekey.SecretKey, now int64) (*Channel, *Handshake, error) {
	var key [ringparams.SessionKeySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, nil, apperr.Wrap("securechannel.SetupAsInitiator", apperr.HandshakeDecap, err)
	}

	ct, err := kemlattice.Encaps(peerPK, key)
	if err != nil {
		return nil, nil, apperr.Wrap("securechannel.SetupAsInitiator", apperr.HandshakeDecap, err)
	}

	payload := wire.HandshakePayload{Timestamp: now, KEM: wire.KEMCiphertextToWire(ct)}
	payloadBytes, err := wire.MarshalHandshakePayload(payload)
	if err != nil {
		return nil, nil, err
	}

	sig, err := signer.Sign(mySK, payloadBytes)
	if err != nil {
		return nil, nil, apperr.Wrap("securechannel.SetupAsInitiator", apperr.HandshakeSig, err)
	}

	ch := &Channel{state: KemSent, key: key}
	return ch, &Handshake{Payload: payload, Sig: sig}, nil
}

// Accept verifies hs under peerPK (I7: signature valid AND |now-ts| <= 60s),
// decapsulates the session key with mySK, and returns a Channel in state
// Established. The three failure modes are distinguishable only by Kind,
// never by a richer message (§7).
func Accept(hs *Handshake, mySK *latticekey.SecretKey, peerPK *latticekey.PublicKey, now int64) (*Channel, error) {
	payloadBytes, err := wire.MarshalHandshakePayload(hs.Payload)
	if err != nil {
		return nil, err
	}
	if err := signer.Verify(peerPK, payloadBytes, hs.Sig); err != nil {
		return nil, apperr.Wrap("securechannel.Accept", apperr.HandshakeSig, err)
	}

	delta := now - hs.Payload.Timestamp
	if delta < 0 {
		delta = -delta
	}
	if delta > ringparams.HandshakeToleranceSeconds {
		return nil, apperr.New("securechannel.Accept", apperr.HandshakeStale)
	}

	ct, ok := wire.KEMCiphertextFromWire(hs.Payload.KEM)
	if !ok {
		return nil, apperr.New("securechannel.Accept", apperr.HandshakeDecap)
	}
	key, ok := kemlattice.Decaps(mySK, ct)
	if !ok {
		return nil, apperr.New("securechannel.Accept", apperr.HandshakeDecap)
	}

	return &Channel{state: Established, key: key}, nil
}

// State reports the channel's current lifecycle stage.
func (c *Channel) State() State { return c.state }

// MarkEstablished transitions an initiator's channel to Established once
// the peer's AES-GCM-wrapped phase-1 reply has arrived (§4 data flow).
func (c *Channel) MarkEstablished() { c.state = Established }

// Seal encrypts plaintext with AES-256-GCM under the channel's session key,
// returning nonce||ciphertext||tag: the random nonce is prepended and GCM
// appends its 16-byte tag.
func (c *Channel) Seal(plaintext []byte) ([]byte, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, apperr.Wrap("securechannel.Seal", apperr.TransportEncode, err)
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// Open reverses Seal. A tampered or misaddressed ciphertext fails with
// TransportEncode rather than leaking which GCM check failed.
func (c *Channel) Open(wrapped []byte) ([]byte, error) {
	aead, err := c.aead()
	if err != nil {
		return nil, err
	}
	if len(wrapped) < aead.NonceSize() {
		return nil, apperr.New("securechannel.Open", apperr.TransportEncode)
	}
	nonce, sealed := wrapped[:aead.NonceSize()], wrapped[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, apperr.Wrap("securechannel.Open", apperr.TransportEncode, err)
	}
	return plaintext, nil
}

func (c *Channel) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, apperr.Wrap("securechannel.aead", apperr.TransportEncode, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperr.Wrap("securechannel.aead", apperr.TransportEncode, err)
	}
	return aead, nil
}
