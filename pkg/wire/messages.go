package wire

import (
	"encoding/hex"
	"encoding/json"

	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/kemlattice"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/ring"
	"github.com/luxfi/qsp/pkg/signer"
)

// Outer envelope types carried one per reliable-datagram message (§6).
const (
	TypeHello     = "HELLO"
	TypeHandshake = "HANDSHAKE"
	TypeSecure    = "SECURE"
)

// Inner SECURE-tunnel message types, carried once the channel is
// Established (§4.E/§4.I data flow).
const (
	TypeReqCommitment  = "REQ_COMMITMENT"
	TypeResCommitment  = "RES_COMMITMENT"
	TypeBroadChallenge = "BROAD_CHALLENGE"
	TypeResResponse    = "RES_RESPONSE"
	TypeReqShare       = "REQ_SHARE"
	TypeResShare       = "RES_SHARE"
	TypeError          = "ERROR"
)

// Envelope is the outer `{type, payload}` shape shared by every wire
// message. payload is a raw JSON value rather than []byte so a HELLO
// payload nests as a literal JSON object (§6: "simply JSON nested inside
// JSON"); HANDSHAKE and SECURE payloads are opaque bytes and are wrapped as
// a base64 JSON string by NewBinaryEnvelope before being stored here.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalEnvelope renders e as its stable JSON wire form.
func MarshalEnvelope(e Envelope) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, apperr.Wrap("wire.MarshalEnvelope", apperr.TransportEncode, err)
	}
	return data, nil
}

// UnmarshalEnvelope parses the outer envelope without interpreting payload.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, apperr.Wrap("wire.UnmarshalEnvelope", apperr.TransportEncode, err)
	}
	return e, nil
}

// NewHelloEnvelope builds the clear-text HELLO envelope of §4.J step 3: the
// connecting Participant's public key, nested as a literal JSON object
// rather than base64 text, since HELLO is sent before any channel secret
// exists to protect opacity.
func NewHelloEnvelope(pk *latticekey.PublicKey) (Envelope, error) {
	raw, err := json.Marshal(pk)
	if err != nil {
		return Envelope{}, apperr.Wrap("wire.NewHelloEnvelope", apperr.TransportEncode, err)
	}
	return Envelope{Type: TypeHello, Payload: raw}, nil
}

// DecodeHelloPayload parses e's nested public key. It fails if e is not a
// HELLO envelope.
func DecodeHelloPayload(e Envelope) (*latticekey.PublicKey, error) {
	if e.Type != TypeHello {
		return nil, apperr.New("wire.DecodeHelloPayload", apperr.TransportEncode)
	}
	var pk latticekey.PublicKey
	if err := json.Unmarshal(e.Payload, &pk); err != nil {
		return nil, apperr.Wrap("wire.DecodeHelloPayload", apperr.TransportEncode, err)
	}
	return &pk, nil
}

// NewBinaryEnvelope wraps an opaque HANDSHAKE or SECURE message body as a
// base64 JSON string payload (encoding/json's standard []byte handling).
func NewBinaryEnvelope(typ string, body []byte) (Envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Envelope{}, apperr.Wrap("wire.NewBinaryEnvelope", apperr.TransportEncode, err)
	}
	return Envelope{Type: typ, Payload: raw}, nil
}

// DecodeBinaryPayload is the inverse of NewBinaryEnvelope.
func DecodeBinaryPayload(e Envelope) ([]byte, error) {
	var body []byte
	if err := json.Unmarshal(e.Payload, &body); err != nil {
		return nil, apperr.Wrap("wire.DecodeBinaryPayload", apperr.TransportEncode, err)
	}
	return body, nil
}

// HandshakePayload is the signed body of a HANDSHAKE message (§4.I):
// {ts, kem}. sig covers the canonical serialization of this struct alone.
type HandshakePayload struct {
	Timestamp int64             `json:"ts"`
	KEM       kemCiphertextWire `json:"kem"`
}

// HandshakeMessage is the full `{payload, sig}` body carried base64-wrapped
// inside a HANDSHAKE envelope.
type HandshakeMessage struct {
	Payload HandshakePayload `json:"payload"`
	Sig     SignatureWire    `json:"sig"`
}

// SignatureWire is the JSON shape of a signer.Signature: nested integer
// lists for Z and W, hex for the commitment hash.
type SignatureWire struct {
	Z     [][]int64 `json:"z"`
	W     [][]int64 `json:"w"`
	CHash string    `json:"c_hash"`
}

// MarshalHandshake renders a full HandshakeMessage (payload+sig) for
// transport. The signed bytes are the payload alone, produced by
// MarshalHandshakePayload.
func MarshalHandshake(msg HandshakeMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, apperr.Wrap("wire.MarshalHandshake", apperr.TransportEncode, err)
	}
	return data, nil
}

// MarshalHandshakePayload renders only the signed portion, the bytes D.sign
// and D.verify operate over.
func MarshalHandshakePayload(p HandshakePayload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, apperr.Wrap("wire.MarshalHandshakePayload", apperr.TransportEncode, err)
	}
	return data, nil
}

// UnmarshalHandshake parses a HandshakeMessage.
func UnmarshalHandshake(data []byte) (HandshakeMessage, error) {
	var msg HandshakeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return HandshakeMessage{}, apperr.Wrap("wire.UnmarshalHandshake", apperr.TransportEncode, err)
	}
	return msg, nil
}

// SecureInner is the plaintext JSON payload carried inside a SECURE
// message's AES-GCM ciphertext: another {type, payload} pair.
type SecureInner struct {
	Type    string `json:"type"`
	Payload []byte `json:"payload"`
}

// MarshalSecureInner renders the inner tunnel message.
func MarshalSecureInner(s SecureInner) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, apperr.Wrap("wire.MarshalSecureInner", apperr.TransportEncode, err)
	}
	return data, nil
}

// UnmarshalSecureInner parses the inner tunnel message.
func UnmarshalSecureInner(data []byte) (SecureInner, error) {
	var s SecureInner
	if err := json.Unmarshal(data, &s); err != nil {
		return SecureInner{}, apperr.Wrap("wire.UnmarshalSecureInner", apperr.TransportEncode, err)
	}
	return s, nil
}

// KEMCiphertextToWire and KEMCiphertextFromWire convert between
// kemlattice.Ciphertext and its JSON wire shape, shared by the handshake
// payload and the encrypted-share blob.
func KEMCiphertextToWire(ct *kemlattice.Ciphertext) kemCiphertextWire {
	return kemCiphertextWire{U: vectorToInts(ct.U), V: ct.V.Encode()}
}

func KEMCiphertextFromWire(w kemCiphertextWire) (*kemlattice.Ciphertext, bool) {
	u := make(ring.Vector, len(w.U))
	for i, row := range w.U {
		p, ok := ring.Decode(row)
		if !ok {
			return nil, false
		}
		u[i] = p
	}
	v, ok := ring.Decode(w.V)
	if !ok {
		return nil, false
	}
	return &kemlattice.Ciphertext{U: u, V: v}, true
}

// SignatureToWire and SignatureFromWire convert between signer.Signature
// and its JSON wire shape used inside HandshakeMessage.
func SignatureToWire(sig *signer.Signature) SignatureWire {
	return SignatureWire{
		Z:     vectorToInts(sig.Z),
		W:     vectorToInts(sig.W),
		CHash: hex.EncodeToString(sig.CHash[:]),
	}
}

func SignatureFromWire(w SignatureWire) (*signer.Signature, error) {
	z := make(ring.Vector, len(w.Z))
	for i, row := range w.Z {
		p, ok := ring.Decode(row)
		if !ok {
			return nil, apperr.New("wire.SignatureFromWire", apperr.TransportEncode)
		}
		z[i] = p
	}
	wv := make(ring.Vector, len(w.W))
	for i, row := range w.W {
		p, ok := ring.Decode(row)
		if !ok {
			return nil, apperr.New("wire.SignatureFromWire", apperr.TransportEncode)
		}
		wv[i] = p
	}
	chashBytes, err := hex.DecodeString(w.CHash)
	if err != nil || len(chashBytes) != 32 {
		return nil, apperr.New("wire.SignatureFromWire", apperr.TransportEncode)
	}
	var chash [32]byte
	copy(chash[:], chashBytes)
	return &signer.Signature{Z: z, W: wv, CHash: chash}, nil
}
