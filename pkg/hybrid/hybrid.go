// Package hybrid implements Component C: a hybrid encryptor that wraps
// pkg/kemlattice with a SHAKE-256 stream cipher over an arbitrary payload
// (§4.C). There is no authentication tag on the stream body; integrity of
// the plaintext is instead enforced by the manifest's SHA-256 fingerprint
// (invariant I5), checked by the caller after DecryptWith.
package hybrid

import (
	"crypto/rand"
	"io"

	"golang.org/x/crypto/sha3"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/kemlattice"
	"github.com/luxfi/qsp/pkg/latticekey"
)

// Blob is the on-the-wire/at-rest encrypted-share representation (§3
// EncryptedBlob, §6 encrypted-share file).
type Blob struct {
	KEM  *kemlattice.Ciphertext
	Body []byte
}

// streamXOR XORs payload with SHAKE256(key, len(payload)), used both to
// seal and to open since the cipher is a symmetric one-time pad.
func streamXOR(key [ringparams.SessionKeySize]byte, payload []byte) []byte {
	mask := make([]byte, len(payload))
	h := sha3.NewShake256()
	h.Write(key[:])
	if _, err := io.ReadFull(h, mask); err != nil {
		panic("hybrid: shake256 read failed: " + err.Error())
	}
	out := make([]byte, len(payload))
	for i := range payload {
		out[i] = payload[i] ^ mask[i]
	}
	return out
}

// EncryptTo encrypts payload under pk: a fresh 32-byte key K is drawn,
// encapsulated via the KEM, and used once as a SHAKE256 stream-cipher key.
func EncryptTo(pk *latticekey.PublicKey, payload []byte) (*Blob, error) {
	var key [ringparams.SessionKeySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, apperr.Wrap("hybrid.EncryptTo", apperr.TransportEncode, err)
	}

	ct, err := kemlattice.Encaps(pk, key)
	if err != nil {
		return nil, apperr.Wrap("hybrid.EncryptTo", apperr.TransportEncode, err)
	}

	return &Blob{KEM: ct, Body: streamXOR(key, payload)}, nil
}

// DecryptWith recovers the original payload using sk. It fails with
// Crypto.Decap if the KEM ciphertext cannot be decapsulated.
func DecryptWith(sk *latticekey.SecretKey, blob *Blob) ([]byte, error) {
	key, ok := kemlattice.Decaps(sk, blob.KEM)
	if !ok {
		return nil, apperr.New("hybrid.DecryptWith", apperr.CryptoDecap)
	}
	return streamXOR(key, blob.Body), nil
}
