// Package wire implements Component K: the manifest and wire-message codec.
//
// Manifests, key files, and protocol message envelopes are JSON per §6.
// The encrypted-share blob's inner serialization instead uses
// github.com/fxamacker/cbor/v2 in its canonical encoding mode: CBOR fixes a
// single deterministic byte representation for nested integer arrays,
// whereas JSON leaves map ordering and number formatting
// implementation-defined — important here because the manifest's
// share_fingerprint (I5) is a SHA-256 of these exact bytes, computed once by
// the Dealer and re-verified once by the recipient.
package wire

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/crt"
	"github.com/luxfi/qsp/pkg/hybrid"
	"github.com/luxfi/qsp/pkg/kemlattice"
	"github.com/luxfi/qsp/pkg/ring"
)

var canonicalMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("wire: building canonical CBOR encoder: " + err.Error())
	}
	return m
}()

// shareWire is the canonical wire shape of a crt.Share.
type shareWire struct {
	Index         int      `cbor:"index"`
	Modulus       int64    `cbor:"modulus"`
	Data          []uint16 `cbor:"data"`
	Shape         [3]int   `cbor:"shape"`
	OriginalShape [2]int   `cbor:"original_shape"`
}

// EncodeShare canonically serializes a Share. §4.G step 2 hashes this
// exact byte string to produce share_fingerprint.
func EncodeShare(s crt.Share) ([]byte, error) {
	w := shareWire{
		Index:         s.Index,
		Modulus:       s.Modulus,
		Data:          s.Data,
		Shape:         s.Shape,
		OriginalShape: s.OriginalShape,
	}
	data, err := canonicalMode.Marshal(w)
	if err != nil {
		return nil, apperr.Wrap("wire.EncodeShare", apperr.TransportEncode, err)
	}
	return data, nil
}

// DecodeShare is the inverse of EncodeShare.
func DecodeShare(data []byte) (crt.Share, error) {
	var w shareWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return crt.Share{}, apperr.Wrap("wire.DecodeShare", apperr.TransportEncode, err)
	}
	return crt.Share{
		Index:         w.Index,
		Modulus:       w.Modulus,
		Data:          w.Data,
		Shape:         w.Shape,
		OriginalShape: w.OriginalShape,
	}, nil
}

// kemCiphertextWire is the canonical wire shape of a KEM ciphertext:
// {u:[[int;N];l], v:[int;N]} per §6.
type kemCiphertextWire struct {
	U [][]int64 `cbor:"u"`
	V []int64   `cbor:"v"`
}

// blobWire is the canonical wire shape of the encrypted-share file (§6):
// {kem: {u, v}, body: bytes}.
type blobWire struct {
	KEM  kemCiphertextWire `cbor:"kem"`
	Body []byte            `cbor:"body"`
}

// EncodeBlob canonically serializes an EncryptedBlob for the .dat file.
func EncodeBlob(blob *hybrid.Blob) ([]byte, error) {
	w := blobWire{
		KEM: kemCiphertextWire{
			U: vectorToInts(blob.KEM.U),
			V: blob.KEM.V.Encode(),
		},
		Body: blob.Body,
	}
	data, err := canonicalMode.Marshal(w)
	if err != nil {
		return nil, apperr.Wrap("wire.EncodeBlob", apperr.TransportEncode, err)
	}
	return data, nil
}

// DecodeBlob is the inverse of EncodeBlob.
func DecodeBlob(data []byte) (*hybrid.Blob, error) {
	var w blobWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, apperr.Wrap("wire.DecodeBlob", apperr.TransportEncode, err)
	}
	u := make(ring.Vector, len(w.U))
	for i, row := range w.U {
		p, ok := ring.Decode(row)
		if !ok {
			return nil, apperr.New("wire.DecodeBlob", apperr.TransportEncode)
		}
		u[i] = p
	}
	v, ok := ring.Decode(w.V)
	if !ok {
		return nil, apperr.New("wire.DecodeBlob", apperr.TransportEncode)
	}
	return &hybrid.Blob{
		KEM:  &kemlattice.Ciphertext{U: u, V: v},
		Body: w.Body,
	}, nil
}

func vectorToInts(v ring.Vector) [][]int64 {
	out := make([][]int64, len(v))
	for i, p := range v {
		out[i] = p.Encode()
	}
	return out
}
