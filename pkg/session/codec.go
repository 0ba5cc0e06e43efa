package session

import (
	"encoding/json"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/ring"
)

// vectorWire is the {v: [[int;N]; dim]} JSON shape used for commitment and
// response payloads inside the SECURE tunnel (§6 "nested JSON integer
// lists").
type vectorWire struct {
	V [][]int64 `json:"v"`
}

func encodeVector(v ring.Vector) ([]byte, error) {
	rows := make([][]int64, len(v))
	for i, p := range v {
		row := p.Encode()
		for j, c := range row {
			if c < 0 {
				row[j] = c + ringparams.Q // centered commitments travel as [0, q) residues
			}
		}
		rows[i] = row
	}
	data, err := json.Marshal(vectorWire{V: rows})
	if err != nil {
		return nil, apperr.Wrap("session.encodeVector", apperr.TransportEncode, err)
	}
	return data, nil
}

func decodeVector(data []byte) (ring.Vector, error) {
	var w vectorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, apperr.Wrap("session.decodeVector", apperr.TransportEncode, err)
	}
	out := make(ring.Vector, len(w.V))
	for i, row := range w.V {
		p, ok := ring.Decode(row)
		if !ok {
			return nil, apperr.New("session.decodeVector", apperr.TransportEncode)
		}
		out[i] = p
	}
	return out, nil
}

// challengeWire is the BROAD_CHALLENGE payload: {m_hash, ts, w} (§4.J).
type challengeWire struct {
	MHash []byte    `json:"m_hash"`
	TS    int64     `json:"ts"`
	W     [][]int64 `json:"w"`
}

func encodeChallenge(msg []byte, ts int64, w ring.Vector) ([]byte, error) {
	rows := make([][]int64, len(w))
	for i, p := range w {
		rows[i] = p.Encode()
	}
	data, err := json.Marshal(challengeWire{MHash: msg, TS: ts, W: rows})
	if err != nil {
		return nil, apperr.Wrap("session.encodeChallenge", apperr.TransportEncode, err)
	}
	return data, nil
}

func decodeChallenge(data []byte) (msg []byte, ts int64, w ring.Vector, err error) {
	var cw challengeWire
	if err := json.Unmarshal(data, &cw); err != nil {
		return nil, 0, nil, apperr.Wrap("session.decodeChallenge", apperr.TransportEncode, err)
	}
	w = make(ring.Vector, len(cw.W))
	for i, row := range cw.W {
		p, ok := ring.Decode(row)
		if !ok {
			return nil, 0, nil, apperr.New("session.decodeChallenge", apperr.TransportEncode)
		}
		w[i] = p
	}
	return cw.MHash, cw.TS, w, nil
}

// responseWire is the RES_RESPONSE payload: {z, declined} (§4.J authorization hook).
type responseWire struct {
	Z        [][]int64 `json:"z"`
	Declined bool      `json:"declined"`
}

func encodeResponse(z ring.Vector, declined bool) ([]byte, error) {
	rows := make([][]int64, len(z))
	for i, p := range z {
		rows[i] = p.Encode()
	}
	data, err := json.Marshal(responseWire{Z: rows, Declined: declined})
	if err != nil {
		return nil, apperr.Wrap("session.encodeResponse", apperr.TransportEncode, err)
	}
	return data, nil
}

func decodeResponse(data []byte) (ring.Vector, bool, error) {
	var rw responseWire
	if err := json.Unmarshal(data, &rw); err != nil {
		return nil, false, apperr.Wrap("session.decodeResponse", apperr.TransportEncode, err)
	}
	if rw.Declined {
		return nil, true, nil
	}
	z := make(ring.Vector, len(rw.Z))
	for i, row := range rw.Z {
		p, ok := ring.Decode(row)
		if !ok {
			return nil, false, apperr.New("session.decodeResponse", apperr.TransportEncode)
		}
		z[i] = p
	}
	return z, false, nil
}
