package ring

import (
	"encoding/binary"
	"io"
)

// SampleBoundedPoly draws a polynomial whose coefficients are uniform in
// [-bound, bound], reading randomness from rnd. Used for s1/s2 (bound=Eta),
// for the KEM's r/e1/e2, and for y (bound=Gamma1>>3).
func SampleBoundedPoly(rnd io.Reader, bound int64) Poly {
	var out Poly
	span := uint64(2*bound + 1)
	var buf [8]byte
	for i := range out {
		if _, err := io.ReadFull(rnd, buf[:]); err != nil {
			panic("ring: sample read failed: " + err.Error())
		}
		v := binary.LittleEndian.Uint64(buf[:])
		out[i] = mod(int64(v%span) - bound)
	}
	return out
}

// SampleBoundedVector draws dim independent bounded polynomials.
func SampleBoundedVector(rnd io.Reader, dim int, bound int64) Vector {
	out := make(Vector, dim)
	for i := range out {
		out[i] = SampleBoundedPoly(rnd, bound)
	}
	return out
}
