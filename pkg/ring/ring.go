// Package ring implements polynomial arithmetic over R_q = Z_q[X]/(X^N+1),
// the shared arithmetic substrate for the KEM, the single-party signer, and
// the threshold signer (§4.A). expand_a lives here once so that every
// consumer expands the same matrix from the same seed; a second, divergent
// implementation anywhere else would silently break verification.
package ring

import (
	"golang.org/x/crypto/sha3"

	"github.com/luxfi/qsp/internal/ringparams"
)

const (
	q = ringparams.Q
	n = ringparams.N
)

// Poly is a length-N vector of integers in [0, q); arithmetic on it is
// performed modulo X^N + 1.
type Poly [ringparams.N]int64

// Zero returns the zero polynomial.
func Zero() Poly {
	return Poly{}
}

// Add returns a+b mod q, coefficient-wise.
func Add(a, b Poly) Poly {
	var out Poly
	for i := range out {
		out[i] = mod(a[i] + b[i])
	}
	return out
}

// Sub returns a-b mod q, coefficient-wise.
func Sub(a, b Poly) Poly {
	var out Poly
	for i := range out {
		out[i] = mod(a[i] - b[i])
	}
	return out
}

// Scale multiplies every coefficient of a by the scalar s mod q.
func Scale(a Poly, s int64) Poly {
	var out Poly
	for i := range out {
		out[i] = mod(a[i] * s)
	}
	return out
}

// MulRq returns a*b mod (q, X^N+1) using schoolbook convolution with
// negacyclic reduction: X^N == -1, so a term landing at degree N+k folds
// back to degree k with a sign flip.
func MulRq(a, b Poly) Poly {
	var wide [2 * ringparams.N]int64
	for i := 0; i < n; i++ {
		if a[i] == 0 {
			continue
		}
		ai := a[i]
		for j := 0; j < n; j++ {
			wide[i+j] += ai * b[j]
		}
	}
	var out Poly
	for k := 0; k < n; k++ {
		out[k] = mod(wide[k] - wide[k+n])
	}
	return out
}

// mod reduces c into [0, q).
func mod(c int64) int64 {
	c %= q
	if c < 0 {
		c += q
	}
	return c
}

// CenterMod reduces c modulo m into (-m/2, m/2] (for odd m, into
// [-(m-1)/2, (m-1)/2]).
func CenterMod(c, m int64) int64 {
	c %= m
	if c < 0 {
		c += m
	}
	if c > m/2 {
		c -= m
	}
	return c
}

// Center reduces every coefficient of p into [-q/2, q/2).
func Center(p Poly) Poly {
	var out Poly
	for i := range out {
		out[i] = CenterMod(p[i], q)
	}
	return out
}

// InfNorm returns max(|c|) over the coefficients of p, assuming p has
// already been centered (or centers it itself).
func InfNorm(p Poly) int64 {
	c := Center(p)
	var max int64
	for _, v := range c {
		if v < 0 {
			v = -v
		}
		if v > max {
			max = v
		}
	}
	return max
}

// Decompose splits a mod q into (high, low) such that a == high*alpha + low
// (mod q) and low lies in (-alpha/2, alpha/2], following the standard
// lattice-signature HighBits/LowBits construction.
func Decompose(a, alpha int64) (high, low int64) {
	a = mod(a)
	low = CenterMod(a, alpha)
	if a-low == q-1 {
		return 0, low - 1
	}
	return (a - low) / alpha, low
}

// HighBits applies Decompose coefficient-wise and keeps the high part.
func HighBits(p Poly, alpha int64) Poly {
	var out Poly
	for i, c := range p {
		hi, _ := Decompose(c, alpha)
		out[i] = hi
	}
	return out
}

// LowBits applies Decompose coefficient-wise and keeps the low part,
// centered into the signed representation used for norm checks.
func LowBits(p Poly, alpha int64) Poly {
	var out Poly
	for i, c := range p {
		_, lo := Decompose(c, alpha)
		out[i] = lo
	}
	return out
}

// Encode serializes p as N decimal coefficients for the wire codec; callers
// needing a fixed numeric width use this rather than reaching into the
// array directly so the encoding stays in one place.
func (p Poly) Encode() []int64 {
	out := make([]int64, n)
	copy(out, p[:])
	return out
}

// Decode reconstructs a Poly from N coefficients in [0, q).
func Decode(coeffs []int64) (Poly, bool) {
	if len(coeffs) != n {
		return Poly{}, false
	}
	var out Poly
	for i, c := range coeffs {
		if c < 0 || c >= q {
			return Poly{}, false
		}
		out[i] = c
	}
	return out, true
}

// Vector is a length-dimensioned list of polynomials (used for s1, s2, u,
// y, z, w).
type Vector []Poly

// AddVec adds two vectors of equal length.
func AddVec(a, b Vector) Vector {
	out := make(Vector, len(a))
	for i := range a {
		out[i] = Add(a[i], b[i])
	}
	return out
}

// SubVec subtracts two vectors of equal length.
func SubVec(a, b Vector) Vector {
	out := make(Vector, len(a))
	for i := range a {
		out[i] = Sub(a[i], b[i])
	}
	return out
}

// ScaleVec multiplies every polynomial in v by the scalar polynomial c.
func ScaleVec(v Vector, c Poly) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = MulRq(c, v[i])
	}
	return out
}

// CenterVec centers every polynomial in v.
func CenterVec(v Vector) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = Center(v[i])
	}
	return out
}

// InfNormVec returns the max infinity norm over all polynomials in v.
func InfNormVec(v Vector) int64 {
	var max int64
	for _, p := range v {
		if m := InfNorm(p); m > max {
			max = m
		}
	}
	return max
}

// HighBitsVec applies HighBits element-wise.
func HighBitsVec(v Vector, alpha int64) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = HighBits(v[i], alpha)
	}
	return out
}

// LowBitsVec applies LowBits element-wise.
func LowBitsVec(v Vector, alpha int64) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = LowBits(v[i], alpha)
	}
	return out
}

// Dot computes the inner product of two equal-length vectors: sum_i a_i*b_i.
func Dot(a, b Vector) Poly {
	out := Zero()
	for i := range a {
		out = Add(out, MulRq(a[i], b[i]))
	}
	return out
}

// Matrix is a k x l matrix of polynomials, A in spec.md.
type Matrix [][]Poly

// MulVec computes A*v for a k x l matrix A and a length-l vector v,
// returning a length-k vector.
func (a Matrix) MulVec(v Vector) Vector {
	out := make(Vector, len(a))
	for i := range a {
		row := Zero()
		for j := range a[i] {
			row = Add(row, MulRq(a[i][j], v[j]))
		}
		out[i] = row
	}
	return out
}

// Transpose returns the l x k transpose of a k x l matrix.
func (a Matrix) Transpose() Matrix {
	if len(a) == 0 {
		return Matrix{}
	}
	k := len(a)
	l := len(a[0])
	out := make(Matrix, l)
	for j := 0; j < l; j++ {
		out[j] = make([]Poly, k)
		for i := 0; i < k; i++ {
			out[j][i] = a[i][j]
		}
	}
	return out
}

// ExpandA deterministically expands a 32-byte seed into a k x l matrix of
// polynomials via SHAKE-128 with rejection sampling, as required by §4.A.
// The same function is shared by the KEM, the single-party signer, and the
// threshold signer so that all parties derive an identical A.
func ExpandA(seed [ringparams.SeedSize]byte, k, l int) Matrix {
	a := make(Matrix, k)
	for i := 0; i < k; i++ {
		a[i] = make([]Poly, l)
		for j := 0; j < l; j++ {
			a[i][j] = expandEntry(seed, byte(i), byte(j))
		}
	}
	return a
}

// expandEntry derives one entry A[i][j] from SHAKE128(seed || i || j) by
// rejection-sampling 23-bit candidates into [0, q).
func expandEntry(seed [ringparams.SeedSize]byte, i, j byte) Poly {
	h := sha3.NewShake128()
	h.Write(seed[:])
	h.Write([]byte{i, j})

	var out Poly
	count := 0
	var buf [3]byte
	for count < n {
		if _, err := h.Read(buf[:]); err != nil {
			panic("ring: shake128 read failed: " + err.Error())
		}
		t := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
		t &= 0x7FFFFF // 23 bits; q < 2^23
		if int64(t) < q {
			out[count] = int64(t)
			count++
		}
	}
	return out
}
