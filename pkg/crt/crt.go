// Package crt implements Component F: Arnold-scramble-then-CRT-residue
// image secret sharing and its reconstruction (§4.F).
package crt

import (
	"math/big"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
)

// Image is a decoded RGB raster. PNG/JPEG I/O is an explicit external
// collaborator (spec.md §1); this package only ever sees raw pixels.
type Image struct {
	Width, Height int
	Pixels        []uint16 // length Height*Width*3, row-major RGB, values 0-255
}

// Share is one participant's CRT residue share of a locked image (§3).
type Share struct {
	Index         int
	Modulus       int64
	Data          []uint16 // length Shape[0]*Shape[1]*Shape[2]
	Shape         [3]int   // (H, W, 3) of the padded/scrambled image
	OriginalShape [2]int   // (H0, W0) of the original image
}

// squareSize returns the padded square side length for an H0 x W0 image.
func squareSize(h, w int) int {
	if h > w {
		return h
	}
	return w
}

func padToSquare(img Image) Image {
	size := squareSize(img.Height, img.Width)
	out := make([]uint16, size*size*3)
	for y := 0; y < img.Height; y++ {
		copy(out[(y*size+0)*3:(y*size+img.Width)*3], img.Pixels[(y*img.Width+0)*3:(y*img.Width+img.Width)*3])
	}
	return Image{Width: size, Height: size, Pixels: out}
}

// Split divides img into n CRT residue shares, any t of which reconstruct
// it exactly (§4.F). moduli must have length n, be pairwise coprime, and
// every entry must be at least ringparams.QPixel (I2).
func Split(img Image, n, t int, moduli []int64) ([]Share, error) {
	if t < 1 || t > n {
		return nil, apperr.New("crt.Split", apperr.Param)
	}
	if len(moduli) != n {
		return nil, apperr.New("crt.Split", apperr.Param)
	}
	for _, m := range moduli {
		if m < ringparams.QPixel {
			return nil, apperr.New("crt.Split", apperr.Param)
		}
	}
	if !pairwiseCoprime(moduli) {
		return nil, apperr.New("crt.Split", apperr.Param)
	}

	padded := padToSquare(img)
	scrambled := arnoldScramble(padded.Pixels, padded.Width, ringparams.ArnoldIterations)

	shape := [3]int{padded.Height, padded.Width, 3}
	original := [2]int{img.Height, img.Width}

	shares := make([]Share, n)
	for i, m := range moduli {
		data := make([]uint16, len(scrambled))
		for k, p := range scrambled {
			// x = quotient*QPixel + (p mod QPixel); since p < 256 < QPixel,
			// quotient is always 0 and x == p exactly (§4.F).
			x := int64(p)
			data[k] = uint16(x % m)
		}
		shares[i] = Share{
			Index:         i,
			Modulus:       m,
			Data:          data,
			Shape:         shape,
			OriginalShape: original,
		}
	}
	return shares, nil
}

// Reconstruct recovers the original image from any >= t shares (the caller
// picks which). Every coordinate of every share is checked against its own
// modulus before use; an out-of-range residue is treated as tampering
// (Data.Tamper), not trusted silently.
func Reconstruct(shares []Share) (Image, error) {
	if len(shares) == 0 {
		return Image{}, apperr.New("crt.Reconstruct", apperr.Param)
	}
	shape := shares[0].Shape
	original := shares[0].OriginalShape
	moduli := make([]int64, len(shares))
	for i, s := range shares {
		if s.Shape != shape || s.OriginalShape != original {
			return Image{}, apperr.New("crt.Reconstruct", apperr.Param)
		}
		for _, v := range s.Data {
			if int64(v) >= s.Modulus {
				return Image{}, apperr.New("crt.Reconstruct", apperr.DataTamper)
			}
		}
		moduli[i] = s.Modulus
	}

	total := shape[0] * shape[1] * shape[2]
	out := make([]uint16, total)

	M, Mi, yi := crtPrecompute(moduli)
	for k := 0; k < total; k++ {
		y := new(big.Int)
		for i, s := range shares {
			term := new(big.Int).SetInt64(int64(s.Data[k]))
			term.Mul(term, Mi[i])
			term.Mul(term, yi[i])
			y.Add(y, term)
		}
		y.Mod(y, M)

		pixel := new(big.Int).Mod(y, big.NewInt(ringparams.QPixel))
		out[k] = uint16(pixel.Int64())
	}

	unscrambled := arnoldUnscramble(out, shape[1], ringparams.ArnoldIterations)

	cropped := make([]uint16, original[0]*original[1]*3)
	for y := 0; y < original[0]; y++ {
		srcRow := unscrambled[(y*shape[1])*3 : (y*shape[1]+original[1])*3]
		copy(cropped[y*original[1]*3:(y+1)*original[1]*3], srcRow)
	}

	return Image{Width: original[1], Height: original[0], Pixels: cropped}, nil
}

// crtPrecompute computes M = prod(moduli), M_i = M/m_i, and y_i =
// modinv(M_i mod m_i, m_i) for the Chinese Remainder combination.
func crtPrecompute(moduli []int64) (M *big.Int, Mi, yi []*big.Int) {
	M = big.NewInt(1)
	for _, m := range moduli {
		M.Mul(M, big.NewInt(m))
	}
	Mi = make([]*big.Int, len(moduli))
	yi = make([]*big.Int, len(moduli))
	for i, m := range moduli {
		bm := big.NewInt(m)
		mi := new(big.Int).Div(M, bm)
		Mi[i] = mi
		reduced := new(big.Int).Mod(mi, bm)
		yi[i] = new(big.Int).ModInverse(reduced, bm)
	}
	return M, Mi, yi
}

func pairwiseCoprime(moduli []int64) bool {
	for i := 0; i < len(moduli); i++ {
		for j := i + 1; j < len(moduli); j++ {
			if gcd(moduli[i], moduli[j]) != 1 {
				return false
			}
		}
	}
	return true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
