package crt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/qsp/pkg/apperr"
)

func checkerboard4x4() Image {
	pixels := make([]uint16, 4*4*3)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			var v uint16
			if (x+y)%2 == 0 {
				v = 255
			}
			base := (y*4 + x) * 3
			pixels[base+0] = v
			pixels[base+1] = v
			pixels[base+2] = v
		}
	}
	return Image{Width: 4, Height: 4, Pixels: pixels}
}

func TestSplitReconstructAnyTwoOfThree(t *testing.T) {
	img := checkerboard4x4()
	moduli := []int64{257, 263, 269}

	shares, err := Split(img, 3, 2, moduli)
	require.NoError(t, err)
	require.Len(t, shares, 3)

	pairs := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	for _, pair := range pairs {
		subset := []Share{shares[pair[0]], shares[pair[1]]}
		got, err := Reconstruct(subset)
		require.NoError(t, err)
		require.Equal(t, img.Pixels, got.Pixels)
	}
}

func TestReconstructSubsetIndependence(t *testing.T) {
	img := checkerboard4x4()
	moduli := []int64{257, 263, 269, 271, 277}

	shares, err := Split(img, 5, 3, moduli)
	require.NoError(t, err)

	a := []Share{shares[0], shares[2], shares[4]}
	b := []Share{shares[1], shares[2], shares[3]}

	gotA, err := Reconstruct(a)
	require.NoError(t, err)
	gotB, err := Reconstruct(b)
	require.NoError(t, err)

	require.Equal(t, gotA.Pixels, gotB.Pixels)
	require.Equal(t, img.Pixels, gotA.Pixels)
}

func TestReconstructDetectsOutOfRangeResidue(t *testing.T) {
	img := checkerboard4x4()
	moduli := []int64{257, 263}

	shares, err := Split(img, 2, 2, moduli)
	require.NoError(t, err)

	shares[0].Data[0] = uint16(shares[0].Modulus) // out of range: must be < modulus

	_, err = Reconstruct(shares)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.DataTamper))
}

func TestSplitRejectsModulusTooSmall(t *testing.T) {
	img := checkerboard4x4()
	_, err := Split(img, 2, 2, []int64{257, 200})
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Param))
}

func TestNonSquareImageRoundTrips(t *testing.T) {
	pixels := make([]uint16, 3*5*3)
	for i := range pixels {
		pixels[i] = uint16((i * 7) % 256)
	}
	img := Image{Width: 5, Height: 3, Pixels: pixels}
	moduli := []int64{257, 263, 269}

	shares, err := Split(img, 3, 2, moduli)
	require.NoError(t, err)

	got, err := Reconstruct([]Share{shares[0], shares[1]})
	require.NoError(t, err)
	require.Equal(t, img.Width, got.Width)
	require.Equal(t, img.Height, got.Height)
	require.Equal(t, img.Pixels, got.Pixels)
}
