package crt

// arnoldScramble applies the discrete Arnold cat map
// (x', y') = ((2x+y) mod size, (x+y) mod size) to every pixel position of a
// size x size x 3 image, iterations times. It diffuses spatial structure
// before residue splitting so that a single CRT residue share reveals
// nothing about neighboring pixels (§4.F, Glossary "Arnold scramble").
func arnoldScramble(pixels []uint16, size, iterations int) []uint16 {
	cur := append([]uint16(nil), pixels...)
	for it := 0; it < iterations; it++ {
		next := make([]uint16, len(cur))
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				nx := (2*x + y) % size
				ny := (x + y) % size
				srcBase := (y*size + x) * 3
				dstBase := (ny*size + nx) * 3
				next[dstBase+0] = cur[srcBase+0]
				next[dstBase+1] = cur[srcBase+1]
				next[dstBase+2] = cur[srcBase+2]
			}
		}
		cur = next
	}
	return cur
}

// arnoldUnscramble applies the inverse map
// (x', y') = ((x-y) mod size, (-x+2y) mod size), the inverse of the 2x2
// matrix [[2,1],[1,1]] used by arnoldScramble, iterations times.
func arnoldUnscramble(pixels []uint16, size, iterations int) []uint16 {
	cur := append([]uint16(nil), pixels...)
	for it := 0; it < iterations; it++ {
		next := make([]uint16, len(cur))
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				nx := ((x-y)%size + size) % size
				ny := ((-x+2*y)%size + size) % size
				srcBase := (y*size + x) * 3
				dstBase := (ny*size + nx) * 3
				next[dstBase+0] = cur[srcBase+0]
				next[dstBase+1] = cur[srcBase+1]
				next[dstBase+2] = cur[srcBase+2]
			}
		}
		cur = next
	}
	return cur
}
