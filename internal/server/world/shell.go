package world

import "github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"

// shell calls fn for every coordinate at Chebyshev distance r from c, in a
// fixed order. It stops early and returns false once fn returns false.
func shell(c chunk.Coord, r int, fn func(chunk.Coord) bool) bool {
	if r == 0 {
		return fn(c)
	}
	for dy := -r; dy <= r; dy++ {
		for dz := -r; dz <= r; dz++ {
			step := 2 * r
			if dy == -r || dy == r || dz == -r || dz == r {
				step = 1
			}
			for dx := -r; dx <= r; dx += step {
				if !fn(c.Add(dx, dy, dz)) {
					return false
				}
			}
		}
	}
	return true
}

// shells walks shells 0..radius nearest first.
func shells(c chunk.Coord, radius int, fn func(chunk.Coord) bool) {
	for r := 0; r <= radius; r++ {
		if !shell(c, r, fn) {
			return
		}
	}
}
