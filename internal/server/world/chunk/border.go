package chunk

import (
	"math/bits"
	"strings"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
)

// Border records which cells on one face of a chunk hold an opaque block,
// indexed by surface coordinates (u, v). It is all a neighbour needs to
// cull faces across the chunk boundary.
type Border [Size * Size / 64]uint64

func bit(u, v int) (word int, mask uint64) {
	if uint(u) >= Size || uint(v) >= Size {
		panic("chunk: border coordinate out of range")
	}
	i := u + v*Size
	return i / 64, 1 << (i % 64)
}

// Occupied reports whether (u, v) is opaque. A nil border is empty.
func (b *Border) Occupied(u, v int) bool {
	if b == nil {
		return false
	}
	w, m := bit(u, v)
	return b[w]&m != 0
}

// Set marks (u, v) as opaque.
func (b *Border) Set(u, v int) {
	w, m := bit(u, v)
	b[w] |= m
}

// Count returns the number of opaque cells.
func (b *Border) Count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// String draws the border as Size rows of '#' (opaque) and '.' cells, v
// increasing downwards.
func (b *Border) String() string {
	var sb strings.Builder
	sb.Grow(Size * (Size + 1))
	for v := 0; v < Size; v++ {
		for u := 0; u < Size; u++ {
			if b.Occupied(u, v) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Border computes the opacity mask of the face in direction d.
func (c *Chunk) Border(d block.Direction, reg *block.Registry) *Border {
	b := &Border{}
	for v := 0; v < Size; v++ {
		for u := 0; u < Size; u++ {
			x, y, z := FromSurface(d, u, v)
			if reg.Opaque(c.Get(x, y, z)) {
				b.Set(u, v)
			}
		}
	}
	return b
}
