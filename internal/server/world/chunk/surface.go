package chunk

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
)

const center = (Size - 1) / 2.0

// FromSurface maps surface coordinates (u, v) of the chunk face in direction
// d to the cell lying on that face. The -z face is the identity mapping
// (u, v) -> (u, v, 0); every other face is the same plane rotated by
// d.Rotation() about the chunk centre, the rotation used for block quads.
func FromSurface(d block.Direction, u, v int) (x, y, z int) {
	p := mgl32.Vec3{float32(u) - center, float32(v) - center, -center}
	p = d.Rotation().Rotate(p)
	return round(p[0] + center), round(p[1] + center), round(p[2] + center)
}

// ToSurface is the inverse of FromSurface. The cell must lie on the face in
// direction d.
func ToSurface(d block.Direction, x, y, z int) (u, v int) {
	p := mgl32.Vec3{float32(x) - center, float32(y) - center, float32(z) - center}
	p = d.Rotation().Inverse().Rotate(p)
	if w := round(p[2] + center); w != 0 {
		panic(fmt.Sprintf("chunk: cell (%d,%d,%d) is not on face %s", x, y, z, d))
	}
	return round(p[0] + center), round(p[1] + center)
}

func round(f float32) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
