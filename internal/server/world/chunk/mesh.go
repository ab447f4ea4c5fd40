package chunk

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/mesh"
)

// Neighbors holds, per direction d, the border the neighbouring chunk in d
// exposes towards this chunk, i.e. neighbour.Border(d.Inverse()). A nil
// entry counts as fully unoccupied.
type Neighbors [6]*Border

// Mesh builds the chunk's surface geometry in chunk-local coordinates.
// Faces are culled against opaque cells inside the chunk and against the
// neighbour borders at the chunk boundary.
func (c *Chunk) Mesh(reg *block.Registry, borders Neighbors) *mesh.Mesh {
	m := mesh.New(0)
	for z := 0; z < Size; z++ {
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				def := reg.Definition(c.blocks[x+Size*(y+Size*z)])
				if len(def.Cubes) == 0 {
					continue
				}

				var occupied [6]bool
				hidden := true
				for _, d := range block.Directions {
					occupied[d] = c.occupied(reg, &borders, d, x, y, z)
					hidden = hidden && occupied[d]
				}
				if hidden {
					continue
				}

				pos := mgl32.Vec3{float32(x), float32(y), float32(z)}
				for i := range def.Cubes {
					def.Cubes[i].AppendFaces(m, pos, occupied)
				}
			}
		}
	}
	return m
}

func (c *Chunk) occupied(reg *block.Registry, borders *Neighbors, d block.Direction, x, y, z int) bool {
	dx, dy, dz := d.Offset()
	nx, ny, nz := x+dx, y+dy, z+dz
	if InBounds(nx, ny, nz) {
		return reg.Opaque(c.Get(nx, ny, nz))
	}
	b := borders[d]
	if b == nil {
		return false
	}
	// The neighbour's cell sits on its face looking back at us.
	u, v := ToSurface(d.Inverse(), (nx+Size)%Size, (ny+Size)%Size, (nz+Size)%Size)
	return b.Occupied(u, v)
}
