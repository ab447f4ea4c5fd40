package block

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/mesh"
)

// CubeUnits is the number of fractional subdivisions per block edge.
const CubeUnits = 16

// faceTemplate is the -z face of a unit cube centred on the origin.
var faceTemplate = [4]mgl32.Vec3{
	{-0.5, -0.5, -0.5},
	{-0.5, 0.5, -0.5},
	{0.5, 0.5, -0.5},
	{0.5, -0.5, -0.5},
}

var faceUVs = [4]mgl32.Vec2{
	{1, 1},
	{1, 0},
	{0, 0},
	{0, 1},
}

// Face is one side of a cube.
type Face struct {
	Texture mesh.UVRect
	// Cull omits the face when the neighbour in this direction is opaque.
	// NoDirection keeps the face unconditionally.
	Cull Direction
}

// Cube is an axis-aligned box inside a block, in 1/CubeUnits steps.
type Cube struct {
	Min, Max [3]uint8
	Faces    [6]Face
}

// FullCube returns a cube covering the whole block with every face culled
// against its own direction.
func FullCube(textures [6]mesh.UVRect) Cube {
	c := Cube{Max: [3]uint8{CubeUnits, CubeUnits, CubeUnits}}
	for _, d := range Directions {
		c.Faces[d] = Face{Texture: textures[d], Cull: d}
	}
	return c
}

func (c *Cube) minf() mgl32.Vec3 {
	return mgl32.Vec3{float32(c.Min[0]), float32(c.Min[1]), float32(c.Min[2])}.Mul(1.0 / CubeUnits)
}

func (c *Cube) maxf() mgl32.Vec3 {
	return mgl32.Vec3{float32(c.Max[0]), float32(c.Max[1]), float32(c.Max[2])}.Mul(1.0 / CubeUnits)
}

// AppendFaces emits one quad per face of the cube placed at pos, skipping
// faces whose cull direction is occupied.
func (c *Cube) AppendFaces(m *mesh.Mesh, pos mgl32.Vec3, occupied [6]bool) {
	lo, hi := c.minf(), c.maxf()
	size := hi.Sub(lo)
	half := mgl32.Vec3{0.5, 0.5, 0.5}

	for _, d := range Directions {
		face := &c.Faces[d]
		if face.Cull == d && occupied[d] {
			continue
		}
		rot := d.Rotation()

		var corners [4]mgl32.Vec3
		for i, p := range faceTemplate {
			t := rot.Rotate(p).Add(half)
			corners[i] = mgl32.Vec3{
				lo[0] + t[0]*size[0] + pos[0],
				lo[1] + t[1]*size[1] + pos[1],
				lo[2] + t[2]*size[2] + pos[2],
			}
		}

		var uvs [4]mgl32.Vec2
		for i, uv := range faceUVs {
			uvs[i] = face.Texture.At(uv)
		}

		m.AddQuad(corners, d.Vec3(), uvs)
	}
}

// Definition describes how a block looks.
type Definition struct {
	Name string
	// Opaque blocks let their neighbours cull faces against them.
	Opaque bool
	Cubes  []Cube
}

// Mesh builds the block on its own at the origin, with nothing culled.
func (d *Definition) Mesh() *mesh.Mesh {
	m := mesh.New(len(d.Cubes) * 6)
	for i := range d.Cubes {
		d.Cubes[i].AppendFaces(m, mgl32.Vec3{}, [6]bool{})
	}
	return m
}
