package mesh

import "github.com/go-gl/mathgl/mgl32"

// UVRect is a texture rectangle in normalized atlas coordinates.
type UVRect struct {
	Min, Max mgl32.Vec2
}

// At maps a point of the unit square onto the rectangle.
func (r UVRect) At(p mgl32.Vec2) mgl32.Vec2 {
	size := r.Max.Sub(r.Min)
	return mgl32.Vec2{r.Min[0] + p[0]*size[0], r.Min[1] + p[1]*size[1]}
}

// Mesh is an indexed triangle list. Positions, Normals and UVs are parallel
// per-vertex arrays; Indices reference them three at a time.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Indices   []uint32
}

// New returns an empty mesh with room for the given number of quads.
func New(quads int) *Mesh {
	return &Mesh{
		Positions: make([]mgl32.Vec3, 0, quads*4),
		Normals:   make([]mgl32.Vec3, 0, quads*4),
		UVs:       make([]mgl32.Vec2, 0, quads*4),
		Indices:   make([]uint32, 0, quads*6),
	}
}

// AddQuad appends four vertices sharing one normal and triangulates them as
// the fan (0,1,2) (0,2,3).
func (m *Mesh) AddQuad(corners [4]mgl32.Vec3, normal mgl32.Vec3, uvs [4]mgl32.Vec2) {
	j := uint32(len(m.Positions))
	m.Positions = append(m.Positions, corners[:]...)
	m.Normals = append(m.Normals, normal, normal, normal, normal)
	m.UVs = append(m.UVs, uvs[:]...)
	m.Indices = append(m.Indices, j, j+1, j+2, j, j+2, j+3)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Indices) == 0
}
