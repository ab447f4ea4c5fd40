package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/mesh"
)

// Sink receives chunk geometry as it becomes visible and is notified when
// it goes away. Calls come from the goroutine driving World.Tick.
type Sink interface {
	Show(c chunk.Coord, origin mgl32.Vec3, m *mesh.Mesh)
	Hide(c chunk.Coord)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Show(chunk.Coord, mgl32.Vec3, *mesh.Mesh) {}
func (NopSink) Hide(chunk.Coord)                         {}
