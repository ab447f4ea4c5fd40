package world

import (
	"fmt"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/mesh"
)

// State is the lifecycle stage of a chunk.
type State uint8

const (
	Unloaded State = iota
	Generating
	DensityReady
	MeshPending
	Meshing
	Visible
)

var stateNames = [...]string{"unloaded", "generating", "density_ready", "mesh_pending", "meshing", "visible"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown chunk state %q", text)
}

// ready reports whether the chunk's blocks are available to neighbours.
func (s State) ready() bool {
	return s >= DensityReady
}

// entry is the scheduler's record of one chunk coordinate.
type entry struct {
	serial uint64
	state  State
	chunk  *chunk.Chunk
	// borders caches the chunk's faces, computed on first use by a
	// neighbour's meshing.
	borders [6]*chunk.Border
	mesh    *mesh.Mesh
	// missing counts face neighbours that are not ready yet. Only
	// meaningful in DensityReady.
	missing int
}

func (e *entry) border(d block.Direction, reg *block.Registry) *chunk.Border {
	if e.borders[d] == nil {
		e.borders[d] = e.chunk.Border(d, reg)
	}
	return e.borders[d]
}

type taskKind uint8

const (
	kindGenerate taskKind = iota
	kindMesh
)

func (k taskKind) String() string {
	if k == kindMesh {
		return "mesh"
	}
	return "generate"
}

// inflight is an outstanding task and the entry it was spawned for.
type inflight struct {
	coord  chunk.Coord
	serial uint64
	kind   taskKind
	gen    *Task[*chunk.Chunk]
	mesh   *Task[*mesh.Mesh]
}
