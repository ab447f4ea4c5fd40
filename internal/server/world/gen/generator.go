package gen

import (
	"fmt"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
)

// Generator fills a chunk deterministically from its coordinate. It must be
// safe to call from several goroutines at once.
type Generator interface {
	Generate(c chunk.Coord) *chunk.Chunk
}

// Palette holds the block ids terrain is built from.
type Palette struct {
	Air, Stone, Dirt, Grass block.ID
}

// NewPalette resolves the terrain blocks by name. A registry lacking any of
// them is a configuration error.
func NewPalette(reg *block.Registry) (Palette, error) {
	ids, err := reg.Resolve("air", "stone", "dirt", "grass")
	if err != nil {
		return Palette{}, fmt.Errorf("palette: %w", err)
	}
	return Palette{Air: ids[0], Stone: ids[1], Dirt: ids[2], Grass: ids[3]}, nil
}

// Generator kinds accepted by New.
const (
	KindDefault = "default"
	KindFlat    = "flat"
)

// New builds the generator named by kind.
func New(kind string, params Params, palette Palette) (Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	switch kind {
	case KindDefault, "":
		return NewDefaultGenerator(params, palette)
	case KindFlat:
		return NewFlatGenerator((params.Height.Min+params.Height.Max)/2, params.DirtHeight, palette), nil
	default:
		return nil, fmt.Errorf("unknown generator %q", kind)
	}
}
