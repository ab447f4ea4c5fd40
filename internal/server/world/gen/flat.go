package gen

import (
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
)

// FlatGenerator builds a flat world: stone up to a fixed surface, a few
// layers of dirt and one of grass on top.
type FlatGenerator struct {
	surface    int // y of the grass layer
	dirtHeight int
	palette    Palette
}

// NewFlatGenerator creates a FlatGenerator with grass at y=surface.
func NewFlatGenerator(surface, dirtHeight int, palette Palette) *FlatGenerator {
	return &FlatGenerator{surface: surface, dirtHeight: dirtHeight, palette: palette}
}

// At returns the block at world height y.
func (g *FlatGenerator) At(y int) block.ID {
	switch {
	case y > g.surface:
		return g.palette.Air
	case y == g.surface:
		return g.palette.Grass
	case y >= g.surface-g.dirtHeight:
		return g.palette.Dirt
	default:
		return g.palette.Stone
	}
}

func (g *FlatGenerator) Generate(pos chunk.Coord) *chunk.Chunk {
	minY := pos.Y * chunk.Size
	if bottom, top := g.At(minY), g.At(minY+chunk.Size-1); bottom == top {
		return chunk.New(bottom)
	}

	c := chunk.New(g.palette.Air)
	for y := 0; y < chunk.Size; y++ {
		id := g.At(minY + y)
		for z := 0; z < chunk.Size; z++ {
			for x := 0; x < chunk.Size; x++ {
				c.Set(x, y, z, id)
			}
		}
	}
	return c
}
