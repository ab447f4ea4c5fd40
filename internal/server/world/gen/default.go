package gen

import (
	"fmt"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
)

// DefaultGenerator carves terrain from a ridged noise density field biased
// by height, then layers grass and dirt over the stone.
type DefaultGenerator struct {
	params  Params
	palette Palette
	noise   *Ridged
}

// NewDefaultGenerator validates params and builds the noise stack.
func NewDefaultGenerator(params Params, palette Palette) (*DefaultGenerator, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("terrain params: %w", err)
	}
	return &DefaultGenerator{
		params:  params,
		palette: palette,
		noise: NewRidged(params.Seed, params.NoiseOctaves, params.NoiseFrequency,
			params.NoiseLacunarity, params.NoisePersistence, params.NoiseAttenuation),
	}, nil
}

// Params returns the parameters the generator was built with.
func (g *DefaultGenerator) Params() Params {
	return g.params
}

// Solid reports whether the density field is solid at a world cell.
func (g *DefaultGenerator) Solid(x, y, z int) bool {
	n := g.noise.At(float64(x), float64(y), float64(z))
	value := g.params.BaseStrength*n + g.params.normalize(y)
	return g.params.BaseLimit.Contains(value)
}

func (g *DefaultGenerator) Generate(pos chunk.Coord) *chunk.Chunk {
	p := &g.params
	minY := pos.Y * chunk.Size
	switch {
	case minY >= p.Height.Max:
		return chunk.New(g.palette.Air)
	case minY+chunk.Size-1 < p.Height.Min-1:
		return chunk.New(g.palette.Stone)
	}

	// Sample density over the chunk plus DirtHeight cells above it so the
	// layering pass can look upwards without touching the neighbour.
	o := pos.Origin()
	ox, oz := int(o[0]), int(o[2])
	rows := chunk.Size + p.DirtHeight
	solid := make([]bool, chunk.Size*chunk.Size*rows)
	at := func(x, y, z int) int { return x + chunk.Size*(z+chunk.Size*y) }
	for y := 0; y < rows; y++ {
		for z := 0; z < chunk.Size; z++ {
			for x := 0; x < chunk.Size; x++ {
				solid[at(x, y, z)] = g.Solid(ox+x, minY+y, oz+z)
			}
		}
	}

	c := chunk.New(g.palette.Air)
	for y := 0; y < chunk.Size; y++ {
		inDirt := p.DirtRange.Contains(minY + y)
		for z := 0; z < chunk.Size; z++ {
			for x := 0; x < chunk.Size; x++ {
				if !solid[at(x, y, z)] {
					continue
				}
				id := g.palette.Stone
				if inDirt {
					id = g.layer(solid, at(x, y, z))
				}
				c.Set(x, y, z, id)
			}
		}
	}
	return c
}

// layer picks the block for a solid cell from the first gap above it.
func (g *DefaultGenerator) layer(solid []bool, i int) block.ID {
	const stride = chunk.Size * chunk.Size
	if !solid[i+stride] {
		return g.palette.Grass
	}
	for k := 2; k <= g.params.DirtHeight; k++ {
		if !solid[i+k*stride] {
			return g.palette.Dirt
		}
	}
	return g.palette.Stone
}
