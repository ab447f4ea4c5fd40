package gen

import (
	"fmt"
	"math"
)

// Ridged is a ridged multifractal built from layered simplex octaves. Each
// octave folds the noise around zero, squares it and weights it by the
// previous octave's signal, which sharpens ridges and smooths valleys.
type Ridged struct {
	octaves     []*NoiseGenerator
	frequency   float64
	lacunarity  float64
	persistence float64
	attenuation float64
	amplitude   float64 // sum of persistence^i over all octaves
}

// NewRidged creates a fractal whose octave i is seeded with seed+i.
func NewRidged(seed int64, octaves int, frequency, lacunarity, persistence, attenuation float64) *Ridged {
	r := &Ridged{
		octaves:     make([]*NoiseGenerator, octaves),
		frequency:   frequency,
		lacunarity:  lacunarity,
		persistence: persistence,
		attenuation: attenuation,
	}
	amp := 1.0
	for i := range r.octaves {
		r.octaves[i] = NewNoiseGenerator(seed + int64(i))
		r.amplitude += amp
		amp *= persistence
	}
	return r
}

// At samples the fractal. The result always lies in [-1, 1]; anything else
// is a bug and panics.
func (r *Ridged) At(x, y, z float64) float64 {
	x, y, z = x*r.frequency, y*r.frequency, z*r.frequency

	var sum float64
	weight, amp := 1.0, 1.0
	for _, n := range r.octaves {
		signal := 1 - math.Abs(n.Noise3D(x, y, z))
		signal *= signal * weight

		weight = min(max(signal/r.attenuation, 0), 1)
		sum += signal * amp

		amp *= r.persistence
		x, y, z = x*r.lacunarity, y*r.lacunarity, z*r.lacunarity
	}

	v := sum*2/r.amplitude - 1
	if v < -1 || v > 1 || math.IsNaN(v) {
		panic(fmt.Sprintf("gen: ridged noise %v out of [-1,1]", v))
	}
	return v
}
