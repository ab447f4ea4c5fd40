package gen

import (
	"errors"
	"fmt"
)

// Range is a half-open interval [Min, Max).
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether Min <= v < Max.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v < r.Max
}

// IntRange is a half-open integer interval [Min, Max).
type IntRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Contains reports whether Min <= v < Max.
func (r IntRange) Contains(v int) bool {
	return v >= r.Min && v < r.Max
}

// Params controls terrain generation. A new value only takes effect when the
// world is regenerated.
type Params struct {
	Seed int64 `json:"seed" yaml:"seed"`

	// Height is the vertical band over which terrain fades from solid to
	// air. Chunks entirely above Max are air, entirely below Min-1 stone.
	Height IntRange `json:"height" yaml:"height"`
	// DirtHeight is how far below an air cell dirt may reach.
	DirtHeight int `json:"dirt_height" yaml:"dirt_height"`
	// DirtRange limits grass and dirt to these heights.
	DirtRange IntRange `json:"dirt_range" yaml:"dirt_range"`

	NoiseOctaves     int     `json:"noise_octaves" yaml:"noise_octaves"`
	NoiseFrequency   float64 `json:"noise_frequency" yaml:"noise_frequency"`
	NoiseLacunarity  float64 `json:"noise_lacunarity" yaml:"noise_lacunarity"`
	NoisePersistence float64 `json:"noise_persistence" yaml:"noise_persistence"`
	NoiseAttenuation float64 `json:"noise_attenuation" yaml:"noise_attenuation"`

	BaseStrength float64 `json:"base_strength" yaml:"base_strength"`
	// BaseLimit is the band of density values that count as solid.
	BaseLimit Range `json:"base_limit" yaml:"base_limit"`
}

// DefaultParams returns rolling hills around y=0.
func DefaultParams() Params {
	return Params{
		Seed:             1,
		Height:           IntRange{Min: -32, Max: 32},
		DirtHeight:       3,
		DirtRange:        IntRange{Min: -64, Max: 64},
		NoiseOctaves:     4,
		NoiseFrequency:   0.02,
		NoiseLacunarity:  2.0,
		NoisePersistence: 0.5,
		NoiseAttenuation: 2.0,
		BaseStrength:     0.4,
		BaseLimit:        Range{Min: 0.5, Max: 1.5},
	}
}

// Validate checks that p describes a usable generator.
func (p Params) Validate() error {
	var errs []error
	if p.Height.Min >= p.Height.Max {
		errs = append(errs, fmt.Errorf("height: min %d must be below max %d", p.Height.Min, p.Height.Max))
	}
	if p.DirtHeight < 1 {
		errs = append(errs, fmt.Errorf("dirt_height: %d must be at least 1", p.DirtHeight))
	}
	if p.DirtRange.Min > p.DirtRange.Max {
		errs = append(errs, fmt.Errorf("dirt_range: min %d above max %d", p.DirtRange.Min, p.DirtRange.Max))
	}
	if p.NoiseOctaves < 1 || p.NoiseOctaves > 16 {
		errs = append(errs, fmt.Errorf("noise_octaves: %d not in [1,16]", p.NoiseOctaves))
	}
	if p.NoiseFrequency <= 0 {
		errs = append(errs, errors.New("noise_frequency: must be positive"))
	}
	if p.NoiseLacunarity <= 0 {
		errs = append(errs, errors.New("noise_lacunarity: must be positive"))
	}
	if p.NoisePersistence <= 0 {
		errs = append(errs, errors.New("noise_persistence: must be positive"))
	}
	if p.NoiseAttenuation <= 0 {
		errs = append(errs, errors.New("noise_attenuation: must be positive"))
	}
	if p.BaseLimit.Min >= p.BaseLimit.Max {
		errs = append(errs, fmt.Errorf("base_limit: min %v must be below max %v", p.BaseLimit.Min, p.BaseLimit.Max))
	}
	return errors.Join(errs...)
}

// normalize maps y onto [0,1]: 1 at or below Height.Min, 0 at or above
// Height.Max.
func (p *Params) normalize(y int) float64 {
	v := float64(p.Height.Max-y) / float64(p.Height.Max-p.Height.Min)
	return min(max(v, 0), 1)
}
