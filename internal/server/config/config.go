package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/gen"
)

// Config holds the daemon configuration.
type Config struct {
	Port            int           `json:"port" yaml:"port"`
	ViewDistance    int           `json:"view_distance" yaml:"view_distance"`
	MaxViewDistance int           `json:"max_view_distance" yaml:"max_view_distance"`
	TickRate        time.Duration `json:"tick_rate" yaml:"tick_rate"`
	Workers         int           `json:"workers" yaml:"workers"` // 0 = GOMAXPROCS
	DataDir         string        `json:"data_dir" yaml:"data_dir"`
	BlockPack       string        `json:"block_pack" yaml:"block_pack"` // "" = embedded pack
	GeneratorType   string        `json:"generator" yaml:"generator"`   // "default" or "flat"
	Terrain         gen.Params    `json:"terrain" yaml:"terrain"`
	Observer        Observer      `json:"observer" yaml:"observer"`
}

// Observer is the initial viewpoint.
type Observer struct {
	Position mgl32.Vec3 `json:"position" yaml:"position"`
	Velocity mgl32.Vec3 `json:"velocity" yaml:"velocity"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            8080,
		ViewDistance:    4,
		MaxViewDistance: 12,
		TickRate:        50 * time.Millisecond,
		DataDir:         "data",
		GeneratorType:   gen.KindDefault,
		Terrain:         gen.DefaultParams(),
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxViewDistance < 0 {
		errs = append(errs, fmt.Errorf("max_view_distance %d is negative", c.MaxViewDistance))
	}
	if c.ViewDistance < 0 || c.ViewDistance > c.MaxViewDistance {
		errs = append(errs, fmt.Errorf("view_distance %d not in [0,%d]", c.ViewDistance, c.MaxViewDistance))
	}
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate %s must be positive", c.TickRate))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d is negative", c.Workers))
	}
	if c.GeneratorType != gen.KindDefault && c.GeneratorType != gen.KindFlat {
		errs = append(errs, fmt.Errorf("unknown generator %q", c.GeneratorType))
	}
	if err := c.Terrain.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("terrain: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["port"] {
		cfg.Port = fromFile.Port
	}
	if !explicitFlags["view-distance"] {
		cfg.ViewDistance = fromFile.ViewDistance
	}
	if !explicitFlags["max-view-distance"] {
		cfg.MaxViewDistance = fromFile.MaxViewDistance
	}
	if !explicitFlags["tick-rate"] {
		cfg.TickRate = fromFile.TickRate
	}
	if !explicitFlags["workers"] {
		cfg.Workers = fromFile.Workers
	}
	if !explicitFlags["pack"] {
		cfg.BlockPack = fromFile.BlockPack
	}
	if !explicitFlags["generator"] {
		cfg.GeneratorType = fromFile.GeneratorType
	}

	seed := cfg.Terrain.Seed
	cfg.Terrain = fromFile.Terrain
	if explicitFlags["seed"] {
		cfg.Terrain.Seed = seed
	}
	cfg.Observer = fromFile.Observer
}
