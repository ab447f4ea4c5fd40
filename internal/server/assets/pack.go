// Package assets loads block packs: a texture manifest plus one JSON file
// per block, validated against a JSON Schema and resolved into a block
// registry.
package assets

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
)

//go:embed block.schema.json
var blockSchemaJSON string

//go:embed pack
var defaultPack embed.FS

// Required lists the blocks terrain generation depends on.
var Required = []string{"air", "stone", "dirt", "grass"}

const (
	manifestFile = "textures.json"
	blocksDir    = "blocks"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func blockSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("block.schema.json", blockSchemaJSON)
	})
	return schema, schemaErr
}

// Pack is a loaded block pack.
type Pack struct {
	Registry *block.Registry
	Atlas    *Atlas
}

type manifest struct {
	Columns  int      `json:"columns"`
	Textures []string `json:"textures"`
}

type blockFile struct {
	Opaque bool       `json:"opaque"`
	Cubes  []cubeFile `json:"cubes"`
}

type cubeFile struct {
	Min   *[3]uint8   `json:"min"`
	Max   *[3]uint8   `json:"max"`
	Faces [6]faceFile `json:"faces"`
}

type faceFile struct {
	Texture string           `json:"texture"`
	Cull    *block.Direction `json:"cull"`
}

// Default returns the block pack compiled into the binary.
func Default() (*Pack, error) {
	sub, err := fs.Sub(defaultPack, "pack")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir loads a block pack from a directory on disk.
func LoadDir(dir string) (*Pack, error) {
	return Load(os.DirFS(dir))
}

// Load reads textures.json and blocks/*.json from fsys. Block ids are
// assigned with air first and the rest in name order.
func Load(fsys fs.FS) (*Pack, error) {
	sch, err := blockSchema()
	if err != nil {
		return nil, fmt.Errorf("compile block schema: %w", err)
	}

	data, err := fs.ReadFile(fsys, manifestFile)
	if err != nil {
		return nil, fmt.Errorf("read texture manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestFile, err)
	}
	atlas, err := NewAtlas(m.Textures, m.Columns)
	if err != nil {
		return nil, err
	}

	files, err := fs.Glob(fsys, path.Join(blocksDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(path.Base(f), ".json"))
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == "air":
			return -1
		case b == "air":
			return 1
		}
		return strings.Compare(a, b)
	})

	var missing []string
	for _, req := range Required {
		if !slices.Contains(names, req) {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("block pack lacks required blocks: %s", strings.Join(missing, ", "))
	}

	defs := make([]block.Definition, 0, len(names))
	for _, name := range names {
		def, err := loadBlock(fsys, sch, atlas, name)
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", name, err)
		}
		defs = append(defs, def)
	}

	reg, err := block.NewRegistry(defs)
	if err != nil {
		return nil, err
	}
	return &Pack{Registry: reg, Atlas: atlas}, nil
}

func loadBlock(fsys fs.FS, sch *jsonschema.Schema, atlas *Atlas, name string) (block.Definition, error) {
	data, err := fs.ReadFile(fsys, path.Join(blocksDir, name+".json"))
	if err != nil {
		return block.Definition{}, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return block.Definition{}, fmt.Errorf("parse: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return block.Definition{}, fmt.Errorf("validate: %w", err)
	}

	var bf blockFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return block.Definition{}, fmt.Errorf("decode: %w", err)
	}

	def := block.Definition{Name: name, Opaque: bf.Opaque, Cubes: make([]block.Cube, len(bf.Cubes))}
	var errs []error
	for i, cf := range bf.Cubes {
		c := &def.Cubes[i]
		c.Max = [3]uint8{block.CubeUnits, block.CubeUnits, block.CubeUnits}
		if cf.Min != nil {
			c.Min = *cf.Min
		}
		if cf.Max != nil {
			c.Max = *cf.Max
		}
		for _, d := range block.Directions {
			f := cf.Faces[d]
			rect, ok := atlas.Rect(f.Texture)
			if !ok {
				errs = append(errs, fmt.Errorf("cube %d face %s: unknown texture %q", i, d, f.Texture))
				continue
			}
			c.Faces[d] = block.Face{Texture: rect, Cull: block.NoDirection}
			if f.Cull != nil {
				c.Faces[d].Cull = *f.Cull
			}
		}
	}
	return def, errors.Join(errs...)
}
