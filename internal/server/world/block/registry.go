package block

import (
	"errors"
	"fmt"
)

// ID identifies a block definition inside a Registry.
type ID uint16

// Registry is the immutable table of block definitions. It is built once
// before any terrain work and shared read-only afterwards.
type Registry struct {
	defs   []Definition
	opaque []bool
	index  map[string]ID
}

// NewRegistry assigns ids in slice order and validates every definition.
func NewRegistry(defs []Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, errors.New("registry: no block definitions")
	}
	if len(defs) > int(^ID(0))+1 {
		return nil, fmt.Errorf("registry: %d definitions exceed id space", len(defs))
	}

	r := &Registry{
		defs:   make([]Definition, len(defs)),
		opaque: make([]bool, len(defs)),
		index:  make(map[string]ID, len(defs)),
	}
	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("registry: block %d has no name", i)
		}
		if _, dup := r.index[def.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate block %q", def.Name)
		}
		for j := range def.Cubes {
			if err := validateCube(&def.Cubes[j]); err != nil {
				return nil, fmt.Errorf("registry: block %q cube %d: %w", def.Name, j, err)
			}
		}
		cubes := make([]Cube, len(def.Cubes))
		copy(cubes, def.Cubes)
		def.Cubes = cubes

		r.defs[i] = def
		r.opaque[i] = def.Opaque
		r.index[def.Name] = ID(i)
	}
	return r, nil
}

func validateCube(c *Cube) error {
	for axis := 0; axis < 3; axis++ {
		if c.Max[axis] > CubeUnits {
			return fmt.Errorf("max[%d]=%d exceeds %d", axis, c.Max[axis], CubeUnits)
		}
		if c.Min[axis] >= c.Max[axis] {
			return fmt.Errorf("min[%d]=%d not below max[%d]=%d", axis, c.Min[axis], axis, c.Max[axis])
		}
	}
	for _, d := range Directions {
		if cull := c.Faces[d].Cull; cull != NoDirection && !cull.Valid() {
			return fmt.Errorf("face %s: invalid cull direction %d", d, uint8(cull))
		}
	}
	return nil
}

// Len returns the number of registered blocks.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Definition returns the definition for id. Unknown ids panic.
func (r *Registry) Definition(id ID) *Definition {
	return &r.defs[id]
}

// Opaque reports whether id is an opaque block.
func (r *Registry) Opaque(id ID) bool {
	return r.opaque[id]
}

// Lookup resolves a block name.
func (r *Registry) Lookup(name string) (ID, bool) {
	id, ok := r.index[name]
	return id, ok
}

// Resolve looks up several names at once and fails on the first unknown one.
func (r *Registry) Resolve(names ...string) ([]ID, error) {
	ids := make([]ID, len(names))
	for i, name := range names {
		id, ok := r.index[name]
		if !ok {
			return nil, fmt.Errorf("unknown block %q", name)
		}
		ids[i] = id
	}
	return ids, nil
}
