package assets

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/mesh"
)

// Atlas places equally sized textures on a grid, row by row, in manifest
// order.
type Atlas struct {
	names   []string
	index   map[string]int
	columns int
	rows    int
}

// NewAtlas lays out names on a grid with the given number of columns.
func NewAtlas(names []string, columns int) (*Atlas, error) {
	if columns < 1 {
		return nil, fmt.Errorf("atlas: columns must be positive, got %d", columns)
	}
	if len(names) == 0 {
		return nil, errors.New("atlas: no textures")
	}
	a := &Atlas{
		names:   append([]string(nil), names...),
		index:   make(map[string]int, len(names)),
		columns: columns,
		rows:    (len(names) + columns - 1) / columns,
	}
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("atlas: texture %d has no name", i)
		}
		if _, dup := a.index[name]; dup {
			return nil, fmt.Errorf("atlas: duplicate texture %q", name)
		}
		a.index[name] = i
	}
	return a, nil
}

// Size returns the grid dimensions in tiles.
func (a *Atlas) Size() (columns, rows int) {
	return a.columns, a.rows
}

// Names returns the textures in manifest order.
func (a *Atlas) Names() []string {
	return a.names
}

// Rect returns the normalized texture rectangle of name.
func (a *Atlas) Rect(name string) (mesh.UVRect, bool) {
	i, ok := a.index[name]
	if !ok {
		return mesh.UVRect{}, false
	}
	col, row := i%a.columns, i/a.columns
	w, h := 1/float32(a.columns), 1/float32(a.rows)
	return mesh.UVRect{
		Min: mgl32.Vec2{float32(col) * w, float32(row) * h},
		Max: mgl32.Vec2{float32(col+1) * w, float32(row+1) * h},
	}, true
}
