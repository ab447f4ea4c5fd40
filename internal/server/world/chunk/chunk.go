package chunk

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/block"
)

// Size is the edge length of a chunk in cells.
const Size = 32

const volume = Size * Size * Size

// Coord identifies a chunk in chunk-grid units.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// CoordAt returns the chunk containing the world position p.
func CoordAt(p mgl32.Vec3) Coord {
	return Coord{
		X: int(math.Floor(float64(p[0]) / Size)),
		Y: int(math.Floor(float64(p[1]) / Size)),
		Z: int(math.Floor(float64(p[2]) / Size)),
	}
}

// Add offsets c by (dx, dy, dz) chunks.
func (c Coord) Add(dx, dy, dz int) Coord {
	return Coord{c.X + dx, c.Y + dy, c.Z + dz}
}

// Neighbor returns the adjacent chunk in direction d.
func (c Coord) Neighbor(d block.Direction) Coord {
	return c.Add(d.Offset())
}

// Distance returns the Chebyshev distance between two chunks.
func (c Coord) Distance(o Coord) int {
	return max(abs(c.X-o.X), abs(c.Y-o.Y), abs(c.Z-o.Z))
}

// Origin returns the world position of the chunk's (0,0,0) cell.
func (c Coord) Origin() mgl32.Vec3 {
	return mgl32.Vec3{float32(c.X * Size), float32(c.Y * Size), float32(c.Z * Size)}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Chunk is a cubic grid of block ids. It is mutated only while being
// generated and is read-only once handed to the scheduler.
type Chunk struct {
	blocks [volume]block.ID
}

// New returns a chunk with every cell set to fill.
func New(fill block.ID) *Chunk {
	c := &Chunk{}
	if fill != 0 {
		c.Fill(fill)
	}
	return c
}

func index(x, y, z int) int {
	if uint(x) >= Size || uint(y) >= Size || uint(z) >= Size {
		panic(fmt.Sprintf("chunk: cell (%d,%d,%d) out of range", x, y, z))
	}
	return x + Size*(y+Size*z)
}

// InBounds reports whether (x, y, z) is a cell of a chunk.
func InBounds(x, y, z int) bool {
	return uint(x) < Size && uint(y) < Size && uint(z) < Size
}

// Get returns the block at a cell. Out-of-range cells panic.
func (c *Chunk) Get(x, y, z int) block.ID {
	return c.blocks[index(x, y, z)]
}

// Set stores a block at a cell. Out-of-range cells panic.
func (c *Chunk) Set(x, y, z int, id block.ID) {
	c.blocks[index(x, y, z)] = id
}

// Fill sets every cell to id.
func (c *Chunk) Fill(id block.ID) {
	for i := range c.blocks {
		c.blocks[i] = id
	}
}

// Uniform reports whether every cell holds the same block, and which.
func (c *Chunk) Uniform() (block.ID, bool) {
	first := c.blocks[0]
	for _, id := range c.blocks[1:] {
		if id != first {
			return 0, false
		}
	}
	return first, true
}

// Count returns how many cells hold id.
func (c *Chunk) Count(id block.ID) int {
	n := 0
	for _, b := range c.blocks {
		if b == id {
			n++
		}
	}
	return n
}
