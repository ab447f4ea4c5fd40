package block

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Direction is one of the six axis-aligned unit directions.
type Direction uint8

const (
	NegX Direction = iota
	NegY
	NegZ
	PosX
	PosY
	PosZ
)

// NoDirection marks the absence of a direction, e.g. a face that is never
// culled.
const NoDirection Direction = 0xFF

// Directions lists all six directions in index order.
var Directions = [6]Direction{NegX, NegY, NegZ, PosX, PosY, PosZ}

var directionNames = [6]string{"-x", "-y", "-z", "+x", "+y", "+z"}

var directionOffsets = [6][3]int{
	{-1, 0, 0},
	{0, -1, 0},
	{0, 0, -1},
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// rotations map the canonical -z face onto the face of each direction. The
// same table drives per-block quads and chunk border surfaces.
var rotations = [6]mgl32.Quat{
	mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 1, 0}),
	mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0}),
	mgl32.QuatIdent(),
	mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{0, 1, 0}),
	mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{1, 0, 0}),
	mgl32.QuatRotate(math.Pi, mgl32.Vec3{0, 1, 0}),
}

// Valid reports whether d is one of the six directions.
func (d Direction) Valid() bool {
	return d < 6
}

// Inverse returns the opposite direction.
func (d Direction) Inverse() Direction {
	return (d + 3) % 6
}

// Offset returns the integer unit vector of d.
func (d Direction) Offset() (dx, dy, dz int) {
	o := directionOffsets[d]
	return o[0], o[1], o[2]
}

// Vec3 returns the unit vector of d.
func (d Direction) Vec3() mgl32.Vec3 {
	o := directionOffsets[d]
	return mgl32.Vec3{float32(o[0]), float32(o[1]), float32(o[2])}
}

// Rotation returns the rotation that maps the -z face template onto d.
func (d Direction) Rotation() mgl32.Quat {
	return rotations[d]
}

func (d Direction) String() string {
	if !d.Valid() {
		return "none"
	}
	return directionNames[d]
}

// ParseDirection parses "-x", "+y", ... into a Direction.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return NoDirection, fmt.Errorf("unknown direction %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("direction %d out of range", uint8(d))
	}
	return []byte(directionNames[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
