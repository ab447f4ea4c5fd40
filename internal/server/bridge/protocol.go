package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	mcnet "github.com/OCharnyshevich/voxel-terrain/internal/server/net"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/chunk"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/world/mesh"
)

// Messages sent by viewers as JSON text frames.
const (
	MsgObserver     = "OBSERVER"
	MsgViewDistance = "VIEW_DISTANCE"
	MsgRegenerate   = "REGENERATE"
)

// Inbound is a viewer request.
type Inbound struct {
	Type    string          `json:"type"`
	Pos     *mgl32.Vec3     `json:"pos,omitempty"`
	Value   *int            `json:"value,omitempty"`
	Terrain json.RawMessage `json:"terrain,omitempty"`
}

// Welcome is the first text frame a viewer receives.
type Welcome struct {
	Type      string `json:"type"`
	Session   string `json:"session"`
	ChunkSize int    `json:"chunk_size"`
}

// ChunkShow carries a chunk's geometry and world origin.
type ChunkShow struct {
	Coord  chunk.Coord
	Origin mgl32.Vec3
	Mesh   *mesh.Mesh
}

func encodeCoord(e *mcnet.Encoder, c chunk.Coord) {
	e.VarInt(int32(c.X))
	e.VarInt(int32(c.Y))
	e.VarInt(int32(c.Z))
}

func decodeCoord(d *mcnet.Decoder) (chunk.Coord, error) {
	var v [3]int32
	for i := range v {
		n, err := d.VarInt()
		if err != nil {
			return chunk.Coord{}, fmt.Errorf("read coord: %w", err)
		}
		v[i] = n
	}
	return chunk.Coord{X: int(v[0]), Y: int(v[1]), Z: int(v[2])}, nil
}

func frame(id int32, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := mcnet.WriteRawPacket(&buf, id, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeChunkShow builds a framed ChunkShow packet.
func EncodeChunkShow(c chunk.Coord, origin mgl32.Vec3, m *mesh.Mesh) ([]byte, error) {
	if m == nil {
		m = &mesh.Mesh{}
	}
	var e mcnet.Encoder
	encodeCoord(&e, c)
	e.F32(origin[0])
	e.F32(origin[1])
	e.F32(origin[2])
	e.Vec3s(m.Positions)
	e.Vec3s(m.Normals)
	e.Vec2s(m.UVs)
	e.U32s(m.Indices)
	return frame(mcnet.IDChunkShow, e.Bytes())
}

// DecodeChunkShow parses the payload of a ChunkShow packet.
func DecodeChunkShow(data []byte) (ChunkShow, error) {
	d := mcnet.NewDecoder(data)
	var s ChunkShow
	var err error
	if s.Coord, err = decodeCoord(d); err != nil {
		return s, err
	}
	for i := range s.Origin {
		if s.Origin[i], err = d.F32(); err != nil {
			return s, fmt.Errorf("read origin: %w", err)
		}
	}
	m := &mesh.Mesh{}
	if m.Positions, err = d.Vec3s(); err != nil {
		return s, fmt.Errorf("read positions: %w", err)
	}
	if m.Normals, err = d.Vec3s(); err != nil {
		return s, fmt.Errorf("read normals: %w", err)
	}
	if m.UVs, err = d.Vec2s(); err != nil {
		return s, fmt.Errorf("read uvs: %w", err)
	}
	if m.Indices, err = d.U32s(); err != nil {
		return s, fmt.Errorf("read indices: %w", err)
	}
	if d.Remaining() != 0 {
		return s, fmt.Errorf("%d trailing bytes", d.Remaining())
	}
	s.Mesh = m
	return s, nil
}

// EncodeChunkHide builds a framed ChunkHide packet.
func EncodeChunkHide(c chunk.Coord) ([]byte, error) {
	var e mcnet.Encoder
	encodeCoord(&e, c)
	return frame(mcnet.IDChunkHide, e.Bytes())
}

// DecodeChunkHide parses the payload of a ChunkHide packet.
func DecodeChunkHide(data []byte) (chunk.Coord, error) {
	return decodeCoord(mcnet.NewDecoder(data))
}

// EncodeReset builds a framed Reset packet for a new world epoch.
func EncodeReset(epoch uint64) ([]byte, error) {
	var e mcnet.Encoder
	e.VarInt(int32(epoch))
	return frame(mcnet.IDReset, e.Bytes())
}
