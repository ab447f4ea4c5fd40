package net

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Encoder appends wire values to a growing buffer.
type Encoder struct {
	buf []byte
}

// Bytes returns the encoded data.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

func (e *Encoder) VarInt(v int32) {
	var b [5]byte
	n := PutVarInt(b[:], v)
	e.buf = append(e.buf, b[:n]...)
}

func (e *Encoder) F32(v float32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, math.Float32bits(v))
}

func (e *Encoder) U32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

// Vec3s writes a VarInt count followed by the vectors.
func (e *Encoder) Vec3s(vs []mgl32.Vec3) {
	e.VarInt(int32(len(vs)))
	for _, v := range vs {
		e.F32(v[0])
		e.F32(v[1])
		e.F32(v[2])
	}
}

// Vec2s writes a VarInt count followed by the vectors.
func (e *Encoder) Vec2s(vs []mgl32.Vec2) {
	e.VarInt(int32(len(vs)))
	for _, v := range vs {
		e.F32(v[0])
		e.F32(v[1])
	}
}

// U32s writes a VarInt count followed by the values.
func (e *Encoder) U32s(vs []uint32) {
	e.VarInt(int32(len(vs)))
	for _, v := range vs {
		e.U32(v)
	}
}

// Decoder reads values written by an Encoder.
type Decoder struct {
	r *bytes.Reader
}

// NewDecoder reads from data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(data)}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return d.r.Len()
}

func (d *Decoder) VarInt() (int32, error) {
	v, _, err := ReadVarInt(d.r)
	return v, err
}

func (d *Decoder) F32() (float32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b[:])), nil
}

func (d *Decoder) U32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// count reads an element count and checks that size bytes per element are
// still available.
func (d *Decoder) count(size int) (int, error) {
	n, err := d.VarInt()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	if int(n)*size > d.r.Len() {
		return 0, errors.New("count exceeds payload")
	}
	return int(n), nil
}

func (d *Decoder) Vec3s() ([]mgl32.Vec3, error) {
	n, err := d.count(12)
	if err != nil {
		return nil, err
	}
	vs := make([]mgl32.Vec3, n)
	for i := range vs {
		for j := 0; j < 3; j++ {
			if vs[i][j], err = d.F32(); err != nil {
				return nil, err
			}
		}
	}
	return vs, nil
}

func (d *Decoder) Vec2s() ([]mgl32.Vec2, error) {
	n, err := d.count(8)
	if err != nil {
		return nil, err
	}
	vs := make([]mgl32.Vec2, n)
	for i := range vs {
		for j := 0; j < 2; j++ {
			if vs[i][j], err = d.F32(); err != nil {
				return nil, err
			}
		}
	}
	return vs, nil
}

func (d *Decoder) U32s() ([]uint32, error) {
	n, err := d.count(4)
	if err != nil {
		return nil, err
	}
	vs := make([]uint32, n)
	for i := range vs {
		if vs[i], err = d.U32(); err != nil {
			return nil, err
		}
	}
	return vs, nil
}
