// Package net implements the renderer wire format: VarInt-framed packets
// carrying big-endian geometry payloads.
package net

import (
	"fmt"
	"io"
)

// ReadVarInt reads a protobuf-style VarInt, returning the value and the
// number of bytes consumed.
func ReadVarInt(r io.Reader) (int32, int, error) {
	var result uint32
	var numRead int
	buf := make([]byte, 1)

	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, numRead, err
		}
		numRead++

		result |= uint32(buf[0]&0x7F) << (7 * (numRead - 1))

		if buf[0]&0x80 == 0 {
			break
		}

		if numRead >= 5 {
			return 0, numRead, fmt.Errorf("VarInt too long")
		}
	}

	return int32(result), numRead, nil
}

// WriteVarInt writes value as a VarInt of at most 5 bytes.
func WriteVarInt(w io.Writer, value int32) (int, error) {
	var buf [5]byte
	n := PutVarInt(buf[:], value)
	return w.Write(buf[:n])
}

// PutVarInt encodes value into buf, which must hold at least 5 bytes.
func PutVarInt(buf []byte, value int32) int {
	val := uint32(value)
	n := 0
	for {
		b := byte(val & 0x7F)
		val >>= 7
		if val != 0 {
			b |= 0x80
		}
		buf[n] = b
		n++
		if val == 0 {
			break
		}
	}
	return n
}

// VarIntSize returns the encoded length of value.
func VarIntSize(value int32) int {
	val := uint32(value)
	size := 0
	for {
		size++
		val >>= 7
		if val == 0 {
			break
		}
	}
	return size
}
