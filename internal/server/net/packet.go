package net

import (
	"bytes"
	"fmt"
	"io"
)

// MaxPacketSize bounds a single packet. A fully checkered chunk is the
// largest geometry payload and stays well below it.
const MaxPacketSize = 1 << 26

// Packet ids sent from the server to a viewer.
const (
	IDChunkShow int32 = 0x01
	IDChunkHide int32 = 0x02
	IDReset     int32 = 0x03
)

// ReadRawPacket reads one length-prefixed packet and splits off its id.
func ReadRawPacket(r io.Reader) (packetID int32, data []byte, err error) {
	length, _, err := ReadVarInt(r)
	if err != nil {
		return 0, nil, fmt.Errorf("read packet length: %w", err)
	}
	if length < 1 {
		return 0, nil, fmt.Errorf("packet length too small: %d", length)
	}
	if length > MaxPacketSize {
		return 0, nil, fmt.Errorf("packet too large: %d bytes", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read packet payload: %w", err)
	}

	buf := bytes.NewReader(payload)
	packetID, n, err := ReadVarInt(buf)
	if err != nil {
		return 0, nil, fmt.Errorf("read packet ID: %w", err)
	}
	return packetID, payload[n:], nil
}

// WriteRawPacket writes data framed with its length and packet id in a
// single Write call.
func WriteRawPacket(w io.Writer, packetID int32, data []byte) error {
	idSize := VarIntSize(packetID)
	totalLen := idSize + len(data)
	if totalLen > MaxPacketSize {
		return fmt.Errorf("packet 0x%02X too large: %d bytes", packetID, totalLen)
	}

	var buf bytes.Buffer
	buf.Grow(VarIntSize(int32(totalLen)) + totalLen)

	if _, err := WriteVarInt(&buf, int32(totalLen)); err != nil {
		return fmt.Errorf("write packet length: %w", err)
	}
	if _, err := WriteVarInt(&buf, packetID); err != nil {
		return fmt.Errorf("write packet ID: %w", err)
	}
	if _, err := buf.Write(data); err != nil {
		return fmt.Errorf("write packet data: %w", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("flush packet: %w", err)
	}
	return nil
}
