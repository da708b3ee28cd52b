package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// MaxPacketLength caps a single frame at 2 MiB.
const MaxPacketLength = 1 << 21

// ErrPacketMismatch is returned by ReadPacket when the frame carries a
// different packet ID than the destination struct.
var ErrPacketMismatch = errors.New("unexpected packet id")

// Packet is a struct whose mc-tagged fields make up a protocol frame body.
type Packet interface {
	PacketID() int32
}

// ReadRawPacket reads one length-prefixed frame and splits off its ID.
func ReadRawPacket(r io.Reader) (int32, []byte, error) {
	length, _, err := ReadVarInt(r)
	if err != nil {
		return 0, nil, fmt.Errorf("read packet length: %w", err)
	}
	if length < 1 {
		return 0, nil, fmt.Errorf("packet length too small: %d", length)
	}
	if length > MaxPacketLength {
		return 0, nil, fmt.Errorf("packet too large: %d bytes", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("read packet payload: %w", err)
	}

	id, n, err := ReadVarInt(bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("read packet ID: %w", err)
	}
	return id, payload[n:], nil
}

// WriteRawPacket frames data with its length and ID in a single Write.
func WriteRawPacket(w io.Writer, packetID int32, data []byte) error {
	bodyLen := VarIntSize(packetID) + len(data)

	frame := make([]byte, 0, 5+bodyLen)
	var tmp [5]byte
	frame = append(frame, tmp[:PutVarInt(tmp[:], int32(bodyLen))]...)
	frame = append(frame, tmp[:PutVarInt(tmp[:], packetID)]...)
	frame = append(frame, data...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write packet 0x%02X: %w", packetID, err)
	}
	return nil
}

// WritePacket marshals p and writes it as one frame.
func WritePacket(w io.Writer, p Packet) error {
	data, err := Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal packet 0x%02X: %w", p.PacketID(), err)
	}
	return WriteRawPacket(w, p.PacketID(), data)
}

// ReadPacket reads one frame and decodes it into p.
func ReadPacket(r io.Reader, p Packet) error {
	id, data, err := ReadRawPacket(r)
	if err != nil {
		return err
	}
	if id != p.PacketID() {
		return fmt.Errorf("%w: want 0x%02X, got 0x%02X", ErrPacketMismatch, p.PacketID(), id)
	}
	return Unmarshal(data, p)
}

// WriteField encodes val according to an mc tag.
func WriteField(w io.Writer, tag string, val any) error {
	switch tag {
	case "varint":
		_, err := WriteVarInt(w, val.(int32))
		return err
	case "varlong":
		_, err := WriteVarLong(w, val.(int64))
		return err
	case "bool":
		var b uint8
		if val.(bool) {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return err
	case "i8", "u8", "i16", "u16", "i32", "i64", "f32", "f64", "position":
		return binary.Write(w, binary.BigEndian, val)
	case "string":
		_, err := WriteString(w, val.(string))
		return err
	case "uuid":
		id := val.(uuid.UUID)
		_, err := w.Write(id[:])
		return err
	case "bytearray":
		_, err := WriteByteArray(w, val.([]byte))
		return err
	case "rest":
		_, err := w.Write(val.([]byte))
		return err
	}
	return fmt.Errorf("unknown field tag: %q", tag)
}

// ReadField decodes one value according to an mc tag.
func ReadField(r io.Reader, tag string) (any, error) {
	switch tag {
	case "varint":
		v, _, err := ReadVarInt(r)
		return v, err
	case "varlong":
		v, _, err := ReadVarLong(r)
		return v, err
	case "bool":
		return ReadBool(r)
	case "i8":
		return ReadI8(r)
	case "u8":
		return ReadU8(r)
	case "i16":
		return ReadI16(r)
	case "u16":
		return ReadU16(r)
	case "i32":
		return ReadI32(r)
	case "i64", "position":
		return ReadI64(r)
	case "f32":
		return ReadF32(r)
	case "f64":
		return ReadF64(r)
	case "string":
		return ReadString(r)
	case "uuid":
		var id uuid.UUID
		_, err := io.ReadFull(r, id[:])
		return id, err
	case "bytearray":
		return ReadByteArray(r)
	case "rest":
		return io.ReadAll(r)
	}
	return nil, fmt.Errorf("unknown field tag: %q", tag)
}
