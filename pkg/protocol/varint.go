package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrVarIntTooLong is returned when a VarInt spans more than 5 bytes.
	ErrVarIntTooLong = errors.New("varint too long")
	// ErrVarLongTooLong is returned when a VarLong spans more than 10 bytes.
	ErrVarLongTooLong = errors.New("varlong too long")
)

// readByte reads one byte, using io.ByteReader when the reader offers it.
func readByte(r io.Reader) (byte, error) {
	if br, ok := r.(io.ByteReader); ok {
		return br.ReadByte()
	}
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// readUvarint decodes a little-endian base-128 value of at most maxBytes.
func readUvarint(r io.Reader, maxBytes int, tooLong error) (uint64, int, error) {
	var result uint64
	for n := 0; ; n++ {
		if n >= maxBytes {
			return 0, n, tooLong
		}
		b, err := readByte(r)
		if err != nil {
			return 0, n, err
		}
		result |= uint64(b&0x7F) << (7 * n)
		if b&0x80 == 0 {
			return result, n + 1, nil
		}
	}
}

// ReadVarInt reads a VarInt and returns its value and encoded length.
func ReadVarInt(r io.Reader) (int32, int, error) {
	v, n, err := readUvarint(r, 5, ErrVarIntTooLong)
	return int32(uint32(v)), n, err
}

// ReadVarLong reads a VarLong and returns its value and encoded length.
func ReadVarLong(r io.Reader) (int64, int, error) {
	v, n, err := readUvarint(r, 10, ErrVarLongTooLong)
	return int64(v), n, err
}

// PutVarInt writes value into buf and returns the number of bytes used.
// buf must hold at least 5 bytes.
func PutVarInt(buf []byte, value int32) int {
	return putUvarint(buf, uint64(uint32(value)))
}

// PutVarLong writes value into buf and returns the number of bytes used.
// buf must hold at least 10 bytes.
func PutVarLong(buf []byte, value int64) int {
	return putUvarint(buf, uint64(value))
}

func putUvarint(buf []byte, val uint64) int {
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
			return n
		}
	}
}

// WriteVarInt writes value as a VarInt.
func WriteVarInt(w io.Writer, value int32) (int, error) {
	var buf [5]byte
	n := PutVarInt(buf[:], value)
	return w.Write(buf[:n])
}

// WriteVarLong writes value as a VarLong.
func WriteVarLong(w io.Writer, value int64) (int, error) {
	var buf [10]byte
	n := PutVarLong(buf[:], value)
	return w.Write(buf[:n])
}

// VarIntSize returns the encoded length of value.
func VarIntSize(value int32) int {
	val := uint32(value)
	size := 1
	for val >>= 7; val != 0; val >>= 7 {
		size++
	}
	return size
}

// EncodePosition packs block coordinates into the 1.8 position long
// (x:26 | y:12 | z:26).
func EncodePosition(x, y, z int) int64 {
	return (int64(x)&0x3FFFFFF)<<38 | (int64(y)&0xFFF)<<26 | int64(z)&0x3FFFFFF
}

// DecodePosition unpacks a 1.8 position long, sign-extending each axis.
func DecodePosition(val int64) (x, y, z int) {
	x = int(val >> 38)
	y = int((val >> 26) & 0xFFF)
	z = int(val & 0x3FFFFFF)

	if x >= 1<<25 {
		x -= 1 << 26
	}
	if y >= 1<<11 {
		y -= 1 << 12
	}
	if z >= 1<<25 {
		z -= 1 << 26
	}
	return
}

// ReadString reads a VarInt-prefixed UTF-8 string.
func ReadString(r io.Reader) (string, error) {
	length, _, err := ReadVarInt(r)
	if err != nil {
		return "", fmt.Errorf("read string length: %w", err)
	}
	if length < 0 || length > 32767*4 {
		return "", fmt.Errorf("string length out of range: %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read string data: %w", err)
	}
	return string(buf), nil
}

// WriteString writes a VarInt-prefixed UTF-8 string.
func WriteString(w io.Writer, s string) (int, error) {
	n1, err := WriteVarInt(w, int32(len(s)))
	if err != nil {
		return n1, err
	}
	n2, err := io.WriteString(w, s)
	return n1 + n2, err
}

// ReadByteArray reads a VarInt-prefixed byte array.
func ReadByteArray(r io.Reader) ([]byte, error) {
	length, _, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("read byte array length: %w", err)
	}
	if length < 0 {
		return nil, fmt.Errorf("negative byte array length: %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read byte array data: %w", err)
	}
	return buf, nil
}

// WriteByteArray writes a VarInt-prefixed byte array.
func WriteByteArray(w io.Writer, data []byte) (int, error) {
	n1, err := WriteVarInt(w, int32(len(data)))
	if err != nil {
		return n1, err
	}
	n2, err := w.Write(data)
	return n1 + n2, err
}

func ReadI8(r io.Reader) (int8, error) {
	b, err := readByte(r)
	return int8(b), err
}

func ReadU8(r io.Reader) (uint8, error) {
	return readByte(r)
}

func ReadBool(r io.Reader) (bool, error) {
	b, err := readByte(r)
	return b != 0, err
}

func ReadI16(r io.Reader) (int16, error) {
	var val int16
	err := binary.Read(r, binary.BigEndian, &val)
	return val, err
}

func ReadU16(r io.Reader) (uint16, error) {
	var val uint16
	err := binary.Read(r, binary.BigEndian, &val)
	return val, err
}

func ReadI32(r io.Reader) (int32, error) {
	var val int32
	err := binary.Read(r, binary.BigEndian, &val)
	return val, err
}

func ReadI64(r io.Reader) (int64, error) {
	var val int64
	err := binary.Read(r, binary.BigEndian, &val)
	return val, err
}

func ReadF32(r io.Reader) (float32, error) {
	var val float32
	err := binary.Read(r, binary.BigEndian, &val)
	return val, err
}

func ReadF64(r io.Reader) (float64, error) {
	var val float64
	err := binary.Read(r, binary.BigEndian, &val)
	return val, err
}
