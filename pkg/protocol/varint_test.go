package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value int32
		size  int
	}{
		{"zero", 0, 1},
		{"127", 127, 1},
		{"128", 128, 2},
		{"model_code_255", 255, 2},
		{"max", 2147483647, 5},
		{"negative", -1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := WriteVarInt(&buf, tt.value)
			if err != nil {
				t.Fatalf("WriteVarInt(%d): %v", tt.value, err)
			}
			if n != tt.size || VarIntSize(tt.value) != tt.size {
				t.Errorf("size = %d/%d, want %d", n, VarIntSize(tt.value), tt.size)
			}

			got, read, err := ReadVarInt(&buf)
			if err != nil {
				t.Fatalf("ReadVarInt: %v", err)
			}
			if got != tt.value || read != tt.size {
				t.Errorf("ReadVarInt = (%d, %d), want (%d, %d)", got, read, tt.value, tt.size)
			}
		})
	}
}

func TestVarLongRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 300, 1 << 40, -1} {
		var buf bytes.Buffer
		if _, err := WriteVarLong(&buf, v); err != nil {
			t.Fatalf("WriteVarLong(%d): %v", v, err)
		}
		got, _, err := ReadVarLong(&buf)
		if err != nil {
			t.Fatalf("ReadVarLong: %v", err)
		}
		if got != v {
			t.Errorf("ReadVarLong = %d, want %d", got, v)
		}
	}
}

func TestReadVarIntTooLong(t *testing.T) {
	r := bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	if _, _, err := ReadVarInt(r); !errors.Is(err, ErrVarIntTooLong) {
		t.Errorf("err = %v, want ErrVarIntTooLong", err)
	}
}

func TestPutVarInt(t *testing.T) {
	var buf [5]byte
	n := PutVarInt(buf[:], 300)
	if n != 2 || buf[0] != 0xAC || buf[1] != 0x02 {
		t.Errorf("PutVarInt(300) = % x, want ac 02", buf[:n])
	}
}

func TestPositionRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z int
	}{
		{"origin", 0, 0, 0},
		{"positive", 100, 64, 200},
		{"negative", -100, 3, -200},
		{"max_y", 0, 255, 0},
		{"extremes", -33554432, 0, 33554431},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := DecodePosition(EncodePosition(tt.x, tt.y, tt.z))
			if x != tt.x || y != tt.y || z != tt.z {
				t.Errorf("round trip (%d,%d,%d) = (%d,%d,%d)", tt.x, tt.y, tt.z, x, y, z)
			}
		})
	}
}

func TestStringLengthGuard(t *testing.T) {
	var buf bytes.Buffer
	WriteVarInt(&buf, -4)
	if _, err := ReadString(&buf); err == nil {
		t.Error("expected error for negative string length")
	}
}
