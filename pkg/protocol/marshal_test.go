package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type handshakeLike struct {
	ProtocolVersion int32  `mc:"varint"`
	ServerAddress   string `mc:"string"`
	ServerPort      uint16 `mc:"u16"`
	NextState       int32  `mc:"varint"`
}

func (handshakeLike) PacketID() int32 { return 0x00 }

type busLike struct {
	Min       int64     `mc:"position"`
	Tick      int64     `mc:"varlong"`
	Owner     uuid.UUID `mc:"uuid"`
	Powered   bool      `mc:"bool"`
	Yaw       float32   `mc:"f32"`
	Skipped   string    `mc:"-"`
	Remainder []byte    `mc:"rest"`
}

func (busLike) PacketID() int32 { return 0x3F }

func TestMarshalUnmarshal(t *testing.T) {
	original := &handshakeLike{
		ProtocolVersion: 47,
		ServerAddress:   "localhost",
		ServerPort:      25565,
		NextState:       2,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded := &handshakeLike{}
	if err := Unmarshal(data, decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if *original != *decoded {
		t.Errorf("round trip:\n  got  %+v\n  want %+v", decoded, original)
	}
}

func TestMarshalMixedTags(t *testing.T) {
	original := &busLike{
		Min:       EncodePosition(-4, 60, 12),
		Tick:      1 << 33,
		Owner:     uuid.NewMD5(uuid.NameSpaceOID, []byte("OfflinePlayer:steve")),
		Powered:   true,
		Yaw:       -90.5,
		Skipped:   "ignored",
		Remainder: []byte{0xDE, 0xAD},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded := &busLike{}
	if err := Unmarshal(data, decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Min != original.Min || decoded.Tick != original.Tick || decoded.Owner != original.Owner {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
	if !decoded.Powered || decoded.Yaw != original.Yaw {
		t.Errorf("decoded flags = %v/%v", decoded.Powered, decoded.Yaw)
	}
	if decoded.Skipped != "" {
		t.Errorf("untagged field decoded: %q", decoded.Skipped)
	}
	if !bytes.Equal(decoded.Remainder, original.Remainder) {
		t.Errorf("Remainder = %x, want %x", decoded.Remainder, original.Remainder)
	}
}

func TestPacketFraming(t *testing.T) {
	var wire bytes.Buffer
	in := &handshakeLike{ProtocolVersion: 47, ServerAddress: "h", ServerPort: 1, NextState: 1}
	if err := WritePacket(&wire, in); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}

	out := &handshakeLike{}
	if err := ReadPacket(bytes.NewReader(wire.Bytes()), out); err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if *out != *in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	err := ReadPacket(bytes.NewReader(wire.Bytes()), &busLike{})
	if !errors.Is(err, ErrPacketMismatch) {
		t.Errorf("err = %v, want ErrPacketMismatch", err)
	}
}

func TestUnmarshalRequiresPointer(t *testing.T) {
	if err := Unmarshal(nil, handshakeLike{}); err == nil {
		t.Error("expected error for non-pointer destination")
	}
}
