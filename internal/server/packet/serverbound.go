package packet

// KeepAliveServerbound echoes a keep alive ID (serverbound 0x00).
type KeepAliveServerbound struct {
	KeepAliveID int32 `mc:"varint"`
}

func (KeepAliveServerbound) PacketID() int32 { return 0x00 }

// ChatMessageServerbound is a chat line or command (serverbound 0x01).
type ChatMessageServerbound struct {
	Message string `mc:"string"`
}

func (ChatMessageServerbound) PacketID() int32 { return 0x01 }

// Player is a ground-state heartbeat (serverbound 0x03).
type Player struct {
	OnGround bool `mc:"bool"`
}

func (Player) PacketID() int32 { return 0x03 }

// PlayerPosition is sent when the client moves (serverbound 0x04).
type PlayerPosition struct {
	X        float64 `mc:"f64"`
	FeetY    float64 `mc:"f64"`
	Z        float64 `mc:"f64"`
	OnGround bool    `mc:"bool"`
}

func (PlayerPosition) PacketID() int32 { return 0x04 }

// PlayerLook is sent when the client turns (serverbound 0x05).
type PlayerLook struct {
	Yaw      float32 `mc:"f32"`
	Pitch    float32 `mc:"f32"`
	OnGround bool    `mc:"bool"`
}

func (PlayerLook) PacketID() int32 { return 0x05 }

// PlayerPositionAndLookServerbound is sent when the client moves and turns (serverbound 0x06).
type PlayerPositionAndLookServerbound struct {
	X        float64 `mc:"f64"`
	FeetY    float64 `mc:"f64"`
	Z        float64 `mc:"f64"`
	Yaw      float32 `mc:"f32"`
	Pitch    float32 `mc:"f32"`
	OnGround bool    `mc:"bool"`
}

func (PlayerPositionAndLookServerbound) PacketID() int32 { return 0x06 }

// PlayerDigging reports block breaking (serverbound 0x07).
type PlayerDigging struct {
	Status   int32 `mc:"varint"`
	Location int64 `mc:"position"`
	Face     int8  `mc:"i8"`
}

func (PlayerDigging) PacketID() int32 { return 0x07 }

// BlockPlacement is sent when the player right-clicks a block face
// (serverbound 0x08). Rest holds the held item slot and cursor offsets,
// decoded by hand.
type BlockPlacement struct {
	Location int64  `mc:"position"`
	Face     int8   `mc:"i8"`
	Rest     []byte `mc:"rest"`
}

func (BlockPlacement) PacketID() int32 { return 0x08 }

// TabComplete asks for completions of a partial chat line (serverbound 0x14).
// The optional looked-at position is decoded by hand.
type TabComplete struct {
	Text string `mc:"string"`
	Rest []byte `mc:"rest"`
}

func (TabComplete) PacketID() int32 { return 0x14 }

// ClientSettings is sent by the client with their settings (serverbound 0x15).
type ClientSettings struct {
	Locale       string `mc:"string"`
	ViewDistance int8   `mc:"i8"`
	ChatMode     int8   `mc:"i8"`
	ChatColors   bool   `mc:"bool"`
	SkinParts    uint8  `mc:"u8"`
}

func (ClientSettings) PacketID() int32 { return 0x15 }

// PluginMessageServerbound carries a custom channel payload (serverbound 0x17).
type PluginMessageServerbound struct {
	Channel string `mc:"string"`
	Data    []byte `mc:"rest"`
}

func (PluginMessageServerbound) PacketID() int32 { return 0x17 }
