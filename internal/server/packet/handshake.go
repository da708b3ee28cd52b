package packet

// ProtocolVersion is the 1.8 protocol number this server speaks.
const ProtocolVersion = 47

// VersionName is reported in the status response.
const VersionName = "1.8.9"

// Handshake is sent by the client to begin a connection (serverbound 0x00).
type Handshake struct {
	ProtocolVersion int32  `mc:"varint"`
	ServerAddress   string `mc:"string"`
	ServerPort      uint16 `mc:"u16"`
	NextState       int32  `mc:"varint"`
}

func (Handshake) PacketID() int32 { return 0x00 }
