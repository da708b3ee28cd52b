package packet

// LoginStart is sent by the client with their username (serverbound 0x00 in Login state).
type LoginStart struct {
	Name string `mc:"string"`
}

func (LoginStart) PacketID() int32 { return 0x00 }

// LoginDisconnect rejects a client during login (clientbound 0x00).
type LoginDisconnect struct {
	Reason string `mc:"string"`
}

func (LoginDisconnect) PacketID() int32 { return 0x00 }

// LoginSuccess completes offline login (clientbound 0x02).
type LoginSuccess struct {
	UUID     string `mc:"string"`
	Username string `mc:"string"`
}

func (LoginSuccess) PacketID() int32 { return 0x02 }
