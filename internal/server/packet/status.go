package packet

// StatusResponse carries the server list JSON (clientbound 0x00 in Status state).
type StatusResponse struct {
	Response string `mc:"string"`
}

func (StatusResponse) PacketID() int32 { return 0x00 }

// StatusPing is echoed back as StatusPong (0x01 both directions in Status state).
type StatusPing struct {
	Time int64 `mc:"i64"`
}

func (StatusPing) PacketID() int32 { return 0x01 }

// StatusPong answers a StatusPing.
type StatusPong struct {
	Time int64 `mc:"i64"`
}

func (StatusPong) PacketID() int32 { return 0x01 }
