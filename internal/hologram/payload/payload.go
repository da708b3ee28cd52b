// Package payload defines the hologram plugin-channel messages exchanged
// between server and clients.
package payload

import (
	"fmt"
	"strings"

	"github.com/go-theft-craft/hologram/internal/hologram/bus"
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/internal/server/world"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

// Plugin channels.
const (
	ChannelBusUpdate    = "hologram:bus_update"
	ChannelWatchRequest = "hologram:watch_request"

	// ChannelRegister announces the channels a side listens on.
	ChannelRegister = "REGISTER"
)

// Channels lists the hologram plugin channels.
func Channels() []string {
	return []string{ChannelBusUpdate, ChannelWatchRequest}
}

// RegisterMessage announces the hologram channels to a client, which may
// then send watch requests.
func RegisterMessage() *packet.PluginMessage {
	return &packet.PluginMessage{Channel: ChannelRegister, Data: []byte(strings.Join(Channels(), "\x00"))}
}

// Key identifies a projector on both ends of the connection.
type Key struct {
	Dimension string
	Min, Max  world.BlockPos
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%d,%d,%d|%d,%d,%d", k.Dimension,
		k.Min.X, k.Min.Y, k.Min.Z, k.Max.X, k.Max.Y, k.Max.Z)
}

// BusUpdate is the server-to-client snapshot of one projector. Tick is the
// per-dimension logical timestamp; receivers drop updates older than the
// last one applied for the same key.
type BusUpdate struct {
	Dimension string `mc:"string" cbor:"1,keyasint"`
	Min       int64  `mc:"position" cbor:"2,keyasint"`
	Max       int64  `mc:"position" cbor:"3,keyasint"`
	Model     int32  `mc:"varint" cbor:"4,keyasint"`
	Anim      int32  `mc:"varint" cbor:"5,keyasint"`
	Ctrl      int32  `mc:"varint" cbor:"6,keyasint"`
	ScaleQ    int32  `mc:"varint" cbor:"7,keyasint"`
	OffXQ     int32  `mc:"varint" cbor:"8,keyasint"`
	OffYQ     int32  `mc:"varint" cbor:"9,keyasint"`
	OffZQ     int32  `mc:"varint" cbor:"10,keyasint"`
	Tick      int64  `mc:"varlong" cbor:"11,keyasint"`
}

// NewBusUpdate builds the update for cuboid c.
func NewBusUpdate(c structure.Cuboid, codes bus.Codes, params bus.Params, tick int64) BusUpdate {
	return BusUpdate{
		Dimension: c.Dimension,
		Min:       protocol.EncodePosition(c.Min.X, c.Min.Y, c.Min.Z),
		Max:       protocol.EncodePosition(c.Max.X, c.Max.Y, c.Max.Z),
		Model:     int32(codes.Model),
		Anim:      int32(codes.Anim),
		Ctrl:      int32(codes.Ctrl),
		ScaleQ:    int32(params.ScaleQ),
		OffXQ:     int32(params.OffXQ),
		OffYQ:     int32(params.OffYQ),
		OffZQ:     int32(params.OffZQ),
		Tick:      tick,
	}
}

func decodePos(v int64) world.BlockPos {
	x, y, z := protocol.DecodePosition(v)
	return world.BlockPos{X: x, Y: y, Z: z}
}

// MinPos returns the decoded min corner.
func (u BusUpdate) MinPos() world.BlockPos { return decodePos(u.Min) }

// MaxPos returns the decoded max corner.
func (u BusUpdate) MaxPos() world.BlockPos { return decodePos(u.Max) }

// Key returns the projector identity.
func (u BusUpdate) Key() Key {
	return Key{Dimension: u.Dimension, Min: u.MinPos(), Max: u.MaxPos()}
}

// Cuboid returns the bounds as a cuboid.
func (u BusUpdate) Cuboid() structure.Cuboid {
	return structure.Cuboid{Dimension: u.Dimension, Min: u.MinPos(), Max: u.MaxPos()}
}

// Codes returns the code triple.
func (u BusUpdate) Codes() bus.Codes {
	return bus.Codes{Model: int(u.Model), Anim: int(u.Anim), Ctrl: int(u.Ctrl)}
}

// Params returns the quantized parameters.
func (u BusUpdate) Params() bus.Params {
	return bus.Params{ScaleQ: int(u.ScaleQ), OffXQ: int(u.OffXQ), OffYQ: int(u.OffYQ), OffZQ: int(u.OffZQ)}
}

// Message wraps the update in a clientbound plugin message.
func (u BusUpdate) Message() (*packet.PluginMessage, error) {
	data, err := protocol.Encode(&u)
	if err != nil {
		return nil, fmt.Errorf("encode bus update: %w", err)
	}
	return &packet.PluginMessage{Channel: ChannelBusUpdate, Data: data}, nil
}

// DecodeBusUpdate parses the body of a hologram:bus_update message.
func DecodeBusUpdate(data []byte) (BusUpdate, error) {
	var u BusUpdate
	if err := protocol.Decode(data, &u); err != nil {
		return BusUpdate{}, fmt.Errorf("decode bus update: %w", err)
	}
	return u, nil
}

// WatchRequest asks the server to watch the cuboid containing Seed.
type WatchRequest struct {
	Seed int64 `mc:"position" cbor:"1,keyasint"`
}

// NewWatchRequest builds a request for pos.
func NewWatchRequest(pos world.BlockPos) WatchRequest {
	return WatchRequest{Seed: protocol.EncodePosition(pos.X, pos.Y, pos.Z)}
}

// SeedPos returns the decoded seed.
func (r WatchRequest) SeedPos() world.BlockPos { return decodePos(r.Seed) }

// Message wraps the request in a serverbound plugin message.
func (r WatchRequest) Message() (*packet.PluginMessageServerbound, error) {
	data, err := protocol.Encode(&r)
	if err != nil {
		return nil, fmt.Errorf("encode watch request: %w", err)
	}
	return &packet.PluginMessageServerbound{Channel: ChannelWatchRequest, Data: data}, nil
}

// DecodeWatchRequest parses the body of a hologram:watch_request message.
func DecodeWatchRequest(data []byte) (WatchRequest, error) {
	var r WatchRequest
	if err := protocol.Decode(data, &r); err != nil {
		return WatchRequest{}, fmt.Errorf("decode watch request: %w", err)
	}
	return r, nil
}
