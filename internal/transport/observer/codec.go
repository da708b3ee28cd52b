// Package observer streams projector updates to headless clients over a
// websocket, one CBOR frame per message.
package observer

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/go-theft-craft/hologram/internal/hologram/payload"
)

// Path is the HTTP path the hub is served on.
const Path = "/observe"

// Frame types.
const (
	TypeHello  = "hello"
	TypeUpdate = "update"
	TypeWatch  = "watch"
	TypeError  = "error"
)

// Frame is one websocket message in either direction.
type Frame struct {
	Type    string                `cbor:"1,keyasint"`
	Session string                `cbor:"2,keyasint,omitempty"`
	Update  *payload.BusUpdate    `cbor:"3,keyasint,omitempty"`
	Watch   *payload.WatchRequest `cbor:"4,keyasint,omitempty"`
	Error   string                `cbor:"5,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("observer: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("observer: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes f deterministically.
func Encode(f Frame) ([]byte, error) {
	b, err := encMode.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", f.Type, err)
	}
	return b, nil
}

// Decode parses one frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := decMode.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("decode frame: missing type")
	}
	return f, nil
}
