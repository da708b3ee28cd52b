package conn

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

func (c *Connection) handleHandshake(packetID int32, data []byte) error {
	if packetID != 0x00 {
		return fmt.Errorf("expected handshake packet 0x00, got 0x%02X", packetID)
	}

	var hs packet.Handshake
	if err := protocol.Unmarshal(data, &hs); err != nil {
		return fmt.Errorf("unmarshal handshake: %w", err)
	}
	c.log.Debug("handshake received", "protocol", hs.ProtocolVersion, "nextState", hs.NextState)

	switch hs.NextState {
	case 1:
		c.state = StateStatus
	case 2:
		if hs.ProtocolVersion != packet.ProtocolVersion {
			c.log.Warn("unsupported protocol version", "version", hs.ProtocolVersion)
		}
		c.state = StateLogin
	default:
		return fmt.Errorf("invalid next state: %d", hs.NextState)
	}
	return nil
}

// statusResponse is the server list ping JSON. Hologram lets launchers and
// the headless client see the plugin channels and projector count before
// joining.
type statusResponse struct {
	Version     statusVersion   `json:"version"`
	Players     statusPlayers   `json:"players"`
	Description statusDesc      `json:"description"`
	Hologram    *statusHologram `json:"hologram,omitempty"`
}

type statusVersion struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

type statusPlayers struct {
	Max    int `json:"max"`
	Online int `json:"online"`
}

type statusDesc struct {
	Text string `json:"text"`
}

type statusHologram struct {
	Channels   []string `json:"channels"`
	Projectors int      `json:"projectors"`
	Block      int32    `json:"block"`
}

func (c *Connection) handleStatus(packetID int32, data []byte) error {
	switch packetID {
	case 0x00: // Status Request
		resp := statusResponse{
			Version:     statusVersion{Name: packet.VersionName, Protocol: packet.ProtocolVersion},
			Players:     statusPlayers{Max: c.cfg.MaxPlayers, Online: c.players.PlayerCount()},
			Description: statusDesc{Text: c.cfg.MOTD},
			Hologram:    c.hologramStatus(),
		}
		jsonBytes, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("marshal status response: %w", err)
		}
		return c.writePacket(&packet.StatusResponse{Response: string(jsonBytes)})

	case 0x01: // Ping
		var ping packet.StatusPing
		if err := protocol.Unmarshal(data, &ping); err != nil {
			return fmt.Errorf("unmarshal ping: %w", err)
		}
		return c.writePacket(&packet.StatusPong{Time: ping.Time})

	default:
		return fmt.Errorf("unexpected status packet 0x%02X", packetID)
	}
}

// statusTimeout bounds how long a server list ping waits on the tick loop.
const statusTimeout = time.Second

// hologramStatus is nil when the registry does not answer in time.
func (c *Connection) hologramStatus() *statusHologram {
	if c.holo == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.ctx, statusTimeout)
	defer cancel()
	entries, err := c.holo.Entries(ctx)
	if err != nil {
		c.log.Debug("status projector count", "error", err)
		return nil
	}
	return &statusHologram{
		Channels:   payload.Channels(),
		Projectors: len(entries),
		Block:      c.cfg.Hologram.ProjectorBlock,
	}
}
