package conn

import (
	"crypto/md5"
	"fmt"

	"github.com/google/uuid"

	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

func (c *Connection) handleLogin(packetID int32, data []byte) error {
	if packetID != 0x00 {
		return fmt.Errorf("unexpected login packet 0x%02X", packetID)
	}

	var login packet.LoginStart
	if err := protocol.Unmarshal(data, &login); err != nil {
		return fmt.Errorf("unmarshal login start: %w", err)
	}
	c.log.Info("login start", "username", login.Name)

	if reason := c.refuseLogin(login.Name); reason != "" {
		_ = c.writePacket(&packet.LoginDisconnect{Reason: chatJSON(reason, "red")})
		c.disconnect(reason)
		return nil
	}

	id := OfflineUUID(login.Name)
	if err := c.writePacket(&packet.LoginSuccess{
		UUID:     id.String(),
		Username: login.Name,
	}); err != nil {
		return fmt.Errorf("write login success: %w", err)
	}
	c.log.Info("login success", "username", login.Name, "uuid", id.String())

	c.state = StatePlay
	return c.startPlay(login.Name, id)
}

func (c *Connection) refuseLogin(name string) string {
	switch {
	case name == "" || len(name) > 16:
		return "Invalid username."
	case c.players.GetByName(name) != nil:
		return "You are already connected."
	case c.cfg.MaxPlayers > 0 && c.players.PlayerCount() >= c.cfg.MaxPlayers:
		return "The server is full."
	}
	return ""
}

// OfflineUUID returns the version 3 UUID of "OfflinePlayer:<username>",
// matching what vanilla servers assign without authentication.
func OfflineUUID(username string) uuid.UUID {
	h := md5.Sum([]byte("OfflinePlayer:" + username))
	h[6] = (h[6] & 0x0f) | 0x30
	h[8] = (h[8] & 0x3f) | 0x80
	return uuid.UUID(h)
}
