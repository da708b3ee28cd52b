package conn

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/internal/server/player"
	"github.com/go-theft-craft/hologram/internal/server/world"
	"github.com/go-theft-craft/hologram/internal/server/world/gen"
	"github.com/go-theft-craft/hologram/pkg/protocol"
)

const (
	keepAliveInterval = 15 * time.Second
	keepAliveTimeout  = 30 * time.Second
)

func (c *Connection) startPlay(username string, id uuid.UUID) error {
	c.log = c.log.With("player", username)

	spawn := player.Position{X: 0.5, Y: float64(c.world.SpawnHeight()), Z: 0.5}
	if c.store != nil {
		saved, err := c.store.LoadPlayer(id.String())
		if err != nil {
			c.log.Warn("load player", "error", err)
		} else if saved != nil {
			p := saved.Position
			spawn = player.Position{X: p.X, Y: p.Y, Z: p.Z, Yaw: p.Yaw, Pitch: p.Pitch}
		}
	}

	c.self = player.NewPlayer(c.players.AllocateEntityID(), id, username, spawn, c.writePacket)
	if c.cfg.IsOperator(username) {
		c.self.SetPermissionLevel(player.LevelOperator)
	}

	if err := c.writePacket(&packet.JoinGame{
		EntityID:   c.self.EntityID,
		GameMode:   packet.GameModeCreative,
		Dimension:  packet.DimensionOverworld,
		Difficulty: packet.DifficultyEasy,
		MaxPlayers: uint8(min(c.cfg.MaxPlayers, 255)),
		LevelType:  "flat",
	}); err != nil {
		return fmt.Errorf("write join game: %w", err)
	}

	if err := c.writePacket(&packet.SpawnPosition{
		Location: protocol.EncodePosition(0, c.world.SpawnHeight(), 0),
	}); err != nil {
		return fmt.Errorf("write spawn position: %w", err)
	}

	if err := c.writePacket(&packet.PlayerAbilities{
		Flags:        packet.AbilityInvulnerable | packet.AbilityAllowFlight | packet.AbilityCreativeMode,
		FlyingSpeed:  0.05,
		WalkingSpeed: 0.1,
	}); err != nil {
		return fmt.Errorf("write player abilities: %w", err)
	}

	if err := c.writePacket(&packet.PlayerPositionAndLook{
		X:     spawn.X,
		Y:     spawn.Y,
		Z:     spawn.Z,
		Yaw:   spawn.Yaw,
		Pitch: spawn.Pitch,
	}); err != nil {
		return fmt.Errorf("write position and look: %w", err)
	}

	if err := c.sendChunks(); err != nil {
		return fmt.Errorf("send chunks: %w", err)
	}

	c.players.Add(c.self)

	if err := c.writePacket(payload.RegisterMessage()); err != nil {
		return fmt.Errorf("register plugin channels: %w", err)
	}
	if err := c.sendProjectorSnapshot(); err != nil {
		return fmt.Errorf("send projector snapshot: %w", err)
	}

	c.sendSystemMsg(fmt.Sprintf("Welcome, %s! Type /help for commands.", username), "gold")

	go c.keepAliveLoop()

	c.log.Info("join sequence complete")
	return nil
}

// sendProjectorSnapshot replays the state of every watched projector so a
// late joiner starts in sync.
func (c *Connection) sendProjectorSnapshot() error {
	updates, err := c.holo.Snapshot(c.ctx)
	if err != nil {
		return err
	}
	for _, u := range updates {
		msg, err := u.Message()
		if err != nil {
			return err
		}
		if err := c.writePacket(msg); err != nil {
			return err
		}
	}
	return nil
}

// sendChunks writes every column within view distance that the client has
// not received yet.
func (c *Connection) sendChunks() error {
	cx, cz := c.self.ChunkX(), c.self.ChunkZ()
	r := c.cfg.ViewDistance
	for x := cx - r; x <= cx+r; x++ {
		for z := cz - r; z <= cz+r; z++ {
			if !c.inWorld(x, z) {
				continue
			}
			pos := gen.ChunkPos{X: x, Z: z}
			if _, ok := c.loadedChunks[pos]; ok {
				continue
			}
			chunk := c.world.EncodeChunk(x, z)
			if err := c.writePacket(&chunk); err != nil {
				return fmt.Errorf("write chunk %d,%d: %w", x, z, err)
			}
			c.loadedChunks[pos] = struct{}{}
		}
	}
	return nil
}

func (c *Connection) inWorld(cx, cz int) bool {
	r := c.cfg.WorldRadius
	return r <= 0 || (cx >= -r && cx < r && cz >= -r && cz < r)
}

func (c *Connection) keepAliveLoop() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	var id int32
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if !c.keepAliveAcked && id > 0 && time.Since(c.lastKeepAliveSent) > keepAliveTimeout {
				c.mu.Unlock()
				_ = c.writePacket(&packet.Disconnect{Reason: chatJSON("Timed out", "red")})
				c.disconnect("keepalive timeout")
				return
			}
			id++
			c.lastKeepAliveID = id
			c.lastKeepAliveSent = time.Now()
			c.keepAliveAcked = false
			c.mu.Unlock()

			if err := c.writePacket(&packet.KeepAlive{KeepAliveID: id}); err != nil {
				c.log.Error("keep alive write failed", "error", err)
				c.cancel()
				return
			}
		}
	}
}

func (c *Connection) handlePlay(packetID int32, data []byte) error {
	switch packetID {
	case 0x00: // KeepAlive
		var p packet.KeepAliveServerbound
		if err := protocol.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal keep alive: %w", err)
		}
		c.mu.Lock()
		if p.KeepAliveID == c.lastKeepAliveID {
			c.keepAliveAcked = true
		}
		c.mu.Unlock()

	case 0x01: // Chat Message
		var p packet.ChatMessageServerbound
		if err := protocol.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal chat: %w", err)
		}
		c.handleChat(p.Message)

	case 0x04:
		var p packet.PlayerPosition
		if err := protocol.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal position: %w", err)
		}
		c.self.MoveTo(p.X, p.FeetY, p.Z, p.OnGround)
		return c.moved()

	case 0x05:
		var p packet.PlayerLook
		if err := protocol.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal look: %w", err)
		}
		c.self.UpdateLook(p.Yaw, p.Pitch, p.OnGround)
		c.players.BroadcastToTrackers(&packet.EntityHeadLook{
			EntityID: c.self.EntityID,
			HeadYaw:  player.DegreesToAngle(p.Yaw),
		}, c.self.EntityID)
		c.players.BroadcastToTrackers(player.TeleportPacket(c.self), c.self.EntityID)

	case 0x06:
		var p packet.PlayerPositionAndLookServerbound
		if err := protocol.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal position and look: %w", err)
		}
		c.self.SetPosition(p.X, p.FeetY, p.Z, p.Yaw, p.Pitch, p.OnGround)
		return c.moved()

	case 0x07:
		return c.handleBlockDig(data)

	case 0x08:
		return c.handleBlockPlace(data)

	case 0x14:
		return c.handleTabComplete(data)

	case 0x15:
		var p packet.ClientSettings
		if err := protocol.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("unmarshal client settings: %w", err)
		}
		c.log.Debug("client settings", "locale", p.Locale, "viewDistance", p.ViewDistance)

	case 0x17:
		return c.handlePluginMessage(data)

	default:
		// ignore unknown packets silently
	}
	return nil
}

func (c *Connection) handleChat(msg string) {
	if c.handleCommand(msg) {
		return
	}
	c.log.Info("chat", "message", msg)
	c.players.Broadcast(&packet.ChatMessage{
		JSONData: fmt.Sprintf(`{"translate":"chat.type.text","with":[%s,%s]}`,
			escapeJSON(c.self.Username), escapeJSON(msg)),
		Position: packet.ChatPositionChat,
	})
}

// moved propagates a position change to trackers and streams new chunks.
func (c *Connection) moved() error {
	c.players.BroadcastToTrackers(player.TeleportPacket(c.self), c.self.EntityID)
	c.players.UpdateTracking(c.self)
	return c.sendChunks()
}

func (c *Connection) handleBlockDig(data []byte) error {
	var p packet.PlayerDigging
	if err := protocol.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal dig: %w", err)
	}

	// Creative mode breaks on start; survival-style clients report finish.
	if p.Status != 0 && p.Status != 2 {
		return nil
	}
	x, y, z := protocol.DecodePosition(p.Location)
	return c.changeBlock(world.BlockPos{X: x, Y: y, Z: z}, 0)
}

// faceOffsets maps a block face to the neighbour it points at.
var faceOffsets = [6]world.BlockPos{
	{Y: -1}, {Y: 1}, {Z: -1}, {Z: 1}, {X: -1}, {X: 1},
}

func (c *Connection) handleBlockPlace(data []byte) error {
	var p packet.BlockPlacement
	if err := protocol.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal block placement: %w", err)
	}
	// Face -1 means the held item was used without targeting a block.
	if p.Face < 0 || int(p.Face) >= len(faceOffsets) {
		return nil
	}

	item, damage, ok, err := readHeldBlock(p.Rest)
	if err != nil {
		return fmt.Errorf("read placed item: %w", err)
	}
	if !ok {
		return nil
	}

	x, y, z := protocol.DecodePosition(p.Location)
	off := faceOffsets[p.Face]
	target := world.BlockPos{X: x + off.X, Y: y + off.Y, Z: z + off.Z}
	return c.changeBlock(target, int32(item)<<4|int32(damage&0xF))
}

// readHeldBlock decodes the slot at the start of a placement body. ok is
// false for an empty hand or a non-block item.
func readHeldBlock(rest []byte) (item, damage int16, ok bool, err error) {
	r := bytes.NewReader(rest)
	item, err = protocol.ReadI16(r)
	if err != nil {
		return 0, 0, false, err
	}
	if item <= 0 || item >= 256 {
		return item, 0, false, nil
	}
	if _, err = protocol.ReadI8(r); err != nil {
		return 0, 0, false, err
	}
	damage, err = protocol.ReadI16(r)
	if err != nil {
		return 0, 0, false, err
	}
	return item, damage, true, nil
}

// changeBlock applies a block edit on the tick loop and shows it to everyone.
func (c *Connection) changeBlock(pos world.BlockPos, state int32) error {
	if pos.Y < 0 || pos.Y > 255 {
		return nil
	}
	if _, err := c.holo.SetBlock(c.ctx, pos, state); err != nil {
		return fmt.Errorf("set block %v: %w", pos, err)
	}
	c.players.Broadcast(&packet.BlockChange{
		Location: protocol.EncodePosition(pos.X, pos.Y, pos.Z),
		BlockID:  state,
	})
	return nil
}

func (c *Connection) handlePluginMessage(data []byte) error {
	var p packet.PluginMessageServerbound
	if err := protocol.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal plugin message: %w", err)
	}
	if p.Channel != payload.ChannelWatchRequest {
		return nil
	}

	req, err := payload.DecodeWatchRequest(p.Data)
	if err != nil {
		c.log.Debug("bad watch request", "error", err)
		return nil
	}
	if err := c.holo.RequestWatch(c.ctx, req); err != nil {
		c.log.Debug("watch request refused", "seed", req.SeedPos(), "error", err)
	}
	return nil
}
