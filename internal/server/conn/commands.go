package conn

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-theft-craft/hologram/internal/server/packet"
	"github.com/go-theft-craft/hologram/internal/server/player"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

type command struct {
	name    string
	usage   string
	desc    string
	level   int
	handler func(c *Connection, args []string)
}

var commands []command

func init() {
	commands = []command{
		{name: "help", usage: "/help", desc: "Show available commands", handler: cmdHelp},
		{name: "list", usage: "/list", desc: "Show online players", handler: cmdList},
		{name: "tp", usage: "/tp <player> | /tp <x> <y> <z>", desc: "Teleport to a player or coordinates", handler: cmdTp},
		{name: "holo", usage: "/holo <detect|map|codes|setcodes|watch|unwatch|list>", desc: "Inspect and control hologram projectors", handler: cmdHolo},
		{name: "signal", usage: "/signal <x> <y> <z> <0..15>", desc: "Place an analog redstone signal", level: player.LevelOperator, handler: cmdSignal},
		{name: "save", usage: "/save", desc: "Save the world", level: player.LevelOperator, handler: cmdSave},
	}
}

const noPermission = "You do not have permission to use this command."

// handleCommand intercepts /-prefixed messages and dispatches them.
// Returns true if the message was a command (even if unknown).
func (c *Connection) handleCommand(msg string) bool {
	if !strings.HasPrefix(msg, "/") {
		return false
	}

	parts := strings.Fields(msg)
	if len(parts) == 0 {
		return true
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if c.self.PermissionLevel() < cmd.level {
			c.sendErrorMsg(noPermission)
			return true
		}
		c.log.Debug("command", "name", name, "args", args)
		cmd.handler(c, args)
		return true
	}

	c.sendErrorMsg(fmt.Sprintf("Unknown command: /%s. Type /help for a list of commands.", name))
	return true
}

func cmdHelp(c *Connection, _ []string) {
	c.sendSystemMsg("--- Available Commands ---", "yellow")
	level := c.self.PermissionLevel()
	for _, cmd := range commands {
		if level >= cmd.level {
			c.sendSystemMsg(fmt.Sprintf("%s - %s", cmd.usage, cmd.desc), "yellow")
		}
	}
}

func cmdList(c *Connection, _ []string) {
	var names []string
	c.players.ForEach(func(p *player.Player) {
		names = append(names, p.Username)
	})
	c.sendSuccessMsg(fmt.Sprintf("Online players (%d): %s", len(names), strings.Join(names, ", ")))
}

func cmdTp(c *Connection, args []string) {
	switch len(args) {
	case 1:
		target := c.players.GetByName(args[0])
		if target == nil {
			c.sendErrorMsg(fmt.Sprintf("Player %q not found.", args[0]))
			return
		}
		pos := target.GetPosition()
		c.teleportSelf(pos.X, pos.Y, pos.Z)
		c.sendSuccessMsg(fmt.Sprintf("Teleported to %s.", target.Username))

	case 3:
		pos := c.self.GetPosition()
		x, errX := parseCoordF(args[0], pos.X)
		y, errY := parseCoordF(args[1], pos.Y)
		z, errZ := parseCoordF(args[2], pos.Z)
		if errX != nil || errY != nil || errZ != nil {
			c.sendErrorMsg("Usage: /tp <x> <y> <z> (numbers)")
			return
		}
		c.teleportSelf(x, y, z)
		c.sendSuccessMsg(fmt.Sprintf("Teleported to %.1f, %.1f, %.1f.", x, y, z))

	default:
		c.sendErrorMsg("Usage: /tp <player> or /tp <x> <y> <z>")
	}
}

// teleportSelf moves the connection's player and tells everyone who sees it.
func (c *Connection) teleportSelf(x, y, z float64) {
	pos := c.self.GetPosition()
	c.self.SetPosition(x, y, z, pos.Yaw, pos.Pitch, false)

	_ = c.writePacket(&packet.PlayerPositionAndLook{
		X:     x,
		Y:     y,
		Z:     z,
		Yaw:   pos.Yaw,
		Pitch: pos.Pitch,
	})
	if err := c.moved(); err != nil {
		c.log.Error("teleport", "error", err)
	}
}

func cmdSignal(c *Connection, args []string) {
	const usage = "Usage: /signal <x> <y> <z> <0..15>"
	if len(args) != 4 {
		c.sendErrorMsg(usage)
		return
	}
	pos, err := c.parsePos(args[:3])
	if err != nil {
		c.sendErrorMsg(usage)
		return
	}
	strength, err := strconv.Atoi(args[3])
	if err != nil || strength < 0 || strength > world.MaxSignal {
		c.sendErrorMsg(usage)
		return
	}
	if err := c.holo.SetSignal(c.ctx, pos, strength); err != nil {
		c.sendErrorMsg("Server is shutting down.")
		return
	}
	c.sendSuccessMsg(fmt.Sprintf("Signal at %s set to %d.", formatPos(pos), strength))
}

func cmdSave(c *Connection, _ []string) {
	if c.SaveAll == nil {
		c.sendErrorMsg("Save is not available.")
		return
	}
	c.sendSuccessMsg("Saving world...")
	go func() {
		if err := c.SaveAll(); err != nil {
			c.log.Error("save", "error", err)
			c.sendErrorMsg("Save failed.")
			return
		}
		c.sendSuccessMsg("Save complete.")
	}()
}

// parsePos parses three block coordinates. A leading ~ is relative to the
// block the player stands in.
func (c *Connection) parsePos(args []string) (world.BlockPos, error) {
	pos := c.self.GetPosition()
	var out [3]int
	for i, base := range []float64{pos.X, pos.Y, pos.Z} {
		v, err := parseCoordF(args[i], math.Floor(base))
		if err != nil {
			return world.BlockPos{}, err
		}
		out[i] = int(math.Floor(v))
	}
	return world.BlockPos{X: out[0], Y: out[1], Z: out[2]}, nil
}

func parseCoordF(s string, base float64) (float64, error) {
	if rel, ok := strings.CutPrefix(s, "~"); ok {
		if rel == "" {
			return base, nil
		}
		v, err := strconv.ParseFloat(rel, 64)
		if err != nil {
			return 0, err
		}
		return base + v, nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatPos(p world.BlockPos) string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}
