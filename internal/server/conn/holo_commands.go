package conn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-theft-craft/hologram/internal/hologram/bus"
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/hologram/watch"
	"github.com/go-theft-craft/hologram/internal/server/player"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

type holoSub struct {
	name     string
	usage    string
	level    int
	codeArgs int
	// checkBlock rejects explicit positions that are not the projector block.
	checkBlock bool
	run        func(c *Connection, pos world.BlockPos, codes []int)
}

var holoSubs []holoSub

func init() {
	holoSubs = []holoSub{
		{name: "detect", usage: "/holo detect", checkBlock: true, run: holoDetect},
		{name: "map", usage: "/holo map", checkBlock: true, run: holoMap},
		{name: "codes", usage: "/holo codes", run: holoCodes},
		{name: "setcodes", usage: "/holo setcodes <model> <anim> <ctrl>", level: player.LevelOperator, codeArgs: 3, run: holoSetCodes},
		{name: "watch", usage: "/holo watch", checkBlock: true, run: holoWatch},
		{name: "unwatch", usage: "/holo unwatch", run: holoUnwatch},
	}
}

const (
	holoUsage    = "Usage: /holo detect|map|codes|setcodes|watch|unwatch|list"
	notWatched   = "No watched cuboid matched the given position."
	watchFirst   = notWatched + " Use /holo watch first."
	shuttingDown = "Server is shutting down."
)

// codeLimits are the inclusive upper bounds of model, anim and ctrl.
var codeLimits = [3]int{bus.MaxModel, bus.MaxAnim, bus.MaxCtrl}

func cmdHolo(c *Connection, args []string) {
	if len(args) == 0 {
		c.sendSystemMsg(holoUsage, "yellow")
		return
	}
	name := strings.ToLower(args[0])
	args = args[1:]
	if name == "list" {
		holoList(c)
		return
	}

	for _, sub := range holoSubs {
		if sub.name != name {
			continue
		}
		if c.self.PermissionLevel() < sub.level {
			c.sendErrorMsg(noPermission)
			return
		}
		if len(args) != sub.codeArgs && len(args) != sub.codeArgs+3 {
			c.sendErrorMsg(fmt.Sprintf("Usage: %s [<x> <y> <z>]", sub.usage))
			return
		}
		codes, ok := c.parseCodes(sub, args[:sub.codeArgs])
		if !ok {
			return
		}
		pos, ok := c.holoTarget(sub, args[sub.codeArgs:])
		if !ok {
			return
		}
		sub.run(c, pos, codes)
		return
	}
	c.sendErrorMsg(holoUsage)
}

func (c *Connection) parseCodes(sub holoSub, args []string) ([]int, bool) {
	codes := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil || v < 0 || v > codeLimits[i] {
			c.sendErrorMsg(fmt.Sprintf("Usage: /holo setcodes <model 0..%d> <anim 0..%d> <ctrl 0..%d> [<x> <y> <z>]",
				bus.MaxModel, bus.MaxAnim, bus.MaxCtrl))
			return nil, false
		}
		codes[i] = v
	}
	return codes, true
}

// holoTarget resolves an explicit position or, without one, the projector
// block under the player's gaze.
func (c *Connection) holoTarget(sub holoSub, args []string) (world.BlockPos, bool) {
	if len(args) == 3 {
		pos, err := c.parsePos(args)
		if err != nil {
			c.sendErrorMsg(fmt.Sprintf("Invalid position: %s", strings.Join(args, " ")))
			return world.BlockPos{}, false
		}
		if sub.checkBlock && !c.holo.IsProjector(pos) {
			c.sendErrorMsg(fmt.Sprintf("The given position is not a projector block: %s", formatPos(pos)))
			return world.BlockPos{}, false
		}
		return pos, true
	}

	dist := c.gazeDistance()
	pos, ok := c.lookedAtProjector(dist)
	if !ok {
		c.sendErrorMsg(fmt.Sprintf("Look at a projector block within %g blocks, or use %s <x> <y> <z>.", dist, sub.usage))
		return world.BlockPos{}, false
	}
	return pos, true
}

func (c *Connection) gazeDistance() float64 {
	if d := c.cfg.Hologram.GazeDistance; d > 0 {
		return d
	}
	return watch.DefaultConfig().GazeDistance
}

func (c *Connection) lookedAtProjector(dist float64) (world.BlockPos, bool) {
	pos := c.self.GetPosition()
	hit, ok := c.world.Raycast(pos.Eye(), pos.Look(), dist)
	if !ok || !c.holo.IsProjector(hit) {
		return world.BlockPos{}, false
	}
	return hit, true
}

func describe(cub structure.Cuboid) string {
	return fmt.Sprintf("min=%s max=%s size=%dx%dx%d",
		formatPos(cub.Min), formatPos(cub.Max), cub.SizeX(), cub.SizeY(), cub.SizeZ())
}

func (c *Connection) notFound(seed world.BlockPos, err error, what string) {
	if errors.Is(err, structure.ErrNotFound) {
		c.sendErrorMsg(fmt.Sprintf("No projector cuboid found %s %s or it exceeds %d per axis.", what, formatPos(seed), c.holo.Ceiling()))
		return
	}
	c.sendErrorMsg(shuttingDown)
}

func holoDetect(c *Connection, seed world.BlockPos, _ []int) {
	cub, err := c.holo.Detect(c.ctx, seed)
	if err != nil {
		c.notFound(seed, err, "from seed")
		return
	}
	c.sendSuccessMsg(fmt.Sprintf("Detected cuboid: %s volume=%d", describe(cub), cub.Volume()))
}

func holoMap(c *Connection, seed world.BlockPos, _ []int) {
	cub, err := c.holo.Detect(c.ctx, seed)
	if err != nil {
		c.notFound(seed, err, "from seed")
		return
	}
	c.sendSuccessMsg("Holo Port Map: " + describe(cub))

	ports := bus.PortMap(cub)
	for _, field := range []struct{ key, title string }{
		{"model", "Model"}, {"anim", "Anim"}, {"ctrl", "Ctrl"},
	} {
		var lines []bus.Port
		for _, p := range ports {
			if p.Field == field.key {
				lines = append(lines, p)
			}
		}
		if len(lines) == 0 {
			c.sendSystemMsg(field.title+" bits: none (edge too small)", "yellow")
			continue
		}
		c.sendSystemMsg(fmt.Sprintf("%s bits (0..%d):", field.title, len(lines)-1), "yellow")
		for i, p := range lines {
			c.sendPortLine(fmt.Sprintf("  %s[%d]", strings.ToUpper(field.key), i), p.Pos)
		}
	}

	c.sendSystemMsg("Param bus (analog 0..15; 0=inactive):", "yellow")
	sides := map[string]string{"scale": "north", "offX": "east", "offY": "south", "offZ": "west"}
	for _, p := range ports {
		if p.Field == "param" {
			c.sendPortLine(fmt.Sprintf("  %sQ (%s center)", p.Label, sides[p.Label]), p.Pos)
		}
	}
}

// sendPortLine prints a label and a position that teleports there when
// clicked. Operators run the teleport directly; others get it suggested.
func (c *Connection) sendPortLine(label string, p world.BlockPos) {
	cmd := fmt.Sprintf("/tp %d %d %d", p.X, p.Y, p.Z)
	action := "suggest_command"
	if c.self.PermissionLevel() >= player.LevelOperator {
		action = "run_command"
	}
	c.sendComponent(component{
		Text:  label + ": ",
		Color: "gray",
		Extra: []component{{
			Text:       formatPos(p),
			Color:      "aqua",
			ClickEvent: &chatEvent{Action: action, Value: cmd},
			HoverEvent: &chatEvent{Action: "show_text", Value: fmt.Sprintf("Click to TP to %d %d %d", p.X, p.Y, p.Z)},
		}},
	})
}

func holoCodes(c *Connection, pos world.BlockPos, _ []int) {
	codes, ok, err := c.holo.Codes(c.ctx, pos)
	switch {
	case err != nil:
		c.sendErrorMsg(shuttingDown)
	case !ok:
		c.sendErrorMsg(watchFirst)
	default:
		c.sendSuccessMsg(fmt.Sprintf("Codes: model=%d anim=%d ctrl=%d", codes.Model, codes.Anim, codes.Ctrl))
	}
}

func holoSetCodes(c *Connection, pos world.BlockPos, v []int) {
	codes := bus.Codes{Model: v[0], Anim: v[1], Ctrl: v[2]}
	_, ok, err := c.holo.SetCodes(c.ctx, pos, codes)
	switch {
	case err != nil:
		c.sendErrorMsg(shuttingDown)
	case !ok:
		c.sendErrorMsg(watchFirst)
	default:
		c.sendSuccessMsg(fmt.Sprintf("Set codes for cuboid at %s: model=%d anim=%d ctrl=%d",
			formatPos(pos), codes.Model, codes.Anim, codes.Ctrl))
	}
}

func holoWatch(c *Connection, seed world.BlockPos, _ []int) {
	e, created, err := c.holo.Watch(c.ctx, seed)
	if err != nil {
		c.notFound(seed, err, "to watch from")
		return
	}
	msg := fmt.Sprintf("Watching cuboid: %s initialPower=%d", describe(e.Cuboid), e.Power)
	if !created {
		msg = fmt.Sprintf("Already watching cuboid: %s", describe(e.Cuboid))
	}
	c.sendSuccessMsg(msg)
}

func holoUnwatch(c *Connection, pos world.BlockPos, _ []int) {
	n, err := c.holo.Unwatch(c.ctx, pos)
	switch {
	case err != nil:
		c.sendErrorMsg(shuttingDown)
	case n == 0:
		c.sendErrorMsg(notWatched)
	default:
		c.sendSuccessMsg(fmt.Sprintf("Unwatched cuboid at position %s", formatPos(pos)))
	}
}

func holoList(c *Connection) {
	entries, err := c.holo.Entries(c.ctx)
	if err != nil {
		c.sendErrorMsg(shuttingDown)
		return
	}
	if len(entries) == 0 {
		c.sendSuccessMsg("No watched projectors.")
		return
	}
	c.sendSuccessMsg(fmt.Sprintf("Watched projectors (%d):", len(entries)))
	for _, e := range entries {
		c.sendSystemMsg(fmt.Sprintf("  %s power=%d model=%d anim=%d ctrl=%d",
			describe(e.Cuboid), e.Power, e.Model, e.Anim, e.Ctrl), "yellow")
	}
}
