// Package bus decodes redstone power around a projector cuboid into the
// model, animation and control codes plus four quantized parameters.
package bus

import (
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// Run lengths of the three fields carried on the edge ports.
const (
	ModelBits = 8
	AnimBits  = 8
	CtrlBits  = 4
)

// Largest value of each code.
const (
	MaxModel = 1<<ModelBits - 1
	MaxAnim  = 1<<AnimBits - 1
	MaxCtrl  = 1<<CtrlBits - 1
)

// EdgePorts lists the positions on the twelve edges of the box spanned by
// min and max, in wire order: bottom edges N, S, W, E, top edges N, S, W, E,
// then the interior of the vertical edges NW, NE, SW, SE. Positions shared
// by two edges appear once, at their first occurrence.
func EdgePorts(min, max world.BlockPos) []world.BlockPos {
	seen := make(map[world.BlockPos]struct{})
	var ports []world.BlockPos
	add := func(p world.BlockPos) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		ports = append(ports, p)
	}
	lineX := func(y, z int) {
		for x := min.X; x <= max.X; x++ {
			add(world.BlockPos{X: x, Y: y, Z: z})
		}
	}
	lineZ := func(y, x int) {
		for z := min.Z; z <= max.Z; z++ {
			add(world.BlockPos{X: x, Y: y, Z: z})
		}
	}
	lineY := func(x, z int) {
		for y := min.Y + 1; y <= max.Y-1; y++ {
			add(world.BlockPos{X: x, Y: y, Z: z})
		}
	}

	for _, y := range []int{min.Y, max.Y} {
		lineX(y, min.Z)
		lineX(y, max.Z)
		lineZ(y, min.X)
		lineZ(y, max.X)
	}
	lineY(min.X, min.Z)
	lineY(max.X, min.Z)
	lineY(min.X, max.Z)
	lineY(max.X, max.Z)
	return ports
}

// ReadBus decodes one field starting at start. With no ports left the value
// is 0; with exactly one it is that port's strength clamped to 0..15; with
// more, up to maxBits ports each contribute bit i when their strength is at
// least 1. It returns the value and the index of the next unread port.
func ReadBus(strengths []int, start, maxBits int) (value, next int) {
	remaining := len(strengths) - start
	switch {
	case remaining <= 0:
		return 0, start
	case remaining == 1:
		return min(max(strengths[start], 0), 15), start + 1
	}
	bits := min(maxBits, remaining)
	for i := range bits {
		if strengths[start+i] >= 1 {
			value |= 1 << i
		}
	}
	return value, start + bits
}

// PowerSource reports the redstone strength a position receives.
type PowerSource interface {
	ReceivedPower(pos world.BlockPos) int
}

// Codes is the triple carried on the edge bus.
type Codes struct {
	Model int
	Anim  int
	Ctrl  int
}

// IsZero reports whether all three codes are zero.
func (c Codes) IsZero() bool { return c == Codes{} }

// Clamp limits the codes to their wire ranges.
func (c Codes) Clamp() Codes {
	return Codes{
		Model: min(max(c.Model, 0), MaxModel),
		Anim:  min(max(c.Anim, 0), MaxAnim),
		Ctrl:  min(max(c.Ctrl, 0), MaxCtrl),
	}
}

// Encode reads the edge ports of c and splits them into the model,
// animation and control fields.
func Encode(power PowerSource, c structure.Cuboid) Codes {
	ports := EdgePorts(c.Min, c.Max)
	strengths := make([]int, len(ports))
	for i, p := range ports {
		strengths[i] = power.ReceivedPower(p)
	}

	var out Codes
	i := 0
	out.Model, i = ReadBus(strengths, i, ModelBits)
	out.Anim, i = ReadBus(strengths, i, AnimBits)
	out.Ctrl, _ = ReadBus(strengths, i, CtrlBits)
	return out
}
