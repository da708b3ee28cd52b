package bus

import (
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// facePorts returns the eight corner and edge-centre positions of the
// horizontal face at y: NW, N, NE, W, E, SW, S, SE.
func facePorts(c structure.Cuboid, y int) [8]world.BlockPos {
	cx, cz := (c.Min.X+c.Max.X)/2, (c.Min.Z+c.Max.Z)/2
	return [8]world.BlockPos{
		{X: c.Min.X, Y: y, Z: c.Min.Z},
		{X: cx, Y: y, Z: c.Min.Z},
		{X: c.Max.X, Y: y, Z: c.Min.Z},
		{X: c.Min.X, Y: y, Z: cz},
		{X: c.Max.X, Y: y, Z: cz},
		{X: c.Min.X, Y: y, Z: c.Max.Z},
		{X: cx, Y: y, Z: c.Max.Z},
		{X: c.Max.X, Y: y, Z: c.Max.Z},
	}
}

// cornerPorts returns the four vertical edges at the middle layer: NW, NE, SW, SE.
func cornerPorts(c structure.Cuboid) [4]world.BlockPos {
	y := c.MidY()
	return [4]world.BlockPos{
		{X: c.Min.X, Y: y, Z: c.Min.Z},
		{X: c.Max.X, Y: y, Z: c.Min.Z},
		{X: c.Min.X, Y: y, Z: c.Max.Z},
		{X: c.Max.X, Y: y, Z: c.Max.Z},
	}
}

func bits(power PowerSource, ports []world.BlockPos) int {
	v := 0
	for i, p := range ports {
		if power.ReceivedPower(p) >= 1 {
			v |= 1 << i
		}
	}
	return v
}

// EncodeFaceBus is the fallback layout: model on the bottom face, animation
// on the top face, control on the vertical edges at the middle layer.
// Every port is a single bit.
func EncodeFaceBus(power PowerSource, c structure.Cuboid) Codes {
	bottom := facePorts(c, c.Min.Y)
	top := facePorts(c, c.Max.Y)
	corners := cornerPorts(c)
	return Codes{
		Model: bits(power, bottom[:]),
		Anim:  bits(power, top[:]),
		Ctrl:  bits(power, corners[:]),
	}
}
