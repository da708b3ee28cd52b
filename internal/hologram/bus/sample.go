package bus

import (
	"github.com/go-theft-craft/hologram/internal/hologram/structure"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// Control flag bits.
const (
	CtrlIgnoreDepth = 1 << 0
	CtrlWorldLight  = 0x3
	CtrlNoCull      = 1 << 2
)

// WorldLit reports whether ctrl selects world lighting.
func WorldLit(ctrl int) bool { return ctrl&CtrlWorldLight == CtrlWorldLight }

// IgnoresDepth reports whether ctrl disables depth testing. World-lit
// holograms always honour depth.
func IgnoresDepth(ctrl int) bool { return ctrl&CtrlIgnoreDepth != 0 && !WorldLit(ctrl) }

// NoCull reports whether ctrl disables back-face culling.
func NoCull(ctrl int) bool { return ctrl&CtrlNoCull != 0 }

// samplesPerAxis bounds the cost of SamplePower on large cuboids.
const samplesPerAxis = 32

func strideFor(size int) int {
	if size <= samplesPerAxis {
		return 1
	}
	return (size + samplesPerAxis - 1) / samplesPerAxis
}

// SamplePower returns the strongest signal received anywhere on the six
// faces of c, visiting a strided grid and stopping early at 15.
func SamplePower(power PowerSource, c structure.Cuboid) int {
	sx, sy, sz := strideFor(c.SizeX()), strideFor(c.SizeY()), strideFor(c.SizeZ())
	best := 0
	probe := func(x, y, z int) bool {
		best = max(best, power.ReceivedPower(world.BlockPos{X: x, Y: y, Z: z}))
		return best >= world.MaxSignal
	}

	for y := c.Min.Y; y <= c.Max.Y; y += sy {
		for z := c.Min.Z; z <= c.Max.Z; z += sz {
			if probe(c.Min.X, y, z) || probe(c.Max.X, y, z) {
				return world.MaxSignal
			}
		}
	}
	for x := c.Min.X; x <= c.Max.X; x += sx {
		for z := c.Min.Z; z <= c.Max.Z; z += sz {
			if probe(x, c.Min.Y, z) || probe(x, c.Max.Y, z) {
				return world.MaxSignal
			}
		}
	}
	for y := c.Min.Y; y <= c.Max.Y; y += sy {
		for x := c.Min.X; x <= c.Max.X; x += sx {
			if probe(x, y, c.Min.Z) || probe(x, y, c.Max.Z) {
				return world.MaxSignal
			}
		}
	}
	return best
}

// Params are the four quantized parameters, each 0..15.
type Params struct {
	ScaleQ int
	OffXQ  int
	OffYQ  int
	OffZQ  int
}

// ParamPorts returns the middle-layer face centres in order scale (north),
// offset X (east), offset Y (south), offset Z (west).
func ParamPorts(c structure.Cuboid) [4]world.BlockPos {
	y := c.MidY()
	cx, cz := (c.Min.X+c.Max.X)/2, (c.Min.Z+c.Max.Z)/2
	return [4]world.BlockPos{
		{X: cx, Y: y, Z: c.Min.Z},
		{X: c.Max.X, Y: y, Z: cz},
		{X: cx, Y: y, Z: c.Max.Z},
		{X: c.Min.X, Y: y, Z: cz},
	}
}

// ReadParams samples the parameter ports of c.
func ReadParams(power PowerSource, c structure.Cuboid) Params {
	ports := ParamPorts(c)
	q := func(i int) int { return min(max(power.ReceivedPower(ports[i]), 0), 15) }
	return Params{ScaleQ: q(0), OffXQ: q(1), OffYQ: q(2), OffZQ: q(3)}
}

// Sample is one full reading of a cuboid.
type Sample struct {
	Codes
	Params
	Power int
}

// Read samples codes, parameters and coarse power for c. When the edge bus
// reads all zero but the cuboid is powered, the face-bus layout is tried.
func Read(power PowerSource, c structure.Cuboid) Sample {
	s := Sample{
		Codes:  Encode(power, c),
		Params: ReadParams(power, c),
		Power:  SamplePower(power, c),
	}
	if s.Codes.IsZero() && s.Power > 0 {
		if fb := EncodeFaceBus(power, c); !fb.IsZero() {
			s.Codes = fb
		}
	}
	return s
}
