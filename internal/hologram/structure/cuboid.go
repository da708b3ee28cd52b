// Package structure finds axis-aligned cuboids built from a single block type.
package structure

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/go-theft-craft/hologram/internal/server/world"
)

// Cuboid is an inclusive box of block positions. Min <= Max on every axis.
type Cuboid struct {
	Dimension string
	Min, Max  world.BlockPos
}

func (c Cuboid) SizeX() int { return c.Max.X - c.Min.X + 1 }
func (c Cuboid) SizeY() int { return c.Max.Y - c.Min.Y + 1 }
func (c Cuboid) SizeZ() int { return c.Max.Z - c.Min.Z + 1 }

// Volume is the number of positions inside the box.
func (c Cuboid) Volume() int { return c.SizeX() * c.SizeY() * c.SizeZ() }

// Contains reports whether pos lies inside the box.
func (c Cuboid) Contains(pos world.BlockPos) bool {
	return pos.X >= c.Min.X && pos.X <= c.Max.X &&
		pos.Y >= c.Min.Y && pos.Y <= c.Max.Y &&
		pos.Z >= c.Min.Z && pos.Z <= c.Max.Z
}

// Key identifies the bounds within a dimension.
func (c Cuboid) Key() string {
	return fmt.Sprintf("%d,%d,%d|%d,%d,%d", c.Min.X, c.Min.Y, c.Min.Z, c.Max.X, c.Max.Y, c.Max.Z)
}

// Center is the geometric centre in world space.
func (c Cuboid) Center() mgl64.Vec3 {
	return mgl64.Vec3{
		float64(c.Min.X+c.Max.X+1) / 2,
		float64(c.Min.Y+c.Max.Y+1) / 2,
		float64(c.Min.Z+c.Max.Z+1) / 2,
	}
}

// MidY is the middle layer used for parameter and face-bus ports.
func (c Cuboid) MidY() int { return (c.Min.Y + c.Max.Y) / 2 }

func (c Cuboid) String() string {
	return fmt.Sprintf("%s[%d,%d,%d -> %d,%d,%d]", c.Dimension,
		c.Min.X, c.Min.Y, c.Min.Z, c.Max.X, c.Max.Y, c.Max.Z)
}
