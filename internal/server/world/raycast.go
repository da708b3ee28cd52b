package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// LookVector converts a yaw/pitch pair in degrees to a unit direction,
// using the 1.8 convention (yaw 0 faces +Z, positive pitch looks down).
func LookVector(yaw, pitch float32) mgl64.Vec3 {
	y := mgl64.DegToRad(float64(yaw))
	p := mgl64.DegToRad(float64(pitch))
	return mgl64.Vec3{
		-math.Sin(y) * math.Cos(p),
		-math.Sin(p),
		math.Cos(y) * math.Cos(p),
	}
}

// Raycast walks the voxel grid from origin along dir and returns the first
// non-air block within maxDist.
func (w *World) Raycast(origin, dir mgl64.Vec3, maxDist float64) (BlockPos, bool) {
	if dir.Len() == 0 {
		return BlockPos{}, false
	}
	dir = dir.Normalize()

	pos := BlockPos{
		int(math.Floor(origin.X())),
		int(math.Floor(origin.Y())),
		int(math.Floor(origin.Z())),
	}

	var step [3]int
	var tMax, tDelta [3]float64
	cell := [3]int{pos.X, pos.Y, pos.Z}
	for i := range 3 {
		switch {
		case dir[i] > 0:
			step[i] = 1
			tMax[i] = (float64(cell[i]+1) - origin[i]) / dir[i]
			tDelta[i] = 1 / dir[i]
		case dir[i] < 0:
			step[i] = -1
			tMax[i] = (origin[i] - float64(cell[i])) / -dir[i]
			tDelta[i] = -1 / dir[i]
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	for t := 0.0; t <= maxDist; {
		if cell[1] >= 0 && cell[1] < 256 && w.GetBlock(cell[0], cell[1], cell[2]) != 0 {
			return BlockPos{cell[0], cell[1], cell[2]}, true
		}
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t = tMax[axis]
		tMax[axis] += tDelta[axis]
		cell[axis] += step[axis]
	}
	return BlockPos{}, false
}
